package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/gate4ai/mcpclient/protocol"
	"github.com/gate4ai/mcpclient/session"
	"go.uber.org/zap"
)

// StdioConfig configures a child-process MCP server reached over its own
// stdin/stdout, line-framed.
type StdioConfig struct {
	Command    string
	Args       []string
	WorkingDir string
	Env        []string
	Logger     *zap.Logger

	// MaxRestarts bounds how many times a broken stdin/stdout pipe is
	// recovered from by killing the child and respawning it (§4.B). 0
	// disables restart: a write failure goes straight to Abandon, matching
	// a transport with no recovery story.
	MaxRestarts int
	// OnRestarted is invoked, if set, after pending calls have been
	// abandoned and the respawn succeeded, so the owner (client.Client) can replay
	// the initialize handshake against the fresh child process. A restart
	// still abandons every call that was in flight at the moment of
	// failure — only the session itself, not any individual call, survives
	// a restart.
	OnRestarted func(ctx context.Context) error
}

// Stdio drives a session over a spawned child process's stdio pipes.
type Stdio struct {
	Base
	cfg    StdioConfig
	logger *zap.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	closed   bool
	done     chan struct{}
	restarts int
}

// NewStdio builds a Stdio transport bound to sess; the child process isn't
// started until Open is called.
func NewStdio(sess session.ISession, cfg StdioConfig) *Stdio {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stdio{
		Base:   Base{Session: sess},
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Open spawns the child process and starts the write pump (draining the
// session's output channel to stdin) and the read pump (feeding decoded
// lines from stdout into session.Input()). Stderr is drained line by line
// into the logger at debug level, never parsed as protocol traffic.
func (t *Stdio) Open(ctx context.Context) (<-chan struct{}, error) {
	if t.cfg.Command == "" {
		return nil, fmt.Errorf("stdio transport: command is required")
	}

	cmd, stdin, stdout, stderr, err := t.spawn(ctx)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.cmd = cmd
	t.stdin = stdin
	t.mu.Unlock()

	output, ok := t.Session.AcquireOutput()
	if !ok {
		t.shutdown(fmt.Errorf("stdio transport: failed to acquire session output"))
		return nil, fmt.Errorf("stdio transport: failed to acquire session output")
	}

	go t.drainStderr(stderr)
	go t.readLoop(stdout)
	go t.writeLoop(ctx, output)

	t.Session.SetStatus(session.StatusConnected)
	return t.done, nil
}

// spawn starts one child process instance and opens its three streams.
// Shared by Open and respawn so a restart follows exactly the same
// construction as the initial start.
func (t *Stdio) spawn(ctx context.Context) (*exec.Cmd, io.WriteCloser, io.ReadCloser, io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, t.cfg.Command, t.cfg.Args...)
	if t.cfg.WorkingDir != "" {
		cmd.Dir = t.cfg.WorkingDir
	}
	if len(t.cfg.Env) > 0 {
		cmd.Env = t.cfg.Env
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("stdio transport: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, nil, nil, nil, fmt.Errorf("stdio transport: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return nil, nil, nil, nil, fmt.Errorf("stdio transport: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return nil, nil, nil, nil, fmt.Errorf("stdio transport: start command: %w", err)
	}
	return cmd, stdin, stdout, stderr, nil
}

// recoverOrShutdown implements §4.B's restart transition: tear down the
// dead child, respawn it, and — if the owner supplied OnRestarted — replay
// the initialize handshake against the fresh process. Every call that was
// in flight at the moment of failure is abandoned with ErrTransportClosed
// regardless of whether the restart itself succeeds; only the session
// survives a restart, never an individual outstanding call. Returns
// whether the transport is usable afterward (false means Close/shutdown
// already ran and the caller's loop must exit).
func (t *Stdio) recoverOrShutdown(ctx context.Context, cause error) bool {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return false
	}
	if t.cfg.MaxRestarts <= 0 || t.restarts >= t.cfg.MaxRestarts {
		t.mu.Unlock()
		t.shutdown(cause)
		return false
	}
	t.restarts++
	attempt := t.restarts
	if t.stdin != nil {
		t.stdin.Close()
	}
	if t.cmd != nil && t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
	t.mu.Unlock()

	t.logger.Warn("stdio transport: respawning child after failure", zap.Error(cause), zap.Int("attempt", attempt))
	t.Session.GetRequestManager().Abandon(ErrTransportClosed)

	cmd, stdin, stdout, stderr, err := t.spawn(ctx)
	if err != nil {
		t.logger.Error("stdio transport: respawn failed", zap.Error(err))
		t.shutdown(err)
		return false
	}
	t.mu.Lock()
	t.cmd = cmd
	t.stdin = stdin
	t.mu.Unlock()
	go t.drainStderr(stderr)
	go t.readLoop(stdout)

	if t.cfg.OnRestarted != nil {
		if err := t.cfg.OnRestarted(ctx); err != nil {
			t.logger.Error("stdio transport: replay initialize after restart failed", zap.Error(err))
			t.shutdown(err)
			return false
		}
	}
	return true
}

func (t *Stdio) drainStderr(stderr io.ReadCloser) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		t.logger.Debug("stdio child stderr", zap.String("line", scanner.Text()))
	}
}

// readLoop runs for the lifetime of one child process's stdout. Its EOF
// doesn't necessarily end the transport: recoverOrShutdown may respawn the
// child and start a fresh readLoop for the new stdout, in which case this
// instance simply returns (the old stdout is gone for good, unlike a
// stdin write failure which the write pump just retries against the new
// pipe on its next message).
func (t *Stdio) readLoop(stdout io.ReadCloser) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		msgs, err := protocol.ParseMessages(t.Session, line)
		if err != nil {
			t.logger.Error("stdio transport: invalid JSON-RPC line", zap.Error(err))
			continue
		}
		for _, msg := range msgs {
			if err := t.Session.Input().Put(msg, t.Session); err != nil {
				t.logger.Warn("stdio transport: input rejected message", zap.Error(err))
			}
		}
	}
	t.recoverOrShutdown(context.Background(), fmt.Errorf("stdio transport: child stdout closed"))
}

func (t *Stdio) writeLoop(ctx context.Context, output <-chan *protocol.Message) {
	for {
		select {
		case msg, ok := <-output:
			if !ok {
				t.shutdown(fmt.Errorf("stdio transport: session output closed"))
				return
			}
			data, err := msg.MarshalJSON()
			if err != nil {
				t.logger.Error("stdio transport: marshal failed", zap.Error(err))
				continue
			}
			t.mu.Lock()
			stdin := t.stdin
			t.mu.Unlock()
			if stdin == nil {
				return
			}
			if _, err := stdin.Write(append(data, '\n')); err != nil {
				t.logger.Warn("stdio transport: write to child stdin failed", zap.Error(err))
				if !t.recoverOrShutdown(ctx, err) {
					return
				}
				continue
			}
		case <-ctx.Done():
			t.shutdown(ctx.Err())
			return
		}
	}
}

func (t *Stdio) shutdown(err error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()

	t.Session.SetStatus(session.StatusDisconnected)
	t.Session.GetRequestManager().Abandon(ErrTransportClosed)
	close(t.done)
	if err != nil {
		t.logger.Info("stdio transport closed", zap.Error(err))
	}
}

// Close stops the child process and abandons any pending calls.
func (t *Stdio) Close() error {
	t.mu.Lock()
	cmd := t.cmd
	stdin := t.stdin
	t.mu.Unlock()

	if stdin != nil {
		stdin.Close()
	}
	t.shutdown(nil)

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	}
	return nil
}
