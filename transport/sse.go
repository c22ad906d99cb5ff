package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gate4ai/mcpclient/protocol"
	"github.com/gate4ai/mcpclient/session"
	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"
	"gopkg.in/cenkalti/backoff.v1"
)

// parseEndpointEvent extracts the POST endpoint from a bootstrap "endpoint"
// event body, which the spec allows to be either a bare path/URL string or a
// JSON object {"url": ..., "last_event_id": ...}.
func parseEndpointEvent(data []byte) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var obj struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return "", fmt.Errorf("invalid endpoint event object: %w", err)
		}
		if obj.URL == "" {
			return "", errors.New("endpoint event object missing url")
		}
		return obj.URL, nil
	}
	return string(trimmed), nil
}

// SSEConfig configures the legacy (2024-11-05) HTTP+SSE transport: a GET
// that streams an "endpoint" bootstrap event followed by "message" events,
// with requests sent as separate POSTs to the bootstrapped endpoint.
type SSEConfig struct {
	URL        *url.URL
	HTTPClient *http.Client
	Headers    map[string]string
	Logger     *zap.Logger
	// Auth supplies the Authorization header attached to every outbound
	// POST and is consulted when the stream or a POST reports 401.
	Auth AuthProvider
	// Version selects "http1" or "http2" (the default). HTTP/2 forbids a
	// Connection header entirely (§4.C); it is only ever sent when Version
	// is explicitly "http1".
	Version string
}

// SSE implements Transport for the legacy HTTP+SSE binding.
type SSE struct {
	Base
	cfg        SSEConfig
	logger     *zap.Logger
	httpClient *http.Client

	mu               sync.RWMutex
	postEndpoint     string
	sseClient        *sse.Client
	sseCh            chan *sse.Event
	closeCh          chan struct{}
	done             chan struct{}
	closed           bool
	ready            chan error
	fallbackDisabled bool
}

// FallbackDisabled reports whether a 405 from the stream endpoint has
// disabled SSE fallback for this instance (§4.C).
func (t *SSE) FallbackDisabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.fallbackDisabled
}

// NewSSE builds an SSE transport bound to sess.
func NewSSE(sess session.ISession, cfg SSEConfig) *SSE {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SSE{
		Base:       Base{Session: sess},
		cfg:        cfg,
		logger:     logger,
		httpClient: httpClient,
		sseCh:      make(chan *sse.Event, 100),
		closeCh:    make(chan struct{}),
		done:       make(chan struct{}),
		ready:      make(chan error, 1),
	}
}

// stopWords names substrings of an SSE reconnect error that mean "retrying
// will never succeed" — auth failures and DNS failures foremost.
func stopWords(errMsg string) bool {
	for _, w := range []string{"Unauthorized", "no such host", "connection refused", "cannot resolve", "unknown host", "lookup"} {
		if strings.Contains(errMsg, w) {
			return true
		}
	}
	return false
}

// Open subscribes to the SSE stream with an unbounded exponential backoff
// (cancelled early on an unrecoverable stopWords error) and starts the
// session's output drain once the server's bootstrap "endpoint" event
// arrives.
func (t *SSE) Open(ctx context.Context) (<-chan struct{}, error) {
	t.Session.SetStatus(session.StatusConnecting)

	sseCtx, sseCancel := context.WithCancel(ctx)
	t.sseClient = sse.NewClient(t.cfg.URL.String())
	t.sseClient.Headers = map[string]string{
		"Accept":        "text/event-stream",
		"Cache-Control": "no-cache",
	}
	if t.cfg.Version == "http1" {
		// HTTP/2 forbids a Connection header; only send it when the caller
		// has pinned this connection to HTTP/1.1.
		t.sseClient.Headers["Connection"] = "keep-alive"
	}
	for k, v := range t.cfg.Headers {
		t.sseClient.Headers[k] = v
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = 0
	t.sseClient.ReconnectStrategy = backoff.WithContext(expBackoff, sseCtx)
	t.sseClient.ReconnectNotify = func(err error, d time.Duration) {
		t.logger.Warn("sse reconnecting", zap.Error(err), zap.Duration("delay", d))
		if strings.Contains(err.Error(), "405") {
			t.mu.Lock()
			t.fallbackDisabled = true
			t.mu.Unlock()
			sseCancel()
			return
		}
		if stopWords(err.Error()) {
			if t.cfg.Auth != nil && strings.Contains(err.Error(), "401") {
				if hErr := t.cfg.Auth.HandleChallenge(sseCtx, http.StatusUnauthorized, ""); hErr == nil {
					return // let the backoff reconnect with a fresh token
				}
			}
			sseCancel()
		}
	}

	if err := t.sseClient.SubscribeChanWithContext(sseCtx, "", t.sseCh); err != nil {
		sseCancel()
		t.Session.SetStatus(session.StatusNew)
		return nil, fmt.Errorf("sse subscription failed: %w", err)
	}

	output, ok := t.Session.AcquireOutput()
	if !ok {
		sseCancel()
		return nil, fmt.Errorf("failed to acquire session output")
	}

	go t.processLoop(ctx, sseCancel, output)

	select {
	case err := <-t.ready:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return t.done, nil
}

func (t *SSE) processLoop(ctx context.Context, sseCancel context.CancelFunc, output <-chan *protocol.Message) {
	defer func() {
		sseCancel()
		t.mu.Lock()
		if t.sseClient != nil {
			t.sseClient.Unsubscribe(t.sseCh)
		}
		t.mu.Unlock()
		t.Session.ReleaseOutput()
		t.shutdown(nil)
	}()

	for {
		select {
		case msg, ok := <-output:
			if !ok {
				return
			}
			t.send(ctx, msg)
		case event, ok := <-t.sseCh:
			if !ok {
				return
			}
			t.handleEvent(event)
		case <-t.closeCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (t *SSE) handleEvent(event *sse.Event) {
	if event == nil {
		return
	}
	switch string(event.Event) {
	case "endpoint":
		t.mu.Lock()
		already := t.postEndpoint != ""
		t.mu.Unlock()
		if already {
			return
		}
		if len(event.Data) == 0 {
			t.signalReady(errors.New("empty endpoint event data"))
			return
		}
		rawURL, err := parseEndpointEvent(event.Data)
		if err != nil {
			t.signalReady(err)
			return
		}
		postURL, err := url.Parse(rawURL)
		if err != nil {
			t.signalReady(fmt.Errorf("invalid endpoint url: %w", err))
			return
		}
		t.mu.Lock()
		t.postEndpoint = t.cfg.URL.ResolveReference(postURL).String()
		t.mu.Unlock()
		t.Session.SetStatus(session.StatusConnected)
		t.signalReady(nil)
	case "message":
		if len(event.Data) == 0 {
			return
		}
		msgs, err := protocol.ParseMessages(t.Session, event.Data)
		if err != nil {
			t.logger.Error("sse transport: invalid JSON-RPC message", zap.Error(err))
			return
		}
		for _, msg := range msgs {
			if err := t.Session.Input().Put(msg, t.Session); err != nil {
				t.logger.Warn("sse transport: input rejected message", zap.Error(err))
			}
		}
	case "ping":
		t.logger.Debug("sse ping")
	default:
		t.logger.Warn("sse transport: unknown event", zap.String("event", string(event.Event)))
	}
}

func (t *SSE) signalReady(err error) {
	select {
	case t.ready <- err:
	default:
	}
}

// send posts msg to the current postEndpoint, retrying exactly once per
// message if the server challenges with a 401 and the retry resolves it.
func (t *SSE) send(ctx context.Context, msg *protocol.Message) {
	t.sendAttempt(ctx, msg, false)
}

func (t *SSE) sendAttempt(ctx context.Context, msg *protocol.Message, retried bool) {
	t.mu.RLock()
	endpoint := t.postEndpoint
	t.mu.RUnlock()

	notifyError := func(err error) {
		if msg.ID != nil && !msg.ID.IsEmpty() {
			t.Session.GetRequestManager().ProcessResponse(&protocol.Message{ID: msg.ID, Error: protocol.NewError(err)})
		}
	}

	if endpoint == "" {
		notifyError(errors.New("post endpoint not yet established"))
		return
	}

	data, err := msg.MarshalJSON()
	if err != nil {
		notifyError(fmt.Errorf("marshal request: %w", err))
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		notifyError(fmt.Errorf("build request: %w", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if t.cfg.Auth != nil {
		if v, ok := t.cfg.Auth.AuthHeader(reqCtx); ok {
			req.Header.Set("Authorization", v)
		}
	}
	for k, v := range t.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		notifyError(fmt.Errorf("post to %s: %w", endpoint, err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && t.cfg.Auth != nil && !retried {
		wwwAuth := resp.Header.Get("WWW-Authenticate")
		if hErr := t.cfg.Auth.HandleChallenge(ctx, http.StatusUnauthorized, wwwAuth); hErr == nil {
			t.sendAttempt(ctx, msg, true)
			return
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		notifyError(fmt.Errorf("post to %s failed with status %d: %s", endpoint, resp.StatusCode, body))
	}
}

func (t *SSE) shutdown(err error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()

	t.Session.SetStatus(session.StatusNew)
	t.Session.GetRequestManager().Abandon(ErrTransportClosed)
	close(t.done)
}

// Close stops the SSE subscription and the write pump.
func (t *SSE) Close() error {
	t.mu.Lock()
	if t.closeCh != nil {
		select {
		case <-t.closeCh:
		default:
			close(t.closeCh)
		}
	}
	t.mu.Unlock()
	return nil
}
