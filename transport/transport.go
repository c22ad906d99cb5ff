// Package transport implements the three MCP transport bindings: stdio,
// SSE, and streamable HTTP. Each one drains a session's output pump onto
// the wire and feeds decoded frames back into the session's Input.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/gate4ai/mcpclient/session"
)

// ErrTransportClosed is delivered to every pending call (via
// RequestManager.Abandon) when a transport shuts down, expectedly or not.
// Callers should treat it as a terminal, non-retryable condition for the
// in-flight request — callers decide whether to reconnect and reissue.
var ErrTransportClosed = errors.New("transport closed")

// Transport is the contract every concrete transport satisfies. Open
// starts the read/write pumps and blocks until the connection is ready (or
// permanently fails); it returns a channel that's closed when the
// connection later drops for any reason. Close tears the transport down
// and abandons any pending requests.
type Transport interface {
	Open(ctx context.Context) (<-chan struct{}, error)
	Close() error
}

// Base carries the one thing every transport needs: the session whose
// output pump it drains and whose Input it feeds.
type Base struct {
	Session session.ISession
}

// AuthProvider lets the SSE and streamable HTTP transports stay ignorant
// of OAuth mechanics: they ask for a header to attach to each outbound
// request, and report a 401/403 back so the provider can refresh or
// re-authenticate before the transport retries once. oauth.Provider is the
// concrete implementation; tests and stdio (which never authenticates)
// pass nil.
type AuthProvider interface {
	// AuthHeader returns the current "Authorization: ..." header value, or
	// ok=false if no token is available yet (first request, or a flow that
	// hasn't completed).
	AuthHeader(ctx context.Context) (value string, ok bool)
	// HandleChallenge is called with the failing response's status code
	// and WWW-Authenticate header when a request comes back 401, or 403
	// with error="insufficient_scope". It returns nil once a fresher token
	// is available and the caller should retry, or a non-nil error
	// (typically *oauth.AuthenticationRequiredError) if no automatic
	// recovery was possible.
	HandleChallenge(ctx context.Context, status int, wwwAuthenticate string) error
}

// SessionExpiredError is returned by the streamable HTTP transport when a
// POST or GET carrying an Mcp-Session-Id comes back 404: the server has
// forgotten the session and it must not be retried transparently.
type SessionExpiredError struct {
	SessionID string
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("mcp session %s expired", e.SessionID)
}
