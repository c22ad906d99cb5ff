package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gate4ai/mcpclient/protocol"
	"github.com/gate4ai/mcpclient/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestStreamableResumeWiredAfterInitializeAccepted covers §4.D: a 202
// Accepted response to the initialize POST must open the resumable GET
// stream, which then delivers the server's out-of-band messages.
func TestStreamableResumeWiredAfterInitializeAccepted(t *testing.T) {
	var getCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.Header().Set("Mcp-Session-Id", "sess-1")
			w.WriteHeader(http.StatusAccepted)
		case http.MethodGet:
			getCount.Add(1)
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("id: 1\ndata: {\"jsonrpc\":\"2.0\",\"method\":\"notifications/ping\"}\n\n"))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer server.Close()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	input := session.NewInput(zap.NewNop())
	sess := session.NewBaseSession(zap.NewNop(), "", input, nil)

	tr := NewStreamable(sess, StreamableConfig{
		URL:               u,
		HTTPClient:        server.Client(),
		ReconnectAttempts: 1,
	})

	done, err := tr.Open(context.Background())
	require.NoError(t, err)
	defer tr.Close()

	_, err = sess.SendRequest("initialize", map[string]string{}, false, 0, func(*protocol.Message) {})
	_ = err

	require.Eventually(t, func() bool {
		return getCount.Load() > 0
	}, time.Second, 10*time.Millisecond, "resumable GET was never opened after the initialize 202")

	select {
	case <-done:
		t.Fatal("transport closed unexpectedly")
	default:
	}
}

// TestStreamablePostRetriesOn401OncePerRequest covers the per-request fix
// to §4.D's "retry exactly once" semantic: a transport that has already
// retried one request must still retry the next request's own 401, and
// each request's 401 reaches the auth provider exactly once.
func TestStreamablePostRetriesOn401OncePerRequest(t *testing.T) {
	var mu sync.Mutex
	challengeRequests := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		challengeRequests++
		n := challengeRequests
		mu.Unlock()
		if n%2 == 1 {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	input := session.NewInput(zap.NewNop())
	sess := session.NewBaseSession(zap.NewNop(), "", input, nil)

	var handleChallengeCalls atomic.Int32
	auth := fakeAuthProvider{onChallenge: func() { handleChallengeCalls.Add(1) }}

	tr := NewStreamable(sess, StreamableConfig{
		URL:        u,
		HTTPClient: server.Client(),
		Auth:       auth,
	})

	for i := 0; i < 2; i++ {
		resp, retried, err := tr.post(context.Background(), []byte(`{}`))
		require.NoError(t, err)
		assert.True(t, retried, "each fresh request must retry its own 401")
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		resp.Body.Close()
	}

	assert.Equal(t, int32(2), handleChallengeCalls.Load(), "each request's 401 must reach the auth provider once")
}

type fakeAuthProvider struct {
	onChallenge func()
}

func (f fakeAuthProvider) AuthHeader(context.Context) (string, bool) { return "", false }

func (f fakeAuthProvider) HandleChallenge(context.Context, int, string) error {
	f.onChallenge()
	return nil
}
