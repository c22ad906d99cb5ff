package capabilities

import (
	"sync"

	"github.com/gate4ai/mcpclient/protocol"
	"github.com/gate4ai/mcpclient/schema/schema2025"
	"go.uber.org/zap"
)

// RootsProvider returns the client's current list of filesystem roots it
// is willing to expose to the server.
type RootsProvider func() []schema2025.Root

// Roots implements the client's roots/list handler. Unlike Sampling,
// answering roots/list with an empty list is a perfectly valid response
// (a client with no provider registered simply exposes no roots), so no
// provider registered is not an error condition.
type Roots struct {
	logger   *zap.Logger
	mu       sync.RWMutex
	provider RootsProvider
	notifier func(method string, params interface{})
	handlers map[string]func(*protocol.Message) (interface{}, error)
}

// NewRoots builds a Roots capability. notifier is used to emit
// notifications/roots/list_changed on every SetProvider call, the first
// one included; pass nil if the caller doesn't need
// change notifications wired up yet (SetNotifier can attach it later).
func NewRoots(logger *zap.Logger, notifier func(method string, params interface{})) *Roots {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Roots{logger: logger, notifier: notifier}
	r.handlers = map[string]func(*protocol.Message) (interface{}, error){
		"roots/list": r.handleList,
	}
	return r
}

// GetHandlers implements session.ICapability.
func (r *Roots) GetHandlers() map[string]func(*protocol.Message) (interface{}, error) {
	return r.handlers
}

// SetCapabilities implements session.IClientCapability.
func (r *Roots) SetCapabilities(c *schema2025.ClientCapabilities) {
	c.Roots = &schema2025.RootsCapability{ListChanged: true}
}

// SetNotifier attaches the function used to emit
// notifications/roots/list_changed; the session isn't available yet at
// capability-construction time, so this is wired in once it is.
func (r *Roots) SetNotifier(notifier func(method string, params interface{})) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifier = notifier
}

// SetProvider replaces the function used to answer roots/list, and emits
// notifications/roots/list_changed so a server that already cached a
// stale list knows to re-fetch it.
func (r *Roots) SetProvider(provider RootsProvider) {
	r.mu.Lock()
	r.provider = provider
	notifier := r.notifier
	r.mu.Unlock()

	if notifier != nil {
		notifier("notifications/roots/list_changed", schema2025.RootsListChangedNotificationParams{})
	}
}

func (r *Roots) handleList(msg *protocol.Message) (interface{}, error) {
	r.mu.RLock()
	provider := r.provider
	r.mu.RUnlock()

	var roots []schema2025.Root
	if provider != nil {
		roots = provider()
	}
	msg.Processed = true
	return schema2025.ListRootsResult{Roots: roots}, nil
}
