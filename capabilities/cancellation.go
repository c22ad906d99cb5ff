package capabilities

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gate4ai/mcpclient/protocol"
	"github.com/gate4ai/mcpclient/schema/schema2025"
	"go.uber.org/zap"
)

// InboundCancellation tracks the cancel funcs of inbound server-request
// workers currently running (sampling/createMessage, elicitation/create),
// keyed by the request id the server used. A matching
// notifications/cancelled terminates the worker cooperatively rather than
// the handler ever being killed mid-flight.
type InboundCancellation struct {
	mu  sync.Mutex
	ops map[string]context.CancelFunc
}

// NewInboundCancellation builds an empty registry.
func NewInboundCancellation() *InboundCancellation {
	return &InboundCancellation{ops: make(map[string]context.CancelFunc)}
}

// Begin derives a cancellable context for the worker handling request id,
// registering it so a later notifications/cancelled can tear it down.
// cleanup must be called (typically deferred) once the worker finishes on
// its own, so a late-arriving cancel for an already-done request is a
// harmless no-op lookup miss.
func (c *InboundCancellation) Begin(parent context.Context, id string) (ctx context.Context, cleanup func()) {
	ctx, cancel := context.WithCancel(parent)
	c.mu.Lock()
	c.ops[id] = cancel
	c.mu.Unlock()
	return ctx, func() {
		c.mu.Lock()
		delete(c.ops, id)
		c.mu.Unlock()
	}
}

// Cancel cancels the worker registered for id, if any, and reports whether
// one was found.
func (c *InboundCancellation) Cancel(id string) bool {
	c.mu.Lock()
	cancel, ok := c.ops[id]
	if ok {
		delete(c.ops, id)
	}
	c.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Cancellation implements the client's handler for an inbound
// notifications/cancelled — the server telling the client to stop working
// on a sampling/elicitation request it previously dispatched.
type Cancellation struct {
	logger   *zap.Logger
	registry *InboundCancellation
	handlers map[string]func(*protocol.Message) (interface{}, error)
}

// NewCancellation builds the notifications/cancelled handler bound to
// registry, the same InboundCancellation instance Sampling and Elicitation
// register their workers with.
func NewCancellation(logger *zap.Logger, registry *InboundCancellation) *Cancellation {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cancellation{logger: logger, registry: registry}
	c.handlers = map[string]func(*protocol.Message) (interface{}, error){
		"notifications/cancelled": c.handleCancelled,
	}
	return c
}

// GetHandlers implements session.ICapability.
func (c *Cancellation) GetHandlers() map[string]func(*protocol.Message) (interface{}, error) {
	return c.handlers
}

// SetCapabilities implements session.IClientCapability as a no-op:
// cancellation support isn't negotiated, it's always on.
func (c *Cancellation) SetCapabilities(*schema2025.ClientCapabilities) {}

func (c *Cancellation) handleCancelled(msg *protocol.Message) (interface{}, error) {
	msg.Processed = true
	if msg.Params == nil {
		return nil, nil
	}
	var params schema2025.CancelledNotificationParams
	if err := json.Unmarshal(*msg.Params, &params); err != nil {
		c.logger.Debug("notifications/cancelled: invalid params", zap.Error(err))
		return nil, nil
	}
	id := params.RequestID.String()
	if !c.registry.Cancel(id) {
		c.logger.Debug("notifications/cancelled for unknown or already-finished request", zap.String("requestId", id))
	}
	return nil, nil
}
