package capabilities

import (
	"encoding/json"

	"github.com/gate4ai/mcpclient/protocol"
	"github.com/gate4ai/mcpclient/schema/schema2025"
	"github.com/gate4ai/mcpclient/tasks"
	"go.uber.org/zap"
)

// Ping answers the server's liveness check with an empty result; it
// carries no client-configurable behavior, so unlike Sampling/Roots/
// Elicitation it has no subscriber to wire up.
type Ping struct {
	handlers map[string]func(*protocol.Message) (interface{}, error)
}

// NewPing builds the ping/pong responder.
func NewPing() *Ping {
	p := &Ping{}
	p.handlers = map[string]func(*protocol.Message) (interface{}, error){
		"ping": p.handlePing,
	}
	return p
}

// GetHandlers implements session.ICapability.
func (p *Ping) GetHandlers() map[string]func(*protocol.Message) (interface{}, error) {
	return p.handlers
}

// SetCapabilities implements session.IClientCapability as a no-op: ping
// support isn't something a server negotiates, it's always answered.
func (p *Ping) SetCapabilities(*schema2025.ClientCapabilities) {}

func (p *Ping) handlePing(msg *protocol.Message) (interface{}, error) {
	msg.Processed = true
	return struct{}{}, nil
}

// LogFunc receives one notifications/message log emitted by the server.
type LogFunc func(notification schema2025.LoggingMessageNotificationParams)

// Logging routes the server's notifications/message traffic to a
// subscriber; since it's a notification (no request id), the handler
// result is always discarded by session.Input and errors are only ever
// logged, never returned to the server.
type Logging struct {
	logger     *zap.Logger
	subscriber LogFunc
	handlers   map[string]func(*protocol.Message) (interface{}, error)
}

// NewLogging builds the notifications/message router.
func NewLogging(logger *zap.Logger, subscriber LogFunc) *Logging {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Logging{logger: logger, subscriber: subscriber}
	l.handlers = map[string]func(*protocol.Message) (interface{}, error){
		"notifications/message": l.handleMessage,
	}
	return l
}

func (l *Logging) handleMessage(msg *protocol.Message) (interface{}, error) {
	msg.Processed = true
	if l.subscriber == nil || msg.Params == nil {
		return nil, nil
	}
	var params schema2025.LoggingMessageNotificationParams
	if err := json.Unmarshal(*msg.Params, &params); err != nil {
		l.logger.Warn("notifications/message: invalid params", zap.Error(err))
		return nil, nil
	}
	l.subscriber(params)
	return nil, nil
}

// GetHandlers implements session.ICapability.
func (l *Logging) GetHandlers() map[string]func(*protocol.Message) (interface{}, error) {
	return l.handlers
}

// SetCapabilities implements session.IClientCapability as a no-op: the
// client always accepts log notifications, there's no flag to negotiate.
func (l *Logging) SetCapabilities(*schema2025.ClientCapabilities) {}

// Bundle collects every inbound server-request/notification handler the
// client ships with, ready to be registered on session.Input in one call
// via AddClientCapability(bundle.All()...).
type Bundle struct {
	Sampling     *Sampling
	Roots        *Roots
	Elicitation  *Elicitation
	Ping         *Ping
	Logging      *Logging
	Cancellation *Cancellation
	Tasks        *Tasks
	Inbound      *InboundCancellation
}

// NewBundle wires up every capability with a shared logger, and a single
// InboundCancellation registry shared by Sampling, Elicitation, and
// Cancellation so a notifications/cancelled for either request family
// reaches the right worker. The caller attaches subscribers
// (Sampling.Subscribe, Roots.SetProvider, Elicitation.Subscribe) after
// construction, and a notifier (Roots.SetNotifier) once a session exists
// to send notifications through. taskRegistry may be nil if the caller
// never enables task-augmented requests, in which case a private registry
// is created and Tasks.handleStatus stores notifications there, where no
// caller reads them.
func NewBundle(logger *zap.Logger, logSubscriber LogFunc, taskRegistry *tasks.Registry) *Bundle {
	inbound := NewInboundCancellation()
	if taskRegistry == nil {
		taskRegistry = tasks.NewRegistry(logger, 0)
	}
	return &Bundle{
		Sampling:     NewSampling(logger, inbound),
		Roots:        NewRoots(logger, nil),
		Elicitation:  NewElicitation(logger, inbound),
		Ping:         NewPing(),
		Logging:      NewLogging(logger, logSubscriber),
		Cancellation: NewCancellation(logger, inbound),
		Tasks:        NewTasks(logger, taskRegistry),
		Inbound:      inbound,
	}
}

// clientCapability mirrors session.IClientCapability structurally (every
// type in the bundle satisfies it) without this package importing
// session, which would otherwise need to import capabilities back to wire
// a client — a cycle neither side needs.
type clientCapability interface {
	GetHandlers() map[string]func(*protocol.Message) (interface{}, error)
	SetCapabilities(c *schema2025.ClientCapabilities)
}

// All returns every capability in the bundle, ready to pass straight to
// session.Input.AddClientCapability(bundle.All()...).
func (b *Bundle) All() []clientCapability {
	return []clientCapability{b.Sampling, b.Roots, b.Elicitation, b.Ping, b.Logging, b.Cancellation, b.Tasks}
}
