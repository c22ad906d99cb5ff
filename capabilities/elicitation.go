package capabilities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gate4ai/mcpclient/protocol"
	"github.com/gate4ai/mcpclient/schema/schema2025"
	"go.uber.org/zap"
)

// ElicitationFunc answers one elicitation/create request, presenting
// params.Message and params.RequestedSchema to whatever drives the
// client's human-in-the-loop surface (a terminal prompt, a GUI form, a
// URL handed to a browser) and returning the user's disposition. ctx is
// cancelled if the server sends a matching notifications/cancelled while
// the handler is still running.
type ElicitationFunc func(ctx context.Context, params schema2025.CreateElicitationRequestParams) (*schema2025.CreateElicitationResult, error)

// Elicitation implements the client's elicitation/create handler. A
// request arriving with no subscriber registered is answered with
// Action: decline rather than an error, since "the client has nobody to
// ask" is exactly the situation elicitation/create's decline disposition
// exists to represent.
type Elicitation struct {
	logger       *zap.Logger
	mu           sync.RWMutex
	subscriber   ElicitationFunc
	handlers     map[string]func(*protocol.Message) (interface{}, error)
	cancel       *InboundCancellation
	supportsURL  bool
}

// NewElicitation builds an Elicitation capability with no subscriber
// registered. cancellation may be nil, in which case inbound requests run
// to completion regardless of a later notifications/cancelled.
func NewElicitation(logger *zap.Logger, cancellation *InboundCancellation) *Elicitation {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Elicitation{logger: logger, cancel: cancellation}
	e.handlers = map[string]func(*protocol.Message) (interface{}, error){
		"elicitation/create": e.handleCreate,
	}
	return e
}

// GetHandlers implements session.ICapability.
func (e *Elicitation) GetHandlers() map[string]func(*protocol.Message) (interface{}, error) {
	return e.handlers
}

// SetCapabilities implements session.IClientCapability. Form-mode is
// always advertised; URL-mode only once SupportsURLMode(true) has been
// called by a presenter able to hand the server a browsable URL.
func (e *Elicitation) SetCapabilities(c *schema2025.ClientCapabilities) {
	e.mu.RLock()
	urlMode := e.supportsURL
	e.mu.RUnlock()
	ec := &schema2025.ElicitationCapability{Form: &struct{}{}}
	if urlMode {
		ec.URL = &struct{}{}
	}
	c.Elicitation = ec
}

// SupportsURLMode toggles whether the client advertises URL-mode
// elicitation support. Must be called before the initialize handshake to
// take effect.
func (e *Elicitation) SupportsURLMode(supported bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.supportsURL = supported
}

// Subscribe registers f as the handler for future elicitation requests,
// replacing any previous subscriber.
func (e *Elicitation) Subscribe(f ElicitationFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscriber = f
}

// Unsubscribe removes the current subscriber, if any.
func (e *Elicitation) Unsubscribe() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscriber = nil
}

func (e *Elicitation) handleCreate(msg *protocol.Message) (interface{}, error) {
	if msg.ID == nil {
		return nil, errors.New("cannot process elicitation/create without a request id")
	}
	if msg.Params == nil {
		return nil, &protocol.Error{Code: protocol.ErrorInvalidParams, Message: "elicitation/create: missing params"}
	}

	var params schema2025.CreateElicitationRequestParams
	if err := json.Unmarshal(*msg.Params, &params); err != nil {
		return nil, &protocol.Error{Code: protocol.ErrorInvalidParams, Message: fmt.Sprintf("elicitation/create: invalid params: %v", err)}
	}

	e.mu.RLock()
	subscriber := e.subscriber
	e.mu.RUnlock()

	msg.Processed = true

	if subscriber == nil {
		e.logger.Debug("elicitation/create received with no subscriber registered, declining")
		return &schema2025.CreateElicitationResult{Action: schema2025.ElicitationActionDecline}, nil
	}

	ctx := context.Background()
	if e.cancel != nil {
		var cleanup func()
		ctx, cleanup = e.cancel.Begin(ctx, msg.ID.String())
		defer cleanup()
	}

	result, err := subscriber(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("elicitation handler: %w", err)
	}
	if result == nil {
		return nil, errors.New("elicitation handler returned nil result and nil error")
	}
	return result, nil
}
