// Package capabilities implements the client-side handlers for requests an
// MCP server may send back to the client once a capability is advertised
// during initialize: sampling/createMessage, roots/list, and the
// elicitation family. Each capability owns a small map of method handlers
// and is registered with session.Input via AddClientCapability.
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

// SamplingFunc handles one sampling/createMessage request. ctx is
// cancelled if the server sends a matching notifications/cancelled while
// the handler is still running. The result's StopReason may use the host
// LLM's own spelling: the sampling handler passes it through
// schema2025.NormalizeStopReason before answering the server.
type SamplingFunc func(ctx context.Context, params schema2025.CreateMessageRequestParams) (*schema2025.CreateMessageResult, error)

// Sampling implements the client's sampling/createMessage handler: at most
// one subscriber is active at a time, and a request arriving with none
// registered is answered with an error rather than silently dropped.
type Sampling struct {
	logger     *zap.Logger
	mu         sync.RWMutex
	subscriber SamplingFunc
	handlers   map[string]func(*protocol.Message) (interface{}, error)
	cancel     *InboundCancellation
}

// NewSampling builds a Sampling capability with no subscriber registered.
// cancellation may be nil, in which case inbound requests run to
// completion regardless of a later notifications/cancelled.
func NewSampling(logger *zap.Logger, cancellation *InboundCancellation) *Sampling {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sampling{logger: logger, cancel: cancellation}
	s.handlers = map[string]func(*protocol.Message) (interface{}, error){
		"sampling/createMessage": s.handleCreateMessage,
	}
	return s
}

// GetHandlers implements session.ICapability.
func (s *Sampling) GetHandlers() map[string]func(*protocol.Message) (interface{}, error) {
	return s.handlers
}

// SetCapabilities implements session.IClientCapability.
func (s *Sampling) SetCapabilities(c *schema2025.ClientCapabilities) {
	c.Sampling = &schema2025.SamplingCapability{}
}

// Subscribe registers f as the handler for future sampling requests,
// replacing any previous subscriber.
func (s *Sampling) Subscribe(f SamplingFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriber = f
}

// Unsubscribe removes the current subscriber, if any.
func (s *Sampling) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriber = nil
}

func (s *Sampling) handleCreateMessage(msg *protocol.Message) (interface{}, error) {
	if msg.ID == nil {
		return nil, errors.New("cannot process sampling/createMessage without a request id")
	}
	logger := s.logger.With(zap.String("reqID", msg.ID.String()))
	if msg.Params == nil {
		return nil, &protocol.Error{Code: protocol.ErrorInvalidParams, Message: "sampling/createMessage: missing params"}
	}

	var params schema2025.CreateMessageRequestParams
	if err := json.Unmarshal(*msg.Params, &params); err != nil {
		return nil, &protocol.Error{Code: protocol.ErrorInvalidParams, Message: fmt.Sprintf("sampling/createMessage: invalid params: %v", err)}
	}

	s.mu.RLock()
	subscriber := s.subscriber
	s.mu.RUnlock()
	if subscriber == nil {
		logger.Warn("sampling/createMessage received with no subscriber registered")
		return nil, errors.New("sampling not supported by this client")
	}

	ctx := context.Background()
	if s.cancel != nil {
		var cleanup func()
		ctx, cleanup = s.cancel.Begin(ctx, msg.ID.String())
		defer cleanup()
	}

	result, err := subscriber(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("sampling handler: %w", err)
	}
	if result == nil {
		return nil, errors.New("sampling handler returned nil result and nil error")
	}
	result.StopReason = schema2025.NormalizeStopReason(result.StopReason)

	msg.Processed = true
	return result, nil
}
