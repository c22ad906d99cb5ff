package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gate4ai/mcpclient/protocol"
	"github.com/gate4ai/mcpclient/schema/schema2025"
	"go.uber.org/zap"
)

// MessageValidator may reject an inbound message before it's queued, e.g.
// to enforce a maximum payload size or a required header already checked at
// the transport layer.
type MessageValidator interface {
	Validate(*protocol.Message) error
}

// Input is the single inbound message dispatcher for a session: every
// frame the transport decodes is Put() here, and Process() fans each one
// out, one goroutine per message, to either a registered method handler or
// the RequestManager (if it's a response to a client-initiated request).
type Input struct {
	mu              sync.RWMutex
	input           chan *protocol.Message
	logger          *zap.Logger
	validators      []MessageValidator
	methodHandlers  sync.Map
	notFoundHandler atomic.Value
	capabilities    []ICapability
}

// NewInput builds an Input with a default "method not found" handler.
func NewInput(logger *zap.Logger) *Input {
	if logger == nil {
		logger = zap.NewNop()
	}
	i := &Input{
		logger: logger,
		input:  make(chan *protocol.Message, 100),
	}
	i.notFoundHandler.Store(func(msg *protocol.Message) (interface{}, error) {
		method := "<nil>"
		if msg.Method != nil {
			method = *msg.Method
		}
		return nil, &protocol.Error{Code: protocol.ErrorMethodNotFound, Message: fmt.Sprintf("method not found: %s", method)}
	})
	return i
}

// Put validates and non-blockingly enqueues an inbound message. If the
// queue is full, a request is answered with a busy error instead of being
// silently dropped; a notification is simply logged and discarded.
func (i *Input) Put(msg *protocol.Message, sess ISession) error {
	i.mu.RLock()
	validators := make([]MessageValidator, len(i.validators))
	copy(validators, i.validators)
	i.mu.RUnlock()

	for _, v := range validators {
		if err := v.Validate(msg); err != nil {
			return err
		}
	}
	sess.UpdateLastActivity()

	select {
	case i.input <- msg:
		i.logger.Debug("message queued", zap.Any("id", msg.ID), zap.Stringp("method", msg.Method))
	default:
		i.logger.Error("input channel full, dropping message", zap.Any("id", msg.ID))
		if msg.ID != nil && !msg.ID.IsEmpty() {
			go sess.SendResponse(msg.ID, nil, errors.New("message processor busy, message dropped"))
		}
		return errors.New("input processor busy, input channel full")
	}
	return nil
}

// Process runs the dispatch loop until the channel is closed by Close.
func (i *Input) Process() {
	i.logger.Debug("input processing loop started")
	defer i.logger.Info("input processing loop stopped")
	for msg := range i.input {
		i.dispatch(msg)
	}
}

// Close stops Process by closing the input channel. Safe to call once.
func (i *Input) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.input != nil {
		close(i.input)
		i.input = nil
	}
}

func (i *Input) dispatch(msg *protocol.Message) {
	sess, _ := msg.Session.(ISession)
	if sess == nil {
		i.logger.Error("message with no/invalid session reached dispatch")
		return
	}
	logger := i.logger.With(zap.String("sessionID", sess.GetID()))

	if msg.Method == nil && msg.ID.IsEmpty() {
		logger.Error("received message with neither method nor id")
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered during message processing", zap.Any("panic", r))
				if msg.ID != nil && !msg.ID.IsEmpty() {
					sess.SendResponse(msg.ID, nil, fmt.Errorf("internal error during processing: %v", r))
				}
			}
		}()

		if msg.Method != nil {
			handler, _ := i.GetHandler(*msg.Method)
			response, err := handler(msg)
			if msg.ID != nil && !msg.ID.IsEmpty() && !isNotificationMethod(msg.Method) {
				sess.SendResponse(msg.ID, response, err)
			} else if err != nil {
				logger.Error("error handling notification", zap.String("method", *msg.Method), zap.Error(err))
			}
			return
		}

		// No method: this is a response to a request this session sent.
		if !sess.GetRequestManager().ProcessResponse(msg) {
			logger.Warn("response for unknown or completed request", zap.Any("id", msg.ID))
		}
	}()
}

func isNotificationMethod(method *string) bool {
	return method != nil && strings.HasPrefix(*method, "notifications/")
}

// AddNotFoundHandle overrides the default "method not found" response.
func (i *Input) AddNotFoundHandle(handler func(*protocol.Message) (interface{}, error)) {
	i.notFoundHandler.Store(handler)
}

// GetHandler looks up the handler for method, falling back to the
// not-found handler.
func (i *Input) GetHandler(method string) (func(*protocol.Message) (interface{}, error), bool) {
	if h, ok := i.methodHandlers.Load(method); ok {
		return h.(func(*protocol.Message) (interface{}, error)), true
	}
	nf := i.notFoundHandler.Load().(func(*protocol.Message) (interface{}, error))
	return nf, true
}

// AddValidator registers additional message validators.
func (i *Input) AddValidator(validators ...MessageValidator) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.validators = append(i.validators, validators...)
}

// AddClientCapability registers a client-side capability's handlers and
// remembers it so SetCapabilities can later fill in its advertised flags.
func (i *Input) AddClientCapability(capabilities ...IClientCapability) {
	for _, c := range capabilities {
		cap, ok := c.(ICapability)
		if !ok {
			i.logger.Error("capability does not implement ICapability", zap.String("capability", fmt.Sprintf("%T", c)))
			continue
		}
		i.mu.Lock()
		i.capabilities = append(i.capabilities, cap)
		i.mu.Unlock()
		for method, handler := range cap.GetHandlers() {
			i.methodHandlers.Store(method, handler)
			i.logger.Debug("registered handler from capability", zap.String("capability", fmt.Sprintf("%T", c)), zap.String("method", method))
		}
	}
}

// SetCapabilities lets every registered capability that implements
// IClientCapability fill in its own part of caps, the ClientCapabilities
// advertised in initialize.
func (i *Input) SetCapabilities(caps *schema2025.ClientCapabilities) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	for _, c := range i.capabilities {
		if cc, ok := c.(IClientCapability); ok {
			cc.SetCapabilities(caps)
		}
	}
}
