// Package session implements the session-state half of the protocol
// engine: per-connection identity, the output/input message pumps, and the
// request/response correlation table. It is transport-agnostic — stdio,
// SSE, and streamable HTTP transports all drive the same BaseSession.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gate4ai/mcpclient/protocol"
	"github.com/gate4ai/mcpclient/schema"
	"go.uber.org/zap"
)

// Status is the lifecycle state of a session.
type Status int

const (
	StatusNew Status = iota
	StatusConnecting
	StatusConnected
	StatusDisconnected
)

// ISession is the interface the session and capability layers program
// against; client.Client embeds a concrete BaseSession but everything below
// it only ever sees ISession.
type ISession interface {
	GetID() string

	AcquireOutput() (<-chan *protocol.Message, bool)
	ReleaseOutput()
	Input() *Input

	SendResponse(msgID *schema.RequestID, result interface{}, err error)
	SendNotification(method string, params interface{})
	SendRequest(method string, params interface{}, cancellable bool, timeout time.Duration, callback RequestCallback) (*schema.RequestID, error)
	SendRequestSync(method string, params interface{}, timeout time.Duration) <-chan *protocol.Message

	SetNegotiatedVersion(version schema.ProtocolVersion)
	GetNegotiatedVersion() schema.ProtocolVersion

	GetLastActivity() time.Time
	UpdateLastActivity()

	GetStatus() Status
	SetStatus(status Status)
	Close() error
	GetRequestManager() *RequestManager
	NextMessageID() schema.RequestID
	GetParamsMutex() *sync.RWMutex
	GetParams() *sync.Map
	GetLogger() *zap.Logger
}

var _ ISession = (*BaseSession)(nil)

// BaseSession holds everything common to every connection regardless of
// transport: identity, the output pump transports drain, the request
// correlation table, and per-session key/value params capabilities use to
// stash negotiated state.
type BaseSession struct {
	Mu                sync.RWMutex
	ID                string
	messageID         uint64
	CreatedAt         time.Time
	LastActivity      atomic.Value
	status            Status
	ParamsMutex       sync.RWMutex
	Params            *sync.Map
	RequestManager    *RequestManager
	output            chan *protocol.Message
	isOutputAcquired  bool
	Logger            *zap.Logger
	negotiatedVersion schema.ProtocolVersion
	inputProcessor    *Input
}

// NewBaseSession builds a session with a fresh random id if id is "".
func NewBaseSession(logger *zap.Logger, id string, inputProcessor *Input, params *sync.Map) *BaseSession {
	if params == nil {
		params = &sync.Map{}
	}
	if id == "" {
		id = RandomID()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	sessionLogger := logger.With(zap.String("session_id", id))
	s := &BaseSession{
		Logger:         sessionLogger,
		ID:             id,
		CreatedAt:      time.Now(),
		status:         StatusNew,
		Params:         params,
		RequestManager: NewRequestManager(sessionLogger),
		output:         make(chan *protocol.Message, 100),
		inputProcessor: inputProcessor,
	}
	s.UpdateLastActivity()
	return s
}

// RandomID returns a URL-safe, 256-bit random session identifier.
func RandomID() string {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	return base64.URLEncoding.EncodeToString(key)
}

func (s *BaseSession) NextMessageID() schema.RequestID {
	return schema.RequestIDFromUInt64(atomic.AddUint64(&s.messageID, 1))
}

func (s *BaseSession) GetID() string { return s.ID }

func (s *BaseSession) GetParams() *sync.Map            { return s.Params }
func (s *BaseSession) GetParamsMutex() *sync.RWMutex   { return &s.ParamsMutex }
func (s *BaseSession) GetLogger() *zap.Logger          { return s.Logger }

func (s *BaseSession) GetStatus() Status {
	s.Mu.RLock()
	defer s.Mu.RUnlock()
	return s.status
}

func (s *BaseSession) SetStatus(status Status) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.status = status
}

func (s *BaseSession) UpdateLastActivity() { s.LastActivity.Store(time.Now()) }

func (s *BaseSession) GetLastActivity() time.Time {
	t, _ := s.LastActivity.Load().(time.Time)
	return t
}

func (s *BaseSession) GetRequestManager() *RequestManager { return s.RequestManager }

// Close shuts the output pump down. Safe to call more than once; the
// second call is logged and otherwise a no-op.
func (s *BaseSession) Close() error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.status = StatusDisconnected
	if s.output == nil {
		s.Logger.Debug("double close of session")
		return nil
	}
	close(s.output)
	s.isOutputAcquired = false
	s.output = nil
	return nil
}

// AcquireOutput hands the output channel to its single consumer (the
// transport's write loop). A second acquisition attempt fails rather than
// silently sharing the channel.
func (s *BaseSession) AcquireOutput() (<-chan *protocol.Message, bool) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.isOutputAcquired || s.output == nil {
		return nil, false
	}
	s.isOutputAcquired = true
	return s.output, true
}

func (s *BaseSession) ReleaseOutput() {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.isOutputAcquired = false
}

func (s *BaseSession) SetNegotiatedVersion(version schema.ProtocolVersion) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.negotiatedVersion = version
}

func (s *BaseSession) GetNegotiatedVersion() schema.ProtocolVersion {
	s.Mu.RLock()
	defer s.Mu.RUnlock()
	return s.negotiatedVersion
}

func (s *BaseSession) Input() *Input { return s.inputProcessor }

// SendNotification pushes a method-only message (no id) to the output pump.
func (s *BaseSession) SendNotification(method string, params interface{}) {
	var raw *json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			s.Logger.Error("failed to marshal notification params", zap.Error(err))
			return
		}
		r := json.RawMessage(data)
		raw = &r
	}
	s.UpdateLastActivity()
	s.Mu.RLock()
	out := s.output
	s.Mu.RUnlock()
	if out == nil {
		return
	}
	out <- &protocol.Message{
		Session:   s,
		Timestamp: time.Now(),
		Method:    &method,
		Params:    raw,
	}
}

// SendRequest assigns a fresh id, registers it with the RequestManager, and
// pushes it to the output pump. cancellable controls whether
// RequestManager.CancelInFlight may ever succeed for this call; timeout of
// 0 disables the automatic timeout transition.
func (s *BaseSession) SendRequest(method string, params interface{}, cancellable bool, timeout time.Duration, callback RequestCallback) (*schema.RequestID, error) {
	msgID := s.NextMessageID()
	var raw *json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request parameters: %w", err)
		}
		r := json.RawMessage(data)
		raw = &r
	}

	msg := &protocol.Message{
		ID:        &msgID,
		Method:    &method,
		Session:   s,
		Params:    raw,
		Timestamp: time.Now(),
	}

	s.RequestManager.RegisterRequest(&msgID, method, cancellable, timeout, callback)
	s.UpdateLastActivity()

	s.Mu.RLock()
	out := s.output
	s.Mu.RUnlock()
	if out == nil {
		return nil, fmt.Errorf("session closed")
	}
	out <- msg
	return &msgID, nil
}

// SendRequestSync sends method and transparently follows nextCursor on
// every paginated result, closing the returned channel only once every page
// has arrived.
func (s *BaseSession) SendRequestSync(method string, params interface{}, timeout time.Duration) <-chan *protocol.Message {
	resultChan := make(chan *protocol.Message, 1)
	pending := &atomic.Int32{}

	var reader func(msg *protocol.Message)
	reader = func(msg *protocol.Message) {
		if msg.Result != nil {
			var page schema.PaginatedResult
			if err := json.Unmarshal(*msg.Result, &page); err == nil && page.NextCursor != nil {
				pending.Add(1)
				_, _ = s.SendRequest(method, &schema.PaginatedRequestParams{Cursor: page.NextCursor}, false, timeout, reader)
			}
		}
		resultChan <- msg
		msg.Processed = true
		if pending.Add(-1) == 0 {
			close(resultChan)
		}
	}

	pending.Add(1)
	if _, err := s.SendRequest(method, params, true, timeout, reader); err != nil {
		resultChan <- &protocol.Message{Error: &protocol.Error{Code: protocol.ErrorInternal, Message: err.Error()}}
		close(resultChan)
	}
	return resultChan
}

// SendResponse answers a request the peer sent us. result and err are
// mutually exclusive; passing both is a programmer error and err wins.
func (s *BaseSession) SendResponse(msgID *schema.RequestID, result interface{}, err error) {
	if result == nil && err == nil {
		s.Logger.Error("SendResponse called with nil result and nil error")
		return
	}

	var jsonResult *json.RawMessage
	var rpcErr *protocol.Error

	if err != nil {
		if je, ok := err.(*protocol.Error); ok {
			rpcErr = je
		} else {
			rpcErr = &protocol.Error{Code: protocol.ErrorInternal, Message: err.Error()}
		}
	} else {
		data, merr := json.Marshal(result)
		if merr != nil {
			s.Logger.Error("failed to marshal response result", zap.Error(merr))
			rpcErr = &protocol.Error{Code: protocol.ErrorInternal, Message: fmt.Sprintf("failed to marshal result: %v", merr)}
		} else {
			r := json.RawMessage(data)
			jsonResult = &r
		}
	}

	msg := &protocol.Message{
		Session:   s,
		Timestamp: time.Now(),
		ID:        msgID,
		Result:    jsonResult,
		Error:     rpcErr,
	}

	s.Mu.RLock()
	out := s.output
	status := s.status
	s.Mu.RUnlock()

	if out == nil {
		s.Logger.Warn("cannot send response, session closed", zap.Any("msgId", msgID))
		return
	}
	if status != StatusConnected && status != StatusConnecting {
		s.Logger.Warn("attempting to send response on non-connected session", zap.Any("msgId", msgID), zap.Int("status", int(status)))
		return
	}

	select {
	case out <- msg:
		s.UpdateLastActivity()
	default:
		s.Logger.Error("failed to send response, output channel full", zap.Any("msgId", msgID))
	}
}
