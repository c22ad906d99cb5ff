package session

import (
	"sync"
	"time"

	"github.com/gate4ai/mcpclient/protocol"
	"github.com/gate4ai/mcpclient/schema"
	"go.uber.org/zap"
)

// CallState is the lifecycle state of one outbound, correlated JSON-RPC
// call, tracked from the moment it's registered to the moment its callback
// fires (or it's abandoned).
type CallState int

const (
	CallStateSent CallState = iota
	CallStateResult
	CallStateError
	CallStateTimeout
	CallStateCancelled
	CallStateTransportFail
)

func (s CallState) String() string {
	switch s {
	case CallStateSent:
		return "sent"
	case CallStateResult:
		return "result"
	case CallStateError:
		return "error"
	case CallStateTimeout:
		return "timeout"
	case CallStateCancelled:
		return "cancelled"
	case CallStateTransportFail:
		return "transport_fail"
	default:
		return "unknown"
	}
}

func (s CallState) terminal() bool {
	return s != CallStateSent
}

// CancelOutcome reports what actually happened when CancelInFlight was
// called, so callers never have to guess from a bare bool.
type CancelOutcome string

const (
	CancelOutcomeCancelled        CancelOutcome = "cancelled"
	CancelOutcomeAlreadyCancelled CancelOutcome = "already_cancelled"
	CancelOutcomeAlreadyCompleted CancelOutcome = "already_completed"
	CancelOutcomeNotCancellable   CancelOutcome = "not_cancellable"
	CancelOutcomeNotFound         CancelOutcome = "not_found"
)

// RequestCallback handles the (eventual) response to a correlated request.
type RequestCallback func(msg *protocol.Message)

// pendingCall is one entry of the RequestManager's correlation table.
type pendingCall struct {
	mu          sync.Mutex
	id          schema.RequestID
	method      string
	state       CallState
	callback    RequestCallback
	createdAt   time.Time
	cancellable bool
	timer       *time.Timer
}

// CancelNotifyFunc is invoked whenever a call leaves the table through
// timeout or cancellation, so the caller can emit a notifications/cancelled
// message back to the server. It is never called for a normal result/error
// response or for Abandon, since the peer already knows about a transport
// failure without being told.
type CancelNotifyFunc func(id schema.RequestID, reason string)

// RequestManager correlates outbound requests with their eventual
// responses by JSON-RPC id, and tracks each call's state machine so
// cancellation and timeout are both well-defined even under races.
type RequestManager struct {
	mu       sync.RWMutex
	calls    map[string]*pendingCall
	logger   *zap.Logger
	onCancel CancelNotifyFunc
}

// NewRequestManager builds an empty correlation table.
func NewRequestManager(logger *zap.Logger) *RequestManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestManager{
		calls:  make(map[string]*pendingCall),
		logger: logger,
	}
}

// SetCancelNotifier installs the function called on every timeout or
// successful CancelInFlight transition. The session package has no
// knowledge of notifications/cancelled's wire shape, so building and
// sending that notification is left to the caller (the client package);
// this only reports which id left the table and why.
func (rm *RequestManager) SetCancelNotifier(fn CancelNotifyFunc) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.onCancel = fn
}

// RegisterRequest enrolls a newly-sent request. If timeout is non-zero, the
// call is automatically moved to CallStateTimeout (and callback invoked
// with a synthesized error message) once it elapses without a response.
func (rm *RequestManager) RegisterRequest(id *schema.RequestID, method string, cancellable bool, timeout time.Duration, callback RequestCallback) {
	pc := &pendingCall{
		id:          *id,
		method:      method,
		state:       CallStateSent,
		callback:    callback,
		createdAt:   time.Now(),
		cancellable: cancellable,
	}

	rm.mu.Lock()
	rm.calls[id.String()] = pc
	rm.mu.Unlock()

	if timeout > 0 {
		pc.timer = time.AfterFunc(timeout, func() { rm.timeoutCall(id.String()) })
	}

	rm.logger.Debug("request registered", zap.String("id", id.String()), zap.String("method", method))
}

// ProcessResponse delivers a result/error message to its registered
// callback. Returns false if no call was found (already completed,
// cancelled, timed out, or unknown).
func (rm *RequestManager) ProcessResponse(msg *protocol.Message) bool {
	if msg.ID == nil {
		rm.logger.Error("response with no id")
		return false
	}

	rm.mu.RLock()
	pc, exists := rm.calls[msg.ID.String()]
	rm.mu.RUnlock()
	if !exists {
		rm.logger.Warn("response for unknown or completed request", zap.String("id", msg.ID.String()))
		return false
	}

	pc.mu.Lock()
	if pc.state.terminal() {
		pc.mu.Unlock()
		return false
	}
	if msg.Error != nil {
		pc.state = CallStateError
	} else {
		pc.state = CallStateResult
	}
	if pc.timer != nil {
		pc.timer.Stop()
	}
	callback := pc.callback
	pc.mu.Unlock()

	if callback != nil {
		callback(msg)
	}
	msg.Processed = true

	rm.mu.Lock()
	delete(rm.calls, msg.ID.String())
	rm.mu.Unlock()
	return true
}

// CancelInFlight requests cancellation of a pending call. It never removes
// the call on anything but a genuine transition to cancelled. A call that
// already completed, timed out or was cancelled has left the table and is
// reported as not found; the already-completed and already-cancelled
// outcomes are reported only for a call caught between its state change
// and its removal.
func (rm *RequestManager) CancelInFlight(id schema.RequestID, reason string) CancelOutcome {
	rm.mu.RLock()
	pc, exists := rm.calls[id.String()]
	rm.mu.RUnlock()
	if !exists {
		return CancelOutcomeNotFound
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()

	if !pc.cancellable {
		return CancelOutcomeNotCancellable
	}
	switch pc.state {
	case CallStateCancelled:
		return CancelOutcomeAlreadyCancelled
	case CallStateSent:
		pc.state = CallStateCancelled
		if pc.timer != nil {
			pc.timer.Stop()
		}
		rm.mu.Lock()
		delete(rm.calls, id.String())
		onCancel := rm.onCancel
		rm.mu.Unlock()
		if onCancel != nil {
			onCancel(id, reason)
		}
		return CancelOutcomeCancelled
	default:
		return CancelOutcomeAlreadyCompleted
	}
}

// Abandon marks every still-pending call as transport-failed, used when the
// underlying transport goes down and no further responses will ever arrive.
func (rm *RequestManager) Abandon(err error) {
	rm.mu.Lock()
	calls := make([]*pendingCall, 0, len(rm.calls))
	for _, pc := range rm.calls {
		calls = append(calls, pc)
	}
	rm.calls = make(map[string]*pendingCall)
	rm.mu.Unlock()

	for _, pc := range calls {
		pc.mu.Lock()
		if pc.state.terminal() {
			pc.mu.Unlock()
			continue
		}
		pc.state = CallStateTransportFail
		if pc.timer != nil {
			pc.timer.Stop()
		}
		cb := pc.callback
		id := pc.id
		pc.mu.Unlock()
		if cb != nil {
			cb(&protocol.Message{
				ID:    &id,
				Error: &protocol.Error{Code: protocol.ErrorServerError, Message: err.Error()},
			})
		}
	}
}

func (rm *RequestManager) timeoutCall(idStr string) {
	rm.mu.Lock()
	pc, exists := rm.calls[idStr]
	if exists {
		delete(rm.calls, idStr)
	}
	onCancel := rm.onCancel
	rm.mu.Unlock()
	if !exists {
		return
	}

	pc.mu.Lock()
	if pc.state.terminal() {
		pc.mu.Unlock()
		return
	}
	pc.state = CallStateTimeout
	cb := pc.callback
	id := pc.id
	pc.mu.Unlock()

	rm.logger.Warn("request timed out", zap.String("id", idStr))
	if onCancel != nil {
		onCancel(id, "timeout")
	}
	if cb != nil {
		cb(&protocol.Message{
			ID:    &id,
			Error: &protocol.Error{Code: protocol.ErrorServerError, Message: "request timed out"},
		})
	}
}

// Len reports the number of calls still awaiting a response; used by
// tests.
func (rm *RequestManager) Len() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.calls)
}
