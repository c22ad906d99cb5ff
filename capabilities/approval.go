package capabilities

import (
	"context"
	"fmt"
	"time"

	"github.com/gate4ai/mcpclient/handler"
)

// Decision, DecisionKind, and the deferred-approval registry are the same
// sum type and bookkeeping the handler package generalizes from the
// reference implementation's option/guard/before_execute DSL; this package
// only adds the one thing specific to gating an outbound call before it
// reaches the wire: ApprovalFunc and Resolve.
type Decision = handler.Decision
type DecisionKind = handler.Kind

const (
	DecisionApproved = handler.Approved
	DecisionDenied   = handler.Denied
	DecisionDeferred = handler.Deferred
)

// Approved is the normalized "go ahead" decision.
func Approved() Decision { return handler.ApprovedDecision() }

// Denied is the normalized "refuse, with reason" decision.
func Denied(reason string) Decision { return handler.DeniedDecision(reason) }

// Deferred is the normalized "ask, and block on a promise keyed by id"
// decision; timeout bounds how long the caller waits before treating the
// deferral as a denial.
func Deferred(id string, timeout time.Duration) Decision {
	return handler.DeferredDecision(id, timeout)
}

// ApprovalFunc gates one intercepted call (by method and params) before
// it's sent to the server. Any return value other than a Decision built
// via Approved/Denied/Deferred is, by construction, impossible to produce
// from this signature.
type ApprovalFunc func(ctx context.Context, method string, params interface{}) Decision

// Approvals is the registry backing Deferred decisions produced by an
// ApprovalFunc: approval ids are registered when a Deferred decision is
// produced, and resolved later by whatever surface collected the human's
// answer (a CLI prompt, a web callback, …).
type Approvals = handler.Registry

// NewApprovals builds an empty deferred-approval registry.
func NewApprovals() *Approvals {
	return handler.NewRegistry()
}

// Resolve runs an ApprovalFunc to a final Approved/Denied decision,
// transparently blocking on approvals when the func returns Deferred. This
// is what the tools/call interception point actually calls. A panic inside
// fn is recovered and turned into a Denied decision.
func Resolve(ctx context.Context, fn ApprovalFunc, approvals *Approvals, method string, params interface{}) (result Decision) {
	if fn == nil {
		return Approved()
	}
	defer func() {
		if r := recover(); r != nil {
			result = Denied(fmt.Sprintf("approval handler panicked: %v", r))
		}
	}()
	decision := fn(ctx, method, params)
	if decision.Kind != DecisionDeferred {
		return decision
	}
	if approvals == nil {
		return Denied("approval deferred but no registry is configured")
	}
	return approvals.Wait(ctx, decision)
}
