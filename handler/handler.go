// Package handler generalizes the "pluggable handler with options, guards,
// hooks, and async deferral" pattern the reference implementation expressed
// as a class-level DSL (option/guard/before_execute/async_execution
// declarations) into a plain Go interface plus a builder, since Go has no
// class-body macro facility to imitate it with. Decision is the sum type
// every Handler.Execute returns: exactly one of Approved, Denied, or
// Deferred, never a bare boolean — the fail-closed rule downstream (see
// capabilities.Resolve) depends on Decision being the only shape a Handler
// can produce.
package handler

import (
	"context"
	"time"
)

// Kind identifies which of the three Decision shapes is populated.
type Kind int

const (
	Approved Kind = iota
	Denied
	Deferred
)

// Decision is returned by Handler.Execute.
type Decision struct {
	Kind    Kind
	Reason  string        // populated when Kind == Denied
	ID      string        // populated when Kind == Deferred
	Timeout time.Duration // populated when Kind == Deferred
}

// ApprovedDecision builds the normalized "go ahead" decision.
func ApprovedDecision() Decision { return Decision{Kind: Approved} }

// DeniedDecision builds the normalized "refuse, with reason" decision.
func DeniedDecision(reason string) Decision { return Decision{Kind: Denied, Reason: reason} }

// DeferredDecision builds the normalized "ask, and block on a promise keyed
// by id" decision.
func DeferredDecision(id string, timeout time.Duration) Decision {
	return Decision{Kind: Deferred, ID: id, Timeout: timeout}
}

// Guard runs before Execute and may itself short-circuit the call by
// returning a non-nil Decision (e.g. "deny every call outside business
// hours" without touching the handler's core logic).
type Guard func(ctx context.Context, method string, params interface{}) *Decision

// Hook runs after Execute resolves, observing the final decision — for
// audit logging, metrics, or notifying a UI — without being able to alter
// it.
type Hook func(ctx context.Context, method string, params interface{}, decision Decision)

// Handler is one pluggable gate in the approval/sampling/elicitation
// pipeline. Execute's return value is authoritative: a panic inside
// Execute, when it is run as an ApprovalFunc through capabilities.Resolve,
// is recovered and treated as Denied, never as an implicit approval.
type Handler interface {
	Execute(ctx context.Context, method string, params interface{}) Decision
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, method string, params interface{}) Decision

// Execute implements Handler.
func (f HandlerFunc) Execute(ctx context.Context, method string, params interface{}) Decision {
	return f(ctx, method, params)
}

// Builder assembles a Handler from a core decision function plus guards
// and hooks, mirroring the option/guard/before_execute declarations the
// reference implementation's DSL offered per handler class.
type Builder struct {
	guards  []Guard
	hooks   []Hook
	timeout time.Duration
	core    HandlerFunc
}

// NewBuilder starts a Builder around the handler's core decision logic.
func NewBuilder(core HandlerFunc) *Builder {
	return &Builder{core: core}
}

// WithGuard appends a guard, run in registration order before core.
func (b *Builder) WithGuard(g Guard) *Builder {
	b.guards = append(b.guards, g)
	return b
}

// WithHook appends a hook, run in registration order after a decision is
// reached (by a guard or by core).
func (b *Builder) WithHook(h Hook) *Builder {
	b.hooks = append(b.hooks, h)
	return b
}

// WithTimeout sets the default timeout attached to any Deferred decision
// core returns with a zero Timeout of its own.
func (b *Builder) WithTimeout(d time.Duration) *Builder {
	b.timeout = d
	return b
}

// Build finalizes the Builder into a Handler.
func (b *Builder) Build() Handler {
	guards := append([]Guard(nil), b.guards...)
	hooks := append([]Hook(nil), b.hooks...)
	defaultTimeout := b.timeout
	core := b.core
	return HandlerFunc(func(ctx context.Context, method string, params interface{}) Decision {
		for _, g := range guards {
			if d := g(ctx, method, params); d != nil {
				decision := *d
				runHooks(hooks, ctx, method, params, decision)
				return decision
			}
		}
		decision := core(ctx, method, params)
		if decision.Kind == Deferred && decision.Timeout == 0 {
			decision.Timeout = defaultTimeout
		}
		runHooks(hooks, ctx, method, params, decision)
		return decision
	})
}

func runHooks(hooks []Hook, ctx context.Context, method string, params interface{}, decision Decision) {
	for _, h := range hooks {
		h(ctx, method, params, decision)
	}
}
