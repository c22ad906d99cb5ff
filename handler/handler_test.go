package handler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderRunsGuardBeforeCore(t *testing.T) {
	var coreCalled bool
	core := HandlerFunc(func(context.Context, string, interface{}) Decision {
		coreCalled = true
		return ApprovedDecision()
	})
	h := NewBuilder(core).
		WithGuard(func(context.Context, string, interface{}) *Decision {
			d := DeniedDecision("outside business hours")
			return &d
		}).
		Build()

	got := h.Execute(context.Background(), "tools/call", nil)
	assert.Equal(t, Denied, got.Kind)
	assert.Equal(t, "outside business hours", got.Reason)
	assert.False(t, coreCalled, "core must not run once a guard short-circuits")
}

func TestBuilderRunsHookAfterDecision(t *testing.T) {
	var observed Decision
	core := HandlerFunc(func(context.Context, string, interface{}) Decision {
		return ApprovedDecision()
	})
	h := NewBuilder(core).
		WithHook(func(_ context.Context, _ string, _ interface{}, d Decision) {
			observed = d
		}).
		Build()

	h.Execute(context.Background(), "tools/call", nil)
	assert.Equal(t, Approved, observed.Kind)
}

func TestBuilderAppliesDefaultTimeoutToDeferred(t *testing.T) {
	core := HandlerFunc(func(context.Context, string, interface{}) Decision {
		return DeferredDecision("approval-1", 0)
	})
	h := NewBuilder(core).WithTimeout(5 * time.Second).Build()

	got := h.Execute(context.Background(), "tools/call", nil)
	require.Equal(t, Deferred, got.Kind)
	assert.Equal(t, 5*time.Second, got.Timeout)
}

func TestRegistryApproveResolvesWait(t *testing.T) {
	reg := NewRegistry()
	reg.Register("approval-1")

	done := make(chan Decision, 1)
	go func() {
		done <- reg.Wait(context.Background(), DeferredDecision("approval-1", time.Second))
	}()

	time.Sleep(10 * time.Millisecond) // let Wait start waiting before resolving
	assert.True(t, reg.Approve("approval-1"))
	select {
	case d := <-done:
		assert.Equal(t, Approved, d.Kind)
	case <-time.After(time.Second):
		t.Fatal("Wait never resolved")
	}
}

func TestRegistryDenyResolvesWaitWithReason(t *testing.T) {
	reg := NewRegistry()
	reg.Register("approval-2")

	done := make(chan Decision, 1)
	go func() {
		done <- reg.Wait(context.Background(), DeferredDecision("approval-2", time.Second))
	}()

	time.Sleep(10 * time.Millisecond) // let Wait start waiting before resolving
	assert.True(t, reg.Deny("approval-2", "not allowed"))
	d := <-done
	assert.Equal(t, Denied, d.Kind)
	assert.Equal(t, "not allowed", d.Reason)
}

func TestRegistryTimeoutDeniesFailClosed(t *testing.T) {
	reg := NewRegistry()
	reg.Register("approval-3")

	got := reg.Wait(context.Background(), DeferredDecision("approval-3", 10*time.Millisecond))
	assert.Equal(t, Denied, got.Kind)
}

func TestRegistryApproveUnknownIDReportsFalse(t *testing.T) {
	reg := NewRegistry()
	assert.False(t, reg.Approve("never-registered"))
}

func TestRegistryDoubleResolveSecondCallFails(t *testing.T) {
	reg := NewRegistry()
	reg.Register("approval-4")
	assert.True(t, reg.Approve("approval-4"))
	assert.False(t, reg.Approve("approval-4"))
}
