package capabilities

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gate4ai/mcpclient/protocol"
	"github.com/gate4ai/mcpclient/schema"
	"github.com/gate4ai/mcpclient/schema/schema2025"
	"github.com/gate4ai/mcpclient/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequestMessage(t *testing.T, method string, params interface{}) *protocol.Message {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	rawMsg := json.RawMessage(raw)
	id := schema.RequestIDFromUInt64(1)
	m := method
	return &protocol.Message{ID: &id, Method: &m, Params: &rawMsg}
}

func TestSamplingNoSubscriberErrors(t *testing.T) {
	s := NewSampling(nil, nil)
	msg := newRequestMessage(t, "sampling/createMessage", schema2025.CreateMessageRequestParams{MaxTokens: 10})
	_, err := s.handleCreateMessage(msg)
	assert.Error(t, err)
}

func TestSamplingNormalizesStopReason(t *testing.T) {
	s := NewSampling(nil, nil)
	s.Subscribe(func(ctx context.Context, params schema2025.CreateMessageRequestParams) (*schema2025.CreateMessageResult, error) {
		return &schema2025.CreateMessageResult{StopReason: "end_turn"}, nil
	})
	msg := newRequestMessage(t, "sampling/createMessage", schema2025.CreateMessageRequestParams{MaxTokens: 10})
	result, err := s.handleCreateMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, "endTurn", result.(*schema2025.CreateMessageResult).StopReason)
	assert.True(t, msg.Processed)
}

func TestSamplingCancellationTerminatesHandler(t *testing.T) {
	inbound := NewInboundCancellation()
	s := NewSampling(nil, inbound)
	started := make(chan struct{})
	done := make(chan error, 1)
	s.Subscribe(func(ctx context.Context, params schema2025.CreateMessageRequestParams) (*schema2025.CreateMessageResult, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	msg := newRequestMessage(t, "sampling/createMessage", schema2025.CreateMessageRequestParams{MaxTokens: 10})
	go func() {
		_, err := s.handleCreateMessage(msg)
		done <- err
	}()
	<-started
	assert.True(t, inbound.Cancel(msg.ID.String()))
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("handler did not observe cancellation")
	}
}

func TestRootsListEmptyWithoutProvider(t *testing.T) {
	r := NewRoots(nil, nil)
	msg := newRequestMessage(t, "roots/list", schema2025.PingRequestParams{})
	result, err := r.handleList(msg)
	require.NoError(t, err)
	assert.Empty(t, result.(schema2025.ListRootsResult).Roots)
}

func TestRootsSetProviderNotifiesListChanged(t *testing.T) {
	var notifiedMethod string
	r := NewRoots(nil, func(method string, params interface{}) { notifiedMethod = method })
	r.SetProvider(func() []schema2025.Root {
		return []schema2025.Root{{URI: "file:///tmp", Name: "tmp"}}
	})
	assert.Equal(t, "notifications/roots/list_changed", notifiedMethod)

	msg := newRequestMessage(t, "roots/list", schema2025.PingRequestParams{})
	result, err := r.handleList(msg)
	require.NoError(t, err)
	assert.Len(t, result.(schema2025.ListRootsResult).Roots, 1)
}

func TestElicitationNoSubscriberDeclines(t *testing.T) {
	e := NewElicitation(nil, nil)
	msg := newRequestMessage(t, "elicitation/create", schema2025.CreateElicitationRequestParams{Message: "confirm?"})
	result, err := e.handleCreate(msg)
	require.NoError(t, err)
	assert.Equal(t, schema2025.ElicitationActionDecline, result.(*schema2025.CreateElicitationResult).Action)
}

func TestElicitationAdvertisesURLModeOnlyWhenEnabled(t *testing.T) {
	e := NewElicitation(nil, nil)
	var caps schema2025.ClientCapabilities
	e.SetCapabilities(&caps)
	require.NotNil(t, caps.Elicitation)
	assert.NotNil(t, caps.Elicitation.Form)
	assert.Nil(t, caps.Elicitation.URL)

	e.SupportsURLMode(true)
	caps = schema2025.ClientCapabilities{}
	e.SetCapabilities(&caps)
	assert.NotNil(t, caps.Elicitation.URL)
}

func TestPingAnswersEmpty(t *testing.T) {
	p := NewPing()
	msg := newRequestMessage(t, "ping", schema2025.PingRequestParams{})
	_, err := p.handlePing(msg)
	require.NoError(t, err)
	assert.True(t, msg.Processed)
}

func TestTasksNotAdvertisedUntilEnabled(t *testing.T) {
	registry := tasks.NewRegistry(nil, 0)
	tc := NewTasks(nil, registry)
	var caps schema2025.ClientCapabilities
	tc.SetCapabilities(&caps)
	assert.Nil(t, caps.Tasks)

	tc.Enable(true)
	caps = schema2025.ClientCapabilities{}
	tc.SetCapabilities(&caps)
	require.NotNil(t, caps.Tasks)
	assert.NotNil(t, caps.Tasks.List)
	assert.NotNil(t, caps.Tasks.Cancel)
}

func TestTasksStatusNotificationUpsertsRegistry(t *testing.T) {
	registry := tasks.NewRegistry(nil, 0)
	tc := NewTasks(nil, registry)
	msg := newRequestMessage(t, "notifications/tasks/status", schema2025.TaskStatusNotificationParams{
		Task: schema2025.Task{TaskID: "task-1", Status: schema2025.TaskStatusWorking, LastUpdatedAt: "2026-01-01T00:00:00Z"},
	})
	msg.ID = nil
	_, err := tc.handleStatus(msg)
	require.NoError(t, err)
	assert.Equal(t, schema2025.TaskStatusWorking, registry.Get("task-1").Status)
}

func TestApprovalResolveApproved(t *testing.T) {
	fn := func(ctx context.Context, method string, params interface{}) Decision { return Approved() }
	d := Resolve(context.Background(), fn, nil, "tools/call", nil)
	assert.Equal(t, DecisionApproved, d.Kind)
}

func TestApprovalResolveDeniedNoRegistryOnDefer(t *testing.T) {
	fn := func(ctx context.Context, method string, params interface{}) Decision {
		return Deferred("req-1", time.Second)
	}
	d := Resolve(context.Background(), fn, nil, "tools/call", nil)
	assert.Equal(t, DecisionDenied, d.Kind)
}

func TestApprovalsDeferredApprove(t *testing.T) {
	approvals := NewApprovals()
	approvals.Register("req-1")

	go func() {
		time.Sleep(10 * time.Millisecond)
		approvals.Approve("req-1")
	}()

	fn := func(ctx context.Context, method string, params interface{}) Decision {
		return Deferred("req-1", time.Second)
	}
	d := Resolve(context.Background(), fn, approvals, "tools/call", nil)
	assert.Equal(t, DecisionApproved, d.Kind)
}

func TestApprovalsDeferredTimeoutDeniesFailClosed(t *testing.T) {
	approvals := NewApprovals()
	approvals.Register("req-2")

	fn := func(ctx context.Context, method string, params interface{}) Decision {
		return Deferred("req-2", 20*time.Millisecond)
	}
	d := Resolve(context.Background(), fn, approvals, "tools/call", nil)
	assert.Equal(t, DecisionDenied, d.Kind)
}

func TestApprovalsUnknownIDDenied(t *testing.T) {
	approvals := NewApprovals()
	assert.False(t, approvals.Approve("does-not-exist"))
}
