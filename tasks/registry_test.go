package tasks

import (
	"testing"
	"time"

	"github.com/gate4ai/mcpclient/schema/schema2025"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertNewerLastUpdatedWins(t *testing.T) {
	r := NewRegistry(nil, 0)

	r.Upsert(schema2025.Task{TaskID: "t1", Status: schema2025.TaskStatusWorking, LastUpdatedAt: "2026-07-29T10:00:00Z"})
	stored := r.Upsert(schema2025.Task{TaskID: "t1", Status: schema2025.TaskStatusCompleted, LastUpdatedAt: "2026-07-29T09:00:00Z"})

	// the stale update must not overwrite the newer working status
	assert.Equal(t, schema2025.TaskStatusWorking, stored.Status)
	assert.Equal(t, schema2025.TaskStatusWorking, r.Get("t1").Status)
}

func TestUpsertAppliesNewerUpdate(t *testing.T) {
	r := NewRegistry(nil, 0)

	r.Upsert(schema2025.Task{TaskID: "t1", Status: schema2025.TaskStatusWorking, LastUpdatedAt: "2026-07-29T09:00:00Z"})
	stored := r.Upsert(schema2025.Task{TaskID: "t1", Status: schema2025.TaskStatusCompleted, LastUpdatedAt: "2026-07-29T10:00:00Z"})

	assert.Equal(t, schema2025.TaskStatusCompleted, stored.Status)
}

func TestGetUnknownTaskSynthesizesCancelled(t *testing.T) {
	r := NewRegistry(nil, 0)
	task := r.Get("does-not-exist")
	assert.Equal(t, schema2025.TaskStatusCancelled, task.Status)
	assert.Equal(t, "does-not-exist", task.TaskID)
}

func TestWaitingOnInputFires(t *testing.T) {
	r := NewRegistry(nil, 0)
	var fired schema2025.Task
	ch := make(chan struct{}, 1)
	r.OnWaitingOnInput(func(task schema2025.Task) {
		fired = task
		ch <- struct{}{}
	})

	r.Upsert(schema2025.Task{TaskID: "t1", Status: schema2025.TaskStatusInputRequired, LastUpdatedAt: "2026-07-29T09:00:00Z"})

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("waiting-on-input callback never fired")
	}
	assert.Equal(t, "t1", fired.TaskID)
}

func TestTerminalTaskEvictedAfterTTL(t *testing.T) {
	r := NewRegistry(nil, 0)
	r.Upsert(schema2025.Task{
		TaskID:        "t1",
		Status:        schema2025.TaskStatusCompleted,
		LastUpdatedAt: "2026-07-29T09:00:00Z",
		TTL:           1, // 1 second, forces a near-immediate eviction in the test
	})
	require.Equal(t, 1, r.Len())

	assert.Eventually(t, func() bool {
		return r.Len() == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestForgetStopsEviction(t *testing.T) {
	r := NewRegistry(nil, time.Hour)
	r.Upsert(schema2025.Task{TaskID: "t1", Status: schema2025.TaskStatusFailed, LastUpdatedAt: "2026-07-29T09:00:00Z"})
	r.Forget("t1")
	assert.Equal(t, 0, r.Len())
}

func TestListOrderedByLastUpdatedDesc(t *testing.T) {
	r := NewRegistry(nil, 0)
	r.Upsert(schema2025.Task{TaskID: "old", Status: schema2025.TaskStatusWorking, LastUpdatedAt: "2026-07-29T08:00:00Z"})
	r.Upsert(schema2025.Task{TaskID: "new", Status: schema2025.TaskStatusWorking, LastUpdatedAt: "2026-07-29T09:00:00Z"})

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].TaskID)
	assert.Equal(t, "old", list[1].TaskID)
}
