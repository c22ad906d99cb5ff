// Package tasks tracks the client's view of server-side task-augmented
// operations: tasks the server handed back a task id for instead of an
// immediate result, polled or pushed via notifications/tasks/status until
// they reach a terminal state.
package tasks

import (
	"sync"
	"time"

	"github.com/gate4ai/mcpclient/schema/schema2025"
	"go.uber.org/zap"
)

// WaitingOnInputFunc is invoked whenever a tracked task transitions into
// TaskStatusInputRequired, so a caller can surface that to whatever drives
// the elicitation/approval flow the task is waiting on.
type WaitingOnInputFunc func(task schema2025.Task)

// Registry is the client's local mirror of known tasks. It applies a
// newer-LastUpdatedAt-wins rule on every upsert so a status notification
// racing a tasks/get response can never regress a task's recorded state.
type Registry struct {
	mu          sync.RWMutex
	tasks       map[string]schema2025.Task
	ttl         map[string]*time.Timer
	logger      *zap.Logger
	onWaitInput WaitingOnInputFunc
	defaultTTL  time.Duration
}

// NewRegistry builds an empty task registry. defaultTTL bounds how long a
// terminal (completed/failed/cancelled) task is kept in memory after its
// last update when the server's own Task.TTL is zero; 0 means no local
// eviction is scheduled beyond what the server advertises.
func NewRegistry(logger *zap.Logger, defaultTTL time.Duration) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tasks:      make(map[string]schema2025.Task),
		ttl:        make(map[string]*time.Timer),
		logger:     logger,
		defaultTTL: defaultTTL,
	}
}

// OnWaitingOnInput registers a callback fired when a task enters
// TaskStatusInputRequired.
func (r *Registry) OnWaitingOnInput(fn WaitingOnInputFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onWaitInput = fn
}

// Upsert records task, keeping whichever of the existing and incoming
// records has the newer LastUpdatedAt. Returns the record that ended up
// stored (which may be the existing one, unchanged).
func (r *Registry) Upsert(task schema2025.Task) schema2025.Task {
	r.mu.Lock()
	existing, ok := r.tasks[task.TaskID]
	var stored schema2025.Task
	newer := !ok || isNewer(task.LastUpdatedAt, existing.LastUpdatedAt)
	if newer {
		r.tasks[task.TaskID] = task
		stored = task
	} else {
		stored = existing
	}
	fn := r.onWaitInput
	r.rescheduleEvictionLocked(stored)
	r.mu.Unlock()

	if newer && stored.Status == schema2025.TaskStatusInputRequired && fn != nil {
		fn(stored)
	}
	return stored
}

// isNewer compares RFC 3339 timestamp strings lexicographically, which is
// valid as long as both use the same fixed-width, zero-padded, UTC-or-
// consistently-offset representation — true of every timestamp this client
// emits and expects. An empty incoming value never displaces a non-empty
// existing one.
func isNewer(incoming, existing string) bool {
	if incoming == "" {
		return false
	}
	if existing == "" {
		return true
	}
	return incoming > existing
}

func (r *Registry) rescheduleEvictionLocked(task schema2025.Task) {
	if t, ok := r.ttl[task.TaskID]; ok {
		t.Stop()
		delete(r.ttl, task.TaskID)
	}
	if !isTerminal(task.Status) {
		return
	}
	ttl := time.Duration(task.TTL) * time.Second
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	if ttl <= 0 {
		return
	}
	id := task.TaskID
	r.ttl[id] = time.AfterFunc(ttl, func() { r.evict(id) })
}

func isTerminal(status schema2025.TaskStatus) bool {
	switch status {
	case schema2025.TaskStatusCompleted, schema2025.TaskStatusFailed, schema2025.TaskStatusCancelled:
		return true
	default:
		return false
	}
}

func (r *Registry) evict(taskID string) {
	r.mu.Lock()
	delete(r.tasks, taskID)
	delete(r.ttl, taskID)
	r.mu.Unlock()
	r.logger.Debug("task evicted from local registry", zap.String("taskId", taskID))
}

// Get returns the locally-known state of a task. If the id is unknown, a
// synthesized TaskStatusCancelled record is returned instead of a bare
// not-found error: an id this registry never saw (expired, or never
// created by this client) is indistinguishable from the server's own
// record of a long-gone task, and callers should treat both the same way
// rather than special-casing "never heard of it".
func (r *Registry) Get(taskID string) schema2025.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if task, ok := r.tasks[taskID]; ok {
		return task
	}
	return schema2025.Task{
		TaskID:        taskID,
		Status:        schema2025.TaskStatusCancelled,
		StatusMessage: "unknown task",
	}
}

// List returns every task currently tracked, most-recently-updated first.
func (r *Registry) List() []schema2025.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]schema2025.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}
	sortTasksByLastUpdatedDesc(out)
	return out
}

func sortTasksByLastUpdatedDesc(tasks []schema2025.Task) {
	for i := 1; i < len(tasks); i++ {
		for j := i; j > 0 && tasks[j].LastUpdatedAt > tasks[j-1].LastUpdatedAt; j-- {
			tasks[j], tasks[j-1] = tasks[j-1], tasks[j]
		}
	}
}

// Forget removes a task from the registry immediately, stopping any
// pending eviction timer. Used once a caller has consumed a terminal
// task's result and no longer needs it kept around.
func (r *Registry) Forget(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.ttl[taskID]; ok {
		t.Stop()
		delete(r.ttl, taskID)
	}
	delete(r.tasks, taskID)
}

// Len reports how many tasks are currently tracked.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
