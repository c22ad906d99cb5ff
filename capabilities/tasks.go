package capabilities

import (
	"encoding/json"
	"sync"

	"github.com/gate4ai/mcpclient/protocol"
	"github.com/gate4ai/mcpclient/schema/schema2025"
	"github.com/gate4ai/mcpclient/tasks"
	"go.uber.org/zap"
)

// Tasks routes notifications/tasks/status into the client's local task
// registry, and advertises the tasks/list + tasks/cancel sub-capabilities
// once Enable(true) has been called — never unconditionally, since a
// server negotiated onto a version that predates task-augmented requests
// has no use for the flag at all.
type Tasks struct {
	logger   *zap.Logger
	registry *tasks.Registry
	handlers map[string]func(*protocol.Message) (interface{}, error)

	mu      sync.RWMutex
	enabled bool
}

// NewTasks builds a Tasks capability backed by registry.
func NewTasks(logger *zap.Logger, registry *tasks.Registry) *Tasks {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tasks{logger: logger, registry: registry}
	t.handlers = map[string]func(*protocol.Message) (interface{}, error){
		"notifications/tasks/status": t.handleStatus,
	}
	return t
}

// GetHandlers implements session.ICapability.
func (t *Tasks) GetHandlers() map[string]func(*protocol.Message) (interface{}, error) {
	return t.handlers
}

// Enable toggles whether the tasks sub-capability is advertised during
// initialize. Must be called before the handshake to take effect.
func (t *Tasks) Enable(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

// SetCapabilities implements session.IClientCapability.
func (t *Tasks) SetCapabilities(c *schema2025.ClientCapabilities) {
	t.mu.RLock()
	enabled := t.enabled
	t.mu.RUnlock()
	if !enabled {
		return
	}
	c.Tasks = &schema2025.TasksCapability{List: &struct{}{}, Cancel: &struct{}{}}
}

func (t *Tasks) handleStatus(msg *protocol.Message) (interface{}, error) {
	msg.Processed = true
	if msg.Params == nil {
		return nil, nil
	}
	var params schema2025.TaskStatusNotificationParams
	if err := json.Unmarshal(*msg.Params, &params); err != nil {
		t.logger.Debug("notifications/tasks/status: invalid params", zap.Error(err))
		return nil, nil
	}
	t.registry.Upsert(params.Task)
	return nil, nil
}
