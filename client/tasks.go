package client

import (
	"context"
	"encoding/json"

	"github.com/gate4ai/mcpclient/schema/schema2025"
)

// GetTask fetches the current status of a task by id, preferring the
// locally tracked copy (kept fresh by the pushed notifications/tasks/status
// capability) and only falling back to tasks/get when the task is unknown
// locally — e.g. one created by a different client against the same
// server session.
func (c *Client) GetTask(ctx context.Context, taskID string, refresh bool) (schema2025.Task, error) {
	if !refresh {
		if task := c.tasks.Get(taskID); task.StatusMessage != "unknown task" {
			return task, nil
		}
	}

	msg, err := c.call(ctx, "tasks/get", schema2025.GetTaskRequestParams{TaskID: taskID}, c.cfg.requestTimeout())
	if err != nil {
		return schema2025.Task{}, &TransportError{Op: "tasks/get", Err: err}
	}
	if msg.Error != nil {
		return schema2025.Task{}, msg.Error
	}
	var result schema2025.GetTaskResult
	if err := json.Unmarshal(*msg.Result, &result); err != nil {
		return schema2025.Task{}, &TransportError{Op: "tasks/get", Err: err}
	}
	return c.tasks.Upsert(result.Task), nil
}

// GetTaskResult fetches the final result payload of a completed task,
// decoding it the same way CallTool would have decoded an immediate
// result had the call never been dispatched in task-augmented mode.
func (c *Client) GetTaskResult(ctx context.Context, taskID string) (*schema2025.CallToolResult, error) {
	msg, err := c.call(ctx, "tasks/result", schema2025.GetTaskResultRequestParams{TaskID: taskID}, c.cfg.requestTimeout())
	if err != nil {
		return nil, &TransportError{Op: "tasks/result", Err: err}
	}
	if msg.Error != nil {
		return nil, msg.Error
	}
	var result schema2025.CallToolResult
	if err := json.Unmarshal(*msg.Result, &result); err != nil {
		return nil, &TransportError{Op: "tasks/result", Err: err}
	}
	return &result, nil
}

// ListTasks returns every task the server currently tracks, following
// pagination transparently. Unlike ListTools/ListResources this never
// serves from the local cache: tasks.Registry only knows about tasks this
// client has seen created or pushed, not the server's full set.
func (c *Client) ListTasks(ctx context.Context) ([]schema2025.Task, error) {
	pages, err := c.listPages("tasks/list", schema2025.ListTasksRequestParams{}, c.cfg.requestTimeout())
	if err != nil {
		return nil, &TransportError{Op: "tasks/list", Err: err}
	}
	var all []schema2025.Task
	for _, raw := range pages {
		var page schema2025.ListTasksResult
		if err := json.Unmarshal(*raw, &page); err != nil {
			return nil, &TransportError{Op: "tasks/list", Err: err}
		}
		all = append(all, page.Tasks...)
	}
	for _, t := range all {
		c.tasks.Upsert(t)
	}
	return all, nil
}

// CancelTask asks the server to cancel a task it's still running.
func (c *Client) CancelTask(ctx context.Context, taskID string) (schema2025.Task, error) {
	msg, err := c.call(ctx, "tasks/cancel", schema2025.CancelTaskRequestParams{TaskID: taskID}, c.cfg.requestTimeout())
	if err != nil {
		return schema2025.Task{}, &TransportError{Op: "tasks/cancel", Err: err}
	}
	if msg.Error != nil {
		return schema2025.Task{}, msg.Error
	}
	var result schema2025.CancelTaskResult
	if err := json.Unmarshal(*msg.Result, &result); err != nil {
		return schema2025.Task{}, &TransportError{Op: "tasks/cancel", Err: err}
	}
	return c.tasks.Upsert(result.Task), nil
}
