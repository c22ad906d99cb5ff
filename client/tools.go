package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gate4ai/mcpclient/capabilities"
	"github.com/gate4ai/mcpclient/schema/schema2025"
)

// ListTools returns every tool the server advertises, following pagination
// transparently. The result is cached by name; pass refresh to force a
// re-fetch (e.g. after a notifications/tools/list_changed).
func (c *Client) ListTools(ctx context.Context, refresh bool) ([]schema2025.Tool, error) {
	if !refresh {
		c.toolsMu.RLock()
		if len(c.toolsByName) > 0 {
			tools := make([]schema2025.Tool, 0, len(c.toolsByName))
			for _, t := range c.toolsByName {
				tools = append(tools, t)
			}
			c.toolsMu.RUnlock()
			return tools, nil
		}
		c.toolsMu.RUnlock()
	}

	pages, err := c.listPages("tools/list", schema2025.ListToolsRequestParams{}, c.cfg.requestTimeout())
	if err != nil {
		return nil, &TransportError{Op: "tools/list", Err: err}
	}

	var all []schema2025.Tool
	for _, raw := range pages {
		var page schema2025.ListToolsResult
		if err := json.Unmarshal(*raw, &page); err != nil {
			return nil, &TransportError{Op: "tools/list", Err: err}
		}
		all = append(all, page.Tools...)
	}

	c.toolsMu.Lock()
	c.toolsByName = make(map[string]schema2025.Tool, len(all))
	for _, t := range all {
		c.toolsByName[t.Name] = t
	}
	c.toolsMu.Unlock()

	return all, nil
}

// CallToolOption customizes a single CallTool invocation.
type CallToolOption func(*callToolOptions)

type callToolOptions struct {
	progressToken schema2025.ProgressToken
	task          bool
}

// WithProgress attaches a progress token a server may emit
// notifications/progress against while the call is in flight.
func WithProgress(token schema2025.ProgressToken) CallToolOption {
	return func(o *callToolOptions) { o.progressToken = token }
}

// WithTask opts this call into task-augmented execution: the server may
// answer with a Task instead of an immediate CallToolResult, which
// CallTool then surfaces to the caller to poll or wait on via the tasks
// family instead of blocking the call itself. This client embeds the hint
// as "_meta.io.modelcontextprotocol/task-augmented": true, a convention
// not defined anywhere in the wire schema — servers that don't recognize
// it simply ignore the extra _meta key and answer synchronously.
func WithTask() CallToolOption {
	return func(o *callToolOptions) { o.task = true }
}

const taskAugmentedMetaKey = "io.modelcontextprotocol/task-augmented"

// CallToolOutcome is either an immediate result or a task handle to poll,
// depending on whether the server accepted WithTask and chose to run the
// call asynchronously.
type CallToolOutcome struct {
	Result *schema2025.CallToolResult
	Task   *schema2025.Task
}

// cancelledByClientText is the execution-error content every denied or
// timed-out-deferred approval decision surfaces to the caller as a
// CallToolResult rather than an error, so a host can show it to the model
// exactly like any other tool failure (§4.G, §8 property 10, scenario S6).
const cancelledByClientText = "Tool call was cancelled by the client"

// CallTool invokes a tool by name. Every call passes through the
// configured Approval hook first; a Denied decision, or a Deferred
// decision that resolves false or times out, never reaches the wire and
// instead comes back as an execution-error CallToolResult.
func (c *Client) CallTool(ctx context.Context, name string, args schema2025.Arguments, opts ...CallToolOption) (*CallToolOutcome, error) {
	var o callToolOptions
	for _, opt := range opts {
		opt(&o)
	}

	params := schema2025.CallToolRequestParams{Name: name, Arguments: args}
	decision := capabilities.Resolve(ctx, c.cfg.Approval, c.approvals, "tools/call", params)
	if decision.Kind != capabilities.DecisionApproved {
		return &CallToolOutcome{Result: &schema2025.CallToolResult{
			IsError: true,
			Content: schema2025.NewTextContent(cancelledByClientText),
		}}, nil
	}

	var payload interface{} = params
	meta := map[string]interface{}{}
	if o.progressToken != nil {
		meta["progressToken"] = o.progressToken
	}
	if o.task {
		meta[taskAugmentedMetaKey] = true
	}
	if len(meta) > 0 {
		merged, err := withMeta(params, meta)
		if err != nil {
			return nil, &TransportError{Op: "tools/call", Err: err}
		}
		payload = merged
	}

	msg, err := c.call(ctx, "tools/call", payload, c.cfg.requestTimeout())
	if err != nil {
		return nil, &TransportError{Op: "tools/call", Err: err}
	}
	if msg.Error != nil {
		return nil, fmt.Errorf("tools/call %q: %w", name, msg.Error)
	}

	if task, ok := decodeTaskEnvelope(msg.Result); ok {
		c.tasks.Upsert(task)
		return &CallToolOutcome{Task: &task}, nil
	}

	var result schema2025.CallToolResult
	if err := json.Unmarshal(*msg.Result, &result); err != nil {
		return nil, &TransportError{Op: "tools/call", Err: err}
	}
	return &CallToolOutcome{Result: &result}, nil
}

// decodeTaskEnvelope attempts to read raw as {"task": Task}, the shape a
// task-augmented call answers with instead of its normal result.
func decodeTaskEnvelope(raw *json.RawMessage) (schema2025.Task, bool) {
	if raw == nil {
		return schema2025.Task{}, false
	}
	var envelope struct {
		Task *schema2025.Task `json:"task"`
	}
	if err := json.Unmarshal(*raw, &envelope); err != nil || envelope.Task == nil {
		return schema2025.Task{}, false
	}
	return *envelope.Task, true
}
