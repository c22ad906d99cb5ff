package client

import (
	"context"
	"encoding/json"

	"github.com/gate4ai/mcpclient/schema/schema2025"
)

// CompletePrompt asks the server for completion suggestions for one
// argument of a prompt reference.
func (c *Client) CompletePrompt(ctx context.Context, name string, argument schema2025.CompleteArgument, context_ map[string]string) (*schema2025.CompletionInfo, error) {
	ref, err := json.Marshal(schema2025.PromptReference{Type: "ref/prompt", Name: name})
	if err != nil {
		return nil, &CompletionError{Err: err}
	}
	return c.complete(ctx, ref, argument, context_)
}

// CompleteResource asks the server for completion suggestions for one
// variable of a resource template reference.
func (c *Client) CompleteResource(ctx context.Context, uri string, argument schema2025.CompleteArgument, context_ map[string]string) (*schema2025.CompletionInfo, error) {
	ref, err := json.Marshal(schema2025.ResourceReference{Type: "ref/resource", URI: uri})
	if err != nil {
		return nil, &CompletionError{Err: err}
	}
	return c.complete(ctx, ref, argument, context_)
}

func (c *Client) complete(ctx context.Context, ref json.RawMessage, argument schema2025.CompleteArgument, context_ map[string]string) (*schema2025.CompletionInfo, error) {
	params := schema2025.CompleteRequestParams{Ref: ref, Argument: argument}
	if len(context_) > 0 {
		params.Context = &schema2025.CompleteContext{Arguments: context_}
	}
	msg, err := c.call(ctx, "completion/complete", params, c.cfg.requestTimeout())
	if err != nil {
		return nil, &CompletionError{Err: err}
	}
	if msg.Error != nil {
		return nil, &CompletionError{Err: msg.Error}
	}
	var result schema2025.CompleteResult
	if err := json.Unmarshal(*msg.Result, &result); err != nil {
		return nil, &CompletionError{Err: err}
	}
	return &result.Completion, nil
}
