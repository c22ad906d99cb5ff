package client

import (
	"context"
	"encoding/json"

	"github.com/gate4ai/mcpclient/schema/schema2025"
)

// ListPrompts returns every prompt the server advertises, cached by name.
func (c *Client) ListPrompts(ctx context.Context, refresh bool) ([]schema2025.Prompt, error) {
	if !refresh {
		c.promptsMu.RLock()
		if len(c.promptsByName) > 0 {
			out := make([]schema2025.Prompt, 0, len(c.promptsByName))
			for _, p := range c.promptsByName {
				out = append(out, p)
			}
			c.promptsMu.RUnlock()
			return out, nil
		}
		c.promptsMu.RUnlock()
	}

	pages, err := c.listPages("prompts/list", schema2025.ListPromptsRequestParams{}, c.cfg.requestTimeout())
	if err != nil {
		return nil, &TransportError{Op: "prompts/list", Err: err}
	}

	var all []schema2025.Prompt
	for _, raw := range pages {
		var page schema2025.ListPromptsResult
		if err := json.Unmarshal(*raw, &page); err != nil {
			return nil, &TransportError{Op: "prompts/list", Err: err}
		}
		all = append(all, page.Prompts...)
	}

	c.promptsMu.Lock()
	c.promptsByName = make(map[string]schema2025.Prompt, len(all))
	for _, p := range all {
		c.promptsByName[p.Name] = p
	}
	c.promptsMu.Unlock()

	return all, nil
}

// GetPrompt realizes a named prompt template against arguments, returning
// its rendered messages.
func (c *Client) GetPrompt(ctx context.Context, name string, arguments map[string]string) (*schema2025.GetPromptResult, error) {
	msg, err := c.call(ctx, "prompts/get", schema2025.GetPromptRequestParams{Name: name, Arguments: arguments}, c.cfg.requestTimeout())
	if err != nil {
		return nil, &PromptError{Name: name, Err: err}
	}
	if msg.Error != nil {
		return nil, &PromptError{Name: name, Err: msg.Error}
	}
	var result schema2025.GetPromptResult
	if err := json.Unmarshal(*msg.Result, &result); err != nil {
		return nil, &PromptError{Name: name, Err: err}
	}
	return &result, nil
}
