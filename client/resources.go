package client

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/gate4ai/mcpclient/schema/schema2025"
)

// ListResources returns every resource the server advertises, cached by
// URI; pass refresh to force a re-fetch.
func (c *Client) ListResources(ctx context.Context, refresh bool) ([]schema2025.Resource, error) {
	if !refresh {
		c.resourcesMu.RLock()
		if len(c.resourcesByURI) > 0 {
			out := make([]schema2025.Resource, 0, len(c.resourcesByURI))
			for _, r := range c.resourcesByURI {
				out = append(out, r)
			}
			c.resourcesMu.RUnlock()
			return out, nil
		}
		c.resourcesMu.RUnlock()
	}

	pages, err := c.listPages("resources/list", schema2025.ListResourcesRequestParams{}, c.cfg.requestTimeout())
	if err != nil {
		return nil, &TransportError{Op: "resources/list", Err: err}
	}

	var all []schema2025.Resource
	for _, raw := range pages {
		var page schema2025.ListResourcesResult
		if err := json.Unmarshal(*raw, &page); err != nil {
			return nil, &TransportError{Op: "resources/list", Err: err}
		}
		all = append(all, page.Resources...)
	}

	c.resourcesMu.Lock()
	c.resourcesByURI = make(map[string]schema2025.Resource, len(all))
	for _, r := range all {
		c.resourcesByURI[r.URI] = r
	}
	c.resourcesMu.Unlock()

	return all, nil
}

// ReadResource fetches the content of one resource by URI.
func (c *Client) ReadResource(ctx context.Context, uri string) (*schema2025.ReadResourceResult, error) {
	msg, err := c.call(ctx, "resources/read", schema2025.ReadResourceRequestParams{URI: uri}, c.cfg.requestTimeout())
	if err != nil {
		return nil, &ResourceError{URI: uri, Err: err}
	}
	if msg.Error != nil {
		return nil, &ResourceError{URI: uri, Err: msg.Error}
	}
	var result schema2025.ReadResourceResult
	if err := json.Unmarshal(*msg.Result, &result); err != nil {
		return nil, &ResourceError{URI: uri, Err: err}
	}
	return &result, nil
}

// ListResourceTemplates returns every resource template the server
// advertises, cached by URI template string.
func (c *Client) ListResourceTemplates(ctx context.Context, refresh bool) ([]schema2025.ResourceTemplate, error) {
	if !refresh {
		c.resourcesMu.RLock()
		if len(c.templatesByURI) > 0 {
			out := make([]schema2025.ResourceTemplate, 0, len(c.templatesByURI))
			for _, t := range c.templatesByURI {
				out = append(out, t)
			}
			c.resourcesMu.RUnlock()
			return out, nil
		}
		c.resourcesMu.RUnlock()
	}

	pages, err := c.listPages("resources/templates/list", schema2025.ListResourceTemplatesRequestParams{}, c.cfg.requestTimeout())
	if err != nil {
		return nil, &TransportError{Op: "resources/templates/list", Err: err}
	}

	var all []schema2025.ResourceTemplate
	for _, raw := range pages {
		var page schema2025.ListResourceTemplatesResult
		if err := json.Unmarshal(*raw, &page); err != nil {
			return nil, &TransportError{Op: "resources/templates/list", Err: err}
		}
		all = append(all, page.ResourceTemplates...)
	}

	c.resourcesMu.Lock()
	c.templatesByURI = make(map[string]schema2025.ResourceTemplate, len(all))
	for _, t := range all {
		c.templatesByURI[t.URITemplate] = t
	}
	c.resourcesMu.Unlock()

	return all, nil
}

// Subscribe asks the server for resources/updated notifications on uri and
// registers fn to receive them; fn also fires when an update invalidates
// the locally cached copy of uri.
func (c *Client) Subscribe(ctx context.Context, uri string, fn ResourceUpdateFunc) error {
	msg, err := c.call(ctx, "resources/subscribe", schema2025.SubscribeRequestParams{URI: uri}, c.cfg.requestTimeout())
	if err != nil {
		return &ResourceError{URI: uri, Err: err}
	}
	if msg.Error != nil {
		return &ResourceError{URI: uri, Err: msg.Error}
	}
	c.resourcesMu.Lock()
	c.subscriptions[uri] = fn
	c.resourcesMu.Unlock()
	return nil
}

// Unsubscribe cancels a prior Subscribe.
func (c *Client) Unsubscribe(ctx context.Context, uri string) error {
	msg, err := c.call(ctx, "resources/unsubscribe", schema2025.UnsubscribeRequestParams{URI: uri}, c.cfg.requestTimeout())
	if err != nil {
		return &ResourceError{URI: uri, Err: err}
	}
	if msg.Error != nil {
		return &ResourceError{URI: uri, Err: msg.Error}
	}
	c.resourcesMu.Lock()
	delete(c.subscriptions, uri)
	c.resourcesMu.Unlock()
	return nil
}

// rfc6570SimpleVar matches a level-1 RFC 6570 expression, {var}, the only
// operator form resource templates in the wild actually use: plain
// substitution with percent-encoding, no reserved-char, fragment, or
// path-segment operators ({+var}, {#var}, {/var}, ...).
var rfc6570SimpleVar = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// ExpandTemplate fills in tmpl.URITemplate's {var} placeholders from args
// and returns the resulting concrete URI. Any placeholder missing from
// args expands to the empty string per RFC 6570 (an undefined variable is
// simply omitted), matching the server's own liberal-in-what-it-accepts
// expansion rather than rejecting the call outright.
func ExpandTemplate(tmpl schema2025.ResourceTemplate, args map[string]string) (string, error) {
	expanded := rfc6570SimpleVar.ReplaceAllStringFunc(tmpl.URITemplate, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "{"), "}")
		value, ok := args[name]
		if !ok {
			return ""
		}
		return url.PathEscape(value)
	})
	return expanded, nil
}
