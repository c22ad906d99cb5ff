// Package hosttool converts a server-advertised schema2025.Tool into the
// shape a host application hands its own tool-calling surface, stripped of
// any LLM-provider-specific conversion (OpenAI function-calling, Anthropic
// tool_use, etc.) — that translation belongs to the host, not this client.
package hosttool

import (
	"encoding/json"

	"github.com/gate4ai/mcpclient/schema/schema2025"
)

// Descriptor is the provider-agnostic view of one callable tool: enough for
// a host to register it with whatever tool-calling surface it drives,
// without this package knowing what that surface looks like.
type Descriptor struct {
	Name            string
	Description     string
	InputSchemaJSON json.RawMessage
	Annotations     *schema2025.ToolAnnotations
}

// FromTool builds a Descriptor from a server-advertised Tool. A nil
// InputSchema is carried through as a nil InputSchemaJSON rather than an
// empty object, since "no schema" and "empty schema" are different claims
// about the tool's parameters.
func FromTool(tool schema2025.Tool) (Descriptor, error) {
	d := Descriptor{
		Name:        tool.Name,
		Description: tool.Description,
		Annotations: tool.Annotations,
	}
	if tool.InputSchema != nil {
		raw, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return Descriptor{}, err
		}
		d.InputSchemaJSON = raw
	}
	return d, nil
}

// FromTools converts every tool in the slice, stopping at the first
// conversion failure.
func FromTools(tools []schema2025.Tool) ([]Descriptor, error) {
	out := make([]Descriptor, 0, len(tools))
	for _, t := range tools {
		d, err := FromTool(t)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
