package schema2025

import (
	"encoding/json"

	"github.com/gate4ai/mcpclient/schema/schema2024"
)

// ToolAnnotations carries the same client-facing hints as 2024; untrusted
// servers can set them to anything, so callers must never gate destructive
// confirmation purely on these.
type ToolAnnotations = schema2024.ToolAnnotations

// Tool adds an optional OutputSchema (2025-06-18): when present, a
// conforming server's CallToolResult.StructuredContent validates against it.
type Tool struct {
	Name         string              `json:"name"`
	Description  string              `json:"description,omitempty"`
	InputSchema  *JSONSchemaProperty `json:"inputSchema,omitempty"`
	OutputSchema *JSONSchemaProperty `json:"outputSchema,omitempty"`
	Annotations  *ToolAnnotations    `json:"annotations,omitempty"`
}

type ListToolsRequestParams struct {
	PaginatedRequestParams
}

type ListToolsResult struct {
	PaginatedResult
	Meta  Meta   `json:"_meta,omitempty"`
	Tools []Tool `json:"tools"`
}

type CallToolRequestParams struct {
	Name      string    `json:"name"`
	Arguments Arguments `json:"arguments"`
}

// CallToolResult adds StructuredContent (2025-06-18): the tool's result,
// pre-validated by the server against Tool.OutputSchema when one is
// declared.
type CallToolResult struct {
	Meta              *Meta           `json:"_meta,omitempty"`
	Content           []Content       `json:"content"`
	IsError           bool            `json:"isError,omitempty"`
	StructuredContent json.RawMessage `json:"structuredContent,omitempty"`
}
