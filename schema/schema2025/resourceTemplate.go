package schema2025

type ListResourceTemplatesRequestParams struct {
	PaginatedRequestParams
}

type ListResourceTemplatesResult struct {
	PaginatedResult
	Meta              map[string]interface{} `json:"_meta,omitempty"`
	ResourceTemplates []ResourceTemplate      `json:"resourceTemplates"`
}
