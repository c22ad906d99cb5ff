package schema2025

type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

type ListPromptsRequestParams struct {
	PaginatedRequestParams
}

type ListPromptsResult struct {
	PaginatedResult
	Meta    map[string]interface{} `json:"_meta,omitempty"`
	Prompts []Prompt               `json:"prompts"`
}

type GetPromptRequestParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

type GetPromptResult struct {
	Meta        *Meta           `json:"_meta,omitempty"`
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}
