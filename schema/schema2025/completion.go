package schema2025

import "encoding/json"

// CompleteRequestParams adds an optional Context (2025-06-18): previously
// resolved argument values the server can use to scope suggestions.
type CompleteRequestParams struct {
	Ref      json.RawMessage        `json:"ref"`
	Argument CompleteArgument       `json:"argument"`
	Context  *CompleteContext       `json:"context,omitempty"`
}

// CompleteContext carries previously-resolved argument values, so a server
// can scope completions to, e.g., an already-chosen parent argument.
type CompleteContext struct {
	Arguments map[string]string `json:"arguments,omitempty"`
}

func (p CompleteRequestParams) DecodePromptReference() (PromptReference, error) {
	var ref PromptReference
	err := json.Unmarshal(p.Ref, &ref)
	return ref, err
}

func (p CompleteRequestParams) DecodeResourceReference() (ResourceReference, error) {
	var ref ResourceReference
	err := json.Unmarshal(p.Ref, &ref)
	return ref, err
}

func (p CompleteRequestParams) RefType() (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(p.Ref, &head); err != nil {
		return "", err
	}
	return head.Type, nil
}

type CompleteResult struct {
	Meta       map[string]interface{} `json:"_meta,omitempty"`
	Completion CompletionInfo          `json:"completion"`
}
