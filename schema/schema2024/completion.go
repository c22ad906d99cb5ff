package schema2024

import (
	"encoding/json"
	"fmt"
)

// CompleteRequestParams contains the parameters of completion/complete.
// Ref carries either a PromptReference or a ResourceReference, discriminated
// by its "type" field; callers type-switch after a first-pass decode of
// just that field.
type CompleteRequestParams struct {
	Ref      json.RawMessage  `json:"ref"`
	Argument CompleteArgument `json:"argument"`
}

// refType peeks at the "type" discriminator of a completion reference
// without fully decoding it.
func refType(ref json.RawMessage) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(ref, &head); err != nil {
		return "", err
	}
	return head.Type, nil
}

// DecodePromptReference decodes Ref as a PromptReference, failing if its
// discriminator isn't "ref/prompt".
func (p CompleteRequestParams) DecodePromptReference() (PromptReference, error) {
	var ref PromptReference
	if err := json.Unmarshal(p.Ref, &ref); err != nil {
		return ref, err
	}
	if ref.Type != "ref/prompt" {
		return ref, fmt.Errorf("completion ref type %q is not ref/prompt", ref.Type)
	}
	return ref, nil
}

// DecodeResourceReference decodes Ref as a ResourceReference, failing if its
// discriminator isn't "ref/resource".
func (p CompleteRequestParams) DecodeResourceReference() (ResourceReference, error) {
	var ref ResourceReference
	if err := json.Unmarshal(p.Ref, &ref); err != nil {
		return ref, err
	}
	if ref.Type != "ref/resource" {
		return ref, fmt.Errorf("completion ref type %q is not ref/resource", ref.Type)
	}
	return ref, nil
}

// RefType returns the "type" discriminator of Ref ("ref/prompt" or
// "ref/resource").
func (p CompleteRequestParams) RefType() (string, error) {
	return refType(p.Ref)
}
