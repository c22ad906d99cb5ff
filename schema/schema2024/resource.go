package schema2024

// ResourceContent is the actual content of a resource: text xor blob.
type ResourceContent struct {
	URI      string  `json:"uri"`
	MimeType string  `json:"mimeType,omitempty"`
	Text     *string `json:"text,omitempty"`
	Blob     *string `json:"blob,omitempty"` // base64-encoded
}

// Content is the tagged-union "message content" type: Text | Image | Audio |
// embedded Resource. Exactly one of Text/Data/Resource is populated,
// discriminated by Type.
type Content struct {
	Type        string           `json:"type"`
	Annotations *Annotations     `json:"annotations,omitempty"`
	Text        *string          `json:"text,omitempty"`
	Data        *string          `json:"data,omitempty"`
	MimeType    *string          `json:"mimeType,omitempty"`
	Resource    *ResourceContent `json:"resource,omitempty"`
}

// NewTextContent builds a single-element Text content slice.
func NewTextContent(text string) []Content {
	return []Content{{Type: "text", Text: &text}}
}

// NewImageContent builds a single-element Image content slice.
func NewImageContent(data, mimeType string) []Content {
	return []Content{{Type: "image", Data: &data, MimeType: &mimeType}}
}

// NewAudioContent builds a single-element Audio content slice.
func NewAudioContent(data, mimeType string) []Content {
	return []Content{{Type: "audio", Data: &data, MimeType: &mimeType}}
}

// Resource describes a known, readable piece of server-exposed content.
type Resource struct {
	Annotations *Annotations `json:"annotations,omitempty"`
	URI         string       `json:"uri"`
	Name        string       `json:"name"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	MimeType    string       `json:"mimeType,omitempty"`
}

// ListResourcesRequestParams contains the parameters of resources/list.
type ListResourcesRequestParams struct {
	PaginatedRequestParams
}

// ListResourcesResult is the response to resources/list.
type ListResourcesResult struct {
	PaginatedResult
	Meta      map[string]interface{} `json:"_meta,omitempty"`
	Resources []Resource             `json:"resources"`
}

// ReadResourceRequestParams contains the parameters of resources/read.
type ReadResourceRequestParams struct {
	URI string `json:"uri"`
}

// ReadResourceResult is the response to resources/read.
type ReadResourceResult struct {
	Meta     map[string]interface{} `json:"_meta,omitempty"`
	Contents []ResourceContent      `json:"contents"`
}

// ResourceReference identifies a resource or resource-template definition,
// used by completion/complete's ref/resource shape.
type ResourceReference struct {
	Type string `json:"type"` // const: "ref/resource"
	URI  string  `json:"uri"`
}

// SubscribeRequestParams contains the parameters of resources/subscribe.
type SubscribeRequestParams struct {
	URI string `json:"uri"`
}

// UnsubscribeRequestParams contains the parameters of resources/unsubscribe.
type UnsubscribeRequestParams struct {
	URI string `json:"uri"`
}

// ResourceUpdatedNotificationParams contains the parameters of
// notifications/resources/updated.
type ResourceUpdatedNotificationParams struct {
	URI string `json:"uri"`
}
