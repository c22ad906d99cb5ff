package schema2024

// Annotations carries optional, client-facing metadata about an object
// (priority, intended audience).
type Annotations struct {
	Audience []Role   `json:"audience,omitempty"`
	Priority *float64 `json:"priority,omitempty"`
}

// Role identifies the sender or recipient of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)
