package schema2025

type SamplingMessage struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

type CreateMessageRequestParams struct {
	Messages         []SamplingMessage `json:"messages"`
	ModelPreferences *ModelPreferences `json:"modelPreferences,omitempty"`
	SystemPrompt     string            `json:"systemPrompt,omitempty"`
	IncludeContext   string            `json:"includeContext,omitempty"`
	Temperature      *float64          `json:"temperature,omitempty"`
	MaxTokens        int               `json:"maxTokens"`
	StopSequences    []string          `json:"stopSequences,omitempty"`
	Metadata         interface{}       `json:"metadata,omitempty"`
}

// CreateMessageResult is the client's response to sampling/createMessage.
// StopReason is normalized to camelCase (endTurn, maxTokens, toolUse,
// pauseTurn, stopSequence, refusal) regardless of what the host LLM's SDK
// natively returns.
type CreateMessageResult struct {
	Meta       Meta    `json:"_meta,omitempty"`
	Role       Role    `json:"role"`
	Content    Content `json:"content"`
	Model      string  `json:"model"`
	StopReason string  `json:"stopReason,omitempty"`
}

// NormalizeStopReason maps common host-LLM stop-reason spellings (often
// snake_case) to the camelCase vocabulary the wire format expects.
func NormalizeStopReason(raw string) string {
	switch raw {
	case "end_turn", "endTurn":
		return "endTurn"
	case "max_tokens", "maxTokens":
		return "maxTokens"
	case "tool_use", "toolUse":
		return "toolUse"
	case "pause_turn", "pauseTurn":
		return "pauseTurn"
	case "stop_sequence", "stopSequence":
		return "stopSequence"
	case "refusal":
		return "refusal"
	case "":
		return "endTurn"
	default:
		return snakeToCamel(raw)
	}
}

func snakeToCamel(s string) string {
	out := make([]byte, 0, len(s))
	upperNext := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			upperNext = true
			continue
		}
		if upperNext && c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
			upperNext = false
		}
		out = append(out, c)
	}
	return string(out)
}
