package schema2025

import (
	"encoding/json"

	"github.com/gate4ai/mcpclient/schema/schema2024"
)

const PROTOCOL_VERSION_2025_03_26 = "2025-03-26"
const PROTOCOL_VERSION_2025_06_18 = "2025-06-18"
const PROTOCOL_VERSION_DRAFT = "DRAFT-2025-v1"

type Capability = schema2024.Capability
type CapabilityWithSubscribe = schema2024.CapabilityWithSubscribe
type RootsCapability = schema2024.RootsCapability

// InitializeRequestParams carries the 2025 ClientCapabilities shape,
// unlike its 2024 ancestor: a client speaking this package's dialect
// always sends elicitation/tasks capability flags, even against a server
// that predates them and simply ignores the fields it doesn't recognize.
type InitializeRequestParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

// TasksCapability declares support for the tasks/* family (list, get,
// result, cancel) introduced post-2024-11-05. Only advertised when the
// protocol version the client offers in initialize supports extensions.
type TasksCapability struct {
	List   *struct{} `json:"list,omitempty"`
	Cancel *struct{} `json:"cancel,omitempty"`
}

// SamplingCapability is richer than its 2024 ancestor: a server/client pair
// may additionally negotiate tool use and extra context during sampling.
type SamplingCapability struct {
	Tools   *struct{} `json:"tools,omitempty"`
	Context *struct{} `json:"context,omitempty"`
}

// ElicitationCapability declares client support for elicitation/create, and
// which presentation modes it understands.
type ElicitationCapability struct {
	Form *struct{} `json:"form,omitempty"`
	URL  *struct{} `json:"url,omitempty"`
}

// ClientCapabilities extends the 2024 set with elicitation, a richer
// sampling capability, and Tasks (only ever populated when the offered
// version supports extensions, see schema.SupportsExtensions).
// Experimental is kept for forward-compatible flags a server doesn't
// otherwise recognize.
type ClientCapabilities struct {
	Experimental map[string]map[string]interface{} `json:"experimental,omitempty"`
	Roots        *RootsCapability                  `json:"roots,omitempty"`
	Sampling     *SamplingCapability                `json:"sampling,omitempty"`
	Elicitation  *ElicitationCapability              `json:"elicitation,omitempty"`
	Tasks        *TasksCapability                    `json:"tasks,omitempty"`
}

// ServerCapabilities extends the 2024 set with Tasks.
type ServerCapabilities struct {
	Experimental map[string]json.RawMessage `json:"experimental,omitempty"`
	Logging      *struct{}                  `json:"logging,omitempty"`
	Completions  *struct{}                  `json:"completions,omitempty"`
	Prompts      *Capability                `json:"prompts,omitempty"`
	Resources    *CapabilityWithSubscribe    `json:"resources,omitempty"`
	Tools        *Capability                 `json:"tools,omitempty"`
	Tasks        *TasksCapability            `json:"tasks,omitempty"`
}

// InitializeResult is the server's response to initialize.
type InitializeResult struct {
	Meta            map[string]interface{} `json:"_meta,omitempty"`
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    ServerCapabilities     `json:"capabilities"`
	ServerInfo      Implementation         `json:"serverInfo"`
	Instructions    string                 `json:"instructions,omitempty"`
}
