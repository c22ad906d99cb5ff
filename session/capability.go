package session

import (
	"github.com/gate4ai/mcpclient/protocol"
	"github.com/gate4ai/mcpclient/schema/schema2025"
)

// CapabilityOption is a free-form tag capabilities use to describe
// themselves in logs; it carries no wire meaning.
type CapabilityOption string

// ICapability is implemented by each client-side feature area (sampling,
// roots, elicitation, logging, tasks...) so Input can route inbound
// server-initiated requests to it.
type ICapability interface {
	GetHandlers() map[string]func(*protocol.Message) (interface{}, error)
}

// IClientCapability lets a capability populate its slice of
// schema2025.ClientCapabilities during the initialize handshake.
type IClientCapability interface {
	SetCapabilities(c *schema2025.ClientCapabilities)
}
