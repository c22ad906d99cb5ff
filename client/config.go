// Package client assembles a session, a transport, the oauth engine, and
// the capability bundle into the single object an application actually
// talks to: a connected MCP client offering tools, resources, prompts,
// completion, and task polling, plus the handlers for whatever the server
// asks of the client in return.
package client

import (
	"time"

	"github.com/gate4ai/mcpclient/capabilities"
	"github.com/gate4ai/mcpclient/oauth"
	"github.com/gate4ai/mcpclient/schema"
	"github.com/gate4ai/mcpclient/schema/schema2025"
	"github.com/gate4ai/mcpclient/transport"
	"go.uber.org/zap"
)

// TransportKind selects which of Config's transport-specific sub-configs
// is used by Start.
type TransportKind string

const (
	TransportStdio      TransportKind = "stdio"
	TransportSSE        TransportKind = "sse"
	TransportStreamable TransportKind = "streamable"
)

// CapabilitiesConfig declares which server-initiated request families this
// client opts into, and the functions that answer them. Roots, sampling
// and elicitation (form mode) are advertised in initialize whatever these
// fields say: without a SamplingFunc a sampling/createMessage request is
// answered with an error, without an ElicitationFunc an elicitation/create
// request is declined, and without a RootsProvider roots/list returns an
// empty list. Only Tasks, and ElicitationURL when Elicitation is set with
// an ElicitationFunc, change what is advertised; SamplingTools and
// SamplingContext are not read.
type CapabilitiesConfig struct {
	Roots         bool
	RootsProvider capabilities.RootsProvider

	Sampling        bool
	SamplingTools   bool
	SamplingContext bool
	SamplingFunc    capabilities.SamplingFunc

	Elicitation     bool
	ElicitationURL  bool
	ElicitationFunc capabilities.ElicitationFunc

	// Tasks opts into task-augmented requests (tools/call, etc. may
	// return a Task instead of an immediate result) and advertises the
	// tasks/list and tasks/cancel sub-capabilities. Silently ignored when
	// the preferred version offered in initialize (Config.PreferredVersion)
	// predates extensions (see schema.SupportsExtensions).
	Tasks bool

	LogSubscriber capabilities.LogFunc
}

// OAuthConfig wraps oauth.ProviderConfig; a nil *OAuthConfig on Config
// means the connection never attaches an Authorization header and a 401
// is surfaced to the caller unchanged.
type OAuthConfig struct {
	oauth.ProviderConfig
}

// Config fully describes one client connection. Exactly one of the
// transport-specific sub-configs is read, selected by Transport.
type Config struct {
	Name             string
	ClientInfo       schema2025.Implementation
	PreferredVersion schema.ProtocolVersion

	Transport  TransportKind
	Stdio      transport.StdioConfig
	SSE        transport.SSEConfig
	Streamable transport.StreamableConfig

	OAuth *OAuthConfig

	Capabilities CapabilitiesConfig

	// RequestTimeout bounds every client-initiated request issued through
	// this client (tools/call, resources/read, ...); 0 disables the
	// automatic timeout transition.
	RequestTimeout time.Duration
	// InitializeTimeout bounds the initialize handshake specifically;
	// defaults to RequestTimeout if zero.
	InitializeTimeout time.Duration

	// TaskDefaultTTL bounds how long a terminal task is kept in the local
	// registry after its last update when the server's own Task.TTL is 0.
	TaskDefaultTTL time.Duration

	// Approval gates every tools/call this client issues before it
	// reaches the wire. A nil Approval approves every call unconditionally.
	Approval capabilities.ApprovalFunc

	Logger *zap.Logger
}

func (c Config) requestTimeout() time.Duration {
	return c.RequestTimeout
}

func (c Config) initializeTimeout() time.Duration {
	if c.InitializeTimeout > 0 {
		return c.InitializeTimeout
	}
	return c.RequestTimeout
}

func (c Config) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

func (c Config) clientInfo() schema2025.Implementation {
	if c.ClientInfo.Name != "" {
		return c.ClientInfo
	}
	name := c.Name
	if name == "" {
		name = "mcpclient"
	}
	return schema2025.Implementation{Name: name, Version: "0.1.0"}
}

func (c Config) preferredVersion() schema.ProtocolVersion {
	if c.PreferredVersion != "" {
		return c.PreferredVersion
	}
	return schema.VDraft
}
