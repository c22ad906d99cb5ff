package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gate4ai/mcpclient/capabilities"
	"github.com/gate4ai/mcpclient/oauth"
	"github.com/gate4ai/mcpclient/protocol"
	"github.com/gate4ai/mcpclient/schema"
	"github.com/gate4ai/mcpclient/schema/schema2025"
	"github.com/gate4ai/mcpclient/session"
	"github.com/gate4ai/mcpclient/tasks"
	"github.com/gate4ai/mcpclient/transport"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Client is one connected MCP session: a transport, the protocol engine
// correlating requests and responses, the capabilities the server may call
// back into, and the domain-object caches (tools, resources, prompts)
// layered on top.
type Client struct {
	cfg       Config
	logger    *zap.Logger
	base      *session.BaseSession
	transport transport.Transport
	oauth     *oauth.Provider
	bundle    *capabilities.Bundle
	approvals *capabilities.Approvals
	tasks     *tasks.Registry

	mu           sync.RWMutex
	started      bool
	negotiated   schema.ProtocolVersion
	serverInfo   schema2025.Implementation
	serverCaps   schema2025.ServerCapabilities
	instructions string

	toolsMu     sync.RWMutex
	toolsByName map[string]schema2025.Tool

	resourcesMu     sync.RWMutex
	resourcesByURI  map[string]schema2025.Resource
	templatesByURI  map[string]schema2025.ResourceTemplate
	subscriptions   map[string]ResourceUpdateFunc

	promptsMu     sync.RWMutex
	promptsByName map[string]schema2025.Prompt
}

// ResourceUpdateFunc is invoked whenever a subscribed resource's
// notifications/resources/updated notification arrives.
type ResourceUpdateFunc func(uri string)

// New builds a Client from cfg but does not open any connection; call
// Start to do that.
func New(cfg Config) *Client {
	logger := cfg.logger()
	taskRegistry := tasks.NewRegistry(logger, cfg.TaskDefaultTTL)

	return &Client{
		cfg:            cfg,
		logger:         logger,
		tasks:          taskRegistry,
		approvals:      capabilities.NewApprovals(),
		toolsByName:    make(map[string]schema2025.Tool),
		resourcesByURI: make(map[string]schema2025.Resource),
		templatesByURI: make(map[string]schema2025.ResourceTemplate),
		subscriptions:  make(map[string]ResourceUpdateFunc),
		promptsByName:  make(map[string]schema2025.Prompt),
	}
}

// Approvals exposes the deferred-approval registry backing Config.Approval,
// so a host surface (a CLI prompt, a web callback) can resolve a Deferred
// decision once the human answers.
func (c *Client) Approvals() *capabilities.Approvals { return c.approvals }

// Tasks exposes the local task registry, for a host that wants to observe
// every task this client is tracking rather than only the ones it created.
func (c *Client) Tasks() *tasks.Registry { return c.tasks }

// NegotiatedVersion returns the protocol version agreed on during Start.
func (c *Client) NegotiatedVersion() schema.ProtocolVersion {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.negotiated
}

// ServerInfo returns the server's self-reported name and version.
func (c *Client) ServerInfo() schema2025.Implementation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverInfo
}

// ServerCapabilities returns the capabilities the server advertised.
func (c *Client) ServerCapabilities() schema2025.ServerCapabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverCaps
}

// Instructions returns the server's free-form usage instructions, if any.
func (c *Client) Instructions() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.instructions
}

// Start opens the configured transport and runs the initialize handshake:
// version negotiation, capability advertisement, and the initialized
// notification. It returns a *ConfigurationError if the server answers
// with a protocol version this client doesn't understand.
func (c *Client) Start(ctx context.Context) error {
	params := &sync.Map{}
	input := session.NewInput(c.logger)
	sess := session.NewBaseSession(c.logger, "", input, params)
	c.base = sess

	c.wireOAuth()
	c.wireCapabilities(input)
	sess.GetRequestManager().SetCancelNotifier(c.emitCancelledNotification)

	t, err := c.buildTransport(sess)
	if err != nil {
		return err
	}
	c.transport = t

	ready, err := t.Open(ctx)
	if err != nil {
		return &TransportError{Op: "open", Err: err}
	}
	sess.SetStatus(session.StatusConnecting)
	go input.Process()

	select {
	case <-ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := c.initialize(ctx); err != nil {
		_ = c.transport.Close()
		return err
	}

	sess.SetStatus(session.StatusConnected)
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	return nil
}

// Stop tears the connection down: the transport first (abandoning any
// in-flight calls), then the input dispatch loop.
func (c *Client) Stop() error {
	var err error
	if c.transport != nil {
		err = multierr.Append(err, c.transport.Close())
	}
	if c.base != nil {
		c.base.Input().Close()
		err = multierr.Append(err, c.base.Close())
	}
	return err
}

func (c *Client) wireOAuth() {
	if c.cfg.OAuth == nil {
		return
	}
	cfg := c.cfg.OAuth.ProviderConfig
	if cfg.Logger == nil {
		cfg.Logger = c.logger
	}
	c.oauth = oauth.NewProvider(cfg)
}

// wireCapabilities attaches every configured subscriber to the capability
// bundle and registers the bundle's handlers on input. Capability
// advertisement (ClientCapabilities) is pushed down later in initialize,
// once every Enable/SupportsURLMode flag set here has taken effect.
func (c *Client) wireCapabilities(input *session.Input) {
	capCfg := c.cfg.Capabilities
	bundle := capabilities.NewBundle(c.logger, capCfg.LogSubscriber, c.tasks)

	if capCfg.Roots {
		bundle.Roots.SetProvider(capCfg.RootsProvider)
	}
	if capCfg.Sampling && capCfg.SamplingFunc != nil {
		bundle.Sampling.Subscribe(capCfg.SamplingFunc)
	}
	if capCfg.Elicitation && capCfg.ElicitationFunc != nil {
		bundle.Elicitation.Subscribe(capCfg.ElicitationFunc)
		bundle.Elicitation.SupportsURLMode(capCfg.ElicitationURL)
	}
	extensionsOK := schema.SupportsExtensions(c.cfg.preferredVersion())
	bundle.Tasks.Enable(capCfg.Tasks && extensionsOK)

	c.bundle = bundle
	for _, cap := range bundle.All() {
		input.AddClientCapability(cap)
	}
	input.AddClientCapability(&resourceUpdates{client: c})

	bundle.Roots.SetNotifier(func(method string, params interface{}) {
		if c.base != nil {
			c.base.SendNotification(method, params)
		}
	})
}

func (c *Client) buildTransport(sess session.ISession) (transport.Transport, error) {
	switch c.cfg.Transport {
	case TransportStdio:
		cfg := c.cfg.Stdio
		if cfg.Logger == nil {
			cfg.Logger = c.logger
		}
		if cfg.MaxRestarts > 0 && cfg.OnRestarted == nil {
			cfg.OnRestarted = c.initialize
		}
		return transport.NewStdio(sess, cfg), nil
	case TransportSSE:
		cfg := c.cfg.SSE
		if cfg.Logger == nil {
			cfg.Logger = c.logger
		}
		if c.oauth != nil {
			cfg.Auth = c.oauth
		}
		return transport.NewSSE(sess, cfg), nil
	case TransportStreamable:
		cfg := c.cfg.Streamable
		if cfg.Logger == nil {
			cfg.Logger = c.logger
		}
		if c.oauth != nil {
			cfg.Auth = c.oauth
		}
		return transport.NewStreamable(sess, cfg), nil
	default:
		return nil, &ConfigurationError{Reason: fmt.Sprintf("unknown transport kind %q", c.cfg.Transport)}
	}
}

// initialize runs the initialize request/response and sends
// notifications/initialized. ClientCapabilities is built by pushing the
// negotiated opt-in flags down through every registered capability rather
// than assembled by hand here, so Sampling/Elicitation/Tasks each stay the
// single source of truth for their own advertised shape.
func (c *Client) initialize(ctx context.Context) error {
	var caps schema2025.ClientCapabilities
	c.base.Input().SetCapabilities(&caps)

	params := schema2025.InitializeRequestParams{
		ProtocolVersion: string(c.cfg.preferredVersion()),
		Capabilities:    caps,
		ClientInfo:      c.cfg.clientInfo(),
	}

	msg, err := c.call(ctx, "initialize", params, c.cfg.initializeTimeout())
	if err != nil {
		return err
	}
	if msg.Error != nil {
		return fmt.Errorf("initialize: %w", msg.Error)
	}

	var result schema2025.InitializeResult
	if err := json.Unmarshal(*msg.Result, &result); err != nil {
		return fmt.Errorf("initialize: invalid result: %w", err)
	}

	version := schema.ProtocolVersion(result.ProtocolVersion)
	if !schema.IsSupported(version) {
		return &ConfigurationError{Reason: fmt.Sprintf("server negotiated unsupported protocol version %q", result.ProtocolVersion)}
	}

	c.base.SetNegotiatedVersion(version)
	c.mu.Lock()
	c.negotiated = version
	c.serverInfo = result.ServerInfo
	c.serverCaps = result.Capabilities
	c.instructions = result.Instructions
	c.mu.Unlock()

	c.base.SendNotification("notifications/initialized", struct{}{})
	return nil
}

// emitCancelledNotification is wired into RequestManager.SetCancelNotifier
// so an outbound call leaving the correlation table through timeout or
// explicit cancellation is reported to the server, as opposed to silently
// abandoning the in-flight work on the server's side.
func (c *Client) emitCancelledNotification(id schema.RequestID, reason string) {
	if c.base == nil {
		return
	}
	c.base.SendNotification("notifications/cancelled", schema2025.CancelledNotificationParams{
		RequestID: id,
		Reason:    reason,
	})
}

// CancelRequest cancels an in-flight client-initiated request by id,
// returning the outcome directly rather than a bare bool.
func (c *Client) CancelRequest(id schema.RequestID, reason string) session.CancelOutcome {
	return c.base.GetRequestManager().CancelInFlight(id, reason)
}

// call sends method and blocks for its response, or for ctx to be
// cancelled — in which case the in-flight call is cancelled via
// RequestManager, which in turn fires emitCancelledNotification.
func (c *Client) call(ctx context.Context, method string, params interface{}, timeout time.Duration) (*protocol.Message, error) {
	result := make(chan *protocol.Message, 1)
	id, err := c.base.SendRequest(method, params, true, timeout, func(msg *protocol.Message) {
		result <- msg
	})
	if err != nil {
		return nil, &TransportError{Op: method, Err: err}
	}
	select {
	case msg := <-result:
		return msg, nil
	case <-ctx.Done():
		c.base.GetRequestManager().CancelInFlight(*id, "context cancelled")
		return nil, ctx.Err()
	}
}

// listPages drains every page of a paginated list method, returning the
// raw result of each page in arrival order. BaseSession.SendRequestSync
// already follows nextCursor transparently.
func (c *Client) listPages(method string, params interface{}, timeout time.Duration) ([]*json.RawMessage, error) {
	ch := c.base.SendRequestSync(method, params, timeout)
	var pages []*json.RawMessage
	for msg := range ch {
		if msg.Error != nil {
			return nil, msg.Error
		}
		pages = append(pages, msg.Result)
	}
	return pages, nil
}

// newRequestID mints a UUIDv4 id for a client-generated correlation id
// carried in a request payload rather than the JSON-RPC envelope itself
// (envelope ids come from BaseSession.NextMessageID). Nothing in this
// package calls it.
func newRequestID() string {
	return uuid.NewString()
}

// withMeta merges a "_meta" object into an already-built params value by
// round-tripping it through a generic map, since the per-method params
// types don't each carry their own Meta field.
func withMeta(params interface{}, meta map[string]interface{}) (interface{}, error) {
	if len(meta) == 0 {
		return params, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	existing, _ := m["_meta"].(map[string]interface{})
	if existing == nil {
		existing = make(map[string]interface{})
	}
	for k, v := range meta {
		existing[k] = v
	}
	m["_meta"] = existing
	return m, nil
}

// resourceUpdates routes notifications/resources/updated into the
// client's resource cache and subscriber callbacks. It's specific enough
// to Client's own cache (not a generic server-request handler reusable
// outside this package) that it lives here rather than in capabilities.
type resourceUpdates struct {
	client *Client
}

func (r *resourceUpdates) GetHandlers() map[string]func(*protocol.Message) (interface{}, error) {
	return map[string]func(*protocol.Message) (interface{}, error){
		"notifications/resources/updated": r.handle,
	}
}

func (r *resourceUpdates) SetCapabilities(*schema2025.ClientCapabilities) {}

func (r *resourceUpdates) handle(msg *protocol.Message) (interface{}, error) {
	msg.Processed = true
	if msg.Params == nil {
		return nil, nil
	}
	var params schema2025.ResourceUpdatedNotificationParams
	if err := json.Unmarshal(*msg.Params, &params); err != nil {
		return nil, nil
	}
	r.client.resourcesMu.Lock()
	delete(r.client.resourcesByURI, params.URI)
	sub := r.client.subscriptions[params.URI]
	r.client.resourcesMu.Unlock()
	if sub != nil {
		sub(params.URI)
	}
	return nil, nil
}
