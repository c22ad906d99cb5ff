package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// GrantType selects which token flow Provider falls back to when no cached
// token satisfies a request and no refresh token is available.
type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantClientCredentials GrantType = "client_credentials"
)

// ProviderConfig configures a Provider for one MCP server.
type ProviderConfig struct {
	// ServerURL is the MCP server's origin; used both as the RFC 8707
	// resource indicator and as the legacy-mode fallback issuer.
	ServerURL string
	Storage   Storage
	// StaticClient, if set, skips RFC 7591 dynamic registration entirely
	// (a confidential client pre-registered out of band).
	StaticClient *ClientInfo
	ClientName   string
	RedirectURIs []string
	Scopes       []string
	// GrantType picks the fallback flow when no refresh token is cached.
	// GrantClientCredentials requires StaticClient to carry a secret.
	// GrantAuthorizationCode (the default) requires Interactive=true,
	// since it needs a redirect somewhere a human can complete.
	GrantType GrantType
	// Interactive enables the loopback authorization-code flow (§4.E's
	// "variant provider"): on a challenge with no usable refresh or
	// client-credentials path, Provider opens the system browser URL (the
	// caller is expected to have a BrowserOpener; if nil the URL is only
	// ever available via LastAuthorizationURL for the host to display) and
	// blocks on a loopback listener for the code.
	Interactive    bool
	BrowserOpener  func(url string)
	LoopbackPath   string // defaults to "/callback"
	LoopbackWait   time.Duration
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

// Provider is the concrete oauth engine for one MCP server: it implements
// transport.AuthProvider structurally (AuthHeader / HandleChallenge)
// without this package importing transport, keeping the dependency
// one-directional.
type Provider struct {
	cfg        ProviderConfig
	httpClient *http.Client
	logger     *zap.Logger
	discoverer *Discoverer
	issuer     string // normalized, filled in once metadata is discovered

	mu              sync.Mutex
	meta            ServerMetadata
	metaLoaded      bool
	lastResourceMeta string
	client          ClientInfo
	clientLoaded    bool
	token           Token
	tokenLoaded     bool
	lastAuthURL     string
}

// NewProvider builds a Provider for cfg.ServerURL. Storage defaults to an
// in-memory MemoryStorage if cfg.Storage is nil.
func NewProvider(cfg ProviderConfig) *Provider {
	if cfg.Storage == nil {
		cfg.Storage = NewMemoryStorage()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.LoopbackPath == "" {
		cfg.LoopbackPath = "/callback"
	}
	if cfg.LoopbackWait <= 0 {
		cfg.LoopbackWait = 2 * time.Minute
	}
	if cfg.GrantType == "" {
		cfg.GrantType = GrantAuthorizationCode
	}
	if cfg.ClientName == "" {
		cfg.ClientName = "mcpclient"
	}
	return &Provider{
		cfg:        cfg,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
		discoverer: NewDiscoverer(cfg.HTTPClient),
	}
}

// AuthHeader implements transport.AuthProvider.
func (p *Provider) AuthHeader(ctx context.Context) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.tokenLoaded {
		if tok, ok, err := p.cfg.Storage.LoadToken(ctx, p.storageKeyLocked()); err == nil && ok {
			p.token, p.tokenLoaded = tok, true
		}
	}
	if !p.tokenLoaded || p.token.Expired() || p.token.AccessToken == "" {
		return "", false
	}
	tokenType := p.token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return tokenType + " " + p.token.AccessToken, true
}

// storageKeyLocked returns the key tokens/client info are stored under:
// the discovered issuer once known, else the normalized server URL.
// Caller must hold p.mu.
func (p *Provider) storageKeyLocked() string {
	if p.issuer != "" {
		return p.issuer
	}
	key, err := NormalizeURL(p.cfg.ServerURL)
	if err != nil {
		return p.cfg.ServerURL
	}
	return key
}

// HandleChallenge implements transport.AuthProvider. It runs the recovery
// ladder of §4.E's "Challenge handling" paragraph: prefer refresh, then
// client-credentials if configured, then (only if Interactive) the
// loopback authorization-code flow; otherwise it returns
// AuthenticationRequiredError so the caller knows an interactive flow is
// needed elsewhere.
func (p *Provider) HandleChallenge(ctx context.Context, status int, wwwAuthenticate string) error {
	if status == http.StatusForbidden && !strings.Contains(wwwAuthenticate, "insufficient_scope") {
		return fmt.Errorf("oauth: 403 without insufficient_scope is not routed through re-authentication")
	}

	if err := p.ensureDiscovered(ctx, wwwAuthenticate); err != nil {
		return fmt.Errorf("oauth discovery: %w", err)
	}
	if err := p.ensureRegistered(ctx); err != nil {
		return fmt.Errorf("oauth registration: %w", err)
	}

	p.mu.Lock()
	refreshToken := p.token.RefreshToken
	p.mu.Unlock()

	flow := p.flowLocked()

	if refreshToken != "" {
		tok, err := flow.Refresh(ctx, refreshToken)
		if err == nil {
			p.storeToken(ctx, tok)
			return nil
		}
		p.logger.Warn("oauth refresh failed, falling back", zap.Error(err))
	}

	if p.cfg.GrantType == GrantClientCredentials {
		tok, err := flow.ClientCredentials(ctx, p.cfg.Scopes)
		if err != nil {
			return fmt.Errorf("client credentials grant: %w", err)
		}
		p.storeToken(ctx, tok)
		return nil
	}

	if !p.cfg.Interactive {
		p.mu.Lock()
		issuer := p.issuer
		p.mu.Unlock()
		return &AuthenticationRequiredError{Issuer: issuer, WWWAuthenticate: wwwAuthenticate}
	}

	return p.runInteractive(ctx, flow)
}

func (p *Provider) flowLocked() *Flow {
	p.mu.Lock()
	defer p.mu.Unlock()
	return NewFlow(p.meta, p.client, p.httpClient)
}

func (p *Provider) storeToken(ctx context.Context, tok Token) {
	p.mu.Lock()
	p.token, p.tokenLoaded = tok, true
	key := p.storageKeyLocked()
	p.mu.Unlock()
	if err := p.cfg.Storage.SaveToken(ctx, key, tok); err != nil {
		p.logger.Warn("oauth: failed to persist token", zap.Error(err))
	}
}

// ensureDiscovered resolves ServerMetadata, following §4.E's discovery
// order: protected-resource metadata (from the challenge's
// resource_metadata hint, or well-known paths) -> authorization-server
// metadata for each named issuer -> legacy origin-as-issuer -> synthesized
// defaults. A fresh resource_metadata hint that differs from the one the
// cached metadata was built from invalidates the cache (resolution of
// SPEC_FULL.md's Open Question 2).
func (p *Provider) ensureDiscovered(ctx context.Context, wwwAuthenticate string) error {
	hint := resourceMetadataURL(wwwAuthenticate)
	if hint != "" {
		if normalized, err := NormalizeURL(hint); err == nil {
			hint = normalized
		}
	}

	p.mu.Lock()
	stale := hint != "" && hint != p.lastResourceMeta
	needDiscovery := !p.metaLoaded || stale
	p.mu.Unlock()
	if !needDiscovery {
		return nil
	}

	resourceURL, err := url.Parse(p.cfg.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server url %q: %w", p.cfg.ServerURL, err)
	}

	meta, err := p.discover(ctx, wwwAuthenticate, resourceURL)
	if err != nil {
		return err
	}

	issuer, _ := NormalizeURL(meta.Issuer)
	if issuer == "" {
		issuer, _ = NormalizeURL(p.cfg.ServerURL)
	}

	p.mu.Lock()
	p.meta = meta
	p.metaLoaded = true
	p.lastResourceMeta = hint
	p.issuer = issuer
	p.mu.Unlock()
	return nil
}

// discover runs the full §4.E ladder via Discoverer.Discover, which never
// fails outright — the synthesized-defaults step is its own success case.
func (p *Provider) discover(ctx context.Context, wwwAuthenticate string, resourceURL *url.URL) (ServerMetadata, error) {
	return p.discoverer.WithLogger(p.logger).Discover(ctx, wwwAuthenticate, resourceURL), nil
}

// ensureRegistered performs RFC 7591 dynamic registration if no client
// info is cached (or configured statically). When the authorization server
// advertises no registration endpoint, Register's
// RegistrationNotSupportedError is returned.
func (p *Provider) ensureRegistered(ctx context.Context) error {
	p.mu.Lock()
	if p.cfg.StaticClient != nil {
		p.client, p.clientLoaded = *p.cfg.StaticClient, true
	}
	already := p.clientLoaded
	meta := p.meta
	key := p.storageKeyLocked()
	p.mu.Unlock()
	if already {
		return nil
	}

	if info, ok, err := p.cfg.Storage.LoadClient(ctx, key); err == nil && ok {
		p.mu.Lock()
		p.client, p.clientLoaded = info, true
		p.mu.Unlock()
		return nil
	}

	redirectURIs := p.cfg.RedirectURIs
	if len(redirectURIs) == 0 && p.cfg.Interactive {
		redirectURIs = []string{"http://127.0.0.1:0" + p.cfg.LoopbackPath}
	}
	info, err := Register(ctx, p.httpClient, meta, p.cfg.ClientName, redirectURIs)
	if err != nil {
		return err
	}
	if len(redirectURIs) > 0 && len(info.RedirectURIs) > 0 && info.RedirectURIs[0] != redirectURIs[0] {
		p.logger.Warn("oauth: authorization server substituted a different redirect_uri",
			zap.String("requested", redirectURIs[0]), zap.String("got", info.RedirectURIs[0]))
	}

	p.mu.Lock()
	p.client, p.clientLoaded = info, true
	p.mu.Unlock()
	_ = p.cfg.Storage.SaveClient(ctx, key, info)
	return nil
}

// runInteractive drives the loopback authorization-code flow end to end:
// open a local listener, build the authorization URL against its
// redirect_uri, hand the URL to BrowserOpener (or just log it), block for
// the callback, validate state, and exchange the code.
func (p *Provider) runInteractive(ctx context.Context, flow *Flow) error {
	receiver, err := NewLoopbackReceiver()
	if err != nil {
		return fmt.Errorf("start loopback receiver: %w", err)
	}

	pkce, err := NewPKCEChallenge()
	if err != nil {
		return fmt.Errorf("generate pkce: %w", err)
	}

	redirectURI := receiver.RedirectURI()
	authURL := flow.AuthorizationURL(redirectURI, p.cfg.Scopes, pkce)

	p.mu.Lock()
	p.lastAuthURL = authURL
	p.mu.Unlock()

	if p.cfg.BrowserOpener != nil {
		p.cfg.BrowserOpener(authURL)
	} else {
		p.logger.Info("oauth: open this URL to authorize", zap.String("url", authURL))
	}

	result, err := receiver.Wait(ctx, p.cfg.LoopbackWait)
	if err != nil {
		return fmt.Errorf("loopback authorization: %w", err)
	}
	if result.Error != "" {
		return fmt.Errorf("authorization denied: %s", result.Error)
	}
	if !constantTimeEqual(result.State, pkce.State) {
		return fmt.Errorf("oauth state mismatch: possible CSRF")
	}

	tok, err := flow.ExchangeCode(ctx, result.Code, redirectURI, pkce)
	if err != nil {
		if mismatch, suggested := redirectMismatch(err); mismatch {
			tok, err = flow.ExchangeCode(ctx, result.Code, suggested, pkce)
		}
		if err != nil {
			return fmt.Errorf("exchange code: %w", err)
		}
	}
	p.storeToken(ctx, tok)
	return nil
}

// LastAuthorizationURL returns the most recent interactive authorization
// URL built by runInteractive, for a host that wants to display it instead
// of relying on BrowserOpener.
func (p *Provider) LastAuthorizationURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastAuthURL
}

// redirectMismatch inspects an unauthorized_client error for the
// "you sent ... and we expected ..." redirect-mismatch shape some
// authorization servers return, extracting the server-suggested
// redirect_uri so the caller can retry exactly once.
func redirectMismatch(err error) (bool, string) {
	msg := err.Error()
	idx := strings.Index(msg, "we expected ")
	if !strings.Contains(msg, "unauthorized_client") || idx == -1 {
		return false, ""
	}
	rest := msg[idx+len("we expected "):]
	end := strings.IndexAny(rest, " \"'\n")
	if end == -1 {
		end = len(rest)
	}
	suggested := rest[:end]
	if suggested == "" {
		return false, ""
	}
	return true, suggested
}

// constantTimeEqual compares CSRF state values without leaking timing
// information proportional to the mismatched prefix length.
func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := 0; i < len(a); i++ {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}

