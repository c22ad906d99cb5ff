package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// rawAuthServerMetadata mirrors the RFC 8414 / OpenID-configuration document
// shape; the two are field-compatible for everything this client reads.
type rawAuthServerMetadata struct {
	Issuer                        string   `json:"issuer"`
	AuthorizationEndpoint         string   `json:"authorization_endpoint"`
	TokenEndpoint                 string   `json:"token_endpoint"`
	RegistrationEndpoint          string   `json:"registration_endpoint"`
	RevocationEndpoint            string   `json:"revocation_endpoint"`
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported"`
	ScopesSupported               []string `json:"scopes_supported"`
}

// rawProtectedResourceMetadata mirrors the RFC 9728 document shape.
type rawProtectedResourceMetadata struct {
	Resource             string   `json:"resource"`
	AuthorizationServers []string `json:"authorization_servers"`
}

// Discoverer resolves a protected resource's authorization server(s) and
// that server's metadata, following the RFC 9728 -> RFC 8414 chain a 401
// response with a resource_metadata challenge kicks off (§4.E, property 7).
type Discoverer struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewDiscoverer builds a Discoverer using client, or http.DefaultClient if
// client is nil.
func NewDiscoverer(client *http.Client) *Discoverer {
	return &Discoverer{httpClient: client, logger: zap.NewNop()}
}

// WithLogger attaches logger for warnings discovery wants to surface (issuer
// mismatches, legacy fallback). Returns d for chaining.
func (d *Discoverer) WithLogger(logger *zap.Logger) *Discoverer {
	if logger != nil {
		d.logger = logger
	}
	return d
}

func (d *Discoverer) client() *http.Client {
	if d.httpClient != nil {
		return d.httpClient
	}
	return http.DefaultClient
}

// Discover runs the full §4.E ladder, stopping at the first success:
//
//  1. protected-resource metadata at the 401 challenge's resource_metadata
//     hint, else path-based `.well-known/oauth-protected-resource/<path>`,
//     else root `.well-known/oauth-protected-resource` on resourceURL's
//     origin. The returned "resource" must match resourceURL (origin, or a
//     path-prefix match with no userinfo/query/fragment); a mismatch is
//     rejected and discovery falls through as if the fetch had failed.
//  2. for each of that document's authorization_servers, path-based then
//     root `.well-known/oauth-authorization-server`, then path-based then
//     root `.well-known/openid-configuration`. The returned "issuer" must
//     match the authorization server entry (normalization-equivalent).
//  3. legacy mode: resourceURL's own origin doubles as both resource and
//     issuer; an issuer mismatch is accepted here with a warning, since
//     there is no separate authorization_servers entry to validate against.
//  4. synthesized defaults: /authorize, /token, /register relative to
//     resourceURL's origin.
func (d *Discoverer) Discover(ctx context.Context, wwwAuthenticate string, resourceURL *url.URL) ServerMetadata {
	if meta, ok := d.discoverViaProtectedResource(ctx, wwwAuthenticate, resourceURL); ok {
		return meta
	}
	if meta, ok := d.discoverLegacy(ctx, resourceURL); ok {
		return meta
	}
	return d.synthesizeDefaults(resourceURL)
}

func (d *Discoverer) discoverViaProtectedResource(ctx context.Context, wwwAuthenticate string, resourceURL *url.URL) (ServerMetadata, bool) {
	candidates := protectedResourceCandidates(wwwAuthenticate, resourceURL)

	var raw rawProtectedResourceMetadata
	var fetchedFrom string
	for _, candidate := range candidates {
		if err := d.getJSON(ctx, candidate, &raw); err == nil {
			fetchedFrom = candidate
			break
		}
	}
	if fetchedFrom == "" {
		return ServerMetadata{}, false
	}

	if !resourceMatches(raw.Resource, resourceURL) {
		d.logger.Warn("oauth: protected-resource metadata names a resource that doesn't match the server URL",
			zap.String("document", fetchedFrom), zap.String("got", raw.Resource), zap.String("want", resourceURL.String()))
		return ServerMetadata{}, false
	}
	if len(raw.AuthorizationServers) == 0 {
		d.logger.Warn("oauth: protected-resource metadata names no authorization servers", zap.String("document", fetchedFrom))
		return ServerMetadata{}, false
	}

	for _, issuerStr := range raw.AuthorizationServers {
		issuerURL, err := url.Parse(issuerStr)
		if err != nil {
			continue
		}
		if meta, ok := d.discoverAuthServerValidated(ctx, issuerURL); ok {
			meta.Resource = raw.Resource
			return meta, true
		}
	}
	return ServerMetadata{}, false
}

// discoverAuthServerValidated fetches authorization-server metadata for
// issuerURL and requires the returned "issuer" to match, normalization-
// equivalent, the server named by the protected-resource document.
func (d *Discoverer) discoverAuthServerValidated(ctx context.Context, issuerURL *url.URL) (ServerMetadata, bool) {
	meta, err := d.DiscoverAuthServer(ctx, issuerURL)
	if err != nil {
		return ServerMetadata{}, false
	}
	wantIssuer, _ := NormalizeURL(issuerURL.String())
	gotIssuer, _ := NormalizeURL(meta.Issuer)
	if wantIssuer != "" && gotIssuer != "" && wantIssuer != gotIssuer {
		d.logger.Warn("oauth: authorization server metadata issuer mismatch",
			zap.String("expected", issuerURL.String()), zap.String("got", meta.Issuer))
		return ServerMetadata{}, false
	}
	return meta, true
}

// discoverLegacy treats resourceURL's own origin as both resource and
// issuer, accepting whatever issuer the document names without validation
// (§4.E step 3: "issuer mismatch is accepted with a warning").
func (d *Discoverer) discoverLegacy(ctx context.Context, resourceURL *url.URL) (ServerMetadata, bool) {
	meta, err := d.DiscoverAuthServer(ctx, resourceURL)
	if err != nil {
		return ServerMetadata{}, false
	}
	meta.Resource = resourceURL.String()
	d.logger.Warn("oauth: falling back to legacy origin-as-issuer discovery", zap.String("origin", resourceURL.String()))
	return meta, true
}

func (d *Discoverer) synthesizeDefaults(resourceURL *url.URL) ServerMetadata {
	base := *resourceURL
	base.RawQuery, base.Fragment = "", ""
	d.logger.Warn("oauth: no discovery endpoint responded, synthesizing default endpoints", zap.String("origin", base.String()))
	return ServerMetadata{
		Issuer:                        base.String(),
		AuthorizationEndpoint:         joinPath(base, "/authorize"),
		TokenEndpoint:                 joinPath(base, "/token"),
		RegistrationEndpoint:          joinPath(base, "/register"),
		CodeChallengeMethodsSupported: []string{"S256"},
		Resource:                      resourceURL.String(),
	}
}

// protectedResourceCandidates returns, in the order Discover tries them: the
// 401 challenge's resource_metadata hint (if any), the path-based
// well-known URI, and the root well-known URI.
func protectedResourceCandidates(wwwAuthenticate string, resourceURL *url.URL) []string {
	var out []string
	if hint := resourceMetadataURL(wwwAuthenticate); hint != "" {
		out = append(out, hint)
	}
	out = append(out, wellKnownURL(resourceURL, "oauth-protected-resource", true))
	out = append(out, wellKnownURL(resourceURL, "oauth-protected-resource", false))
	return out
}

// DiscoverAuthServer fetches RFC 8414 authorization server metadata (or its
// OpenID-configuration equivalent) for issuer, trying, in order: path-based
// oauth-authorization-server, root oauth-authorization-server, path-based
// openid-configuration, root openid-configuration.
func (d *Discoverer) DiscoverAuthServer(ctx context.Context, issuer *url.URL) (ServerMetadata, error) {
	candidates := []string{
		wellKnownURL(issuer, "oauth-authorization-server", true),
		wellKnownURL(issuer, "oauth-authorization-server", false),
		wellKnownURL(issuer, "openid-configuration", true),
		wellKnownURL(issuer, "openid-configuration", false),
	}

	var lastErr error
	var raw rawAuthServerMetadata
	for _, candidate := range candidates {
		if err := d.getJSON(ctx, candidate, &raw); err != nil {
			lastErr = err
			continue
		}
		return ServerMetadata{
			Issuer:                        raw.Issuer,
			AuthorizationEndpoint:         raw.AuthorizationEndpoint,
			TokenEndpoint:                 raw.TokenEndpoint,
			RegistrationEndpoint:          raw.RegistrationEndpoint,
			RevocationEndpoint:            raw.RevocationEndpoint,
			CodeChallengeMethodsSupported: raw.CodeChallengeMethodsSupported,
			ScopesSupported:               raw.ScopesSupported,
		}, nil
	}
	return ServerMetadata{}, fmt.Errorf("discover authorization server metadata for %s: %w", issuer, lastErr)
}

// wellKnownURL builds a RFC 8414 §3.1 well-known URI for suffix against
// base. pathBased inserts base's own path after the well-known segment
// (`/.well-known/<suffix>/<path>`); the non-path-based form drops base's
// path entirely and probes the bare origin.
func wellKnownURL(base *url.URL, suffix string, pathBased bool) string {
	u := *base
	path := strings.TrimSuffix(u.Path, "/")
	u.RawQuery, u.Fragment = "", ""
	if pathBased && path != "" {
		u.Path = "/.well-known/" + suffix + path
	} else {
		u.Path = "/.well-known/" + suffix
	}
	return u.String()
}

// resourceMatches reports whether got (a protected-resource document's
// "resource" field) identifies resourceURL: either an exact match, or a
// path-prefix match sharing resourceURL's scheme+host with no userinfo,
// query, or fragment of its own.
func resourceMatches(got string, resourceURL *url.URL) bool {
	if got == "" {
		return false
	}
	gotURL, err := url.Parse(got)
	if err != nil {
		return false
	}
	if gotURL.User != nil || gotURL.RawQuery != "" || gotURL.Fragment != "" {
		return false
	}
	if !strings.EqualFold(gotURL.Scheme, resourceURL.Scheme) || !strings.EqualFold(gotURL.Hostname(), resourceURL.Hostname()) {
		return false
	}
	return strings.HasPrefix(resourceURL.Path, strings.TrimSuffix(gotURL.Path, "/"))
}

func joinPath(base url.URL, p string) string {
	u := base
	u.Path = strings.TrimSuffix(u.Path, "/") + p
	return u.String()
}

func (d *Discoverer) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s returned status %d", u, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
