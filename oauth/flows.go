package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Flow drives the OAuth 2.1 token lifecycle for one authorization server:
// building the authorization URL, exchanging a returned code, refreshing,
// and (for server-to-server clients) the client-credentials grant. It is a
// thin adapter over golang.org/x/oauth2's Config so token handling — expiry
// math, refresh retries — reuses that library rather than reimplementing
// it.
type Flow struct {
	meta       ServerMetadata
	client     ClientInfo
	httpClient *http.Client
}

// NewFlow builds a Flow for the given server metadata and registered (or
// statically configured) client.
func NewFlow(meta ServerMetadata, client ClientInfo, httpClient *http.Client) *Flow {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Flow{meta: meta, client: client, httpClient: httpClient}
}

func (f *Flow) oauth2Config(redirectURI string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     f.client.ClientID,
		ClientSecret: f.client.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  f.meta.AuthorizationEndpoint,
			TokenURL: f.meta.TokenEndpoint,
		},
	}
}

func (f *Flow) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
}

// AuthorizationURL builds the browser-facing authorization request URL
// with PKCE and, when the metadata names a resource (meta.Resource is
// non-empty), an RFC 8707 resource indicator naming the resource this
// token is for.
func (f *Flow) AuthorizationURL(redirectURI string, scopes []string, pkce *PKCEChallenge) string {
	cfg := f.oauth2Config(redirectURI, scopes)
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", pkce.Challenge),
		oauth2.SetAuthURLParam("code_challenge_method", pkce.Method),
	}
	if f.meta.Resource != "" {
		opts = append(opts, oauth2.SetAuthURLParam("resource", f.meta.Resource))
	}
	return cfg.AuthCodeURL(pkce.State, opts...)
}

// ExchangeCode trades an authorization code (plus its PKCE verifier) for a
// token.
func (f *Flow) ExchangeCode(ctx context.Context, code, redirectURI string, pkce *PKCEChallenge) (Token, error) {
	cfg := f.oauth2Config(redirectURI, nil)
	var opts []oauth2.AuthCodeOption
	opts = append(opts, oauth2.SetAuthURLParam("code_verifier", pkce.Verifier))
	if f.meta.Resource != "" {
		opts = append(opts, oauth2.SetAuthURLParam("resource", f.meta.Resource))
	}
	tok, err := cfg.Exchange(f.withHTTPClient(ctx), code, opts...)
	if err != nil {
		return Token{}, fmt.Errorf("exchange authorization code: %w", err)
	}
	return fromOAuth2Token(tok), nil
}

// Refresh exchanges a refresh token for a fresh access token.
func (f *Flow) Refresh(ctx context.Context, refreshToken string) (Token, error) {
	cfg := f.oauth2Config("", nil)
	src := cfg.TokenSource(f.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return Token{}, fmt.Errorf("refresh token: %w", err)
	}
	return fromOAuth2Token(tok), nil
}

// ClientCredentials performs the client_credentials grant for
// machine-to-machine clients that were issued a confidential client secret
// out of band (no user-facing redirect involved).
func (f *Flow) ClientCredentials(ctx context.Context, scopes []string) (Token, error) {
	cfg := &clientcredentials.Config{
		ClientID:     f.client.ClientID,
		ClientSecret: f.client.ClientSecret,
		TokenURL:     f.meta.TokenEndpoint,
		Scopes:       scopes,
	}
	if f.meta.Resource != "" {
		cfg.EndpointParams = url.Values{"resource": {f.meta.Resource}}
	}
	tok, err := cfg.Token(f.withHTTPClient(ctx))
	if err != nil {
		return Token{}, fmt.Errorf("client credentials grant: %w", err)
	}
	return fromOAuth2Token(tok), nil
}

func fromOAuth2Token(tok *oauth2.Token) Token {
	return Token{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
}
