package oauth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonHandler(t *testing.T, v interface{}) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(v))
	}
}

func TestDiscoverViaResourceMetadataHint(t *testing.T) {
	var authServerURL string
	authServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/oauth-authorization-server" {
			http.NotFound(w, r)
			return
		}
		jsonHandler(t, rawAuthServerMetadata{
			Issuer:                authServerURL,
			AuthorizationEndpoint: authServerURL + "/authorize",
			TokenEndpoint:         authServerURL + "/token",
		})(w, r)
	}))
	defer authServer.Close()
	authServerURL = authServer.URL

	resourceServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer resourceServer.Close()

	var hintURL string
	protectedResourceServer := httptest.NewServer(jsonHandler(t, rawProtectedResourceMetadata{
		Resource:             resourceServer.URL,
		AuthorizationServers: []string{authServer.URL},
	}))
	defer protectedResourceServer.Close()
	hintURL = protectedResourceServer.URL

	d := NewDiscoverer(http.DefaultClient)
	resourceURL, err := url.Parse(resourceServer.URL)
	require.NoError(t, err)

	meta := d.Discover(t.Context(), `Bearer resource_metadata="`+hintURL+`"`, resourceURL)
	assert.Equal(t, authServer.URL, meta.Issuer)
	assert.Equal(t, authServer.URL+"/token", meta.TokenEndpoint)
	assert.Equal(t, resourceServer.URL, meta.Resource)
}

func TestDiscoverFallsBackToWellKnownWhenNoHint(t *testing.T) {
	var authServerURL string
	authServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonHandler(t, rawAuthServerMetadata{Issuer: authServerURL, TokenEndpoint: authServerURL + "/token"})(w, r)
	}))
	defer authServer.Close()
	authServerURL = authServer.URL

	var resourceServerURL string
	resourceServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/oauth-protected-resource" {
			http.NotFound(w, r)
			return
		}
		jsonHandler(t, rawProtectedResourceMetadata{
			Resource:             resourceServerURL,
			AuthorizationServers: []string{authServer.URL},
		})(w, r)
	}))
	defer resourceServer.Close()
	resourceServerURL = resourceServer.URL

	d := NewDiscoverer(http.DefaultClient)
	resourceURL, err := url.Parse(resourceServer.URL)
	require.NoError(t, err)

	meta := d.Discover(t.Context(), "", resourceURL)
	assert.Equal(t, authServer.URL+"/token", meta.TokenEndpoint)
}

func TestDiscoverFallsBackToLegacyOriginAsIssuer(t *testing.T) {
	var serverURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.well-known/oauth-authorization-server":
			jsonHandler(t, rawAuthServerMetadata{Issuer: serverURL, TokenEndpoint: serverURL + "/token"})(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()
	serverURL = server.URL

	d := NewDiscoverer(http.DefaultClient)
	resourceURL, err := url.Parse(server.URL)
	require.NoError(t, err)

	meta := d.Discover(t.Context(), "", resourceURL)
	assert.Equal(t, server.URL+"/token", meta.TokenEndpoint)
	assert.Equal(t, server.URL, meta.Resource)
}

func TestDiscoverSynthesizesDefaultsWhenNothingResponds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	d := NewDiscoverer(http.DefaultClient)
	resourceURL, err := url.Parse(server.URL)
	require.NoError(t, err)

	meta := d.Discover(t.Context(), "", resourceURL)
	assert.Equal(t, server.URL+"/authorize", meta.AuthorizationEndpoint)
	assert.Equal(t, server.URL+"/token", meta.TokenEndpoint)
	assert.Equal(t, server.URL+"/register", meta.RegistrationEndpoint)
}

func TestDiscoverRejectsResourceMismatch(t *testing.T) {
	protectedResourceServer := httptest.NewServer(jsonHandler(t, rawProtectedResourceMetadata{
		Resource:             "https://someone-else.example.com",
		AuthorizationServers: []string{"https://auth.example.com"},
	}))
	defer protectedResourceServer.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	d := NewDiscoverer(http.DefaultClient)
	resourceURL, err := url.Parse(server.URL)
	require.NoError(t, err)

	// resource_metadata hint names a different resource than resourceURL;
	// discovery must reject it and fall through to synthesized defaults
	// rather than trust a document describing a different resource.
	meta := d.Discover(t.Context(), `Bearer resource_metadata="`+protectedResourceServer.URL+`"`, resourceURL)
	assert.Equal(t, server.URL+"/authorize", meta.AuthorizationEndpoint)
}

func TestWellKnownURLPathBased(t *testing.T) {
	u, _ := url.Parse("https://issuer.example.com/tenant1")
	assert.Equal(t, "https://issuer.example.com/.well-known/oauth-authorization-server/tenant1", wellKnownURL(u, "oauth-authorization-server", true))
	assert.Equal(t, "https://issuer.example.com/.well-known/oauth-authorization-server", wellKnownURL(u, "oauth-authorization-server", false))
}
