package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNormalizeURL covers §8 property 6: differently-cased scheme/host,
// an explicit default port, and a trailing slash all normalize to the same
// string.
func TestNormalizeURL(t *testing.T) {
	a, err := NormalizeURL("HTTP://Host:80/Path/")
	require.NoError(t, err)
	b, err := NormalizeURL("http://host/Path")
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestNormalizeURLStripsFragment(t *testing.T) {
	got, err := NormalizeURL("https://host/path#frag")
	require.NoError(t, err)
	assert.NotContains(t, got, "#")
}

func TestNormalizeURLKeepsNonDefaultPort(t *testing.T) {
	got, err := NormalizeURL("https://host:8443/path")
	require.NoError(t, err)
	assert.Contains(t, got, ":8443")
}

func TestNormalizeURLRootPathUnaffectedByTrailingSlashRule(t *testing.T) {
	got, err := NormalizeURL("https://host/")
	require.NoError(t, err)
	assert.Equal(t, "https://host/", got)
}
