package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitChallengesBasic(t *testing.T) {
	cs := splitChallenges(`Basic`)
	require.Len(t, cs, 1)
	assert.Equal(t, "Basic", cs[0].Scheme)
	assert.Empty(t, cs[0].Params)
}

func TestSplitChallengesWithParams(t *testing.T) {
	cs := splitChallenges(`Bearer realm="example.com", error="invalid_token"`)
	require.Len(t, cs, 1)
	assert.Equal(t, "Bearer", cs[0].Scheme)
	assert.Equal(t, "example.com", cs[0].Params["realm"])
	assert.Equal(t, "invalid_token", cs[0].Params["error"])
}

func TestSplitChallengesCommaInsideQuotes(t *testing.T) {
	cs := splitChallenges(`Bearer realm="a, b", error="invalid_token"`)
	require.Len(t, cs, 1)
	assert.Equal(t, "a, b", cs[0].Params["realm"])
}

func TestSplitChallengesMultiple(t *testing.T) {
	cs := splitChallenges(`Basic realm="a", Bearer realm="b", error="invalid_token"`)
	require.Len(t, cs, 2)
	assert.Equal(t, "Basic", cs[0].Scheme)
	assert.Equal(t, "a", cs[0].Params["realm"])
	assert.Equal(t, "Bearer", cs[1].Scheme)
	assert.Equal(t, "b", cs[1].Params["realm"])
}

func TestSplitChallengesEscapedQuote(t *testing.T) {
	cs := splitChallenges(`Bearer realm="say \"hi\""`)
	require.Len(t, cs, 1)
	assert.Equal(t, `say "hi"`, cs[0].Params["realm"])
}

func TestSplitChallengesEmpty(t *testing.T) {
	cs := splitChallenges("")
	assert.Empty(t, cs)
}

func TestResourceMetadataURL(t *testing.T) {
	header := `Bearer error="invalid_token", resource_metadata="https://res.example.com/.well-known/oauth-protected-resource"`
	assert.Equal(t, "https://res.example.com/.well-known/oauth-protected-resource", resourceMetadataURL(header))
}

func TestResourceMetadataURLAbsent(t *testing.T) {
	assert.Equal(t, "", resourceMetadataURL(`Bearer realm="example.com"`))
}
