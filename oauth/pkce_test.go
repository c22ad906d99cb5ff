package oauth

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPKCEChallengeMatchesVerifier covers §8 property 8: given a verifier
// v, the challenge equals BASE64URL-NOPAD(SHA256(v)).
func TestPKCEChallengeMatchesVerifier(t *testing.T) {
	pkce, err := NewPKCEChallenge()
	require.NoError(t, err)

	sum := sha256.Sum256([]byte(pkce.Verifier))
	want := base64.RawURLEncoding.EncodeToString(sum[:])
	assert.Equal(t, want, pkce.Challenge)
	assert.Equal(t, "S256", pkce.Method)
}

func TestPKCEStateSurvivesConstantTimeCompare(t *testing.T) {
	pkce, err := NewPKCEChallenge()
	require.NoError(t, err)
	assert.True(t, constantTimeEqual(pkce.State, pkce.State))
	assert.False(t, constantTimeEqual(pkce.State, pkce.State+"x"))
}

func TestPKCEValuesAreDistinctAcrossCalls(t *testing.T) {
	a, err := NewPKCEChallenge()
	require.NoError(t, err)
	b, err := NewPKCEChallenge()
	require.NoError(t, err)
	assert.NotEqual(t, a.Verifier, b.Verifier)
	assert.NotEqual(t, a.State, b.State)
}
