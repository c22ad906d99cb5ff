package registry

import (
	"testing"

	"github.com/gate4ai/mcpclient/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddGetRemove(t *testing.T) {
	r := New()
	c := client.New(client.Config{})

	r.Add("primary", c)
	got, ok := r.Get("primary")
	require.True(t, ok)
	assert.Same(t, c, got)

	removed, err := r.Remove("primary")
	require.NoError(t, err)
	assert.True(t, removed)

	_, ok = r.Get("primary")
	assert.False(t, ok)
}

func TestRemoveUnknownNameReportsFalse(t *testing.T) {
	r := New()
	removed, err := r.Remove("missing")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestNamesListsEveryRegisteredClient(t *testing.T) {
	r := New()
	r.Add("a", client.New(client.Config{}))
	r.Add("b", client.New(client.Config{}))
	assert.ElementsMatch(t, []string{"a", "b"}, r.Names())
}

func TestCloseAllEmptiesRegistry(t *testing.T) {
	r := New()
	r.Add("a", client.New(client.Config{}))
	r.Add("b", client.New(client.Config{}))

	require.NoError(t, r.CloseAll())
	assert.Empty(t, r.Names())
}
