package hosttool

import (
	"testing"

	"github.com/gate4ai/mcpclient/schema/schema2025"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromToolCarriesSchemaAsJSON(t *testing.T) {
	readOnly := true
	tool := schema2025.Tool{
		Name:        "search",
		Description: "search the index",
		InputSchema: &schema2025.JSONSchemaProperty{"type": "object"},
		Annotations: &schema2025.ToolAnnotations{Title: "Search", ReadOnlyHint: &readOnly},
	}

	d, err := FromTool(tool)
	require.NoError(t, err)
	assert.Equal(t, "search", d.Name)
	assert.Equal(t, "search the index", d.Description)
	assert.JSONEq(t, `{"type":"object"}`, string(d.InputSchemaJSON))
	require.NotNil(t, d.Annotations)
	assert.True(t, *d.Annotations.ReadOnlyHint)
}

func TestFromToolWithNoSchemaLeavesJSONNil(t *testing.T) {
	d, err := FromTool(schema2025.Tool{Name: "ping"})
	require.NoError(t, err)
	assert.Nil(t, d.InputSchemaJSON)
}

func TestFromToolsConvertsEveryEntry(t *testing.T) {
	tools := []schema2025.Tool{{Name: "a"}, {Name: "b"}}
	ds, err := FromTools(tools)
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, "a", ds[0].Name)
	assert.Equal(t, "b", ds[1].Name)
}
