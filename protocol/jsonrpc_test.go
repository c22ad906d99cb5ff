package protocol

import (
	"encoding/json"
	"testing"

	"github.com/gate4ai/mcpclient/schema"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// methodSignatures mirrors §6's authoritative method list paired with a
// representative params value for each, covering §8 property 1.
var methodSignatures = []struct {
	method string
	params interface{}
}{
	{"initialize", map[string]interface{}{"protocolVersion": "2025-06-18"}},
	{"ping", map[string]interface{}{}},
	{"tools/list", map[string]interface{}{}},
	{"tools/call", map[string]interface{}{"name": "add", "arguments": map[string]interface{}{"a": 1, "b": 2}}},
	{"resources/list", map[string]interface{}{}},
	{"resources/read", map[string]interface{}{"uri": "file:///a"}},
	{"resources/templates/list", map[string]interface{}{}},
	{"resources/subscribe", map[string]interface{}{"uri": "file:///a"}},
	{"resources/unsubscribe", map[string]interface{}{"uri": "file:///a"}},
	{"prompts/list", map[string]interface{}{}},
	{"prompts/get", map[string]interface{}{"name": "greeting"}},
	{"completion/complete", map[string]interface{}{"ref": map[string]interface{}{"type": "ref/prompt"}}},
	{"logging/setLevel", map[string]interface{}{"level": "info"}},
	{"tasks/list", map[string]interface{}{}},
	{"tasks/get", map[string]interface{}{"taskId": "t1"}},
	{"tasks/result", map[string]interface{}{"taskId": "t1"}},
	{"tasks/cancel", map[string]interface{}{"taskId": "t1"}},
}

// TestRequestEnvelopeRoundTrip covers §8 property 1: every request method's
// generated envelope carries jsonrpc="2.0", a fresh id, and params matching
// the method signature, and decodes back to an equivalent Envelope.
func TestRequestEnvelopeRoundTrip(t *testing.T) {
	for _, sig := range methodSignatures {
		sig := sig
		t.Run(sig.method, func(t *testing.T) {
			id := schema.RequestIDFromString(uuid.NewString())
			raw, err := json.Marshal(sig.params)
			require.NoError(t, err)
			rawMsg := json.RawMessage(raw)

			msg := &Message{ID: &id, Method: &sig.method, Params: &rawMsg}
			data, err := msg.MarshalJSON()
			require.NoError(t, err)

			var env Envelope
			require.NoError(t, json.Unmarshal(data, &env))
			assert.Equal(t, JSONRPCVersion, env.JSONRPC)
			require.NotNil(t, env.Method)
			assert.Equal(t, sig.method, *env.Method)
			require.NotNil(t, env.ID)
			assert.False(t, env.ID.IsEmpty())
			require.NotNil(t, env.Params)
			assert.JSONEq(t, string(raw), string(*env.Params))
		})
	}
}

// TestGeneratedIdsAreDistinct covers the second half of §8 property 1: ids
// across 10 consecutive generations are all distinct.
func TestGeneratedIdsAreDistinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		id := uuid.NewString()
		require.False(t, seen[id], "duplicate id generated: %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, 10)
}

func TestNotificationHasNoID(t *testing.T) {
	method := "notifications/initialized"
	msg := &Message{Method: &method}
	data, err := msg.MarshalJSON()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Nil(t, env.ID)
	assert.Equal(t, JSONRPCVersion, env.JSONRPC)
}

func TestErrorResponseShape(t *testing.T) {
	id := schema.RequestIDFromUInt64(7)
	msg := &Message{ID: &id, Error: &Error{Code: ErrorMethodNotFound, Message: "method not found"}}
	data, err := msg.MarshalJSON()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrorMethodNotFound, env.Error.Code)
	assert.Nil(t, env.Result)
}

func TestParseMessagesBatchAndSingle(t *testing.T) {
	single, err := ParseMessages(nil, []byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
	require.NoError(t, err)
	require.Len(t, single, 1)

	batch, err := ParseMessages(nil, []byte(`[{"jsonrpc":"2.0","id":1,"result":{}},{"jsonrpc":"2.0","id":2,"result":{}}]`))
	require.NoError(t, err)
	require.Len(t, batch, 2)

	_, err = ParseMessages(nil, []byte(`not json`))
	require.Error(t, err)
}
