package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gate4ai/mcpclient/schema"
)

// Message is the in-process representation of one JSON-RPC message, request
// or response or notification or error, after it's been lifted off the
// wire. Session is left untyped (interface{}) here so this package stays
// free of any dependency on the session layer; callers that need it back
// type-assert to their own session interface.
type Message struct {
	ID        *schema.RequestID `json:"id,omitempty"`
	Timestamp time.Time         `json:"-"`
	Method    *string           `json:"method,omitempty"`
	Params    *json.RawMessage  `json:"params,omitempty"`
	Result    *json.RawMessage  `json:"result,omitempty"`
	Error     *Error            `json:"error,omitempty"`

	Processed bool        `json:"-"`
	Session   interface{} `json:"-"`
}

// ParseMessages decodes data as either a JSON-RPC batch (array) or a single
// message, attaching session to every decoded Message.
func ParseMessages(session interface{}, data []byte) ([]*Message, error) {
	var batch []*Message
	if err := json.Unmarshal(data, &batch); err == nil {
		for _, msg := range batch {
			if msg != nil {
				msg.Session = session
			}
		}
		return batch, nil
	}

	var single Message
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("invalid JSON-RPC message (neither batch nor single): %w", err)
	}
	single.Session = session
	return []*Message{&single}, nil
}

// MarshalJSON picks the error / result / request-or-notification wire shape
// based on which fields are populated.
func (m *Message) MarshalJSON() ([]byte, error) {
	if m.Error != nil {
		return json.Marshal(ErrorResponse{JSONRPC: JSONRPCVersion, ID: m.ID, Error: m.Error})
	}
	if m.Result != nil {
		return json.Marshal(Response{JSONRPC: JSONRPCVersion, ID: m.ID, Result: m.Result})
	}
	return json.Marshal(Envelope{
		JSONRPC: JSONRPCVersion,
		ID:      m.ID,
		Method:  m.Method,
		Params:  m.Params,
	})
}
