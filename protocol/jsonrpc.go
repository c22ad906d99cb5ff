// Package protocol implements the wire-level JSON-RPC 2.0 envelope and SSE
// framing shared by every MCP transport. It has no knowledge of sessions,
// transports, or the MCP method vocabulary itself — those live one layer up.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/gate4ai/mcpclient/schema"
)

const JSONRPCVersion = "2.0"

// Standard JSON-RPC 2.0 error codes, plus the MCP-reserved server-error
// range and two gate4ai/mcpclient-specific extensions, for auth failures
// and cancelled requests.
const (
	ErrorParseError     = -32700
	ErrorInvalidRequest = -32600
	ErrorMethodNotFound = -32601
	ErrorInvalidParams  = -32602
	ErrorInternal       = -32603

	// -32000 to -32099 are reserved for implementation-defined server errors.
	ErrorServerError  = -32000
	ErrorUnauthorized = -32001
	ErrorCancelled    = -32002
)

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// NewError wraps a plain Go error as an internal-error JSON-RPC error.
func NewError(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: ErrorInternal, Message: err.Error()}
}

// ErrorResponse is the wire shape of a failed JSON-RPC call.
type ErrorResponse struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      *schema.RequestID `json:"id,omitempty"`
	Error   *Error            `json:"error"`
}

// Response is the wire shape of a successful JSON-RPC call.
type Response struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      *schema.RequestID `json:"id"`
	Result  *json.RawMessage  `json:"result"`
}

// Envelope is the union shape used when decoding an incoming message before
// its kind (request / response / notification / error) is known.
type Envelope struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      *schema.RequestID `json:"id,omitempty"`
	Method  *string           `json:"method,omitempty"`
	Params  *json.RawMessage  `json:"params,omitempty"`
	Result  *json.RawMessage  `json:"result,omitempty"`
	Error   *Error            `json:"error,omitempty"`
}

// Notification is the wire shape of an outbound notification (no id).
type Notification struct {
	JSONRPC string           `json:"jsonrpc"`
	Method  string           `json:"method"`
	Params  *json.RawMessage `json:"params,omitempty"`
}

// Request is the wire shape of an outbound request.
type Request struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      schema.RequestID `json:"id"`
	Method  string           `json:"method"`
	Params  *json.RawMessage `json:"params,omitempty"`
}
