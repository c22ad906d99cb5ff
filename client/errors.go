package client

import (
	"fmt"

	"github.com/gate4ai/mcpclient/oauth"
	"github.com/gate4ai/mcpclient/transport"
)

// TransportError wraps a failure originating below the protocol layer —
// a dropped connection, a malformed frame, a process that exited.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError reports a request that was abandoned by RequestManager's
// automatic timeout transition before a response arrived.
type TimeoutError struct {
	Method string
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("request timed out: %s", e.Method) }

// SessionExpiredError re-exports the streamable transport's session-expiry
// error so callers never need to import the transport package directly.
type SessionExpiredError = transport.SessionExpiredError

// AuthenticationRequiredError re-exports the oauth package's error, raised
// when a 401 can't be recovered from automatically (no refresh token, no
// client-credentials grant configured, and no interactive flow enabled).
type AuthenticationRequiredError = oauth.AuthenticationRequiredError

// PromptError reports a failure specific to the prompts family.
type PromptError struct {
	Name string
	Err  error
}

func (e *PromptError) Error() string { return fmt.Sprintf("prompt %q: %v", e.Name, e.Err) }
func (e *PromptError) Unwrap() error { return e.Err }

// ResourceError reports a failure reading or subscribing to a resource.
type ResourceError struct {
	URI string
	Err error
}

func (e *ResourceError) Error() string { return fmt.Sprintf("resource %q: %v", e.URI, e.Err) }
func (e *ResourceError) Unwrap() error { return e.Err }

// ResourceNotFound reports a resource or resource template not present in
// this client's cached catalog.
type ResourceNotFound struct {
	URI string
}

func (e *ResourceNotFound) Error() string { return fmt.Sprintf("resource not found: %s", e.URI) }

// ToolNotFound reports a tool name not present in this client's cached
// catalog.
type ToolNotFound struct {
	Name string
}

func (e *ToolNotFound) Error() string { return fmt.Sprintf("tool not found: %s", e.Name) }

// TemplateError reports a failure expanding a ResourceTemplate's URI
// template against a set of arguments.
type TemplateError struct {
	Template string
	Err      error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("resource template %q: %v", e.Template, e.Err)
}
func (e *TemplateError) Unwrap() error { return e.Err }

// CompletionError reports a failure of completion/complete.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string { return fmt.Sprintf("completion: %v", e.Err) }
func (e *CompletionError) Unwrap() error { return e.Err }

// RequestCancelled describes a request that was cancelled by the caller.
// A denied or timed-out deferred approval is not reported with this type:
// CallTool returns it as an execution-error CallToolResult.
type RequestCancelled struct {
	Method string
	Reason string
}

func (e *RequestCancelled) Error() string {
	return fmt.Sprintf("request cancelled: %s (%s)", e.Method, e.Reason)
}

// ConfigurationError reports a Config this package cannot act on: an
// unsupported transport kind, a server that answered initialize with a
// protocol version this client doesn't understand, a missing required
// field.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "configuration error: " + e.Reason }

// UnknownRequest reports a server-initiated request for a method this
// client has no handler for; the dispatcher itself already answers these
// with a JSON-RPC -32601, this type is for callers who want to distinguish
// that case from a transport failure while inspecting error chains.
type UnknownRequest struct {
	Method string
}

func (e *UnknownRequest) Error() string { return fmt.Sprintf("unknown request method: %s", e.Method) }
