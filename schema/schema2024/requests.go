// Package schema2024 holds the MCP wire types as they existed at protocol
// version 2024-11-05.
package schema2024

import "github.com/gate4ai/mcpclient/schema"

// RequestID aliases the version-independent id type.
type RequestID = schema.RequestID

// Cursor aliases the version-independent pagination cursor.
type Cursor = schema.Cursor

// PaginatedRequestParams aliases the version-independent pagination params.
type PaginatedRequestParams = schema.PaginatedRequestParams

// PaginatedResult aliases the version-independent pagination result.
type PaginatedResult = schema.PaginatedResult
