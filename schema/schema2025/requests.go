// Package schema2025 holds the MCP wire types introduced or changed across
// the 2025-03-26 and 2025-06-18 protocol revisions. Types that did not
// change are aliased straight back to schema2024, mirroring the split the
// protocol's own spec packages use.
package schema2025

import (
	"github.com/gate4ai/mcpclient/schema"
	"github.com/gate4ai/mcpclient/schema/schema2024"
)

type RequestID = schema.RequestID
type Cursor = schema.Cursor
type PaginatedRequestParams = schema.PaginatedRequestParams
type PaginatedResult = schema.PaginatedResult

type Role = schema2024.Role

const (
	RoleUser      = schema2024.RoleUser
	RoleAssistant = schema2024.RoleAssistant
)

type Annotations = schema2024.Annotations
type Implementation = schema2024.Implementation
type ModelHint = schema2024.ModelHint
type ModelPreferences = schema2024.ModelPreferences
type JSONSchemaProperty = schema2024.JSONSchemaProperty
type Arguments = schema2024.Arguments
type Meta = schema2024.Meta
type ResourceContent = schema2024.ResourceContent
type Content = schema2024.Content
type Resource = schema2024.Resource
type ResourceReference = schema2024.ResourceReference
type ResourceTemplate = schema2024.ResourceTemplate
type ResourceTemplateArgument = schema2024.ResourceTemplateArgument
type PromptArgument = schema2024.PromptArgument
type PromptMessage = schema2024.PromptMessage
type PromptReference = schema2024.PromptReference
type ProgressToken = schema2024.ProgressToken
type ProgressNotificationParams = schema2024.ProgressNotificationParams
type CancelledNotificationParams = schema2024.CancelledNotificationParams
type LoggingLevel = schema2024.LoggingLevel
type LoggingMessageNotificationParams = schema2024.LoggingMessageNotificationParams
type SetLevelRequestParams = schema2024.SetLevelRequestParams
type Root = schema2024.Root
type CompleteArgument = schema2024.CompleteArgument
type CompletionInfo = schema2024.CompletionInfo

const (
	LoggingLevelEmergency = schema2024.LoggingLevelEmergency
	LoggingLevelAlert     = schema2024.LoggingLevelAlert
	LoggingLevelCritical  = schema2024.LoggingLevelCritical
	LoggingLevelError     = schema2024.LoggingLevelError
	LoggingLevelWarning   = schema2024.LoggingLevelWarning
	LoggingLevelNotice    = schema2024.LoggingLevelNotice
	LoggingLevelInfo      = schema2024.LoggingLevelInfo
	LoggingLevelDebug     = schema2024.LoggingLevelDebug
)

var (
	NewTextContent  = schema2024.NewTextContent
	NewImageContent = schema2024.NewImageContent
	NewAudioContent = schema2024.NewAudioContent
)
