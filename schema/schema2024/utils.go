package schema2024

// ProgressToken correlates notifications/progress back to the request that
// requested progress tracking; either a string or an integer.
type ProgressToken = interface{}

// ProgressNotificationParams contains the parameters of
// notifications/progress.
type ProgressNotificationParams struct {
	ProgressToken ProgressToken `json:"progressToken"`
	Progress      float64       `json:"progress"`
	Total         *float64      `json:"total,omitempty"`
	Message       *string       `json:"message,omitempty"`
}

// CancelledNotificationParams contains the parameters of
// notifications/cancelled.
type CancelledNotificationParams struct {
	RequestID RequestID `json:"requestId"`
	Reason    string    `json:"reason,omitempty"`
}

// LoggingLevel is an RFC 5424 syslog severity.
type LoggingLevel string

const (
	LoggingLevelEmergency LoggingLevel = "emergency"
	LoggingLevelAlert     LoggingLevel = "alert"
	LoggingLevelCritical  LoggingLevel = "critical"
	LoggingLevelError     LoggingLevel = "error"
	LoggingLevelWarning   LoggingLevel = "warning"
	LoggingLevelNotice    LoggingLevel = "notice"
	LoggingLevelInfo      LoggingLevel = "info"
	LoggingLevelDebug     LoggingLevel = "debug"
)

// LoggingMessageNotificationParams contains the parameters of
// notifications/message.
type LoggingMessageNotificationParams struct {
	Level  LoggingLevel `json:"level"`
	Logger string       `json:"logger,omitempty"`
	Data   interface{}  `json:"data"`
}

// SetLevelRequestParams contains the parameters of logging/setLevel.
type SetLevelRequestParams struct {
	Level LoggingLevel `json:"level"`
}

// CompleteArgument names the argument being completed and the value typed
// so far.
type CompleteArgument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CompletionInfo is the payload of a completion/complete response.
type CompletionInfo struct {
	Values  []string `json:"values"`
	Total   *int     `json:"total,omitempty"`
	HasMore *bool    `json:"hasMore,omitempty"`
}

// CompleteResult is the response to completion/complete.
type CompleteResult struct {
	Meta       map[string]interface{} `json:"_meta,omitempty"`
	Completion CompletionInfo          `json:"completion"`
}
