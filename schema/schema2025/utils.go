package schema2025

type RootsListChangedNotificationParams struct{}

type PingRequestParams struct{}
