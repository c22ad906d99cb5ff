package schema2025

type ListResourcesRequestParams struct {
	PaginatedRequestParams
}

type ListResourcesResult struct {
	PaginatedResult
	Meta      map[string]interface{} `json:"_meta,omitempty"`
	Resources []Resource             `json:"resources"`
}

type ReadResourceRequestParams struct {
	URI string `json:"uri"`
}

type ReadResourceResult struct {
	Meta     map[string]interface{} `json:"_meta,omitempty"`
	Contents []ResourceContent      `json:"contents"`
}

type SubscribeRequestParams struct {
	URI string `json:"uri"`
}

type UnsubscribeRequestParams struct {
	URI string `json:"uri"`
}

type ResourceUpdatedNotificationParams struct {
	URI string `json:"uri"`
}
