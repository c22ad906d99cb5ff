package schema2025

type ListRootsResult struct {
	Meta  map[string]interface{} `json:"_meta,omitempty"`
	Roots []Root                 `json:"roots"`
}
