package models

// Pagination carries page metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// BulkItemResult records the outcome of one item in a best-effort bulk
// operation. Bulk operations never abort on the first failure.
type BulkItemResult struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
