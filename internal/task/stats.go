package task

// Stats aggregates job counts for dashboards and health checks.
type Stats struct {
	Total           int   `json:"total"`
	Pending         int   `json:"pending"`
	Running         int   `json:"running"`
	Succeeded       int   `json:"succeeded"`
	Failed          int   `json:"failed"`
	OldestUpdatedAt int64 `json:"oldestUpdatedAt,omitempty"`
	NewestUpdatedAt int64 `json:"newestUpdatedAt,omitempty"`
}
