package entities

import "time"

// Click represents a single successful resolution of a link.
// Rows are write-once; aggregation happens at query time.
type Click struct {
	ID          string    `json:"id"` // UUID
	LinkID      string    `json:"link_id"`
	OriginalURL string    `json:"original_url"` // Snapshot of the target at click time
	IPAddress   string    `json:"ip_address"`
	UserAgent   string    `json:"user_agent"`
	Referer     string    `json:"referer"`
	ClickedAt   time.Time `json:"clicked_at"`
}
