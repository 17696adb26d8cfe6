package models

import "time"

// LinkResponse represents a persisted link returned to its owner
type LinkResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	OriginalURL string    `json:"original_url"`
	ShortCode   string    `json:"short_code"`
	CustomCode  *string   `json:"custom_code,omitempty"`
	ShortURL    string    `json:"short_url"` // Full short URL (base URL + short code)
	QRCodeURL   *string   `json:"qr_code_url,omitempty"`
	IsProtected bool      `json:"is_protected"`
	ClickCount  int64     `json:"click_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// ClickBucket is one time bucket of the click analytics series
type ClickBucket struct {
	Time  time.Time `json:"time"`
	Count int64     `json:"count"`
}
