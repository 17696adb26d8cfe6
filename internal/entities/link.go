package entities

import "time"

// Link represents a short link entity in the database
type Link struct {
	ID          string    `json:"id"` // UUID
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	OriginalURL string    `json:"original_url"`
	ShortCode   string    `json:"short_code"`
	CustomCode  *string   `json:"custom_code,omitempty"` // Pointer allows nil (no custom alias)
	QRCodeURL   *string   `json:"qr_code_url,omitempty"` // Opaque pointer to the rendered QR artifact
	IsProtected bool      `json:"is_protected"`
	// PasswordHash is set if and only if IsProtected is true.
	PasswordHash *string   `json:"-"`
	ClickCount   int64     `json:"click_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// ResolvableKeys returns every key this link answers to.
func (l *Link) ResolvableKeys() []string {
	keys := []string{l.ShortCode}
	if l.CustomCode != nil && *l.CustomCode != "" {
		keys = append(keys, *l.CustomCode)
	}
	return keys
}
