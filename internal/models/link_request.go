package models

// CreateLinkRequest represents the request body for creating a short link
type CreateLinkRequest struct {
	Title       string  `json:"title"`
	LongURL     string  `json:"long_url"`
	CustomURL   *string `json:"custom_url,omitempty"` // Optional owner-chosen alias
	IsProtected bool    `json:"is_protected"`
	Password    string  `json:"password,omitempty"` // Required iff is_protected
}

// UpdateProtectionRequest represents the request body for changing a
// link's protection state. Password is required when enabling.
type UpdateProtectionRequest struct {
	IsProtected bool   `json:"is_protected"`
	Password    string `json:"password,omitempty"`
}

// UnlockRequest carries the password submitted against a protected link
type UnlockRequest struct {
	Password string `json:"password"`
}
