package models

// Resolution outcome statuses as seen by callers.
const (
	StatusNotFound      = "not_found"
	StatusRedirect      = "redirect"
	StatusLocked        = "locked"
	StatusWrongPassword = "wrong_password"
)

// ResolveResponse represents the outcome of resolving a short key.
// Target is present only when Status is "redirect".
type ResolveResponse struct {
	Status string `json:"status"`
	Target string `json:"target,omitempty"`
	Error  string `json:"error,omitempty"`
}
