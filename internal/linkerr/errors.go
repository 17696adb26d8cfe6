package linkerr

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the registry, generator and resolver layers.
// Callers branch on these with errors.Is instead of parsing messages.
var (
	ErrNotFound            = errors.New("link not found")
	ErrDuplicateKey        = errors.New("short key already taken")
	ErrGenerationExhausted = errors.New("could not generate a unique short code")
	ErrForbidden           = errors.New("operation not permitted for this user")
	ErrWeakPassword        = errors.New("password must be at least 4 characters")
	ErrWrongPassword       = errors.New("wrong password")
	ErrRegistryCorrupt     = errors.New("multiple links match a unique key")
	ErrTimeout             = errors.New("operation timed out")
)

// ValidationError reports a field-level problem with creation input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidation builds a ValidationError for a single field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AsValidation unwraps err into a ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// IsNotFound reports whether err is a not-found condition.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsDuplicateKey reports whether err indicates a uniqueness conflict.
func IsDuplicateKey(err error) bool { return errors.Is(err, ErrDuplicateKey) }

// IsForbidden reports whether err indicates an ownership violation.
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }
