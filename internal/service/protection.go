package service

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"linklock-be/internal/linkerr"
)

// MinPasswordLength is the minimum trimmed length a link password may have.
const MinPasswordLength = 4

// ProtectionGate encapsulates the protect/unprotect/verify password
// policy layered over a link's protection fields. Raw passwords never
// leave this type; only the hash crosses into the registry.
type ProtectionGate struct {
	cost int
}

// NewProtectionGate creates a gate using the default bcrypt cost.
func NewProtectionGate() *ProtectionGate {
	return &ProtectionGate{cost: bcrypt.DefaultCost}
}

// Protect validates rawPassword and returns the paired protection
// fields (true, hash) for the registry to persist atomically.
func (g *ProtectionGate) Protect(rawPassword string) (bool, *string, error) {
	trimmed := strings.TrimSpace(rawPassword)
	if len(trimmed) < MinPasswordLength {
		return false, nil, linkerr.ErrWeakPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(trimmed), g.cost)
	if err != nil {
		return false, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	hash := string(hashed)
	return true, &hash, nil
}

// Unprotect returns the paired cleared protection fields.
func (g *ProtectionGate) Unprotect() (bool, *string) {
	return false, nil
}

// Verify checks rawPassword against storedHash. A mismatch is a normal
// false result, never an error. Submissions shorter than the minimum
// fail fast with ErrWeakPassword before any hash comparison runs.
func (g *ProtectionGate) Verify(rawPassword, storedHash string) (bool, error) {
	trimmed := strings.TrimSpace(rawPassword)
	if len(trimmed) < MinPasswordLength {
		return false, linkerr.ErrWeakPassword
	}

	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(trimmed))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("failed to compare password: %w", err)
	}
	return true, nil
}
