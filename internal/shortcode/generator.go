package shortcode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/sethvargo/go-retry"

	"linklock-be/internal/linkerr"
)

const (
	// Alphabet contains every character a generated short code may use.
	Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// CodeLength is the length of generated short codes.
	CodeLength = 6
	// MaxAttempts bounds how many candidates are drawn before giving up.
	MaxAttempts = 10
)

var errCollision = errors.New("short code collision")

// KeyChecker reports whether a candidate key is already taken. The
// link registry satisfies this; its answer is a pre-check only, the
// final insert stays the authoritative uniqueness check.
type KeyChecker interface {
	KeyExists(ctx context.Context, key string) (bool, error)
}

// Generator produces unique short codes for new links.
type Generator struct {
	checker KeyChecker
	length  int
}

// NewGenerator creates a new short code generator backed by checker.
func NewGenerator(checker KeyChecker) *Generator {
	return &Generator{checker: checker, length: CodeLength}
}

// Generate draws random candidates until one passes the registry
// pre-check, bounded at MaxAttempts. Exhausting the bound returns
// linkerr.ErrGenerationExhausted so the caller aborts creation instead
// of risking a collision.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	var code string

	backoff := retry.WithMaxRetries(MaxAttempts-1, retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		candidate, err := g.randomCode()
		if err != nil {
			return err
		}

		exists, err := g.checker.KeyExists(ctx, candidate)
		if err != nil {
			return err
		}
		if exists {
			return retry.RetryableError(errCollision)
		}

		code = candidate
		return nil
	})
	if err != nil {
		if errors.Is(err, errCollision) {
			return "", linkerr.ErrGenerationExhausted
		}
		return "", err
	}

	return code, nil
}

// randomCode draws a candidate using the crypto/rand source.
func (g *Generator) randomCode() (string, error) {
	b := make([]byte, g.length)
	alphabetLen := big.NewInt(int64(len(Alphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random code: %w", err)
		}
		b[i] = Alphabet[n.Int64()]
	}
	return string(b), nil
}
