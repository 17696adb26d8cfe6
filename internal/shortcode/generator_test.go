package shortcode

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linklock-be/internal/linkerr"
)

type checkerFunc func(ctx context.Context, key string) (bool, error)

func (f checkerFunc) KeyExists(ctx context.Context, key string) (bool, error) {
	return f(ctx, key)
}

func TestGenerateProducesCodesFromTheAlphabet(t *testing.T) {
	gen := NewGenerator(checkerFunc(func(ctx context.Context, key string) (bool, error) {
		return false, nil
	}))

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := gen.Generate(context.Background())
		require.NoError(t, err)
		assert.Len(t, code, CodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(Alphabet, r), "unexpected character %q", r)
		}
		seen[code] = true
	}
	// Collisions across 50 draws of a 62^6 space would be remarkable.
	assert.Len(t, seen, 50)
}

func TestGenerateRetriesPastCollisions(t *testing.T) {
	collisions := 0
	gen := NewGenerator(checkerFunc(func(ctx context.Context, key string) (bool, error) {
		if collisions < 3 {
			collisions++
			return true, nil
		}
		return false, nil
	}))

	code, err := gen.Generate(context.Background())
	require.NoError(t, err)
	assert.Len(t, code, CodeLength)
	assert.Equal(t, 3, collisions)
}

func TestGenerateExhaustsAfterBoundedAttempts(t *testing.T) {
	attempts := 0
	gen := NewGenerator(checkerFunc(func(ctx context.Context, key string) (bool, error) {
		attempts++
		return true, nil
	}))

	_, err := gen.Generate(context.Background())
	assert.ErrorIs(t, err, linkerr.ErrGenerationExhausted)
	assert.Equal(t, MaxAttempts, attempts)
}

func TestGeneratePropagatesCheckerErrors(t *testing.T) {
	gen := NewGenerator(checkerFunc(func(ctx context.Context, key string) (bool, error) {
		return false, context.Canceled
	}))

	_, err := gen.Generate(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}
