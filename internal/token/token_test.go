package token

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, ByteLength)
}

// TestPurpose: Validates that token digests are deterministic, keyed and never equal to the raw token.
// Scope: Unit Test
// Security: Credentials at rest (CWE-256)
// Expected: Same input and key give the same digest; a different key gives a different one.
// Test Case ID: TOK-01
func TestHasher_Hash(t *testing.T) {
	h1, err := NewHasher("0123456789abcdef")
	require.NoError(t, err)
	h2, err := NewHasher("fedcba9876543210")
	require.NoError(t, err)

	d := h1.Hash("raw-token")
	assert.Len(t, d, 64)
	assert.Equal(t, d, h1.Hash("raw-token"))
	assert.NotEqual(t, d, h2.Hash("raw-token"))
	assert.NotContains(t, d, "raw-token")
}

func TestNewHasher_EmptySecret(t *testing.T) {
	_, err := NewHasher("")
	assert.ErrorIs(t, err, ErrEmptySecret)
}
