package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// TestPurpose: Validates that Verify dispatches on the stored scheme.
// Scope: Unit Test
// Security: Password storage (CWE-916)
// Expected: bcrypt and legacy hashes verify their own password only; unknown schemes error.
// Test Case ID: PWD-01
func TestPasswordHasher_Verify(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	strong, err := h.Hash("s3cure-pass")
	require.NoError(t, err)
	assert.Equal(t, SchemeBcrypt, strong.Scheme)
	assert.NotContains(t, strong.Value, "s3cure-pass")

	ok, err := h.Verify("s3cure-pass", strong)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = h.Verify("wrong", strong)
	require.NoError(t, err)
	assert.False(t, ok)

	legacy := LegacySHA256("s3cure-pass")
	ok, err = h.Verify("s3cure-pass", legacy)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = h.Verify("wrong", legacy)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Verify("s3cure-pass", PasswordHash{Scheme: "md5", Value: "x"})
	assert.ErrorIs(t, err, ErrUnknownScheme)
}

func TestPasswordHasher_NeedsUpgrade(t *testing.T) {
	low := NewPasswordHasher(bcrypt.MinCost)
	high := NewPasswordHasher(bcrypt.MinCost + 1)

	hash, err := low.Hash("s3cure-pass")
	require.NoError(t, err)

	assert.False(t, low.NeedsUpgrade(hash))
	assert.True(t, high.NeedsUpgrade(hash))
	assert.True(t, low.NeedsUpgrade(LegacySHA256("s3cure-pass")))
}

func TestLegacySHA256_KnownVector(t *testing.T) {
	assert.Equal(t,
		"5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8",
		LegacySHA256("password").Value,
	)
}
