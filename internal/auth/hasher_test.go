package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_RoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	digest, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", digest)

	ok, err := h.Verify("correct horse", digest)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("battery staple", digest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasher_SaltsEveryDigest(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	first, err := h.Hash("same password")
	require.NoError(t, err)
	second, err := h.Hash("same password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestHasher_CorruptDigest(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	for _, digest := range []string{"", "not-a-bcrypt-hash", "$2a$99$invalidcostinvalidcostinvalidcostinvalidcostinval"} {
		ok, err := h.Verify("anything", digest)
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrCorruptCredential, "digest %q", digest)
	}
}

func TestNewHasher_InvalidCostFallsBack(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(99).cost)
	assert.Equal(t, 12, NewHasher(12).cost)
}
