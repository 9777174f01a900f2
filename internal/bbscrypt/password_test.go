package bbscrypt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyRoundTrip(t *testing.T) {
	hash, err := HashPassword("letmein1986")
	require.NoError(t, err)
	assert.NotEqual(t, "letmein1986", hash)
	assert.NoError(t, VerifyPassword(hash, "letmein1986"))
}

func TestVerifyPasswordRejectsWrongPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)
	assert.ErrorIs(t, VerifyPassword(hash, "wrong-guess"), ErrMismatch)
}

func TestHashPasswordIsSalted(t *testing.T) {
	h1, err := HashPassword("samepassword")
	require.NoError(t, err)
	h2, err := HashPassword("samepassword")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}
