package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/armazem-neca/armazem-api/internal/platform/httpx"
)

func TestHashRejectsShortPasswords(t *testing.T) {
	hasher := NewHasher()
	for _, password := range []string{"", "a", "1234567", "abcdefg"} {
		_, err := hasher.Hash(password)
		require.ErrorIs(t, err, httpx.ErrWeakPassword, "password %q", password)
	}
}

func TestHashVerifyRoundTrip(t *testing.T) {
	hasher := NewHasher()

	hash, err := hasher.Hash("correct horse battery")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$"))

	require.True(t, hasher.Verify("correct horse battery", hash))
	require.False(t, hasher.Verify("correct horse battery!", hash))
	require.False(t, hasher.Verify("", hash))
}

func TestHashUsesFreshSalt(t *testing.T) {
	hasher := NewHasher()

	first, err := hasher.Hash("repeatable-password")
	require.NoError(t, err)
	second, err := hasher.Hash("repeatable-password")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.True(t, hasher.Verify("repeatable-password", first))
	require.True(t, hasher.Verify("repeatable-password", second))
}

func TestVerifyNeverErrorsOnMalformedHash(t *testing.T) {
	hasher := NewHasher()

	malformed := []string{
		"",
		"not a hash",
		"$argon2id$",
		"$argon2i$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=0,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=2$!!!$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$!!!",
		"$2b$10$abcdefghijklmnopqrstuv", // bcrypt, not ours
	}
	for _, hash := range malformed {
		require.False(t, hasher.Verify("whatever-password", hash), "hash %q", hash)
	}
}
