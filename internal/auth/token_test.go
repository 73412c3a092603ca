package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petani-backend/internal/apperr"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)

	raw, exp, err := issuer.Issue(Identity{UserID: 42, Username: "alice"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	id, err := issuer.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: 42, Username: "alice"}, id)
}

func TestTokenRejectsOtherSecretAndExpiry(t *testing.T) {
	raw, _, err := NewTokenIssuer(testSecret, time.Hour).Issue(Identity{UserID: 1, Username: "a"})
	require.NoError(t, err)

	_, err = NewTokenIssuer("another-secret-another-secret-xx", time.Hour).Parse(raw)
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))

	expired, _, err := NewTokenIssuer(testSecret, -time.Minute).Issue(Identity{UserID: 1, Username: "a"})
	require.NoError(t, err)
	_, err = NewTokenIssuer(testSecret, time.Hour).Parse(expired)
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))

	_, err = NewTokenIssuer(testSecret, time.Hour).Parse("not-a-token")
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: 4}
	hash, err := h.Hash("rahasia1")
	require.NoError(t, err)
	assert.NotEqual(t, "rahasia1", hash)
	assert.NoError(t, h.Compare(hash, "rahasia1"))
	assert.Error(t, h.Compare(hash, "salah"))
}
