package admin

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager(TokenConfig{Secret: []byte("s3cret")})
	token, expires, err := m.Issue("admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(8*time.Hour), expires, time.Minute)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "permit-prep", claims.Issuer)
}

func TestTokenRejections(t *testing.T) {
	m := NewTokenManager(TokenConfig{Secret: []byte("s3cret"), TTL: time.Minute})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager(TokenConfig{Secret: []byte("other")})
		token, _, err := other.Issue("admin")
		require.NoError(t, err)
		_, err = m.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewTokenManager(TokenConfig{Secret: []byte("s3cret"), TTL: time.Minute})
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, _, err := past.Issue("admin")
		require.NoError(t, err)
		_, err = m.Validate(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong role", func(t *testing.T) {
		claims := Claims{
			Username: "admin",
			Role:     "viewer",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "permit-prep",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
		require.NoError(t, err)
		_, err = m.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Validate("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
