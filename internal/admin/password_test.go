package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func quickHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NoError(t, VerifyPassword(hash, "correct horse"))
	assert.Error(t, VerifyPassword(hash, "wrong horse"))
}

func TestCredentialAuthenticator(t *testing.T) {
	ctx := context.Background()
	auth := CredentialAuthenticator{Username: "admin", PasswordHash: quickHash(t, "letmein123")}

	assert.NoError(t, auth.Authenticate(ctx, "admin", "letmein123"))
	assert.ErrorIs(t, auth.Authenticate(ctx, "admin", "nope"), ErrInvalidCredentials)
	assert.ErrorIs(t, auth.Authenticate(ctx, "root", "letmein123"), ErrInvalidCredentials)

	disabled := CredentialAuthenticator{Username: "admin"}
	assert.ErrorIs(t, disabled.Authenticate(ctx, "admin", ""), ErrInvalidCredentials)
}
