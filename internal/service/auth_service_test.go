package service

import (
	"context"
	"testing"
	"time"

	"alcyxob/workout-journal/internal/repository/memory"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(memory.New(), "test-secret", time.Hour)

	user, err := svc.Register(ctx, "Anna", "  Anna@Example.com ", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "anna@example.com", user.Email)
	assert.Empty(t, user.PasswordHash)

	_, err = svc.Register(ctx, "Anna", "anna@example.com", "other")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	token, loggedIn, err := svc.Login(ctx, "ANNA@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.Empty(t, loggedIn.PasswordHash)

	claims := &jwtClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, TokenIssuer, claims.Issuer)
}

func TestAuthService_LoginFailures(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(memory.New(), "test-secret", time.Hour)
	_, err := svc.Register(ctx, "Anna", "anna@example.com", "s3cret")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "anna@example.com", "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, _, err = svc.Login(ctx, "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, _, err = svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc := NewAuthService(memory.New(), "test-secret", time.Hour)

	_, err := svc.Register(context.Background(), "", "a@example.com", "x")
	assert.ErrorIs(t, err, ErrValidationFailed)
	_, err = svc.Register(context.Background(), "Anna", "not-an-email", "x")
	assert.ErrorIs(t, err, ErrValidationFailed)

	assert.Panics(t, func() { NewAuthService(memory.New(), "", time.Hour) })
}
