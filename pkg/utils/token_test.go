package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	tm := NewTokenManager("test_secret_key_12345", time.Hour)

	token, err := tm.GenerateToken(7, "alice", "employee")
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.GetJTI())
}

func TestValidateToken_Expired(t *testing.T) {
	tm := NewTokenManager("test_secret_key_12345", time.Minute)
	issued := time.Now().Add(-time.Hour)
	tm.now = func() time.Time { return issued }

	token, err := tm.GenerateToken(7, "alice", "employee")
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := NewTokenManager("one", time.Hour).GenerateToken(7, "alice", "employee")
	require.NoError(t, err)

	_, err = NewTokenManager("two", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Empty(t *testing.T) {
	_, err := NewTokenManager("secret", time.Hour).ValidateToken("")
	assert.Error(t, err)
}
