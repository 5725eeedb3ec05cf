package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "hiretrack/pkg/domain-errors"
)

func TestGenerateAndValidateToken(t *testing.T) {
	service := NewJWTService("test-signing-key", "hiretrack")

	token, err := service.GenerateAccessToken(42, "recruiter_kim", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "recruiter_kim", claims.Handle)
	assert.Equal(t, "hiretrack", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateTokenExpired(t *testing.T) {
	service := NewJWTService("test-signing-key", "hiretrack")

	token, err := service.GenerateAccessToken(42, "recruiter_kim", -time.Minute)
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateTokenWrongKey(t *testing.T) {
	issuer := NewJWTService("key-one", "hiretrack")
	verifier := NewJWTService("key-two", "hiretrack")

	token, err := issuer.GenerateAccessToken(42, "recruiter_kim", time.Minute)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}

func TestValidateTokenGarbage(t *testing.T) {
	service := NewJWTService("test-signing-key", "hiretrack")

	_, err := service.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}
