package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthesis.io/tutor-backend/internal/config"
)

func withSecret(t *testing.T, secret string) {
	t.Helper()
	prev := config.AppConfig
	config.AppConfig.JWTSecret = secret
	t.Cleanup(func() { config.AppConfig = prev })
}

func TestGenerateAndValidate(t *testing.T) {
	withSecret(t, "unit-test-secret")

	token, err := GenerateJWT("student-42")
	require.NoError(t, err)

	sub, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "student-42", sub)
}

func TestValidateJWT_RejectsOtherSecret(t *testing.T) {
	withSecret(t, "first")
	token, err := GenerateJWT("student-42")
	require.NoError(t, err)

	config.AppConfig.JWTSecret = "second"
	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestValidateJWT_RejectsExpired(t *testing.T) {
	withSecret(t, "unit-test-secret")
	claims := jwt.MapClaims{"sub": "s", "exp": time.Now().Add(-time.Minute).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("unit-test-secret"))
	require.NoError(t, err)

	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestValidateJWT_RejectsMissingSubject(t *testing.T) {
	withSecret(t, "unit-test-secret")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"iat": time.Now().Unix()}).
		SignedString([]byte("unit-test-secret"))
	require.NoError(t, err)

	_, err = ValidateJWT(token)
	assert.Error(t, err)
}
