package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
)

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims models.JWTClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims(issuer string) models.JWTClaims {
	now := time.Now()
	return models.JWTClaims{
		UserID: "user-1",
		Role:   models.RoleStudent,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestTokenServiceValidateToken(t *testing.T) {
	svc := NewTokenService("secret", "identity")

	claims, err := svc.ValidateToken(signToken(t, jwt.SigningMethodHS256, "secret", validClaims("identity")))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestTokenServiceRejectsBadTokens(t *testing.T) {
	svc := NewTokenService("secret", "identity")

	expired := validClaims("identity")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	anonymous := validClaims("identity")
	anonymous.UserID = ""

	cases := map[string]string{
		"wrong secret":    signToken(t, jwt.SigningMethodHS256, "other", validClaims("identity")),
		"wrong issuer":    signToken(t, jwt.SigningMethodHS256, "secret", validClaims("someone-else")),
		"wrong algorithm": signToken(t, jwt.SigningMethodHS512, "secret", validClaims("identity")),
		"expired":         signToken(t, jwt.SigningMethodHS256, "secret", expired),
		"missing user":    signToken(t, jwt.SigningMethodHS256, "secret", anonymous),
		"garbage":         "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
		})
	}
}

func TestTokenServiceWithoutIssuerCheck(t *testing.T) {
	svc := NewTokenService("secret", "")

	_, err := svc.ValidateToken(signToken(t, jwt.SigningMethodHS256, "secret", validClaims("anything")))
	assert.NoError(t, err)
}
