package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/paybridge/internal/shared/authorization"
)

func TestNewJWTService_RequiresSecret(t *testing.T) {
	_, err := NewJWTService("", 10)
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestJWTService_GenerateAndVerify(t *testing.T) {
	svc, err := NewJWTService("test-secret", 10)
	require.NoError(t, err)

	token, exp, err := svc.Generate("ops@example.com", authorization.RoleOperator, "tenant-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), exp, 5*time.Second)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.Equal(t, authorization.RoleOperator, claims.Role)
	assert.Equal(t, "tenant-1", claims.TenantID)
}

func TestJWTService_OperatorNeedsTenant(t *testing.T) {
	svc, err := NewJWTService("test-secret", 10)
	require.NoError(t, err)

	_, _, err = svc.Generate("ops", authorization.RoleOperator, "")
	assert.Error(t, err)

	_, _, err = svc.Generate("root", authorization.RoleAdmin, "")
	assert.NoError(t, err)
}

func TestJWTService_RejectsOtherSecret(t *testing.T) {
	a, _ := NewJWTService("secret-a", 10)
	b, _ := NewJWTService("secret-b", 10)

	token, _, err := a.Generate("root", authorization.RoleAdmin, "")
	require.NoError(t, err)

	_, err = b.Verify(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	svc, _ := NewJWTService("test-secret", 10)

	past := time.Now().Add(-time.Hour)
	claims := &Claims{
		Role: authorization.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "root",
			ExpiresAt: jwt.NewNumericDate(past),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.Error(t, err)
}
