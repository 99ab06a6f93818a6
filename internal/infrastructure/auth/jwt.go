package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/orris-inc/paybridge/internal/shared/authorization"
	"github.com/orris-inc/paybridge/internal/shared/biztime"
)

const issuer = "paybridge"

var ErrEmptySecret = errors.New("jwt secret is required")

// Claims identify an operator of the admin API.
type Claims struct {
	Role     authorization.Role `json:"role"`
	TenantID string             `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

type JWTService struct {
	secret    []byte
	expiresIn time.Duration
}

func NewJWTService(secret string, expMinutes int) (*JWTService, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if expMinutes <= 0 {
		expMinutes = 60
	}
	return &JWTService{
		secret:    []byte(secret),
		expiresIn: time.Duration(expMinutes) * time.Minute,
	}, nil
}

// Generate mints an admin token. Operator tokens must name a tenant.
func (s *JWTService) Generate(subject string, role authorization.Role, tenantID string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, fmt.Errorf("subject is required")
	}
	if !role.IsValid() {
		return "", time.Time{}, fmt.Errorf("invalid role: %s", role)
	}
	if role == authorization.RoleOperator && tenantID == "" {
		return "", time.Time{}, fmt.Errorf("operator token requires a tenant")
	}

	now := biztime.NowUTC()
	exp := now.Add(s.expiresIn)
	claims := &Claims{
		Role:     role,
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, exp, nil
}

func (s *JWTService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if !claims.Role.IsValid() {
			return nil, fmt.Errorf("invalid role in token")
		}
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// ExpiresIn returns the configured token lifetime
func (s *JWTService) ExpiresIn() time.Duration {
	return s.expiresIn
}
