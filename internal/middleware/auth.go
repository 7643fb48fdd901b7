package middleware

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sharpline/sharpline-go/internal/config"
)

// Package middleware provides the HTTP middleware for the API surface:
// admin authentication and span helpers for handlers.

const (
	roleAdmin          = "admin"
	defaultTokenExpiry = 24 * time.Hour
)

// AdminClaims represents the claims carried by a minted admin token.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware mints and validates the signed tokens that gate the
// admin surface. Tokens are traded for the admin API key and expire on
// the configured horizon.
type AuthMiddleware struct {
	secretKey []byte
	expiry    time.Duration
}

// NewAuthMiddleware creates a token middleware from the security config.
func NewAuthMiddleware(cfg config.SecurityConfig) *AuthMiddleware {
	expiry := defaultTokenExpiry
	if cfg.JWTExpiry != "" {
		if parsed, err := time.ParseDuration(cfg.JWTExpiry); err == nil && parsed > 0 {
			expiry = parsed
		}
	}

	return &AuthMiddleware{
		secretKey: []byte(cfg.JWTSecret),
		expiry:    expiry,
	}
}

// GenerateToken mints a signed admin token and reports when it expires.
func (am *AuthMiddleware) GenerateToken() (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(am.expiry)

	claims := &AdminClaims{
		Role: roleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   roleAdmin,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(am.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken validates a token string and returns its claims.
func (am *AuthMiddleware) ValidateToken(tokenString string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return am.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AdminClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
