package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/sharpline/sharpline-go/internal/config"
)

// AdminMiddleware guards the admin endpoints. Callers present either a
// bearer token minted by AuthMiddleware or the raw admin API key, which
// is checked against the bcrypt hash in config. An empty hash locks the
// admin surface entirely.
type AdminMiddleware struct {
	apiKeyHash []byte
	auth       *AuthMiddleware
}

// NewAdminMiddleware creates a new admin authentication middleware
func NewAdminMiddleware(cfg config.SecurityConfig, auth *AuthMiddleware) *AdminMiddleware {
	return &AdminMiddleware{
		apiKeyHash: []byte(cfg.AdminAPIKeyHash),
		auth:       auth,
	}
}

// ValidateAdminKey checks a raw API key against the configured hash
func (am *AdminMiddleware) ValidateAdminKey(key string) bool {
	if len(am.apiKeyHash) == 0 || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(am.apiKeyHash, []byte(key)) == nil
}

// RequireAdminAuth middleware validates admin credentials
func (am *AdminMiddleware) RequireAdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for a minted token in the Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) == 2 && strings.ToLower(tokenParts[0]) == "bearer" && tokenParts[1] != "" {
				claims, err := am.auth.ValidateToken(tokenParts[1])
				if err == nil && claims.Role == roleAdmin {
					c.Set("role", claims.Role)
					c.Next()
					return
				}
				if errors.Is(err, jwt.ErrTokenExpired) {
					c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
					c.Abort()
					return
				}
			}
		}

		// Check for the raw API key in the X-API-Key header
		if am.ValidateAdminKey(c.GetHeader("X-API-Key")) {
			c.Next()
			return
		}

		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Unauthorized",
			"message": "Valid admin token or API key required for this endpoint",
		})
		c.Abort()
	}
}
