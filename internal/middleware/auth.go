// Package middleware provides Gin HTTP middleware for authentication, rate
// limiting, security headers, request IDs, and metrics.
//
// Middleware ordering matters and is enforced in router.go:
//
//	Security → Auth → RateLimit → Handler
//
// Security headers run first so they appear on all responses including errors.
// Auth runs before rate limiting so the general limiter can key on the
// authenticated user rather than the client IP; the stream routes additionally
// carry a stricter per-user limiter that also reads that identity.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/streamvault/streamvault/internal/auth"
)

// UserIDKey is the gin context key holding the authenticated user's ID.
const UserIDKey = "user_id"

// AuthMiddleware validates the Bearer JWT and sets the user identity in the
// request context. Token validation is stateless; the platform's identity
// service is the source of truth for user records and this service only
// trusts its signatures.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing authorization header",
			})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header must start with 'Bearer '",
			})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is empty",
			})
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid credentials",
			})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set("email", claims.Email)
		c.Set("auth_method", "jwt")

		c.Next()
	}
}

// UserID returns the authenticated user's ID from the gin context, or "" when
// the request is unauthenticated.
func UserID(c *gin.Context) string {
	id, _ := c.Get(UserIDKey)
	s, _ := id.(string)
	return s
}
