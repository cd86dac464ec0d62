package auth

import (
	"strings"

	apperrors "github.com/dalilsuez/backend/internal/errors"
	"github.com/gin-gonic/gin"
)

// bearerToken pulls the token out of the Authorization header
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}

// RequireAuth rejects requests without a valid token. Used on primary
// writes where identity is part of the contract.
func RequireAuth(svc ServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			apiErr := apperrors.Unauthorized("no token provided")
			c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
			return
		}

		user, err := svc.ValidateToken(token)
		if err != nil {
			apiErr := apperrors.Unauthorized("invalid or expired token")
			c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
			return
		}

		c.Set("user_id", user.ID)
		c.Set("user", user)
		c.Next()
	}
}

// OptionalAuth resolves identity when a valid token is present and
// otherwise lets the request through anonymous. Telemetry endpoints use
// this: a missing or bad token downgrades to a no-op, never a 401.
func OptionalAuth(svc ServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token != "" {
			if user, err := svc.ValidateToken(token); err == nil {
				c.Set("user_id", user.ID)
				c.Set("user", user)
			}
		}
		c.Next()
	}
}

// UserID returns the resolved user id, or "" for anonymous requests
func UserID(c *gin.Context) string {
	return c.GetString("user_id")
}
