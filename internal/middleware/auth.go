package middleware

import (
	"context"
	"strings"

	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// TokenValidator resolves a bearer token to the current user
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.User, error)
}

// bearerToken reads "Authorization: Bearer <token>", falling back to the
// token query parameter used by websocket clients
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return c.Query("token")
}

func setUser(c *gin.Context, user *models.User) {
	c.Set("user", user)
	c.Set("user_id", user.ID)
}

// RequireAuth rejects requests without a valid token and stores the user as
// "user" and its id as "user_id" in the context
func RequireAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			util.RespondUnauthorized(c, "no token provided")
			c.Abort()
			return
		}

		user, err := validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			util.RespondUnauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		setUser(c, user)
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and lets
// anonymous requests through unchanged
func OptionalAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if user, err := validator.ValidateToken(c.Request.Context(), token); err == nil {
				setUser(c, user)
			}
		}
		c.Next()
	}
}
