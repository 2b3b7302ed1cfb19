package util

import (
	"github.com/contentanonymity/backend/internal/models"
	"github.com/gin-gonic/gin"
)

// GetUserFromContext extracts the authenticated user from the Gin context.
// If the user is not authenticated, it responds with 401 and returns false.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	user := OptionalUser(c)
	if user == nil {
		RespondUnauthorized(c)
		return nil, false
	}
	return user, true
}

// OptionalUser returns the authenticated user or nil, without responding
func OptionalUser(c *gin.Context) *models.User {
	v, exists := c.Get("user")
	if !exists {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// CanEdit reports whether the caller may see and change unpublished content
func CanEdit(c *gin.Context) bool {
	user := OptionalUser(c)
	return user != nil && user.Role.CanEdit()
}
