package middleware

import (
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequireRole must run after RequireAuth. It lets the request through only
// when the user holds one of roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		user, ok := util.GetUserFromContext(c)
		if !ok {
			c.Abort()
			return
		}

		if !allowed[user.Role] {
			logger.Log.Warn("Role check failed",
				logger.WithUserID(user.ID),
				zap.String("role", string(user.Role)),
				zap.String("path", c.FullPath()),
			)
			util.RespondForbidden(c, "insufficient role")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAdmin ensures the authenticated user is an admin
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}

// RequireEditor admits editors and admins
func RequireEditor() gin.HandlerFunc {
	return RequireRole(models.RoleEditor, models.RoleAdmin)
}
