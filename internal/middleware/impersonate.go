package middleware

import (
	"errors"

	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/repository"
	"github.com/contentanonymity/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ActAsMiddleware lets an admin act as another member by sending
// X-Act-As-User with that member's username. Runs after RequireAuth.
// Non-admins sending the header are rejected.
func ActAsMiddleware(users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetHeader("X-Act-As-User")
		if username == "" {
			c.Next()
			return
		}

		admin := util.OptionalUser(c)
		if admin == nil {
			util.RespondUnauthorized(c)
			c.Abort()
			return
		}
		if admin.Role != models.RoleAdmin {
			util.RespondForbidden(c, "only admins can act as other users")
			c.Abort()
			return
		}

		target, err := users.GetUserByUsername(c.Request.Context(), username)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				util.RespondNotFound(c, "user")
			} else {
				util.RespondWithError(c, err, "user")
			}
			c.Abort()
			return
		}

		setUser(c, target)
		c.Set("acting_admin_id", admin.ID)

		logger.Log.Info("Admin acting as user",
			zap.String("admin_id", admin.ID),
			zap.String("target_user_id", target.ID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)

		c.Next()
	}
}
