package handlers

import (
	"net/http"

	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/storage"
	"github.com/contentanonymity/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UploadImage stores an editor-supplied image (cover, logo, preview) and
// returns its public URL
// POST /api/v1/uploads/image
func (h *Handlers) UploadImage(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	result, ok := h.storeImage(c, "file", storage.PrefixImages)
	if !ok {
		return
	}
	logger.Log.Info("Editor image uploaded", logger.WithUserID(user.ID), zap.String("key", result.Key))
	c.JSON(http.StatusCreated, result)
}
