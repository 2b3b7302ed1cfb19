package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	apierrors "github.com/contentanonymity/backend/internal/errors"
	"github.com/contentanonymity/backend/internal/importer"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxImportBytes bounds an uploaded import file
const MaxImportBytes = 10 << 20

// ImportContent bulk-imports catalog rows from a CSV or JSON upload
// POST /api/v1/admin/import/:entity
func (h *Handlers) ImportContent(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	entity := strings.ToLower(c.Param("entity"))
	known := false
	for _, e := range importer.Entities() {
		if e == entity {
			known = true
			break
		}
	}
	if !known {
		util.RespondValidationError(c, "entity", "entity must be one of "+strings.Join(importer.Entities(), ", "))
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		util.RespondBadRequest(c, "no_file", "no import file provided in 'file' field")
		return
	}
	format, err := importer.DetectFormat(c.PostForm("format"), file.Filename)
	if err != nil {
		util.RespondValidationError(c, "format", err.Error())
		return
	}
	data, err := util.ReadUploadedFile(file, MaxImportBytes)
	if errors.Is(err, util.ErrFileTooLarge) {
		util.RespondWithAPIError(c, apierrors.PayloadTooLarge("10MB"))
		return
	} else if err != nil {
		util.RespondBadRequest(c, "invalid_file", err.Error())
		return
	}

	dryRun := false
	if v := util.ParseBoolPtr(c.PostForm("dry_run")); v != nil {
		dryRun = *v
	} else if v := util.ParseBoolPtr(c.Query("dry_run")); v != nil {
		dryRun = *v
	}

	ctx := c.Request.Context()
	report, err := h.importer.Run(ctx, bytes.NewReader(data), importer.Options{
		Entity:   entity,
		Format:   format,
		Filename: file.Filename,
		DryRun:   dryRun,
		UserID:   user.ID,
	})
	if errors.Is(err, importer.ErrUnknownEntity) {
		util.RespondValidationError(c, "entity", err.Error())
		return
	}
	if util.HandleRepoError(c, err, "import") {
		return
	}

	if !dryRun && report.Inserted+report.Updated > 0 {
		h.invalidate(ctx, cacheGroupCatalog)
	}
	c.JSON(http.StatusOK, report)
}

// ImportRuns lists stored import reports, newest first
// GET /api/v1/admin/import/runs
func (h *Handlers) ImportRuns(c *gin.Context) {
	limit, offset := util.PageParams(c)
	runs, total, err := h.importer.Runs(c.Request.Context(), limit, offset)
	if util.HandleRepoError(c, err, "import run") {
		return
	}
	c.JSON(http.StatusOK, util.ListResponse(runs, total, limit, offset))
}

// PromoteUser changes a member's role
// PUT /api/v1/admin/users/:username/role
func (h *Handlers) PromoteUser(c *gin.Context) {
	admin, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid_request", err.Error())
		return
	}
	role := models.Role(strings.ToLower(req.Role))
	if !role.Valid() {
		util.RespondValidationError(c, "role", "role must be member, editor or admin")
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetUserByUsername(ctx, c.Param("username"))
	if util.HandleRepoError(c, err, "user") {
		return
	}
	if user.ID == admin.ID && role != models.RoleAdmin {
		util.RespondForbidden(c, "admins cannot demote themselves")
		return
	}

	if user.Role != role {
		if err := h.users.UpdateFields(ctx, user.ID, map[string]interface{}{"role": role}); util.HandleRepoError(c, err, "user") {
			return
		}
		logger.Log.Info("User role changed",
			logger.WithUserID(user.ID),
			zap.String("from", string(user.Role)),
			zap.String("to", string(role)),
			zap.String("by", admin.ID))
		user.Role = role
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Reindex rebuilds the search index from the database
// POST /api/v1/admin/search/reindex?recreate=true
func (h *Handlers) Reindex(c *gin.Context) {
	if h.reindexer == nil {
		util.RespondWithAPIError(c, apierrors.ServiceUnavailable("elasticsearch"))
		return
	}
	recreate := false
	if v := util.ParseBoolPtr(c.Query("recreate")); v != nil {
		recreate = *v
	}
	report, err := h.reindexer.Rebuild(c.Request.Context(), recreate)
	if err != nil {
		util.RespondWithAPIError(c, apierrors.InternalError("reindex failed").WithDetails(err.Error()))
		return
	}
	c.JSON(http.StatusOK, report)
}

// Stats counts rows per entity
// GET /api/v1/admin/stats
func (h *Handlers) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	counters := []struct {
		name  string
		count func(context.Context) (int64, error)
	}{
		{"articles", h.articles.Count},
		{"tools", h.tools.Count},
		{"templates", h.templates.Count},
		{"guides", h.guides.Count},
		{"niches", h.niches.Count},
		{"learning_paths", h.paths.Count},
		{"forum_posts", h.forum.Count},
		{"users", h.users.GetTotalUserCount},
		{"subscribers", h.countConfirmedSubscribers},
	}

	stats := make(map[string]int64, len(counters))
	for _, counter := range counters {
		n, err := counter.count(ctx)
		if util.HandleRepoError(c, err, "stats") {
			return
		}
		stats[counter.name] = n
	}
	c.JSON(http.StatusOK, gin.H{"counts": stats})
}

func (h *Handlers) countConfirmedSubscribers(ctx context.Context) (int64, error) {
	var n int64
	err := h.db.WithContext(ctx).Model(&models.Subscriber{}).
		Where("status = ?", models.SubscriberConfirmed).
		Count(&n).Error
	return n, err
}
