package handlers

import (
	"net/http"
	"strings"

	apierrors "github.com/contentanonymity/backend/internal/errors"
	"github.com/contentanonymity/backend/internal/gamification"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/media"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/stream"
	"github.com/contentanonymity/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handlers) pathKind() catalogKind[models.LearningPath] {
	return catalogKind[models.LearningPath]{
		kind:     "learning_path",
		resource: "path",
		repo:     h.paths,
		id:       func(p *models.LearningPath) string { return p.ID },
		slug:     func(p *models.LearningPath) *string { return &p.Slug },
		title:    func(p *models.LearningPath) string { return p.Title },
		filters: map[string]func(string) bool{
			"level": func(v string) bool { return models.Difficulty(v).Valid() },
		},
	}
}

type pathRequest struct {
	Title          *string  `json:"title" binding:"omitempty,max=200"`
	Slug           *string  `json:"slug" binding:"omitempty,max=200"`
	Description    *string  `json:"description"`
	Level          *string  `json:"level"`
	EstimatedHours *float64 `json:"estimated_hours"`
	CoverImageURL  *string  `json:"cover_image_url" binding:"omitempty,max=500"`
	Tags           []string `json:"tags"`
	Published      *bool    `json:"published"`
}

func applyPath(req *pathRequest, p *models.LearningPath, creating bool) *apierrors.APIError {
	setString(&p.Title, req.Title)
	if err := requireTitle("title", p.Title, creating); err != nil {
		return err
	}
	setSlug(&p.Slug, req.Slug)
	setString(&p.Description, req.Description)
	if err := setEnum("level", &p.Level, req.Level, models.Difficulty.Valid); err != nil {
		return err
	}
	if p.Level == "" {
		p.Level = models.DifficultyBeginner
	}
	if req.EstimatedHours != nil {
		if *req.EstimatedHours < 0 {
			return apierrors.ValidationError("estimated_hours", "estimated_hours cannot be negative")
		}
		p.EstimatedHours = *req.EstimatedHours
	}
	setString(&p.CoverImageURL, req.CoverImageURL)
	setTags(&p.Tags, req.Tags)
	setBool(&p.Published, req.Published)
	if p.CoverImageURL == "" {
		p.CoverImageURL = media.CoverFor(models.KindArticle, "learning")
	}
	return nil
}

// ListPaths lists learning paths with their lesson counts
// GET /api/v1/learning/paths
func (h *Handlers) ListPaths(c *gin.Context) {
	k := h.pathKind()
	opts, apiErr := k.listOptions(c)
	if apiErr != nil {
		util.RespondWithAPIError(c, apiErr)
		return
	}

	ctx := c.Request.Context()
	paths, total, err := h.paths.List(ctx, opts)
	if util.HandleRepoError(c, err, k.resource) {
		return
	}

	ids := make([]string, len(paths))
	for i := range paths {
		ids[i] = paths[i].ID
	}
	counts, err := h.learning.CountLessons(ctx, ids)
	if util.HandleRepoError(c, err, k.resource) {
		return
	}
	for i := range paths {
		paths[i].LessonCount = counts[paths[i].ID]
	}

	c.JSON(http.StatusOK, util.ListResponse(paths, total, opts.Limit, opts.Offset))
}

// GetPath returns a path with its lessons in order, plus the caller's
// progress when signed in
// GET /api/v1/learning/paths/:slug
func (h *Handlers) GetPath(c *gin.Context) {
	ctx := c.Request.Context()
	path, err := h.learning.GetPathWithLessons(ctx, c.Param("slug"), util.CanEdit(c))
	if util.HandleRepoError(c, err, "path") {
		return
	}

	resp := gin.H{"path": path}
	if user := util.OptionalUser(c); user != nil {
		progress, err := h.learning.Progress(ctx, user.ID, path.ID)
		if util.HandleRepoError(c, err, "progress") {
			return
		}
		resp["progress"] = progress
	}
	c.JSON(http.StatusOK, resp)
}

// EnrollInPath enrolls the caller; enrolling twice is a no-op
// POST /api/v1/learning/paths/:slug/enroll
func (h *Handlers) EnrollInPath(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	path, err := h.paths.GetBySlug(ctx, c.Param("slug"), false)
	if util.HandleRepoError(c, err, "path") {
		return
	}

	enrollment, created, err := h.learning.Enroll(ctx, user.ID, path.ID)
	if util.HandleRepoError(c, err, "enrollment") {
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		logger.Log.Info("Enrolled in path", logger.WithUserID(user.ID), logger.WithSlug(path.Slug))
	}
	c.JSON(status, gin.H{"enrollment": enrollment, "created": created})
}

// PathProgress reports the caller's progress through a path
// GET /api/v1/learning/paths/:slug/progress
func (h *Handlers) PathProgress(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	path, err := h.paths.GetBySlug(ctx, c.Param("slug"), util.CanEdit(c))
	if util.HandleRepoError(c, err, "path") {
		return
	}
	progress, err := h.learning.Progress(ctx, user.ID, path.ID)
	if util.HandleRepoError(c, err, "progress") {
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": progress})
}

// CompleteLesson marks a lesson done, enrolling the caller if needed.
// Finishing the last lesson completes the path and pays the path bonus.
// POST /api/v1/learning/lessons/:id/complete
func (h *Handlers) CompleteLesson(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	lesson, err := h.learning.GetLesson(ctx, c.Param("id"))
	if util.HandleRepoError(c, err, "lesson") {
		return
	}
	path, err := h.paths.GetByID(ctx, lesson.PathID, util.CanEdit(c))
	if util.HandleRepoError(c, err, "lesson") {
		return
	}

	result, err := h.learning.CompleteLesson(ctx, user.ID, lesson)
	if util.HandleRepoError(c, err, "lesson") {
		return
	}

	awards := []*gamification.AwardResult{}
	if result.NewlyCompleted {
		if a := h.award(ctx, user.ID, gamification.ActionLessonComplete, lesson.ID); a != nil {
			awards = append(awards, a)
		}
	}
	if result.PathCompleted {
		if a := h.award(ctx, user.ID, gamification.ActionPathComplete, path.ID); a != nil {
			awards = append(awards, a)
		}
		h.stream.Publish(user.ID, &stream.Activity{
			Actor:     "user:" + user.ID,
			Verb:      stream.VerbCompleted,
			Object:    "path:" + path.ID,
			ForeignID: "path_complete:" + user.ID + ":" + path.ID,
			Title:     path.Title,
			URL:       "/learn/" + path.Slug,
			Username:  user.Username,
		})
		logger.Log.Info("Path completed", logger.WithUserID(user.ID), logger.WithSlug(path.Slug))
	}

	c.JSON(http.StatusOK, gin.H{
		"lesson_id":       lesson.ID,
		"newly_completed": result.NewlyCompleted,
		"path_completed":  result.PathCompleted,
		"progress":        result.Progress,
		"awards":          awards,
	})
}

// MyEnrollments lists the caller's enrollments with progress
// GET /api/v1/learning/enrollments
func (h *Handlers) MyEnrollments(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	enrollments, err := h.learning.Enrollments(ctx, user.ID)
	if util.HandleRepoError(c, err, "enrollment") {
		return
	}

	type item struct {
		models.Enrollment
		Progress models.PathProgress `json:"progress"`
	}
	items := make([]item, 0, len(enrollments))
	for _, e := range enrollments {
		p, err := h.learning.Progress(ctx, user.ID, e.PathID)
		if err != nil {
			logger.Log.Warn("Failed to load path progress", logger.WithUserID(user.ID), zap.String("path_id", e.PathID), zap.Error(err))
		}
		items = append(items, item{Enrollment: e, Progress: p})
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// CreatePath adds a learning path
// POST /api/v1/editor/paths
func (h *Handlers) CreatePath(c *gin.Context) {
	createEntry(h, c, h.pathKind(), applyPath, nil)
}

// UpdatePath applies a partial update
// PATCH /api/v1/editor/paths/:id
func (h *Handlers) UpdatePath(c *gin.Context) {
	updateEntry(h, c, h.pathKind(), applyPath)
}

// DeletePath soft-deletes a path
// DELETE /api/v1/editor/paths/:id
func (h *Handlers) DeletePath(c *gin.Context) {
	deleteEntry(h, c, h.pathKind())
}

type lessonRequest struct {
	Title           string `json:"title" binding:"required,max=200"`
	Slug            string `json:"slug" binding:"max=200"`
	Position        int    `json:"position" binding:"min=0"`
	Body            string `json:"body"`
	VideoURL        string `json:"video_url" binding:"max=500"`
	DurationMinutes int    `json:"duration_minutes" binding:"min=0"`
}

// CreateLesson appends a lesson to a path. Position 0 means after the
// current last lesson.
// POST /api/v1/editor/paths/:id/lessons
func (h *Handlers) CreateLesson(c *gin.Context) {
	ctx := c.Request.Context()
	path, err := h.learning.GetPathWithLessons(ctx, c.Param("id"), true)
	if util.HandleRepoError(c, err, "path") {
		return
	}

	var req lessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid_request", err.Error())
		return
	}

	position := req.Position
	if position == 0 {
		for _, l := range path.Lessons {
			if l.Position > position {
				position = l.Position
			}
		}
		position++
	}
	slug := util.Slugify(req.Slug)
	if slug == "" {
		slug = util.Slugify(req.Title)
	}

	lesson := &models.Lesson{
		PathID:          path.ID,
		Position:        position,
		Title:           strings.TrimSpace(req.Title),
		Slug:            slug,
		Body:            req.Body,
		VideoURL:        strings.TrimSpace(req.VideoURL),
		DurationMinutes: req.DurationMinutes,
	}
	if err := h.learning.CreateLesson(ctx, lesson); util.HandleRepoError(c, err, "lesson") {
		return
	}
	h.invalidate(ctx, cacheGroupLearning)
	c.JSON(http.StatusCreated, gin.H{"lesson": lesson})
}
