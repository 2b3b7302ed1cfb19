package handlers

import (
	apierrors "github.com/contentanonymity/backend/internal/errors"
	"github.com/contentanonymity/backend/internal/media"
	"github.com/contentanonymity/backend/internal/metrics"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/search"
	"github.com/contentanonymity/backend/internal/util"
	"github.com/gin-gonic/gin"
)

func (h *Handlers) guideKind() catalogKind[models.PlatformGuide] {
	return catalogKind[models.PlatformGuide]{
		kind:     models.KindGuide,
		resource: "guide",
		repo:     h.guides,
		id:       func(g *models.PlatformGuide) string { return g.ID },
		slug:     func(g *models.PlatformGuide) *string { return &g.Slug },
		title:    func(g *models.PlatformGuide) string { return g.Title },
		doc:      search.GuideDoc,
		filters: map[string]func(string) bool{
			"platform":   func(v string) bool { return models.Platform(v).Valid() },
			"difficulty": func(v string) bool { return models.Difficulty(v).Valid() },
		},
		extra: func(g *models.PlatformGuide) gin.H {
			return gin.H{"platform_logo": media.PlatformLogo(g.Platform)}
		},
	}
}

type guideRequest struct {
	Platform          *string  `json:"platform"`
	Title             *string  `json:"title" binding:"omitempty,max=200"`
	Slug              *string  `json:"slug" binding:"omitempty,max=200"`
	Summary           *string  `json:"summary"`
	Body              *string  `json:"body"`
	Category          *string  `json:"category" binding:"omitempty,max=50"`
	Difficulty        *string  `json:"difficulty"`
	MonetizationNotes *string  `json:"monetization_notes"`
	Tags              []string `json:"tags"`
	Featured          *bool    `json:"featured"`
	Published         *bool    `json:"published"`
}

func applyGuide(req *guideRequest, g *models.PlatformGuide, creating bool) *apierrors.APIError {
	setString(&g.Title, req.Title)
	if err := requireTitle("title", g.Title, creating); err != nil {
		return err
	}
	if err := setEnum("platform", &g.Platform, req.Platform, models.Platform.Valid); err != nil {
		return err
	}
	if g.Platform == "" {
		return apierrors.ValidationError("platform", "platform is required")
	}
	if err := setEnum("difficulty", &g.Difficulty, req.Difficulty, models.Difficulty.Valid); err != nil {
		return err
	}
	if g.Difficulty == "" {
		g.Difficulty = models.DifficultyBeginner
	}
	setSlug(&g.Slug, req.Slug)
	setString(&g.Summary, req.Summary)
	setString(&g.Category, req.Category)
	setString(&g.MonetizationNotes, req.MonetizationNotes)
	if req.Body != nil {
		g.Body = *req.Body
	}
	setTags(&g.Tags, req.Tags)
	setBool(&g.Featured, req.Featured)
	setBool(&g.Published, req.Published)
	return nil
}

// ListGuides lists platform guides
// GET /api/v1/guides
func (h *Handlers) ListGuides(c *gin.Context) {
	listEntries(c, h.guideKind())
}

// GetGuide returns one guide by slug and counts the view
// GET /api/v1/guides/:slug
func (h *Handlers) GetGuide(c *gin.Context) {
	k := h.guideKind()
	guide, err := h.guides.GetBySlug(c.Request.Context(), c.Param("slug"), util.CanEdit(c))
	if util.HandleRepoError(c, err, k.resource) {
		return
	}
	if guide.Published {
		if err := h.guides.Increment(c.Request.Context(), guide.ID, "view_count"); err == nil {
			guide.ViewCount++
			metrics.Get().ContentViewsTotal.WithLabelValues(string(models.KindGuide)).Inc()
		}
	}
	k.respondEntry(c, guide)
}

// GetGuideByID returns one guide by id
// GET /api/v1/guides/by-id/:id
func (h *Handlers) GetGuideByID(c *gin.Context) {
	getEntryByID(c, h.guideKind())
}

// GuideCategories lists guide categories with counts
// GET /api/v1/guides/categories
func (h *Handlers) GuideCategories(c *gin.Context) {
	listCategories(c, h.guideKind())
}

// CreateGuide adds a platform guide
// POST /api/v1/editor/guides
func (h *Handlers) CreateGuide(c *gin.Context) {
	createEntry(h, c, h.guideKind(), applyGuide, nil)
}

// UpdateGuide applies a partial update
// PATCH /api/v1/editor/guides/:id
func (h *Handlers) UpdateGuide(c *gin.Context) {
	updateEntry(h, c, h.guideKind(), applyGuide)
}

// DeleteGuide soft-deletes a guide
// DELETE /api/v1/editor/guides/:id
func (h *Handlers) DeleteGuide(c *gin.Context) {
	deleteEntry(h, c, h.guideKind())
}
