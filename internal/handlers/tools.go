package handlers

import (
	apierrors "github.com/contentanonymity/backend/internal/errors"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/search"
	"github.com/gin-gonic/gin"
)

func (h *Handlers) toolKind() catalogKind[models.Tool] {
	return catalogKind[models.Tool]{
		kind:     models.KindTool,
		resource: "tool",
		repo:     h.tools,
		id:       func(t *models.Tool) string { return t.ID },
		slug:     func(t *models.Tool) *string { return &t.Slug },
		title:    func(t *models.Tool) string { return t.Name },
		doc:      search.ToolDoc,
		filters: map[string]func(string) bool{
			"pricing": func(v string) bool { return models.Pricing(v).Valid() },
		},
	}
}

type toolRequest struct {
	Name         *string  `json:"name" binding:"omitempty,max=120"`
	Slug         *string  `json:"slug" binding:"omitempty,max=120"`
	Description  *string  `json:"description"`
	Category     *string  `json:"category" binding:"omitempty,max=50"`
	Pricing      *string  `json:"pricing"`
	WebsiteURL   *string  `json:"website_url" binding:"omitempty,max=500"`
	AffiliateURL *string  `json:"affiliate_url" binding:"omitempty,max=500"`
	LogoURL      *string  `json:"logo_url" binding:"omitempty,max=500"`
	Rating       *float64 `json:"rating"`
	Features     []string `json:"features"`
	Tags         []string `json:"tags"`
	Featured     *bool    `json:"featured"`
	Published    *bool    `json:"published"`
}

func applyTool(req *toolRequest, t *models.Tool, creating bool) *apierrors.APIError {
	setString(&t.Name, req.Name)
	if err := requireTitle("name", t.Name, creating); err != nil {
		return err
	}
	setSlug(&t.Slug, req.Slug)
	setString(&t.Description, req.Description)
	setString(&t.Category, req.Category)
	if err := setEnum("pricing", &t.Pricing, req.Pricing, models.Pricing.Valid); err != nil {
		return err
	}
	if t.Pricing == "" {
		t.Pricing = models.PricingFree
	}
	setString(&t.WebsiteURL, req.WebsiteURL)
	setString(&t.AffiliateURL, req.AffiliateURL)
	setString(&t.LogoURL, req.LogoURL)
	if req.Rating != nil {
		if *req.Rating < 0 || *req.Rating > 5 {
			return apierrors.ValidationError("rating", "rating must be between 0 and 5")
		}
		t.Rating = *req.Rating
	}
	setList(&t.Features, req.Features)
	setTags(&t.Tags, req.Tags)
	setBool(&t.Featured, req.Featured)
	setBool(&t.Published, req.Published)
	return nil
}

// ListTools lists the tool directory
// GET /api/v1/tools
func (h *Handlers) ListTools(c *gin.Context) {
	listEntries(c, h.toolKind())
}

// GetTool returns one tool by slug
// GET /api/v1/tools/:slug
func (h *Handlers) GetTool(c *gin.Context) {
	getEntryBySlug(c, h.toolKind())
}

// GetToolByID returns one tool by id
// GET /api/v1/tools/by-id/:id
func (h *Handlers) GetToolByID(c *gin.Context) {
	getEntryByID(c, h.toolKind())
}

// ToolCategories lists tool categories with counts
// GET /api/v1/tools/categories
func (h *Handlers) ToolCategories(c *gin.Context) {
	listCategories(c, h.toolKind())
}

// CreateTool adds a directory entry
// POST /api/v1/editor/tools
func (h *Handlers) CreateTool(c *gin.Context) {
	createEntry(h, c, h.toolKind(), applyTool, nil)
}

// UpdateTool applies a partial update
// PATCH /api/v1/editor/tools/:id
func (h *Handlers) UpdateTool(c *gin.Context) {
	updateEntry(h, c, h.toolKind(), applyTool)
}

// DeleteTool soft-deletes a tool
// DELETE /api/v1/editor/tools/:id
func (h *Handlers) DeleteTool(c *gin.Context) {
	deleteEntry(h, c, h.toolKind())
}
