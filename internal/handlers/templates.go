package handlers

import (
	"net/http"

	apierrors "github.com/contentanonymity/backend/internal/errors"
	"github.com/contentanonymity/backend/internal/gamification"
	"github.com/contentanonymity/backend/internal/media"
	"github.com/contentanonymity/backend/internal/metrics"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/search"
	"github.com/contentanonymity/backend/internal/util"
	"github.com/gin-gonic/gin"
)

func (h *Handlers) templateKind() catalogKind[models.Template] {
	return catalogKind[models.Template]{
		kind:     models.KindTemplate,
		resource: "template",
		repo:     h.templates,
		id:       func(t *models.Template) string { return t.ID },
		slug:     func(t *models.Template) *string { return &t.Slug },
		title:    func(t *models.Template) string { return t.Title },
		doc:      search.TemplateDoc,
		filters: map[string]func(string) bool{
			"format": func(v string) bool { return models.TemplateFormat(v).Valid() },
		},
	}
}

type templateRequest struct {
	Title       *string  `json:"title" binding:"omitempty,max=200"`
	Slug        *string  `json:"slug" binding:"omitempty,max=200"`
	Description *string  `json:"description"`
	Category    *string  `json:"category" binding:"omitempty,max=50"`
	Format      *string  `json:"format"`
	FileURL     *string  `json:"file_url" binding:"omitempty,max=500"`
	PreviewURL  *string  `json:"preview_url" binding:"omitempty,max=500"`
	Premium     *bool    `json:"premium"`
	Tags        []string `json:"tags"`
	Featured    *bool    `json:"featured"`
	Published   *bool    `json:"published"`
}

func applyTemplate(req *templateRequest, t *models.Template, creating bool) *apierrors.APIError {
	setString(&t.Title, req.Title)
	if err := requireTitle("title", t.Title, creating); err != nil {
		return err
	}
	setSlug(&t.Slug, req.Slug)
	setString(&t.Description, req.Description)
	setString(&t.Category, req.Category)
	if err := setEnum("format", &t.Format, req.Format, models.TemplateFormat.Valid); err != nil {
		return err
	}
	if t.Format == "" {
		t.Format = models.FormatOther
	}
	setString(&t.FileURL, req.FileURL)
	setString(&t.PreviewURL, req.PreviewURL)
	setBool(&t.Premium, req.Premium)
	setTags(&t.Tags, req.Tags)
	setBool(&t.Featured, req.Featured)
	setBool(&t.Published, req.Published)
	if t.PreviewURL == "" {
		t.PreviewURL = media.CoverFor(models.KindTemplate, t.Category)
	}
	return nil
}

// ListTemplates lists downloadable templates
// GET /api/v1/templates
func (h *Handlers) ListTemplates(c *gin.Context) {
	listEntries(c, h.templateKind())
}

// GetTemplate returns one template by slug
// GET /api/v1/templates/:slug
func (h *Handlers) GetTemplate(c *gin.Context) {
	getEntryBySlug(c, h.templateKind())
}

// GetTemplateByID returns one template by id
// GET /api/v1/templates/by-id/:id
func (h *Handlers) GetTemplateByID(c *gin.Context) {
	getEntryByID(c, h.templateKind())
}

// TemplateCategories lists template categories with counts
// GET /api/v1/templates/categories
func (h *Handlers) TemplateCategories(c *gin.Context) {
	listCategories(c, h.templateKind())
}

// DownloadTemplate counts a download and returns the file location.
// The template_download award is made once per member and template.
// POST /api/v1/templates/:slug/download
func (h *Handlers) DownloadTemplate(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	tpl, ok := increment(c, h.templateKind(), "download_count")
	if !ok {
		return
	}
	metrics.Get().DownloadsTotal.WithLabelValues(string(tpl.Format)).Inc()

	c.JSON(http.StatusOK, gin.H{
		"file_url":       tpl.FileURL,
		"download_count": tpl.DownloadCount + 1,
		"award":          h.award(c.Request.Context(), user.ID, gamification.ActionTemplateDownload, tpl.ID),
	})
}

// CreateTemplate adds a template
// POST /api/v1/editor/templates
func (h *Handlers) CreateTemplate(c *gin.Context) {
	createEntry(h, c, h.templateKind(), applyTemplate, nil)
}

// UpdateTemplate applies a partial update
// PATCH /api/v1/editor/templates/:id
func (h *Handlers) UpdateTemplate(c *gin.Context) {
	updateEntry(h, c, h.templateKind(), applyTemplate)
}

// DeleteTemplate soft-deletes a template
// DELETE /api/v1/editor/templates/:id
func (h *Handlers) DeleteTemplate(c *gin.Context) {
	deleteEntry(h, c, h.templateKind())
}
