package handlers

import (
	"net/http"
	"strings"

	apierrors "github.com/contentanonymity/backend/internal/errors"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/search"
	"github.com/contentanonymity/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// MaxCompareNiches caps a side-by-side comparison
const MaxCompareNiches = 4

func (h *Handlers) nicheKind() catalogKind[models.Niche] {
	return catalogKind[models.Niche]{
		kind:     models.KindNiche,
		resource: "niche",
		repo:     h.niches,
		id:       func(n *models.Niche) string { return n.ID },
		slug:     func(n *models.Niche) *string { return &n.Slug },
		title:    func(n *models.Niche) string { return n.Name },
		doc:      search.NicheDoc,
		filters: map[string]func(string) bool{
			"competition": func(v string) bool { return models.Competition(v).Valid() },
		},
	}
}

type nicheRequest struct {
	Name                  *string  `json:"name" binding:"omitempty,max=120"`
	Slug                  *string  `json:"slug" binding:"omitempty,max=120"`
	Description           *string  `json:"description"`
	Category              *string  `json:"category" binding:"omitempty,max=50"`
	Competition           *string  `json:"competition"`
	MonetizationPotential *int     `json:"monetization_potential"`
	CPMLow                *float64 `json:"cpm_low"`
	CPMHigh               *float64 `json:"cpm_high"`
	FacelessFriendly      *bool    `json:"faceless_friendly"`
	ExampleChannels       []string `json:"example_channels"`
	Tags                  []string `json:"tags"`
	Featured              *bool    `json:"featured"`
	Published             *bool    `json:"published"`
}

func applyNiche(req *nicheRequest, n *models.Niche, creating bool) *apierrors.APIError {
	if creating {
		n.Competition = models.CompetitionMedium
		n.MonetizationPotential = 5
		n.FacelessFriendly = true
	}

	setString(&n.Name, req.Name)
	if err := requireTitle("name", n.Name, creating); err != nil {
		return err
	}
	setSlug(&n.Slug, req.Slug)
	setString(&n.Description, req.Description)
	setString(&n.Category, req.Category)
	if err := setEnum("competition", &n.Competition, req.Competition, models.Competition.Valid); err != nil {
		return err
	}
	if req.MonetizationPotential != nil {
		if *req.MonetizationPotential < 1 || *req.MonetizationPotential > 10 {
			return apierrors.ValidationError("monetization_potential", "monetization_potential must be between 1 and 10")
		}
		n.MonetizationPotential = *req.MonetizationPotential
	}
	if req.CPMLow != nil {
		n.CPMLow = *req.CPMLow
	}
	if req.CPMHigh != nil {
		n.CPMHigh = *req.CPMHigh
	}
	if n.CPMLow < 0 || n.CPMHigh < 0 {
		return apierrors.ValidationError("cpm_low", "CPM cannot be negative")
	}
	if n.CPMHigh > 0 && n.CPMLow > n.CPMHigh {
		return apierrors.ValidationError("cpm_high", "cpm_high must not be below cpm_low")
	}
	setBool(&n.FacelessFriendly, req.FacelessFriendly)
	setList(&n.ExampleChannels, req.ExampleChannels)
	setTags(&n.Tags, req.Tags)
	setBool(&n.Featured, req.Featured)
	setBool(&n.Published, req.Published)
	return nil
}

// ListNiches lists the niche database
// GET /api/v1/niches
func (h *Handlers) ListNiches(c *gin.Context) {
	listEntries(c, h.nicheKind())
}

// GetNiche returns one niche by slug
// GET /api/v1/niches/:slug
func (h *Handlers) GetNiche(c *gin.Context) {
	getEntryBySlug(c, h.nicheKind())
}

// GetNicheByID returns one niche by id
// GET /api/v1/niches/by-id/:id
func (h *Handlers) GetNicheByID(c *gin.Context) {
	getEntryByID(c, h.nicheKind())
}

// NicheCategories lists niche categories with counts
// GET /api/v1/niches/categories
func (h *Handlers) NicheCategories(c *gin.Context) {
	listCategories(c, h.nicheKind())
}

// CompareNiches returns up to four published niches side by side, in the
// order requested. Unknown slugs are reported in missing.
// GET /api/v1/niches/compare?slugs=a,b,c
func (h *Handlers) CompareNiches(c *gin.Context) {
	var slugs []string
	seen := map[string]bool{}
	for _, s := range util.ParseList(c.Query("slugs")) {
		s = strings.ToLower(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		slugs = append(slugs, s)
	}
	if len(slugs) == 0 {
		util.RespondValidationError(c, "slugs", "at least one slug is required")
		return
	}
	if len(slugs) > MaxCompareNiches {
		slugs = slugs[:MaxCompareNiches]
	}

	niches, err := h.niches.GetBySlugs(c.Request.Context(), slugs)
	if util.HandleRepoError(c, err, "niche") {
		return
	}

	found := map[string]bool{}
	for _, n := range niches {
		found[n.Slug] = true
	}
	missing := []string{}
	for _, s := range slugs {
		if !found[s] {
			missing = append(missing, s)
		}
	}

	c.JSON(http.StatusOK, gin.H{"items": niches, "count": len(niches), "missing": missing})
}

// CreateNiche adds a niche
// POST /api/v1/editor/niches
func (h *Handlers) CreateNiche(c *gin.Context) {
	createEntry(h, c, h.nicheKind(), applyNiche, nil)
}

// UpdateNiche applies a partial update
// PATCH /api/v1/editor/niches/:id
func (h *Handlers) UpdateNiche(c *gin.Context) {
	updateEntry(h, c, h.nicheKind(), applyNiche)
}

// DeleteNiche soft-deletes a niche
// DELETE /api/v1/editor/niches/:id
func (h *Handlers) DeleteNiche(c *gin.Context) {
	deleteEntry(h, c, h.nicheKind())
}
