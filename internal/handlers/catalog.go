package handlers

import (
	"net/http"
	"strings"

	apierrors "github.com/contentanonymity/backend/internal/errors"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/metrics"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/repository"
	"github.com/contentanonymity/backend/internal/search"
	"github.com/contentanonymity/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// catalogKind binds one catalog entity to its repository, its search
// document and the enum filters its listing accepts
type catalogKind[T repository.CatalogEntry] struct {
	kind     models.ContentKind
	resource string
	repo     repository.CatalogRepository[T]

	id    func(*T) string
	slug  func(*T) *string
	title func(*T) string
	// doc is nil for kinds that are not in the search index
	doc func(*T) search.Document
	// filters maps query parameter to validator
	filters map[string]func(string) bool
	// extra adds keys to the single-entry response
	extra func(*T) gin.H
}

func (k catalogKind[T]) listOptions(c *gin.Context) (repository.ListOptions, *apierrors.APIError) {
	limit, offset := util.PageParams(c)
	opts := repository.ListOptions{
		Category:           strings.TrimSpace(c.Query("category")),
		Tag:                strings.TrimSpace(c.Query("tag")),
		Featured:           util.ParseBoolPtr(c.Query("featured")),
		Query:              strings.TrimSpace(c.Query("q")),
		Sort:               c.Query("sort"),
		Limit:              limit,
		Offset:             offset,
		IncludeUnpublished: util.CanEdit(c),
	}
	for param, valid := range k.filters {
		v := strings.ToLower(strings.TrimSpace(c.Query(param)))
		if v == "" {
			continue
		}
		if !valid(v) {
			return opts, apierrors.ValidationError(param, "unknown "+param+" "+v)
		}
		if opts.Fields == nil {
			opts.Fields = map[string]string{}
		}
		opts.Fields[param] = v
	}
	opts.Normalize()
	return opts, nil
}

func listEntries[T repository.CatalogEntry](c *gin.Context, k catalogKind[T]) {
	opts, apiErr := k.listOptions(c)
	if apiErr != nil {
		util.RespondWithAPIError(c, apiErr)
		return
	}

	items, total, err := k.repo.List(c.Request.Context(), opts)
	if util.HandleRepoError(c, err, k.resource) {
		return
	}
	c.JSON(http.StatusOK, util.ListResponse(items, total, opts.Limit, opts.Offset))
}

func (k catalogKind[T]) respondEntry(c *gin.Context, entry *T) {
	body := gin.H{k.resource: entry}
	if k.extra != nil {
		for key, v := range k.extra(entry) {
			body[key] = v
		}
	}
	c.JSON(http.StatusOK, body)
}

func getEntryBySlug[T repository.CatalogEntry](c *gin.Context, k catalogKind[T]) {
	entry, err := k.repo.GetBySlug(c.Request.Context(), c.Param("slug"), util.CanEdit(c))
	if util.HandleRepoError(c, err, k.resource) {
		return
	}
	k.respondEntry(c, entry)
}

func getEntryByID[T repository.CatalogEntry](c *gin.Context, k catalogKind[T]) {
	entry, err := k.repo.GetByID(c.Request.Context(), c.Param("id"), util.CanEdit(c))
	if util.HandleRepoError(c, err, k.resource) {
		return
	}
	k.respondEntry(c, entry)
}

func listCategories[T repository.CatalogEntry](c *gin.Context, k catalogKind[T]) {
	cats, err := k.repo.Categories(c.Request.Context(), util.CanEdit(c))
	if util.HandleRepoError(c, err, k.resource) {
		return
	}
	if cats == nil {
		cats = []models.CategoryCount{}
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

// createEntry binds R, applies it to a new T (creating is true so required
// fields are enforced) and stores it
func createEntry[R any, T repository.CatalogEntry](h *Handlers, c *gin.Context, k catalogKind[T], apply func(req *R, entry *T, creating bool) *apierrors.APIError, init func(*T, *models.User)) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req R
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid_request", err.Error())
		return
	}

	entry := new(T)
	if init != nil {
		init(entry, user)
	}
	if apiErr := apply(&req, entry, true); apiErr != nil {
		util.RespondWithAPIError(c, apiErr)
		return
	}
	if !checkSlug(c, k, entry) {
		return
	}

	if err := k.repo.Create(c.Request.Context(), entry); util.HandleRepoError(c, err, k.resource) {
		return
	}
	afterWrite(h, c, k, entry, "create")

	logger.Log.Info("Catalog entry created",
		logger.WithContentID(string(k.kind), k.id(entry)),
		logger.WithSlug(*k.slug(entry)),
		logger.WithUserID(user.ID))
	c.JSON(http.StatusCreated, gin.H{k.resource: entry})
}

func updateEntry[R any, T repository.CatalogEntry](h *Handlers, c *gin.Context, k catalogKind[T], apply func(req *R, entry *T, creating bool) *apierrors.APIError) {
	ctx := c.Request.Context()
	entry, err := k.repo.GetByID(ctx, c.Param("id"), true)
	if util.HandleRepoError(c, err, k.resource) {
		return
	}

	var req R
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid_request", err.Error())
		return
	}
	if apiErr := apply(&req, entry, false); apiErr != nil {
		util.RespondWithAPIError(c, apiErr)
		return
	}
	if !checkSlug(c, k, entry) {
		return
	}

	if err := k.repo.Save(ctx, entry); util.HandleRepoError(c, err, k.resource) {
		return
	}
	afterWrite(h, c, k, entry, "update")
	c.JSON(http.StatusOK, gin.H{k.resource: entry})
}

func deleteEntry[T repository.CatalogEntry](h *Handlers, c *gin.Context, k catalogKind[T]) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if err := k.repo.Delete(ctx, id); util.HandleRepoError(c, err, k.resource) {
		return
	}

	if k.doc != nil {
		h.unindex(ctx, k.kind, id)
	}
	h.invalidate(ctx, cacheGroupCatalog, cacheGroupLearning)
	metrics.Get().ContentMutationsTotal.WithLabelValues(string(k.kind), "delete").Inc()

	logger.Log.Info("Catalog entry deleted", logger.WithContentID(string(k.kind), id))
	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": id})
}

// checkSlug derives a missing slug from the title and rejects slugs another
// row already uses
func checkSlug[T repository.CatalogEntry](c *gin.Context, k catalogKind[T], entry *T) bool {
	slug := k.slug(entry)
	if *slug == "" {
		*slug = util.Slugify(k.title(entry))
	}
	if *slug == "" {
		util.RespondValidationError(c, "slug", "slug must contain letters or digits")
		return false
	}

	taken, err := k.repo.SlugExists(c.Request.Context(), *slug, k.id(entry))
	if util.HandleRepoError(c, err, k.resource) {
		return false
	}
	if taken {
		util.RespondWithAPIError(c, apierrors.Conflict(k.resource).WithDetails("slug "+*slug+" is taken"))
		return false
	}
	return true
}

// afterWrite re-indexes the entry and drops cached listings
func afterWrite[T repository.CatalogEntry](h *Handlers, c *gin.Context, k catalogKind[T], entry *T, operation string) {
	ctx := c.Request.Context()
	if k.doc != nil {
		h.Sync(ctx, k.doc(entry))
	}
	h.invalidate(ctx, cacheGroupCatalog, cacheGroupLearning)
	metrics.Get().ContentMutationsTotal.WithLabelValues(string(k.kind), operation).Inc()
}

// increment bumps a counter column on a published entry looked up by slug
func increment[T repository.CatalogEntry](c *gin.Context, k catalogKind[T], column string) (*T, bool) {
	ctx := c.Request.Context()
	entry, err := k.repo.GetBySlug(ctx, c.Param("slug"), false)
	if util.HandleRepoError(c, err, k.resource) {
		return nil, false
	}
	if err := k.repo.Increment(ctx, k.id(entry), column); err != nil {
		logger.Log.Warn("Failed to increment counter",
			logger.WithContentID(string(k.kind), k.id(entry)),
			zap.String("column", column),
			zap.Error(err))
		util.RespondWithError(c, err, k.resource)
		return nil, false
	}
	return entry, true
}

// Field helpers shared by the catalog request types

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setTags(dst *models.StringArray, v []string) {
	if v != nil {
		*dst = models.NormalizeTags(v)
	}
}

func setList(dst *models.StringArray, v []string) {
	if v == nil {
		return
	}
	out := models.StringArray{}
	for _, item := range v {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setSlug(dst *string, v *string) {
	if v != nil {
		*dst = util.Slugify(*v)
	}
}

// setEnum lowercases and validates an enum field
func setEnum[E ~string](field string, dst *E, v *string, valid func(E) bool) *apierrors.APIError {
	if v == nil {
		return nil
	}
	e := E(strings.ToLower(strings.TrimSpace(*v)))
	if !valid(e) {
		return apierrors.ValidationError(field, "invalid "+field+" "+string(e))
	}
	*dst = e
	return nil
}

func requireTitle(field string, title string, creating bool) *apierrors.APIError {
	if creating && strings.TrimSpace(title) == "" {
		return apierrors.ValidationError(field, field+" is required")
	}
	if !creating && title == "" {
		return apierrors.ValidationError(field, field+" cannot be empty")
	}
	return nil
}
