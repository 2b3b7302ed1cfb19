package handlers

import (
	"net/http"

	apierrors "github.com/contentanonymity/backend/internal/errors"
	"github.com/contentanonymity/backend/internal/gamification"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/media"
	"github.com/contentanonymity/backend/internal/metrics"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/repository"
	"github.com/contentanonymity/backend/internal/search"
	"github.com/contentanonymity/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultRelatedLimit  = 3
	defaultFeaturedLimit = 6
)

func (h *Handlers) articleKind() catalogKind[models.Article] {
	return catalogKind[models.Article]{
		kind:     models.KindArticle,
		resource: "article",
		repo:     h.articles,
		id:       func(a *models.Article) string { return a.ID },
		slug:     func(a *models.Article) *string { return &a.Slug },
		title:    func(a *models.Article) string { return a.Title },
		doc:      search.ArticleDoc,
	}
}

type articleRequest struct {
	Title         *string  `json:"title" binding:"omitempty,max=200"`
	Slug          *string  `json:"slug" binding:"omitempty,max=200"`
	Excerpt       *string  `json:"excerpt" binding:"omitempty,max=500"`
	Body          *string  `json:"body"`
	CoverImageURL *string  `json:"cover_image_url" binding:"omitempty,max=500"`
	Category      *string  `json:"category" binding:"omitempty,max=50"`
	Tags          []string `json:"tags"`
	Featured      *bool    `json:"featured"`
	Published     *bool    `json:"published"`
}

func (h *Handlers) applyArticle(req *articleRequest, a *models.Article, creating bool) *apierrors.APIError {
	setString(&a.Title, req.Title)
	if err := requireTitle("title", a.Title, creating); err != nil {
		return err
	}
	setSlug(&a.Slug, req.Slug)
	setString(&a.Excerpt, req.Excerpt)
	setString(&a.CoverImageURL, req.CoverImageURL)
	setString(&a.Category, req.Category)
	setTags(&a.Tags, req.Tags)
	setBool(&a.Featured, req.Featured)
	if req.Body != nil {
		a.Body = *req.Body
	}
	a.ReadingMinutes = models.ReadingMinutes(a.Body)

	if req.Published != nil {
		if *req.Published {
			a.Publish(h.now())
		} else {
			a.Published = false
		}
	}
	if a.CoverImageURL == "" {
		a.CoverImageURL = media.CoverFor(models.KindArticle, a.Category)
	}
	return nil
}

// ListArticles lists published articles
// GET /api/v1/articles
func (h *Handlers) ListArticles(c *gin.Context) {
	listEntries(c, h.articleKind())
}

// GetArticle returns one article by slug
// GET /api/v1/articles/:slug
func (h *Handlers) GetArticle(c *gin.Context) {
	getEntryBySlug(c, h.articleKind())
}

// GetArticleByID returns one article by id
// GET /api/v1/articles/by-id/:id
func (h *Handlers) GetArticleByID(c *gin.Context) {
	getEntryByID(c, h.articleKind())
}

// ArticleCategories lists article categories with counts
// GET /api/v1/articles/categories
func (h *Handlers) ArticleCategories(c *gin.Context) {
	listCategories(c, h.articleKind())
}

// FeaturedArticles returns the newest featured articles
// GET /api/v1/articles/featured
func (h *Handlers) FeaturedArticles(c *gin.Context) {
	featured := true
	items, _, err := h.articles.List(c.Request.Context(), repository.ListOptions{
		Featured: &featured,
		Sort:     repository.SortNewest,
		Limit:    util.ParseInt(c.Query("limit"), defaultFeaturedLimit),
	})
	if util.HandleRepoError(c, err, "article") {
		return
	}
	if items == nil {
		items = []models.Article{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// RelatedArticles returns newer articles from the same category
// GET /api/v1/articles/:slug/related
func (h *Handlers) RelatedArticles(c *gin.Context) {
	ctx := c.Request.Context()
	article, err := h.articles.GetBySlug(ctx, c.Param("slug"), false)
	if util.HandleRepoError(c, err, "article") {
		return
	}

	items := []models.Article{}
	if article.Category != "" {
		items, _, err = h.articles.List(ctx, repository.ListOptions{
			Category:  article.Category,
			ExcludeID: article.ID,
			Sort:      repository.SortNewest,
			Limit:     util.ParseInt(c.Query("limit"), defaultRelatedLimit),
		})
		if util.HandleRepoError(c, err, "article") {
			return
		}
	}
	if items == nil {
		items = []models.Article{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// RecordArticleView counts a view; signed-in readers earn article_read once
// per article
// POST /api/v1/articles/:slug/view
func (h *Handlers) RecordArticleView(c *gin.Context) {
	article, ok := increment(c, h.articleKind(), "view_count")
	if !ok {
		return
	}
	metrics.Get().ContentViewsTotal.WithLabelValues(string(models.KindArticle)).Inc()

	resp := gin.H{"view_count": article.ViewCount + 1}
	if user := util.OptionalUser(c); user != nil {
		if result := h.award(c.Request.Context(), user.ID, gamification.ActionArticleRead, article.ID); result != nil {
			resp["award"] = result
		}
	}
	c.JSON(http.StatusOK, resp)
}

// LikeArticle adds a like; repeat likes by the same member count once
// POST /api/v1/articles/:slug/like
func (h *Handlers) LikeArticle(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	article, err := h.articles.GetBySlug(ctx, c.Param("slug"), false)
	if util.HandleRepoError(c, err, "article") {
		return
	}

	// the point ledger doubles as the per-member like record
	result := h.award(ctx, user.ID, gamification.ActionArticleLike, article.ID)
	if result != nil && !result.Awarded {
		c.JSON(http.StatusOK, gin.H{"liked": true, "like_count": article.LikeCount, "already_liked": true})
		return
	}

	if err := h.articles.Increment(ctx, article.ID, "like_count"); err != nil {
		logger.Log.Warn("Failed to record like", logger.WithContentID("article", article.ID), zap.Error(err))
		util.RespondWithError(c, err, "article")
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": true, "like_count": article.LikeCount + 1, "award": result})
}

// CreateArticle creates an article
// POST /api/v1/editor/articles
func (h *Handlers) CreateArticle(c *gin.Context) {
	createEntry(h, c, h.articleKind(), h.applyArticle, func(a *models.Article, user *models.User) {
		a.AuthorID = &user.ID
	})
}

// UpdateArticle applies a partial update
// PATCH /api/v1/editor/articles/:id
func (h *Handlers) UpdateArticle(c *gin.Context) {
	updateEntry(h, c, h.articleKind(), h.applyArticle)
}

// DeleteArticle soft-deletes an article
// DELETE /api/v1/editor/articles/:id
func (h *Handlers) DeleteArticle(c *gin.Context) {
	deleteEntry(h, c, h.articleKind())
}
