package handlers

import (
	"net/http"

	apierrors "github.com/contentanonymity/backend/internal/errors"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/search"
	"github.com/contentanonymity/backend/internal/util"
	"github.com/gin-gonic/gin"
)

var searchKinds = map[models.ContentKind]bool{
	models.KindArticle:   true,
	models.KindTool:      true,
	models.KindTemplate:  true,
	models.KindGuide:     true,
	models.KindNiche:     true,
	models.KindForumPost: true,
}

// Search runs a full-text query across the catalog and the forum
// GET /api/v1/search?q=&kind=&limit=&offset=
func (h *Handlers) Search(c *gin.Context) {
	q := search.Query{
		Text:   c.Query("q"),
		Kind:   models.ContentKind(c.Query("kind")),
		Limit:  util.ParseInt(c.Query("limit"), 20),
		Offset: util.ParseInt(c.Query("offset"), 0),
	}
	if len(q.Text) > 200 {
		util.RespondValidationError(c, "q", "query is too long")
		return
	}
	if q.Kind != "" && !searchKinds[q.Kind] {
		util.RespondValidationError(c, "kind", "unknown content kind")
		return
	}
	if h.search == nil {
		util.RespondWithAPIError(c, apierrors.ServiceUnavailable("search"))
		return
	}

	result, err := h.search.Search(c.Request.Context(), q)
	if err != nil {
		util.RespondWithAPIError(c, apierrors.InternalError("search failed").WithDetails(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query":   q.Text,
		"kind":    q.Kind,
		"hits":    result.Hits,
		"count":   len(result.Hits),
		"total":   result.Total,
		"backend": result.Backend,
		"cached":  result.Cached,
	})
}
