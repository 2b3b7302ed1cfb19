package util

import (
	"github.com/contentanonymity/backend/internal/repository"
	"github.com/gin-gonic/gin"
)

// PageParams reads limit and offset from the query string. A missing or
// unparsable limit is the default; a given one is clamped to 1..MaxLimit.
func PageParams(c *gin.Context) (limit, offset int) {
	o := repository.ListOptions{
		Limit:  ParseInt(c.Query("limit"), repository.DefaultLimit),
		Offset: ParseInt(c.Query("offset"), 0),
	}
	if o.Limit < 1 {
		o.Limit = 1
	}
	o.Normalize()
	return o.Limit, o.Offset
}

// ListResponse is the envelope for every paginated listing
func ListResponse[T any](items []T, total int64, limit, offset int) gin.H {
	if items == nil {
		items = []T{}
	}
	return gin.H{
		"items":  items,
		"count":  len(items),
		"total":  total,
		"limit":  limit,
		"offset": offset,
	}
}
