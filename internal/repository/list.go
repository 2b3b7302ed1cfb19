package repository

import (
	"strings"

	"github.com/contentanonymity/backend/internal/models"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Sort orders understood by catalog listings
const (
	SortNewest  = "newest"
	SortOldest  = "oldest"
	SortPopular = "popular"
	SortTitle   = "title"
)

// ListOptions filters, sorts and slices a catalog listing
type ListOptions struct {
	Category  string
	Tag       string
	Featured  *bool
	Query     string
	Fields    map[string]string // enum filters such as pricing or platform
	Sort      string
	Limit     int
	Offset    int
	ExcludeID string

	// IncludeUnpublished is set for editors and admins
	IncludeUnpublished bool
}

// Normalize clamps paging and resolves unknown sorts to newest. A zero
// Limit means DefaultLimit.
func (o *ListOptions) Normalize() {
	switch {
	case o.Limit <= 0:
		o.Limit = DefaultLimit
	case o.Limit > MaxLimit:
		o.Limit = MaxLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	switch o.Sort {
	case SortNewest, SortOldest, SortPopular, SortTitle:
	default:
		o.Sort = SortNewest
	}
}

// likePattern escapes LIKE wildcards in user input
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(strings.TrimSpace(q))) + "%"
}

func whereTag(db *gorm.DB, column, tag string) *gorm.DB {
	return db.Where(column+" LIKE ?", models.TagPattern(tag))
}
