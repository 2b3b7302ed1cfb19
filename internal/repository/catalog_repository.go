package repository

import (
	"context"
	"fmt"

	"github.com/contentanonymity/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogEntry is satisfied by the published catalog entities
type CatalogEntry interface {
	models.Article | models.Tool | models.Template | models.PlatformGuide | models.Niche | models.LearningPath
}

// CatalogRepository handles listing and editing of one catalog entity
type CatalogRepository[T CatalogEntry] interface {
	List(ctx context.Context, opts ListOptions) ([]T, int64, error)
	GetBySlug(ctx context.Context, slug string, includeUnpublished bool) (*T, error)
	GetByID(ctx context.Context, id string, includeUnpublished bool) (*T, error)
	GetBySlugs(ctx context.Context, slugs []string) ([]T, error)
	Categories(ctx context.Context, includeUnpublished bool) ([]models.CategoryCount, error)

	Create(ctx context.Context, entry *T) error
	Save(ctx context.Context, entry *T) error
	Delete(ctx context.Context, id string) error
	Increment(ctx context.Context, id, column string) error
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)

	Count(ctx context.Context) (int64, error)
	Each(ctx context.Context, batchSize int, fn func([]T) error) error
}

// CatalogSchema names the columns that differ between catalog tables
type CatalogSchema struct {
	TitleColumn   string
	PopularColumn string
	// FilterColumns are the enum columns a listing may filter on
	FilterColumns []string
	// CountColumns may be incremented through Increment
	CountColumns []string
}

var (
	ArticleSchema = CatalogSchema{
		TitleColumn:   "title",
		PopularColumn: "view_count",
		CountColumns:  []string{"view_count", "like_count"},
	}
	ToolSchema = CatalogSchema{
		TitleColumn:   "name",
		PopularColumn: "rating",
		FilterColumns: []string{"pricing"},
	}
	TemplateSchema = CatalogSchema{
		TitleColumn:   "title",
		PopularColumn: "download_count",
		FilterColumns: []string{"format"},
		CountColumns:  []string{"download_count"},
	}
	GuideSchema = CatalogSchema{
		TitleColumn:   "title",
		PopularColumn: "view_count",
		FilterColumns: []string{"platform", "difficulty"},
		CountColumns:  []string{"view_count"},
	}
	NicheSchema = CatalogSchema{
		TitleColumn:   "name",
		PopularColumn: "monetization_potential",
		FilterColumns: []string{"competition"},
	}
	PathSchema = CatalogSchema{
		TitleColumn:   "title",
		PopularColumn: "estimated_hours",
		FilterColumns: []string{"level"},
	}
)

type catalogRepository[T CatalogEntry] struct {
	db     *gorm.DB
	schema CatalogSchema
}

// NewCatalogRepository creates a repository for one catalog table
func NewCatalogRepository[T CatalogEntry](db *gorm.DB, schema CatalogSchema) CatalogRepository[T] {
	return &catalogRepository[T]{db: db, schema: schema}
}

func (r *catalogRepository[T]) model() *T {
	return new(T)
}

func (r *catalogRepository[T]) scoped(ctx context.Context, includeUnpublished bool) *gorm.DB {
	q := r.db.WithContext(ctx).Model(r.model())
	if !includeUnpublished {
		q = q.Where("published = ?", true)
	}
	return q
}

func (r *catalogRepository[T]) List(ctx context.Context, opts ListOptions) ([]T, int64, error) {
	opts.Normalize()

	q := r.scoped(ctx, opts.IncludeUnpublished)
	if opts.Category != "" {
		q = q.Where("LOWER(category) = LOWER(?)", opts.Category)
	}
	if opts.Tag != "" {
		q = whereTag(q, "tags", opts.Tag)
	}
	if opts.Featured != nil {
		q = q.Where("featured = ?", *opts.Featured)
	}
	if opts.Query != "" {
		q = q.Where(fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '\\'", r.schema.TitleColumn), likePattern(opts.Query))
	}
	if opts.ExcludeID != "" {
		q = q.Where("id <> ?", opts.ExcludeID)
	}
	for _, col := range r.schema.FilterColumns {
		if v, ok := opts.Fields[col]; ok && v != "" {
			q = q.Where(col+" = ?", v)
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting: %w", err)
	}

	var items []T
	err := q.Order(r.order(opts.Sort)).
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing: %w", err)
	}
	return items, total, nil
}

func (r *catalogRepository[T]) order(sort string) clause.OrderBy {
	cols := []clause.OrderByColumn{}
	switch sort {
	case SortOldest:
		cols = append(cols, clause.OrderByColumn{Column: clause.Column{Name: "created_at"}})
	case SortPopular:
		cols = append(cols,
			clause.OrderByColumn{Column: clause.Column{Name: r.schema.PopularColumn}, Desc: true},
			clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true})
	case SortTitle:
		cols = append(cols, clause.OrderByColumn{Column: clause.Column{Name: r.schema.TitleColumn}})
	default:
		cols = append(cols, clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true})
	}
	// id keeps paging stable when timestamps collide
	cols = append(cols, clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	return clause.OrderBy{Columns: cols}
}

func (r *catalogRepository[T]) first(q *gorm.DB) (*T, error) {
	var entry T
	if err := q.First(&entry).Error; err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (r *catalogRepository[T]) GetBySlug(ctx context.Context, slug string, includeUnpublished bool) (*T, error) {
	return r.first(r.scoped(ctx, includeUnpublished).Where("slug = ?", slug))
}

func (r *catalogRepository[T]) GetByID(ctx context.Context, id string, includeUnpublished bool) (*T, error) {
	return r.first(r.scoped(ctx, includeUnpublished).Where("id = ?", id))
}

// GetBySlugs returns published entries in the order the slugs were given
func (r *catalogRepository[T]) GetBySlugs(ctx context.Context, slugs []string) ([]T, error) {
	if len(slugs) == 0 {
		return []T{}, nil
	}
	var found []T
	if err := r.scoped(ctx, false).Where("slug IN ?", slugs).Find(&found).Error; err != nil {
		return nil, err
	}

	bySlug := make(map[string]T, len(found))
	for _, e := range found {
		bySlug[slugOf(&e)] = e
	}
	out := make([]T, 0, len(found))
	for _, s := range slugs {
		if e, ok := bySlug[s]; ok {
			out = append(out, e)
			delete(bySlug, s)
		}
	}
	return out, nil
}

func (r *catalogRepository[T]) Categories(ctx context.Context, includeUnpublished bool) ([]models.CategoryCount, error) {
	var out []models.CategoryCount
	err := r.scoped(ctx, includeUnpublished).
		Select("category, COUNT(*) AS count").
		Where("category <> ''").
		Group("category").
		Order("count DESC, category").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.CategoryCount{}
	}
	return out, nil
}

func (r *catalogRepository[T]) Create(ctx context.Context, entry *T) error {
	if entry == nil {
		return ErrInvalidInput
	}
	return translate(r.db.WithContext(ctx).Create(entry).Error)
}

func (r *catalogRepository[T]) Save(ctx context.Context, entry *T) error {
	if entry == nil {
		return ErrInvalidInput
	}
	return translate(r.db.WithContext(ctx).Save(entry).Error)
}

func (r *catalogRepository[T]) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(r.model())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *catalogRepository[T]) Increment(ctx context.Context, id, column string) error {
	allowed := false
	for _, c := range r.schema.CountColumns {
		if c == column {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: column %s is not a counter", ErrInvalidInput, column)
	}

	res := r.db.WithContext(ctx).Model(r.model()).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SlugExists includes soft-deleted rows since the unique index does too
func (r *catalogRepository[T]) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	q := r.db.WithContext(ctx).Unscoped().Model(r.model()).Where("slug = ?", slug)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *catalogRepository[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(r.model()).Count(&n).Error
	return n, err
}

// Each walks every non-deleted row, published or not, in batches
func (r *catalogRepository[T]) Each(ctx context.Context, batchSize int, fn func([]T) error) error {
	if batchSize <= 0 {
		batchSize = 200
	}
	var batch []T
	res := r.db.WithContext(ctx).FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		return fn(batch)
	})
	return res.Error
}

func slugOf(v interface{}) string {
	switch e := v.(type) {
	case *models.Article:
		return e.Slug
	case *models.Tool:
		return e.Slug
	case *models.Template:
		return e.Slug
	case *models.PlatformGuide:
		return e.Slug
	case *models.Niche:
		return e.Slug
	case *models.LearningPath:
		return e.Slug
	}
	return ""
}
