package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/repository"
)

// Backend names reported in results and metrics
const (
	BackendElasticsearch = "elasticsearch"
	BackendDatabase      = "database"
)

// Sources are the tables that feed the content index. Nil repositories are
// skipped.
type Sources struct {
	Articles  repository.CatalogRepository[models.Article]
	Tools     repository.CatalogRepository[models.Tool]
	Templates repository.CatalogRepository[models.Template]
	Guides    repository.CatalogRepository[models.PlatformGuide]
	Niches    repository.CatalogRepository[models.Niche]
	Forum     repository.ForumRepository
}

// DBSearcher is the fallback used when Elasticsearch is unavailable. It
// matches a substring of the title or name in each table.
type DBSearcher struct {
	Sources
}

func NewDBSearcher(src Sources) *DBSearcher {
	return &DBSearcher{Sources: src}
}

// Search queries each requested kind and merges the pages, prefix matches
// first
func (s *DBSearcher) Search(ctx context.Context, q Query) (*Result, error) {
	q.normalize()
	result := &Result{Hits: []Hit{}, Backend: BackendDatabase}
	if q.Text == "" {
		return result, nil
	}

	// each kind contributes at most offset+limit rows to the merged page
	window := q.Offset + q.Limit
	var docs []Document

	collect := func(kind models.ContentKind, fn func() ([]Document, int64, error)) error {
		if q.Kind != "" && q.Kind != kind {
			return nil
		}
		found, total, err := fn()
		if err != nil {
			return fmt.Errorf("searching %s: %w", kind, err)
		}
		docs = append(docs, found...)
		result.Total += int(total)
		return nil
	}

	opts := repository.ListOptions{Query: q.Text, Limit: window, Sort: repository.SortNewest}
	steps := []struct {
		kind models.ContentKind
		fn   func() ([]Document, int64, error)
	}{
		{models.KindArticle, func() ([]Document, int64, error) { return searchCatalog(ctx, s.Articles, opts, ArticleDoc) }},
		{models.KindTool, func() ([]Document, int64, error) { return searchCatalog(ctx, s.Tools, opts, ToolDoc) }},
		{models.KindTemplate, func() ([]Document, int64, error) { return searchCatalog(ctx, s.Templates, opts, TemplateDoc) }},
		{models.KindGuide, func() ([]Document, int64, error) { return searchCatalog(ctx, s.Guides, opts, GuideDoc) }},
		{models.KindNiche, func() ([]Document, int64, error) { return searchCatalog(ctx, s.Niches, opts, NicheDoc) }},
		{models.KindForumPost, func() ([]Document, int64, error) { return s.searchForum(ctx, q.Text, window) }},
	}
	for _, step := range steps {
		if err := collect(step.kind, step.fn); err != nil {
			return nil, err
		}
	}

	needle := strings.ToLower(q.Text)
	hits := make([]Hit, 0, len(docs))
	for _, d := range docs {
		score := 0.5
		if strings.HasPrefix(strings.ToLower(d.Title), needle) {
			score = 1
		}
		hits = append(hits, d.hit(score))
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return strings.ToLower(hits[i].Title) < strings.ToLower(hits[j].Title)
	})

	if q.Offset < len(hits) {
		end := q.Offset + q.Limit
		if end > len(hits) {
			end = len(hits)
		}
		result.Hits = hits[q.Offset:end]
	}
	return result, nil
}

func searchCatalog[T repository.CatalogEntry](ctx context.Context, repo repository.CatalogRepository[T], opts repository.ListOptions, toDoc func(*T) Document) ([]Document, int64, error) {
	if repo == nil {
		return nil, 0, nil
	}
	items, total, err := repo.List(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	docs := make([]Document, 0, len(items))
	for i := range items {
		docs = append(docs, toDoc(&items[i]))
	}
	return docs, total, nil
}

func (s *DBSearcher) searchForum(ctx context.Context, text string, limit int) ([]Document, int64, error) {
	if s.Forum == nil {
		return nil, 0, nil
	}
	posts, total, err := s.Forum.ListPosts(ctx, repository.ForumListOptions{Query: text, Limit: limit})
	if err != nil {
		return nil, 0, err
	}
	docs := make([]Document, 0, len(posts))
	for i := range posts {
		docs = append(docs, ForumPostDoc(&posts[i]))
	}
	return docs, total, nil
}
