package search

import (
	"time"

	"github.com/contentanonymity/backend/internal/models"
)

// Document is the single shape stored in the content index for every kind
type Document struct {
	Kind        models.ContentKind `json:"kind"`
	ID          string             `json:"id"`
	Slug        string             `json:"slug"`
	Title       string             `json:"title"`
	Summary     string             `json:"summary"`
	Body        string             `json:"body,omitempty"`
	Category    string             `json:"category,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
	PublishedAt *time.Time         `json:"published_at,omitempty"`

	// Published documents are indexed; the rest are removed
	Published bool `json:"-"`
}

// DocID is the Elasticsearch _id: kind and row id, since ids of different
// tables may collide
func (d Document) DocID() string {
	return DocID(d.Kind, d.ID)
}

func DocID(kind models.ContentKind, id string) string {
	return string(kind) + ":" + id
}

// Hit is one search result
type Hit struct {
	Kind     models.ContentKind `json:"kind"`
	ID       string             `json:"id"`
	Slug     string             `json:"slug"`
	Title    string             `json:"title"`
	Summary  string             `json:"summary"`
	Category string             `json:"category,omitempty"`
	Score    float64            `json:"score"`
}

// Result is a page of hits
type Result struct {
	Hits    []Hit  `json:"hits"`
	Total   int    `json:"total"`
	Backend string `json:"backend"`
	Cached  bool   `json:"cached"`
}

func ArticleDoc(a *models.Article) Document {
	return Document{
		Kind:        models.KindArticle,
		ID:          a.ID,
		Slug:        a.Slug,
		Title:       a.Title,
		Summary:     a.Excerpt,
		Body:        a.Body,
		Category:    a.Category,
		Tags:        a.Tags,
		PublishedAt: a.PublishedAt,
		Published:   a.Published,
	}
}

func ToolDoc(t *models.Tool) Document {
	return Document{
		Kind:      models.KindTool,
		ID:        t.ID,
		Slug:      t.Slug,
		Title:     t.Name,
		Summary:   t.Description,
		Body:      joinList(t.Features),
		Category:  t.Category,
		Tags:      t.Tags,
		Published: t.Published,
	}
}

func TemplateDoc(t *models.Template) Document {
	return Document{
		Kind:      models.KindTemplate,
		ID:        t.ID,
		Slug:      t.Slug,
		Title:     t.Title,
		Summary:   t.Description,
		Category:  t.Category,
		Tags:      t.Tags,
		Published: t.Published,
	}
}

func GuideDoc(g *models.PlatformGuide) Document {
	return Document{
		Kind:      models.KindGuide,
		ID:        g.ID,
		Slug:      g.Slug,
		Title:     g.Title,
		Summary:   g.Summary,
		Body:      g.Body,
		Category:  g.Category,
		Tags:      append([]string{string(g.Platform)}, g.Tags...),
		Published: g.Published,
	}
}

func NicheDoc(n *models.Niche) Document {
	return Document{
		Kind:      models.KindNiche,
		ID:        n.ID,
		Slug:      n.Slug,
		Title:     n.Name,
		Summary:   n.Description,
		Category:  n.Category,
		Tags:      n.Tags,
		Published: n.Published,
	}
}

// ForumPostDoc indexes a thread; forum posts are public once created
func ForumPostDoc(p *models.ForumPost) Document {
	created := p.CreatedAt
	return Document{
		Kind:        models.KindForumPost,
		ID:          p.ID,
		Slug:        p.Slug,
		Title:       p.Title,
		Summary:     truncate(p.Body, 280),
		Body:        p.Body,
		Category:    string(p.Category),
		Tags:        p.Tags,
		PublishedAt: &created,
		Published:   true,
	}
}

func (d Document) hit(score float64) Hit {
	return Hit{Kind: d.Kind, ID: d.ID, Slug: d.Slug, Title: d.Title, Summary: d.Summary, Category: d.Category, Score: score}
}

func joinList(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += "\n"
		}
		out += s
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
