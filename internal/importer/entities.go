package importer

import (
	"time"

	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/repository"
	"github.com/contentanonymity/backend/internal/search"
)

// Entity names accepted by Run
const (
	EntityTools     = "tools"
	EntityNiches    = "niches"
	EntityTemplates = "templates"
	EntityArticles  = "articles"
	EntityGuides    = "guides"
)

// Entities lists the importable entity names
func Entities() []string {
	return []string{EntityTools, EntityNiches, EntityTemplates, EntityArticles, EntityGuides}
}

// identity points at the fields upserts match and stamp
type identity struct {
	model      *models.Model
	externalID **string
	slug       *string
}

type entitySpec[T repository.CatalogEntry] struct {
	name     string
	titleKey string
	aliases  map[string]string
	identify func(*T) identity
	// defaults runs on new rows before any column is applied
	defaults func(*T)
	apply    func(*applier, *T)
	// finish fills derived fields and checks required ones
	finish func(e *T, now time.Time, isNew bool, userID string) error
	doc    func(*T) search.Document
}

var toolSpec = entitySpec[models.Tool]{
	name:     EntityTools,
	titleKey: "name",
	aliases: map[string]string{
		"title":          "name",
		"url":            "website_url",
		"website":        "website_url",
		"homepage":       "website_url",
		"affiliate":      "affiliate_url",
		"affiliate_link": "affiliate_url",
		"logo":           "logo_url",
		"icon":           "logo_url",
		"price":          "pricing",
		"pricing_model":  "pricing",
		"summary":        "description",
		"score":          "rating",
		"feature_list":   "features",
	},
	identify: func(t *models.Tool) identity { return identity{&t.Model, &t.ExternalID, &t.Slug} },
	defaults: func(t *models.Tool) { t.Pricing = models.PricingFree },
	apply: func(a *applier, t *models.Tool) {
		a.str("name", &t.Name)
		a.str("description", &t.Description)
		a.str("category", &t.Category)
		enum(a, "pricing", &t.Pricing, models.Pricing.Valid)
		a.str("website_url", &t.WebsiteURL)
		a.str("affiliate_url", &t.AffiliateURL)
		a.str("logo_url", &t.LogoURL)
		a.float("rating", &t.Rating, 0, 5)
		a.list("features", &t.Features)
		a.tags(&t.Tags)
		a.boolean("featured", &t.Featured)
		a.boolean("published", &t.Published)
	},
	finish: func(*models.Tool, time.Time, bool, string) error { return nil },
	doc:    search.ToolDoc,
}

var nicheSpec = entitySpec[models.Niche]{
	name:     EntityNiches,
	titleKey: "name",
	aliases: map[string]string{
		"title":        "name",
		"summary":      "description",
		"cpm_min":      "cpm_low",
		"cpm_max":      "cpm_high",
		"min_cpm":      "cpm_low",
		"max_cpm":      "cpm_high",
		"potential":    "monetization_potential",
		"monetization": "monetization_potential",
		"faceless":     "faceless_friendly",
		"examples":     "example_channels",
		"channels":     "example_channels",
	},
	identify: func(n *models.Niche) identity { return identity{&n.Model, &n.ExternalID, &n.Slug} },
	defaults: func(n *models.Niche) {
		n.Competition = models.CompetitionMedium
		n.MonetizationPotential = 5
		n.FacelessFriendly = true
	},
	apply: func(a *applier, n *models.Niche) {
		a.str("name", &n.Name)
		a.str("description", &n.Description)
		a.str("category", &n.Category)
		enum(a, "competition", &n.Competition, models.Competition.Valid)
		a.integer("monetization_potential", &n.MonetizationPotential, 1, 10)
		a.float("cpm_low", &n.CPMLow, 0, 1000)
		a.float("cpm_high", &n.CPMHigh, 0, 1000)
		a.boolean("faceless_friendly", &n.FacelessFriendly)
		a.list("example_channels", &n.ExampleChannels)
		a.tags(&n.Tags)
		a.boolean("featured", &n.Featured)
		a.boolean("published", &n.Published)
	},
	finish: func(n *models.Niche, _ time.Time, _ bool, _ string) error {
		if n.CPMHigh > 0 && n.CPMLow > n.CPMHigh {
			n.CPMLow, n.CPMHigh = n.CPMHigh, n.CPMLow
		}
		return nil
	},
	doc: search.NicheDoc,
}

var templateSpec = entitySpec[models.Template]{
	name:     EntityTemplates,
	titleKey: "title",
	aliases: map[string]string{
		"name":         "title",
		"type":         "format",
		"url":          "file_url",
		"file":         "file_url",
		"download_url": "file_url",
		"preview":      "preview_url",
		"image":        "preview_url",
		"summary":      "description",
		"is_premium":   "premium",
		"paid":         "premium",
	},
	identify: func(t *models.Template) identity { return identity{&t.Model, &t.ExternalID, &t.Slug} },
	defaults: func(t *models.Template) { t.Format = models.FormatOther },
	apply: func(a *applier, t *models.Template) {
		a.str("title", &t.Title)
		a.str("description", &t.Description)
		a.str("category", &t.Category)
		enum(a, "format", &t.Format, models.TemplateFormat.Valid)
		a.str("file_url", &t.FileURL)
		a.str("preview_url", &t.PreviewURL)
		a.boolean("premium", &t.Premium)
		a.tags(&t.Tags)
		a.boolean("featured", &t.Featured)
		a.boolean("published", &t.Published)
	},
	finish: func(*models.Template, time.Time, bool, string) error { return nil },
	doc:    search.TemplateDoc,
}

var articleSpec = entitySpec[models.Article]{
	name:     EntityArticles,
	titleKey: "title",
	aliases: map[string]string{
		"name":         "title",
		"content":      "body",
		"markdown":     "body",
		"summary":      "excerpt",
		"description":  "excerpt",
		"image":        "cover_image_url",
		"cover":        "cover_image_url",
		"cover_image":  "cover_image_url",
		"date":         "published_at",
		"publish_date": "published_at",
	},
	identify: func(a *models.Article) identity { return identity{&a.Model, &a.ExternalID, &a.Slug} },
	defaults: func(*models.Article) {},
	apply: func(a *applier, art *models.Article) {
		a.str("title", &art.Title)
		a.str("excerpt", &art.Excerpt)
		a.str("body", &art.Body)
		a.str("cover_image_url", &art.CoverImageURL)
		a.str("category", &art.Category)
		a.tags(&art.Tags)
		a.timestamp("published_at", &art.PublishedAt)
		a.boolean("featured", &art.Featured)
		a.boolean("published", &art.Published)
	},
	finish: func(art *models.Article, now time.Time, isNew bool, userID string) error {
		art.ReadingMinutes = models.ReadingMinutes(art.Body)
		if art.Published {
			art.Publish(now)
		}
		if isNew && userID != "" && art.AuthorID == nil {
			id := userID
			art.AuthorID = &id
		}
		return nil
	},
	doc: search.ArticleDoc,
}

var guideSpec = entitySpec[models.PlatformGuide]{
	name:     EntityGuides,
	titleKey: "title",
	aliases: map[string]string{
		"name":         "title",
		"content":      "body",
		"description":  "summary",
		"excerpt":      "summary",
		"level":        "difficulty",
		"notes":        "monetization_notes",
		"monetization": "monetization_notes",
		"network":      "platform",
	},
	identify: func(g *models.PlatformGuide) identity { return identity{&g.Model, &g.ExternalID, &g.Slug} },
	defaults: func(g *models.PlatformGuide) { g.Difficulty = models.DifficultyBeginner },
	apply: func(a *applier, g *models.PlatformGuide) {
		enum(a, "platform", &g.Platform, models.Platform.Valid)
		a.str("title", &g.Title)
		a.str("summary", &g.Summary)
		a.str("body", &g.Body)
		a.str("category", &g.Category)
		enum(a, "difficulty", &g.Difficulty, models.Difficulty.Valid)
		a.str("monetization_notes", &g.MonetizationNotes)
		a.tags(&g.Tags)
		a.boolean("featured", &g.Featured)
		a.boolean("published", &g.Published)
	},
	finish: func(g *models.PlatformGuide, _ time.Time, _ bool, _ string) error {
		if g.Platform == "" {
			return errMissing("platform")
		}
		return nil
	},
	doc: search.GuideDoc,
}
