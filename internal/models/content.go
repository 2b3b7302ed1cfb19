package models

import (
	"strings"
	"time"
)

// ContentKind names a searchable catalog or community entity
type ContentKind string

const (
	KindArticle   ContentKind = "article"
	KindTool      ContentKind = "tool"
	KindTemplate  ContentKind = "template"
	KindGuide     ContentKind = "guide"
	KindNiche     ContentKind = "niche"
	KindForumPost ContentKind = "forum_post"
)

var ContentKinds = []ContentKind{KindArticle, KindTool, KindTemplate, KindGuide, KindNiche, KindForumPost}

func (k ContentKind) Valid() bool {
	for _, v := range ContentKinds {
		if v == k {
			return true
		}
	}
	return false
}

// Article is a blog post
type Article struct {
	Model
	ExternalID     *string     `gorm:"uniqueIndex" json:"external_id,omitempty"`
	Title          string      `gorm:"not null" json:"title"`
	Slug           string      `gorm:"uniqueIndex;not null" json:"slug"`
	Excerpt        string      `gorm:"type:text" json:"excerpt"`
	Body           string      `gorm:"type:text" json:"body"`
	CoverImageURL  string      `json:"cover_image_url"`
	Category       string      `gorm:"index" json:"category"`
	Tags           StringArray `gorm:"type:text" json:"tags"`
	AuthorID       *string     `gorm:"index" json:"author_id,omitempty"`
	Author         *User       `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	ReadingMinutes int         `gorm:"not null;default:1" json:"reading_minutes"`
	Published      bool        `gorm:"default:false;index" json:"published"`
	PublishedAt    *time.Time  `gorm:"index" json:"published_at,omitempty"`
	Featured       bool        `gorm:"default:false" json:"featured"`
	ViewCount      int         `gorm:"default:0" json:"view_count"`
	LikeCount      int         `gorm:"default:0" json:"like_count"`
}

const wordsPerMinute = 200

// ReadingMinutes estimates reading time at 200 words per minute, never below one minute
func ReadingMinutes(body string) int {
	words := len(strings.Fields(body))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Publish marks the article published, stamping PublishedAt the first time only
func (a *Article) Publish(now time.Time) {
	a.Published = true
	if a.PublishedAt == nil {
		t := now.UTC()
		a.PublishedAt = &t
	}
}

type Pricing string

const (
	PricingFree     Pricing = "free"
	PricingFreemium Pricing = "freemium"
	PricingPaid     Pricing = "paid"
)

func (p Pricing) Valid() bool {
	return p == PricingFree || p == PricingFreemium || p == PricingPaid
}

// Tool is a directory entry for creator software
type Tool struct {
	Model
	ExternalID   *string     `gorm:"uniqueIndex" json:"external_id,omitempty"`
	Name         string      `gorm:"not null" json:"name"`
	Slug         string      `gorm:"uniqueIndex;not null" json:"slug"`
	Description  string      `gorm:"type:text" json:"description"`
	Category     string      `gorm:"index" json:"category"`
	Pricing      Pricing     `gorm:"type:varchar(16);default:free" json:"pricing"`
	WebsiteURL   string      `json:"website_url"`
	AffiliateURL string      `json:"affiliate_url,omitempty"`
	LogoURL      string      `json:"logo_url"`
	Rating       float64     `gorm:"default:0" json:"rating"`
	Features     StringArray `gorm:"type:text" json:"features"`
	Tags         StringArray `gorm:"type:text" json:"tags"`
	Featured     bool        `gorm:"default:false" json:"featured"`
	Published    bool        `gorm:"default:false;index" json:"published"`
}

type TemplateFormat string

const (
	FormatScript      TemplateFormat = "script"
	FormatThumbnail   TemplateFormat = "thumbnail"
	FormatNotion      TemplateFormat = "notion"
	FormatCanva       TemplateFormat = "canva"
	FormatSpreadsheet TemplateFormat = "spreadsheet"
	FormatOther       TemplateFormat = "other"
)

func (f TemplateFormat) Valid() bool {
	switch f {
	case FormatScript, FormatThumbnail, FormatNotion, FormatCanva, FormatSpreadsheet, FormatOther:
		return true
	}
	return false
}

// Template is a downloadable creator resource
type Template struct {
	Model
	ExternalID    *string        `gorm:"uniqueIndex" json:"external_id,omitempty"`
	Title         string         `gorm:"not null" json:"title"`
	Slug          string         `gorm:"uniqueIndex;not null" json:"slug"`
	Description   string         `gorm:"type:text" json:"description"`
	Category      string         `gorm:"index" json:"category"`
	Format        TemplateFormat `gorm:"type:varchar(16);default:other" json:"format"`
	FileURL       string         `json:"file_url"`
	PreviewURL    string         `json:"preview_url"`
	Premium       bool           `gorm:"default:false" json:"premium"`
	DownloadCount int            `gorm:"default:0" json:"download_count"`
	Tags          StringArray    `gorm:"type:text" json:"tags"`
	Featured      bool           `gorm:"default:false" json:"featured"`
	Published     bool           `gorm:"default:false;index" json:"published"`
}

type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformReddit    Platform = "reddit"
	PlatformPinterest Platform = "pinterest"
	PlatformPodcast   Platform = "podcast"
	PlatformOther     Platform = "other"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformYouTube, PlatformTikTok, PlatformInstagram, PlatformTwitter,
		PlatformReddit, PlatformPinterest, PlatformPodcast, PlatformOther:
		return true
	}
	return false
}

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

func (d Difficulty) Valid() bool {
	return d == DifficultyBeginner || d == DifficultyIntermediate || d == DifficultyAdvanced
}

// PlatformGuide is a how-to guide for one publishing platform
type PlatformGuide struct {
	Model
	ExternalID        *string     `gorm:"uniqueIndex" json:"external_id,omitempty"`
	Platform          Platform    `gorm:"type:varchar(16);index;not null" json:"platform"`
	Title             string      `gorm:"not null" json:"title"`
	Slug              string      `gorm:"uniqueIndex;not null" json:"slug"`
	Summary           string      `gorm:"type:text" json:"summary"`
	Body              string      `gorm:"type:text" json:"body"`
	Category          string      `gorm:"index" json:"category"`
	Difficulty        Difficulty  `gorm:"type:varchar(16);default:beginner" json:"difficulty"`
	MonetizationNotes string      `gorm:"type:text" json:"monetization_notes"`
	Tags              StringArray `gorm:"type:text" json:"tags"`
	Featured          bool        `gorm:"default:false" json:"featured"`
	Published         bool        `gorm:"default:false;index" json:"published"`
	ViewCount         int         `gorm:"default:0" json:"view_count"`
}

type Competition string

const (
	CompetitionLow    Competition = "low"
	CompetitionMedium Competition = "medium"
	CompetitionHigh   Competition = "high"
)

func (c Competition) Valid() bool {
	return c == CompetitionLow || c == CompetitionMedium || c == CompetitionHigh
}

// Niche is a content vertical with monetization data
type Niche struct {
	Model
	ExternalID            *string     `gorm:"uniqueIndex" json:"external_id,omitempty"`
	Name                  string      `gorm:"not null" json:"name"`
	Slug                  string      `gorm:"uniqueIndex;not null" json:"slug"`
	Description           string      `gorm:"type:text" json:"description"`
	Category              string      `gorm:"index" json:"category"`
	Competition           Competition `gorm:"type:varchar(8);default:medium" json:"competition"`
	MonetizationPotential int         `gorm:"default:5" json:"monetization_potential"` // 1..10
	CPMLow                float64     `json:"cpm_low"`
	CPMHigh               float64     `json:"cpm_high"`
	FacelessFriendly      bool        `gorm:"not null" json:"faceless_friendly"`
	ExampleChannels       StringArray `gorm:"type:text" json:"example_channels"`
	Tags                  StringArray `gorm:"type:text" json:"tags"`
	Featured              bool        `gorm:"default:false" json:"featured"`
	Published             bool        `gorm:"default:false;index" json:"published"`
}

// CategoryCount is one row of a categories() listing
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}
