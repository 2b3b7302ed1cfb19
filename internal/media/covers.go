// Package media maps content to its default artwork.
package media

import (
	"strings"

	"github.com/contentanonymity/backend/internal/models"
)

// DefaultCover is used when neither the category nor the kind has artwork
const DefaultCover = "/static/covers/default.jpg"

var kindCovers = map[models.ContentKind]string{
	models.KindArticle:   "/static/covers/article.jpg",
	models.KindTool:      "/static/covers/tool.jpg",
	models.KindTemplate:  "/static/covers/template.jpg",
	models.KindGuide:     "/static/covers/guide.jpg",
	models.KindNiche:     "/static/covers/niche.jpg",
	models.KindForumPost: "/static/covers/community.jpg",
}

// keyed by lowercase category
var categoryCovers = map[models.ContentKind]map[string]string{
	models.KindArticle: {
		"youtube":      "/static/covers/article/youtube.jpg",
		"tiktok":       "/static/covers/article/tiktok.jpg",
		"monetization": "/static/covers/article/monetization.jpg",
		"ai":           "/static/covers/article/ai.jpg",
		"privacy":      "/static/covers/article/privacy.jpg",
		"growth":       "/static/covers/article/growth.jpg",
	},
	models.KindTool: {
		"voice":   "/static/covers/tool/voice.jpg",
		"video":   "/static/covers/tool/video.jpg",
		"editing": "/static/covers/tool/editing.jpg",
		"writing": "/static/covers/tool/writing.jpg",
		"design":  "/static/covers/tool/design.jpg",
	},
	models.KindTemplate: {
		"scripts":    "/static/covers/template/scripts.jpg",
		"thumbnails": "/static/covers/template/thumbnails.jpg",
		"planning":   "/static/covers/template/planning.jpg",
	},
	models.KindNiche: {
		"finance":       "/static/covers/niche/finance.jpg",
		"education":     "/static/covers/niche/education.jpg",
		"entertainment": "/static/covers/niche/entertainment.jpg",
		"technology":    "/static/covers/niche/technology.jpg",
		"lifestyle":     "/static/covers/niche/lifestyle.jpg",
	},
}

var platformLogos = map[models.Platform]string{
	models.PlatformYouTube:   "/static/logos/youtube.svg",
	models.PlatformTikTok:    "/static/logos/tiktok.svg",
	models.PlatformInstagram: "/static/logos/instagram.svg",
	models.PlatformTwitter:   "/static/logos/x.svg",
	models.PlatformReddit:    "/static/logos/reddit.svg",
	models.PlatformPinterest: "/static/logos/pinterest.svg",
	models.PlatformPodcast:   "/static/logos/podcast.svg",
	models.PlatformOther:     "/static/logos/generic.svg",
}

// CoverFor returns the default cover for a kind and category, falling back
// to the kind default and then DefaultCover
func CoverFor(kind models.ContentKind, category string) string {
	if byCategory, ok := categoryCovers[kind]; ok {
		if url, ok := byCategory[strings.ToLower(strings.TrimSpace(category))]; ok {
			return url
		}
	}
	if url, ok := kindCovers[kind]; ok {
		return url
	}
	return DefaultCover
}

// PlatformLogo returns the logo for a guide platform
func PlatformLogo(p models.Platform) string {
	if url, ok := platformLogos[p]; ok {
		return url
	}
	return platformLogos[models.PlatformOther]
}

// Resolve prefixes relative artwork paths with the CDN origin
func Resolve(cdn, path string) string {
	if cdn == "" || !strings.HasPrefix(path, "/") {
		return path
	}
	return strings.TrimSuffix(cdn, "/") + path
}
