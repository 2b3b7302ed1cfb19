package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/contentanonymity/backend/internal/auth"
	"github.com/contentanonymity/backend/internal/email"
	"github.com/contentanonymity/backend/internal/gamification"
	"github.com/contentanonymity/backend/internal/importer"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/middleware"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/repository"
	"github.com/contentanonymity/backend/internal/search"
	"github.com/contentanonymity/backend/internal/storage"
	"github.com/contentanonymity/backend/internal/stream"
	"github.com/contentanonymity/backend/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Response cache groups invalidated by writes
const (
	cacheGroupCatalog  = "catalog"
	cacheGroupForum    = "forum"
	cacheGroupLearning = "learning"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	db *gorm.DB

	articles  repository.CatalogRepository[models.Article]
	tools     repository.CatalogRepository[models.Tool]
	templates repository.CatalogRepository[models.Template]
	guides    repository.CatalogRepository[models.PlatformGuide]
	niches    repository.CatalogRepository[models.Niche]
	paths     repository.CatalogRepository[models.LearningPath]
	forum     repository.ForumRepository
	learning  repository.LearningRepository
	users     repository.UserRepository

	auth         auth.AuthService
	gamification *gamification.Service
	importer     *importer.Importer

	search    *search.Service
	reindexer *search.Reindexer
	uploader  storage.ImageUploader
	email     email.Sender
	stream    *stream.Publisher
	wsHandler *websocket.Handler

	now func() time.Time
}

// NewHandlers creates a new handlers instance. The optional services are
// attached with the Set methods; until then search falls back to the
// database, uploads are rejected, email is logged and nothing is published.
func NewHandlers(db *gorm.DB, authService auth.AuthService, game *gamification.Service) *Handlers {
	h := &Handlers{
		db:           db,
		articles:     repository.NewCatalogRepository[models.Article](db, repository.ArticleSchema),
		tools:        repository.NewCatalogRepository[models.Tool](db, repository.ToolSchema),
		templates:    repository.NewCatalogRepository[models.Template](db, repository.TemplateSchema),
		guides:       repository.NewCatalogRepository[models.PlatformGuide](db, repository.GuideSchema),
		niches:       repository.NewCatalogRepository[models.Niche](db, repository.NicheSchema),
		paths:        repository.NewCatalogRepository[models.LearningPath](db, repository.PathSchema),
		forum:        repository.NewForumRepository(db),
		learning:     repository.NewLearningRepository(db),
		users:        repository.NewUserRepository(db),
		auth:         authService,
		gamification: game,
		email:        email.LogSender{},
		stream:       stream.NewPublisher(nil),
		now:          time.Now,
	}
	h.search = search.NewService(nil, search.NewDBSearcher(h.SearchSources()))
	h.importer = importer.New(db, h)
	if game != nil {
		game.SetNotifier(&awardNotifier{h: h})
	}
	return h
}

// SearchSources lists the repositories that feed the content index
func (h *Handlers) SearchSources() search.Sources {
	return search.Sources{
		Articles:  h.articles,
		Tools:     h.tools,
		Templates: h.templates,
		Guides:    h.guides,
		Niches:    h.niches,
		Forum:     h.forum,
	}
}

// Users exposes the user repository for middleware wiring
func (h *Handlers) Users() repository.UserRepository {
	return h.users
}

// SetSearchService sets the search service used by queries and index syncs
func (h *Handlers) SetSearchService(s *search.Service) {
	h.search = s
}

// SetReindexer sets the index rebuilder used by the admin endpoint
func (h *Handlers) SetReindexer(r *search.Reindexer) {
	h.reindexer = r
}

// SetUploader sets the image storage backend
func (h *Handlers) SetUploader(u storage.ImageUploader) {
	h.uploader = u
}

// SetEmailSender sets the transactional email sender
func (h *Handlers) SetEmailSender(s email.Sender) {
	h.email = s
}

// SetStreamPublisher sets the community activity feed publisher
func (h *Handlers) SetStreamPublisher(p *stream.Publisher) {
	h.stream = p
}

// SetWebSocketHandler sets the WebSocket handler for real-time notifications
func (h *Handlers) SetWebSocketHandler(ws *websocket.Handler) {
	h.wsHandler = ws
}

// Sync keeps the search index in step with a written row
func (h *Handlers) Sync(ctx context.Context, doc search.Document) {
	if h.search != nil {
		h.search.Sync(ctx, doc)
	}
}

func (h *Handlers) unindex(ctx context.Context, kind models.ContentKind, id string) {
	if h.search != nil {
		h.search.Remove(ctx, kind, id)
	}
}

func (h *Handlers) invalidate(ctx context.Context, groups ...string) {
	middleware.InvalidateResponseCache(ctx, groups...)
}

// award gives points in the request path. Failures are logged and never
// fail the request that triggered them.
func (h *Handlers) award(ctx context.Context, userID string, action gamification.Action, refID string) *gamification.AwardResult {
	if h.gamification == nil || userID == "" {
		return nil
	}
	result, err := h.gamification.Award(ctx, userID, action, refID)
	if err != nil {
		logger.Log.Warn("Failed to award points",
			logger.WithUserID(userID),
			zap.String("action", string(action)),
			zap.String("ref_id", refID),
			zap.Error(err))
		return nil
	}
	return result
}

// awardNotifier forwards committed awards to the member's sockets and the
// community feed
type awardNotifier struct {
	h *Handlers
}

func (n *awardNotifier) PointsAwarded(user *models.User, result *gamification.AwardResult) {
	if n.h.wsHandler == nil {
		return
	}
	n.h.wsHandler.SendPoints(user.ID, websocket.PointsPayload{
		Action: string(result.Action),
		Points: result.Points,
		Total:  result.Total,
		Level:  result.Level,
	})
}

func (n *awardNotifier) BadgeEarned(user *models.User, badge gamification.Badge) {
	if n.h.wsHandler != nil {
		n.h.wsHandler.SendBadge(user.ID, websocket.BadgePayload{
			Badge:       badge.Key,
			Name:        badge.Name,
			Description: badge.Description,
		})
	}
	n.h.stream.Publish(user.ID, &stream.Activity{
		Actor:     "user:" + user.ID,
		Verb:      stream.VerbEarned,
		Object:    "badge:" + badge.Key,
		ForeignID: "badge:" + user.ID + ":" + badge.Key,
		Title:     badge.Name,
		Username:  user.Username,
	})
}

func (n *awardNotifier) LevelUp(user *models.User, level, previous int) {
	if n.h.wsHandler != nil {
		n.h.wsHandler.SendLevelUp(user.ID, websocket.LevelPayload{Level: level, Previous: previous})
	}
	n.h.stream.Publish(user.ID, &stream.Activity{
		Actor:    "user:" + user.ID,
		Verb:     stream.VerbLeveledUp,
		Object:   "level:" + strconv.Itoa(level),
		Username: user.Username,
		Extra:    map[string]interface{}{"level": level, "previous": previous},
	})
}
