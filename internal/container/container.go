// Package container provides dependency injection management for the
// ContentAnonymity backend. It consolidates all services and provides
// type-safe access to dependencies.
package container

import (
	"context"
	"sync"

	"github.com/contentanonymity/backend/internal/auth"
	"github.com/contentanonymity/backend/internal/cache"
	"github.com/contentanonymity/backend/internal/email"
	"github.com/contentanonymity/backend/internal/gamification"
	"github.com/contentanonymity/backend/internal/handlers"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/search"
	"github.com/contentanonymity/backend/internal/storage"
	"github.com/contentanonymity/backend/internal/stream"
	"github.com/contentanonymity/backend/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container holds all application dependencies and provides type-safe access.
type Container struct {
	// Core infrastructure
	db     *gorm.DB
	logger *zap.Logger
	cache  *cache.RedisClient

	// API clients
	searchClient *search.Client
	reindexer    *search.Reindexer
	uploader     storage.ImageUploader
	email        email.Sender
	feed         stream.FeedClient
	wsHandler    *websocket.Handler

	// Services
	auth         *auth.Service
	gamification *gamification.Service

	// Lifecycle hooks
	cleanupFuncs []func(context.Context) error
	mu           sync.RWMutex
}

// New creates a new empty container.
// Services should be registered using Set* methods.
func New() *Container {
	return &Container{
		cleanupFuncs: make([]func(context.Context) error, 0),
	}
}

// ============================================================================
// CORE INFRASTRUCTURE
// ============================================================================

// SetDB registers the database connection
func (c *Container) SetDB(db *gorm.DB) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.db = db
	return c
}

// DB returns the database connection
func (c *Container) DB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// SetLogger registers the logger
func (c *Container) SetLogger(l *zap.Logger) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
	return c
}

// Logger returns the logger instance
func (c *Container) Logger() *zap.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loggerLocked()
}

func (c *Container) loggerLocked() *zap.Logger {
	if c.logger == nil {
		return logger.Log
	}
	return c.logger
}

// SetCache registers the Redis cache client
func (c *Container) SetCache(client *cache.RedisClient) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = client
	return c
}

// Cache returns the Redis cache client, nil when Redis is off
func (c *Container) Cache() *cache.RedisClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache
}

// ============================================================================
// API CLIENTS
// ============================================================================

// SetSearchClient registers the Elasticsearch client
func (c *Container) SetSearchClient(client *search.Client) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchClient = client
	return c
}

// SearchClient returns the Elasticsearch client, nil when search runs on the database
func (c *Container) SearchClient() *search.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.searchClient
}

// SetReindexer registers the background index rebuilder
func (c *Container) SetReindexer(r *search.Reindexer) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reindexer = r
	return c
}

// Reindexer returns the index rebuilder
func (c *Container) Reindexer() *search.Reindexer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reindexer
}

// SetUploader registers the image store
func (c *Container) SetUploader(u storage.ImageUploader) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploader = u
	return c
}

// Uploader returns the image store
func (c *Container) Uploader() storage.ImageUploader {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.uploader
}

// SetEmailSender registers the outgoing mail sender
func (c *Container) SetEmailSender(s email.Sender) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.email = s
	return c
}

// EmailSender returns the mail sender, falling back to the logging sender
func (c *Container) EmailSender() email.Sender {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.email == nil {
		return email.LogSender{}
	}
	return c.email
}

// SetFeedClient registers the Stream activity feed client
func (c *Container) SetFeedClient(client stream.FeedClient) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.feed = client
	return c
}

// FeedClient returns the activity feed client
func (c *Container) FeedClient() stream.FeedClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.feed
}

// SetWebSocketHandler registers the WebSocket handler
func (c *Container) SetWebSocketHandler(handler *websocket.Handler) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wsHandler = handler
	return c
}

// WebSocket returns the WebSocket handler
func (c *Container) WebSocket() *websocket.Handler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.wsHandler
}

// ============================================================================
// SERVICES
// ============================================================================

// SetAuthService registers the authentication service
func (c *Container) SetAuthService(service *auth.Service) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth = service
	return c
}

// Auth returns the authentication service
func (c *Container) Auth() *auth.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.auth
}

// SetGamification registers the points and badges service
func (c *Container) SetGamification(service *gamification.Service) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gamification = service
	return c
}

// Gamification returns the points and badges service
func (c *Container) Gamification() *gamification.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gamification
}

// Handlers builds the HTTP handlers from whatever is registered. Optional
// clients that are missing leave the handlers on their fallbacks.
func (c *Container) Handlers() (*handlers.Handlers, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	h := handlers.NewHandlers(c.db, c.auth, c.gamification)
	if c.searchClient != nil {
		h.SetSearchService(search.NewService(c.searchClient, search.NewDBSearcher(h.SearchSources())))
	}
	if c.reindexer != nil {
		h.SetReindexer(c.reindexer)
	}
	if c.uploader != nil {
		h.SetUploader(c.uploader)
	}
	if c.email != nil {
		h.SetEmailSender(c.email)
	}
	if c.feed != nil {
		h.SetStreamPublisher(stream.NewPublisher(c.feed))
	}
	if c.wsHandler != nil {
		h.SetWebSocketHandler(c.wsHandler)
	}
	return h, nil
}

// ============================================================================
// LIFECYCLE MANAGEMENT
// ============================================================================

// OnCleanup registers a cleanup function to be called during shutdown.
// Cleanup functions are called in LIFO order (last registered, first cleaned up).
func (c *Container) OnCleanup(fn func(context.Context) error) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
	return c
}

// Cleanup performs graceful shutdown of all registered services.
// Every hook runs; the first error is returned.
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var first error
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](ctx); err != nil {
			c.loggerLocked().Error("Cleanup function failed", zap.Int("index", i), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	c.cleanupFuncs = c.cleanupFuncs[:0]
	return first
}

// ============================================================================
// VALIDATION
// ============================================================================

// Validate checks that all required dependencies are registered and logs
// the optional ones that are missing.
func (c *Container) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	missingDeps := []string{}
	if c.db == nil {
		missingDeps = append(missingDeps, "database (DB)")
	}
	if c.auth == nil {
		missingDeps = append(missingDeps, "auth service")
	}
	if c.gamification == nil {
		missingDeps = append(missingDeps, "gamification service")
	}
	if len(missingDeps) > 0 {
		return NewInitializationError("Missing required dependencies", missingDeps)
	}

	optionalDeps := []struct {
		name    string
		present bool
	}{
		{"Redis cache", c.cache != nil},
		{"Elasticsearch search", c.searchClient != nil},
		{"image uploader", c.uploader != nil},
		{"Stream feed", c.feed != nil},
	}
	for _, dep := range optionalDeps {
		if !dep.present {
			c.loggerLocked().Debug("Optional dependency not registered", zap.String("dependency", dep.name))
		}
	}
	return nil
}

// ============================================================================
// FLUENT API SUPPORT
// ============================================================================

// WithDB is a fluent setter for database
func (c *Container) WithDB(db *gorm.DB) *Container {
	return c.SetDB(db)
}

// WithLogger is a fluent setter for logger
func (c *Container) WithLogger(l *zap.Logger) *Container {
	return c.SetLogger(l)
}

// WithCache is a fluent setter for cache
func (c *Container) WithCache(client *cache.RedisClient) *Container {
	return c.SetCache(client)
}

// WithAuthService is a fluent setter for auth
func (c *Container) WithAuthService(service *auth.Service) *Container {
	return c.SetAuthService(service)
}

// WithGamification is a fluent setter for gamification
func (c *Container) WithGamification(service *gamification.Service) *Container {
	return c.SetGamification(service)
}
