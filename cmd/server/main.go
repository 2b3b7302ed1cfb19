package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contentanonymity/backend/internal/auth"
	"github.com/contentanonymity/backend/internal/cache"
	"github.com/contentanonymity/backend/internal/config"
	"github.com/contentanonymity/backend/internal/container"
	"github.com/contentanonymity/backend/internal/database"
	"github.com/contentanonymity/backend/internal/email"
	"github.com/contentanonymity/backend/internal/gamification"
	"github.com/contentanonymity/backend/internal/handlers"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/metrics"
	"github.com/contentanonymity/backend/internal/middleware"
	"github.com/contentanonymity/backend/internal/repository"
	"github.com/contentanonymity/backend/internal/search"
	"github.com/contentanonymity/backend/internal/storage"
	"github.com/contentanonymity/backend/internal/stream"
	"github.com/contentanonymity/backend/internal/telemetry"
	"github.com/contentanonymity/backend/internal/validation"
	"github.com/contentanonymity/backend/internal/websocket"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 30 * time.Second
	dbStatsInterval = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Log.Info("ContentAnonymity server starting",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port))

	if err := run(cfg); err != nil {
		logger.FatalWithFields("Server failed", err)
	}
	logger.Log.Info("Server exited")
}

func run(cfg *config.Config) error {
	ctx := context.Background()
	metrics.Initialize()

	tp, err := telemetry.InitTracer(ctx, telemetry.Config{
		ServiceName:  cfg.Telemetry.ServiceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		Enabled:      cfg.Telemetry.Enabled,
	})
	if err != nil {
		logger.WarnWithFields("Tracing disabled", err)
	}

	c, err := buildContainer(ctx, cfg)
	if err != nil {
		return err
	}
	if tp != nil {
		c.OnCleanup(tp.Shutdown)
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := c.Cleanup(cleanupCtx); err != nil {
			logger.WarnWithFields("Cleanup finished with errors", err)
		}
	}()

	if err := validation.NewServiceValidator(cfg).ValidateServices(ctx); err != nil {
		return err
	}

	h, err := c.Handlers()
	if err != nil {
		return err
	}
	if c.SearchClient() != nil {
		reindexer := search.NewReindexer(c.SearchClient(), h.SearchSources(), cfg.Elasticsearch.ReindexInterval)
		h.SetReindexer(reindexer)
		reindexer.Start()
		c.OnCleanup(func(context.Context) error { reindexer.Stop(); return nil })
	}

	if n, err := c.Gamification().SyncLeaderboard(ctx); err != nil {
		logger.WarnWithFields("Leaderboard sync failed", err)
	} else if n > 0 {
		logger.Log.Info("Leaderboard synced", zap.Int("users", n))
	}

	stopStats := make(chan struct{})
	go recordDBStats(stopStats)
	c.OnCleanup(func(context.Context) error { close(stopStats); return nil })

	r := newRouter(cfg)
	h.RegisterRoutes(r, handlers.RouteConfig{
		Auth:          c.Auth(),
		CacheTTL:      cfg.CacheTTL,
		APIRateLimit:  cfg.RateLimit.RequestsPerMinute,
		AuthRateLimit: cfg.RateLimit.AuthPerMinute,
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("failed to start server: %w", err)
	case sig := <-quit:
		logger.Log.Info("Shutting down server", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if ws := c.WebSocket(); ws != nil {
		if err := ws.Shutdown(shutdownCtx); err != nil {
			logger.WarnWithFields("WebSocket shutdown warning", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// buildContainer connects every backing service. Only the database is
// mandatory; the rest degrade to their fallbacks when unavailable.
func buildContainer(ctx context.Context, cfg *config.Config) (*container.Container, error) {
	c := container.New().WithLogger(logger.Log)

	if err := database.Initialize(cfg.Database, cfg.LogLevel == "debug"); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	c.SetDB(database.DB)
	c.OnCleanup(func(context.Context) error { return database.Close() })

	// Leaderboard falls back to SQL when the store interface is nil
	var board gamification.LeaderboardStore
	if rc, err := cache.NewRedisClient(cfg.RedisAddr(), cfg.Redis.Password); err != nil {
		logger.WarnWithFields("Redis unavailable, caching and rate limits run in memory", err)
	} else {
		c.SetCache(rc)
		board = rc
		c.OnCleanup(func(context.Context) error { return rc.Close() })
	}

	users := repository.NewUserRepository(database.DB)
	opts := auth.Options{JWTSecret: []byte(cfg.JWTSecret), TokenTTL: cfg.JWTTTL, Issuer: cfg.Telemetry.ServiceName}
	if google, err := cfg.GoogleOAuth(); err == nil {
		opts.Google = google
	} else {
		logger.Log.Info("Google sign-in disabled", zap.Error(err))
	}
	c.SetAuthService(auth.NewService(database.DB, users, opts))
	c.SetGamification(gamification.NewService(database.DB, users, board))

	if cfg.Elasticsearch.URL != "" {
		client, err := search.NewClient(cfg.Elasticsearch)
		if err == nil {
			err = client.EnsureIndex(ctx)
		}
		if err != nil {
			logger.WarnWithFields("Elasticsearch unavailable, search falls back to the database", err)
		} else {
			c.SetSearchClient(client)
		}
	}

	if cfg.S3.Bucket != "" {
		uploader, err := storage.NewS3Uploader(ctx, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.CDNURL, cfg.S3.MaxUpload)
		if err != nil {
			logger.WarnWithFields("Failed to initialize S3 uploader", err)
		} else {
			if err := uploader.CheckBucketAccess(ctx); err != nil {
				logger.WarnWithFields("S3 bucket access failed, uploads will fail", err)
			}
			c.SetUploader(uploader)
		}
	}

	c.SetEmailSender(email.NewSender(cfg.SES.Region, cfg.SES.FromEmail, cfg.SES.FromName, cfg.BaseURL))

	if cfg.Stream.APIKey != "" {
		feed, err := stream.NewClient(cfg.Stream.APIKey, cfg.Stream.APISecret)
		if err != nil {
			logger.WarnWithFields("Stream feed disabled", err)
		} else {
			c.SetFeedClient(feed)
		}
	}

	hub := websocket.NewHub()
	hub.Start()
	c.SetWebSocketHandler(websocket.NewHandler(hub, c.Auth(), cfg.CORSOrigins))

	return c, c.Validate()
}

func newRouter(cfg *config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.TracingMiddleware(cfg.Telemetry.ServiceName))
	r.Use(middleware.CorrelationMiddleware())
	r.Use(middleware.SpanEnrichmentMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws", "/metrics"})))

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID", "X-Correlation-ID", "X-Act-As-User"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-Correlation-ID", "X-Cache", "X-RateLimit-Remaining"}
	r.Use(cors.New(corsConfig))
	return r
}

// recordDBStats publishes the pool size until stop is closed
func recordDBStats(stop <-chan struct{}) {
	ticker := time.NewTicker(dbStatsInterval)
	defer ticker.Stop()
	for {
		sqlDB, err := database.DB.DB()
		if err == nil {
			metrics.Get().DatabaseConnectionsOpen.WithLabelValues(database.DB.Dialector.Name()).Set(float64(sqlDB.Stats().OpenConnections))
		}
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}
