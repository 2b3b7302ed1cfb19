package database

import (
	"fmt"
	"time"

	"github.com/contentanonymity/backend/internal/config"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// AllModels lists every table AutoMigrate manages, in dependency order
var AllModels = []interface{}{
	&models.User{},
	&models.PasswordReset{},
	&models.Article{},
	&models.Tool{},
	&models.Template{},
	&models.PlatformGuide{},
	&models.Niche{},
	&models.ForumPost{},
	&models.ForumReply{},
	&models.ForumVote{},
	&models.LearningPath{},
	&models.Lesson{},
	&models.Enrollment{},
	&models.LessonProgress{},
	&models.PointEvent{},
	&models.UserBadge{},
	&models.Subscriber{},
	&models.ImportRun{},
}

// Initialize opens the configured database and stores it in DB
func Initialize(cfg config.DatabaseConfig, verbose bool) error {
	db, err := Open(cfg, verbose)
	if err != nil {
		return err
	}
	DB = db
	logger.Log.Info("Database connected", zap.String("driver", cfg.Driver))
	return nil
}

// Open creates and configures a connection without touching the global
func Open(cfg config.DatabaseConfig, verbose bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.URL)
	case "sqlite":
		dialector = sqlite.Open(cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormLogger := gormlogger.Default.LogMode(gormlogger.Warn)
	if verbose {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Use(telemetry.GORMTracingPlugin()); err != nil {
		return nil, fmt.Errorf("failed to register tracing plugin: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// SQLite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return db, nil
}

// OpenInMemory returns a private, fully migrated in-memory SQLite database
func OpenInMemory() (*gorm.DB, error) {
	db, err := Open(config.DatabaseConfig{
		Driver: "sqlite",
		URL:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	}, false)
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs AutoMigrate plus the versioned SQL migrations on DB
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := AutoMigrate(DB); err != nil {
		return err
	}
	if DB.Dialector.Name() == "postgres" {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		if err := RunSQLMigrations(sqlDB, "up"); err != nil {
			return err
		}
	}
	logger.Log.Info("Database migrations completed")
	return nil
}

// AutoMigrate creates or updates every table for the given connection
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}
