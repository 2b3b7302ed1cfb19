package main

import (
	"fmt"
	"os"

	"github.com/contentanonymity/backend/internal/config"
	"github.com/contentanonymity/backend/internal/database"
	"github.com/contentanonymity/backend/internal/logger"
	"go.uber.org/zap"
)

func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up", "down", "status", "auto":
	default:
		fmt.Println("Usage: migrate [up|down|status|auto]")
		fmt.Println("  up     - AutoMigrate the models, then apply pending SQL migrations")
		fmt.Println("  down   - Roll back the last SQL migration")
		fmt.Println("  status - Show which SQL migrations are applied")
		fmt.Println("  auto   - Only run GORM AutoMigrate")
		os.Exit(1)
	}

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

	if err := run(cfg, command); err != nil {
		logger.FatalWithFields("Migration failed", err)
	}
	logger.Log.Info("Migration finished", zap.String("command", command))
}

func run(cfg *config.Config, command string) error {
	if err := database.Initialize(cfg.Database, false); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	switch command {
	case "up":
		return database.Migrate()
	case "auto":
		return database.AutoMigrate(database.DB)
	}

	// The versioned migrations only exist for PostgreSQL
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("%s needs DB_DRIVER=postgres, got %q", command, cfg.Database.Driver)
	}
	sqlDB, err := database.DB.DB()
	if err != nil {
		return err
	}
	return database.RunSQLMigrations(sqlDB, command)
}
