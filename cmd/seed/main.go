package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/contentanonymity/backend/internal/cache"
	"github.com/contentanonymity/backend/internal/config"
	"github.com/contentanonymity/backend/internal/database"
	"github.com/contentanonymity/backend/internal/gamification"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/repository"
	"github.com/contentanonymity/backend/internal/seed"
	"github.com/contentanonymity/backend/internal/stream"
	"go.uber.org/zap"
)

func usage() {
	fmt.Println("Usage: seed [-seed N] [dev|test|clean]")
	fmt.Println("  dev   - Seed development database with realistic data")
	fmt.Println("  test  - Seed the fixed end-to-end test accounts")
	fmt.Println("  clean - Remove all seed data, leaving real rows alone")
}

func main() {
	randomSeed := flag.Uint64("seed", 0, "faker seed, 0 for random")
	flag.Usage = usage
	flag.Parse()

	command := "dev"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}
	if command != "dev" && command != "test" && command != "clean" {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.IsProduction() && command != "clean" {
		fmt.Fprintln(os.Stderr, "Refusing to seed a production database")
		os.Exit(1)
	}
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	if err := run(cfg, command, *randomSeed); err != nil {
		logger.FatalWithFields("Seeding failed", err)
	}
	logger.Log.Info("Seeding finished", zap.String("command", command))
}

func run(cfg *config.Config, command string, randomSeed uint64) error {
	ctx := context.Background()

	if err := database.Initialize(cfg.Database, false); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		return err
	}

	seeder := seed.NewSeeder(database.DB, randomSeed)
	if command == "clean" {
		return seeder.Clean()
	}

	// Keep the Redis leaderboard in step with the seeded points
	if rc, err := cache.NewRedisClient(cfg.RedisAddr(), cfg.Redis.Password); err == nil {
		defer rc.Close()
		seeder.SetGamification(gamification.NewService(database.DB, repository.NewUserRepository(database.DB), rc))
	} else {
		logger.Log.Info("Redis not available, skipping leaderboard sync")
	}

	if cfg.Stream.APIKey != "" {
		feed, err := stream.NewClient(cfg.Stream.APIKey, cfg.Stream.APISecret)
		if err != nil {
			logger.WarnWithFields("Stream feed disabled", err)
		} else {
			seeder.SetFeedClient(feed)
		}
	} else {
		logger.Log.Info("STREAM_API_KEY not set, skipping activity feed seeding")
	}

	if command == "test" {
		return seeder.SeedTest(ctx)
	}
	return seeder.SeedDev(ctx)
}
