// Package validation checks at startup that the external services an
// operator marked as required are reachable.
package validation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/contentanonymity/backend/internal/config"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/search"
	"github.com/contentanonymity/backend/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const checkTimeout = 10 * time.Second

// Check reports whether one service is usable
type Check func(ctx context.Context) error

// ServiceValidator handles validation of optional services
type ServiceValidator struct {
	requiredServices []string
	checks           map[string]Check
}

// NewServiceValidator creates a validator whose checks dial the services
// described by cfg. Required services come from CONTENTANONYMITY_REQUIRE_*.
func NewServiceValidator(cfg *config.Config) *ServiceValidator {
	return &ServiceValidator{
		requiredServices: parseRequiredServices(),
		checks:           defaultChecks(cfg),
	}
}

// Require marks services as required in addition to the environment flags
func (sv *ServiceValidator) Require(services ...string) *ServiceValidator {
	for _, s := range services {
		s = strings.ToLower(s)
		if !contains(sv.requiredServices, s) {
			sv.requiredServices = append(sv.requiredServices, s)
		}
	}
	return sv
}

// SetCheck replaces the check for a service
func (sv *ServiceValidator) SetCheck(service string, check Check) *ServiceValidator {
	sv.checks[strings.ToLower(service)] = check
	return sv
}

// Required lists the services that must pass
func (sv *ServiceValidator) Required() []string {
	return append([]string(nil), sv.requiredServices...)
}

// ValidateServices validates all configured services
func (sv *ServiceValidator) ValidateServices(ctx context.Context) error {
	if len(sv.requiredServices) == 0 {
		logger.Log.Info("No required services configured for validation")
		return nil
	}

	logger.Log.Info("Validating required services", zap.Strings("services", sv.requiredServices))

	for _, serviceName := range sv.requiredServices {
		check, ok := sv.checks[serviceName]
		if !ok {
			logger.Log.Warn("Unknown service type in validation", zap.String("service", serviceName))
			continue
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := check(timeoutCtx)
		cancel()
		if err != nil {
			logger.Log.Error("Required service validation failed",
				zap.String("service", serviceName),
				zap.Error(err))
			return fmt.Errorf("required service %q: %w", serviceName, err)
		}

		logger.Log.Info("Service validated", zap.String("service", serviceName))
	}

	logger.Log.Info("All required services validated")
	return nil
}

// defaultChecks returns a map of service names to their validation functions
func defaultChecks(cfg *config.Config) map[string]Check {
	return map[string]Check{
		"elasticsearch": func(ctx context.Context) error { return validateElasticsearch(ctx, cfg) },
		"s3":            func(ctx context.Context) error { return validateS3(ctx, cfg) },
		"redis":         func(ctx context.Context) error { return validateRedis(ctx, cfg) },
	}
}

// validateElasticsearch checks if Elasticsearch is reachable
func validateElasticsearch(ctx context.Context, cfg *config.Config) error {
	if cfg.Elasticsearch.URL == "" {
		return errors.New("ELASTICSEARCH_URL is not set")
	}
	client, err := search.NewClient(cfg.Elasticsearch)
	if err != nil {
		return fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	return client.Ping(ctx)
}

// validateS3 checks if the S3 bucket is accessible
func validateS3(ctx context.Context, cfg *config.Config) error {
	if cfg.S3.Region == "" || cfg.S3.Bucket == "" {
		return errors.New("AWS_REGION and S3_BUCKET are required for S3 validation")
	}
	uploader, err := storage.NewS3Uploader(ctx, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.CDNURL, cfg.S3.MaxUpload)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}
	return uploader.CheckBucketAccess(ctx)
}

// validateRedis checks if Redis is reachable. It dials a throwaway client so
// the shared cache client is left untouched.
func validateRedis(ctx context.Context, cfg *config.Config) error {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
	})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

// parseRequiredServices reads the CONTENTANONYMITY_REQUIRE_<SERVICE> flags
func parseRequiredServices() []string {
	var required []string
	for _, service := range knownServices() {
		envVar := fmt.Sprintf("CONTENTANONYMITY_REQUIRE_%s", strings.ToUpper(service))
		if isTruthy(os.Getenv(envVar)) {
			required = append(required, service)
		}
	}
	return required
}

func knownServices() []string {
	names := make([]string, 0, 3)
	for name := range defaultChecks(&config.Config{}) {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// isTruthy checks if a string value represents a truthy value
func isTruthy(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
