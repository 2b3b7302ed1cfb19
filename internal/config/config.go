package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration of the API server.
type Config struct {
	Port        string
	Environment string
	BaseURL     string
	CORSOrigins []string
	LogLevel    string
	LogFile     string

	Database      DatabaseConfig
	Redis         RedisConfig
	Elasticsearch ElasticsearchConfig
	S3            S3Config
	SES           SESConfig
	Stream        StreamConfig
	Google        GoogleConfig
	Telemetry     TelemetryConfig
	RateLimit     RateLimitConfig

	JWTSecret string
	JWTTTL    time.Duration

	// CacheTTL for anonymous catalog responses; zero turns the cache off
	CacheTTL time.Duration
}

type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	URL             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

type ElasticsearchConfig struct {
	URL             string
	Username        string
	Password        string
	ReindexInterval time.Duration
}

type S3Config struct {
	Region    string
	Bucket    string
	CDNURL    string
	MaxUpload int64
}

type SESConfig struct {
	Region    string
	FromEmail string
	FromName  string
}

type StreamConfig struct {
	APIKey    string
	APISecret string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

type RateLimitConfig struct {
	RequestsPerMinute int
	AuthPerMinute     int
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8787"),
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		BaseURL:     getEnvOrDefault("BASE_URL", "http://localhost:8787"),
		CORSOrigins: splitList(getEnvOrDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:     getEnvOrDefault("LOG_FILE", "server.log"),

		Database: DatabaseConfig{
			Driver:          strings.ToLower(getEnvOrDefault("DB_DRIVER", "postgres")),
			URL:             databaseURL(),
			MaxIdleConns:    getIntOrDefault("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getIntOrDefault("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getDurationOrDefault("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Elasticsearch: ElasticsearchConfig{
			URL:      getEnvOrDefault("ELASTICSEARCH_URL", "http://localhost:9200"),
			Username: os.Getenv("ELASTICSEARCH_USERNAME"),
			Password: os.Getenv("ELASTICSEARCH_PASSWORD"),

			ReindexInterval: getDurationOrDefault("SEARCH_REINDEX_INTERVAL", time.Hour),
		},
		S3: S3Config{
			Region:    getEnvOrDefault("AWS_REGION", "us-east-1"),
			Bucket:    os.Getenv("AWS_BUCKET"),
			CDNURL:    os.Getenv("CDN_URL"),
			MaxUpload: int64(getIntOrDefault("MAX_UPLOAD_BYTES", 5<<20)),
		},
		SES: SESConfig{
			Region:    getEnvOrDefault("SES_REGION", getEnvOrDefault("AWS_REGION", "us-east-1")),
			FromEmail: os.Getenv("SES_FROM_EMAIL"),
			FromName:  getEnvOrDefault("SES_FROM_NAME", "ContentAnonymity"),
		},
		Stream: StreamConfig{
			APIKey:    os.Getenv("STREAM_API_KEY"),
			APISecret: os.Getenv("STREAM_API_SECRET"),
		},
		Google: GoogleConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("OAUTH_REDIRECT_URL"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolOrDefault("OTEL_ENABLED", false),
			OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName:  getEnvOrDefault("OTEL_SERVICE_NAME", "contentanonymity-backend"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getIntOrDefault("RATE_LIMIT_PER_MINUTE", 120),
			AuthPerMinute:     getIntOrDefault("AUTH_RATE_LIMIT_PER_MINUTE", 10),
		},

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTTTL:    getDurationOrDefault("JWT_TTL", 24*time.Hour),
		CacheTTL:  getDurationOrDefault("RESPONSE_CACHE_TTL", 2*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails fast on settings the server cannot run without.
func (c *Config) Validate() error {
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.IsProduction() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET environment variable not set")
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
	} else if c.JWTSecret == "" {
		c.JWTSecret = "dev-secret-change-me"
	}
	if c.S3.MaxUpload <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	if strings.ToLower(os.Getenv("DB_DRIVER")) == "sqlite" {
		return getEnvOrDefault("DB_PATH", "contentanonymity.db")
	}

	host := getEnvOrDefault("DB_HOST", "localhost")
	port := getEnvOrDefault("DB_PORT", "5432")
	user := getEnvOrDefault("DB_USER", "postgres")
	password := getEnvOrDefault("DB_PASSWORD", "")
	dbname := getEnvOrDefault("DB_NAME", "contentanonymity")
	sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
