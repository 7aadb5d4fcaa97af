package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Typesense TypesenseConfig
	Refresh   RefreshConfig
	Cache     CacheConfig
	Breaker   BreakerConfig
	Promotion PromotionConfig
	Sources   SourcesConfig
	OTEL      OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL    string
	APIKey string
}

// RefreshConfig controls the background dataset refresh jobs
type RefreshConfig struct {
	Interval     time.Duration
	FetchTimeout time.Duration
}

// CacheConfig maps adaptive cache TTL classes to durations
type CacheConfig struct {
	UrgentTTL   time.Duration
	StandardTTL time.Duration
	ResearchTTL time.Duration
	MaxEntries  int
}

// BreakerConfig controls the per-dependency circuit breakers
type BreakerConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
}

// PromotionConfig holds the automatic promotion thresholds
type PromotionConfig struct {
	PeriodThreshold   int
	LifetimeThreshold int
}

// SourcesConfig selects the upstream providers for the enumerable datasets
type SourcesConfig struct {
	DrugProvider    string
	DrugBaseURL     string
	DiseaseProvider string
	DiseaseBaseURL  string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "careref"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Typesense: TypesenseConfig{
			URL:    getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey: getEnv("TYPESENSE_API_KEY", "xyz"),
		},
		Refresh: RefreshConfig{
			Interval:     getEnvAsDuration("REFRESH_INTERVAL", time.Hour),
			FetchTimeout: getEnvAsDuration("REFRESH_FETCH_TIMEOUT", 10*time.Second),
		},
		Cache: CacheConfig{
			UrgentTTL:   getEnvAsDuration("CACHE_URGENT_TTL", 30*time.Minute),
			StandardTTL: getEnvAsDuration("CACHE_STANDARD_TTL", 60*time.Minute),
			ResearchTTL: getEnvAsDuration("CACHE_RESEARCH_TTL", 180*time.Minute),
			MaxEntries:  getEnvAsInt("CACHE_MAX_ENTRIES", 4096),
		},
		Breaker: BreakerConfig{
			FailureThreshold: getEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5),
			Cooldown:         getEnvAsDuration("BREAKER_COOLDOWN", 60*time.Second),
		},
		Promotion: PromotionConfig{
			PeriodThreshold:   getEnvAsInt("PROMOTION_PERIOD_THRESHOLD", 50),
			LifetimeThreshold: getEnvAsInt("PROMOTION_LIFETIME_THRESHOLD", 100),
		},
		Sources: SourcesConfig{
			DrugProvider:    getEnv("DRUG_SOURCE_PROVIDER", "static"),
			DrugBaseURL:     getEnv("DRUG_SOURCE_URL", "https://rxnav.nlm.nih.gov/REST"),
			DiseaseProvider: getEnv("DISEASE_SOURCE_PROVIDER", "static"),
			DiseaseBaseURL:  getEnv("DISEASE_SOURCE_URL", "https://clinicaltables.nlm.nih.gov/api/conditions/v3"),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "careref-backend"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that would break refresh or breaker behavior
func (c *Config) Validate() error {
	if c.Refresh.Interval < time.Minute {
		return fmt.Errorf("REFRESH_INTERVAL must be at least 1m, got %v", c.Refresh.Interval)
	}
	if c.Refresh.FetchTimeout <= 0 || c.Refresh.FetchTimeout >= c.Refresh.Interval {
		return fmt.Errorf("REFRESH_FETCH_TIMEOUT must be positive and shorter than REFRESH_INTERVAL")
	}
	if c.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be at least 1")
	}
	if c.Breaker.Cooldown <= 0 {
		return fmt.Errorf("BREAKER_COOLDOWN must be positive")
	}
	if c.Promotion.PeriodThreshold < 1 || c.Promotion.LifetimeThreshold < 1 {
		return fmt.Errorf("promotion thresholds must be at least 1")
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
