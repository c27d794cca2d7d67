package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Engine   EngineConfig
	Log      LogConfig
	OTEL     OTELConfig
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

// Missing-day and near-me policies understood by the engine.
const (
	MissingDayClosed  = "closed"
	MissingDayUnknown = "unknown"

	NearMeReject = "reject"
	NearMeError  = "error"

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// EngineConfig holds availability and filtering engine configuration
type EngineConfig struct {
	CacheTTLSeconds       int
	CacheSize             int
	CacheBackend          string
	MissingDayPolicy      string
	NearMeWithoutLocation string
	DefaultRadiusMiles    float64
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
	Env   string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "kosher_directory"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Engine: EngineConfig{
			CacheTTLSeconds:       getEnvAsInt("SCHEDULE_CACHE_TTL_SECONDS", 300),
			CacheSize:             getEnvAsInt("SCHEDULE_CACHE_SIZE", 10000),
			CacheBackend:          strings.ToLower(getEnv("SCHEDULE_CACHE_BACKEND", CacheBackendMemory)),
			MissingDayPolicy:      strings.ToLower(getEnv("MISSING_DAY_POLICY", MissingDayClosed)),
			NearMeWithoutLocation: strings.ToLower(getEnv("NEAR_ME_WITHOUT_LOCATION", NearMeReject)),
			DefaultRadiusMiles:    getEnvAsFloat("DEFAULT_RADIUS_MILES", 10),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			Env:   getEnv("ENV", "production"),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "kosher-discovery"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects policy values the engine does not understand
func (c *EngineConfig) Validate() error {
	switch c.MissingDayPolicy {
	case MissingDayClosed, MissingDayUnknown:
	default:
		return fmt.Errorf("invalid MISSING_DAY_POLICY %q", c.MissingDayPolicy)
	}
	switch c.NearMeWithoutLocation {
	case NearMeReject, NearMeError:
	default:
		return fmt.Errorf("invalid NEAR_ME_WITHOUT_LOCATION %q", c.NearMeWithoutLocation)
	}
	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("invalid SCHEDULE_CACHE_BACKEND %q", c.CacheBackend)
	}
	if c.CacheTTLSeconds <= 0 {
		return fmt.Errorf("SCHEDULE_CACHE_TTL_SECONDS must be positive, got %d", c.CacheTTLSeconds)
	}
	return nil
}

// CacheTTL returns the schedule cache TTL as a duration
func (c *EngineConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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
