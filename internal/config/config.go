package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Queue    QueueConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Channel carries realtime request-row events for the mirror bridge.
	Channel string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	BootstrapUsername     string
	BootstrapPassword     string
}

// QueueConfig tunes the intake queue: presence heartbeat, mirror
// reconciliation and the submission gate windows.
type QueueConfig struct {
	HeartbeatSeconds  int
	ReconcileSeconds  int
	CooldownMinutes   int
	SpamMaxAttempts   int
	SpamWindowMinutes int
	SpamBlockMinutes  int
	HistoryWindowDays int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "bonus-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			Channel:  getEnv("REDIS_FEED_CHANNEL", "bonusdesk.requests"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 480),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			BootstrapUsername:     getEnv("AUTH_BOOTSTRAP_USERNAME", "admin"),
			BootstrapPassword:     getEnv("AUTH_BOOTSTRAP_PASSWORD", "change-me-now"),
		},
		Queue: QueueConfig{
			HeartbeatSeconds:  getEnvAsInt("QUEUE_HEARTBEAT_SECONDS", 30),
			ReconcileSeconds:  getEnvAsInt("QUEUE_RECONCILE_SECONDS", 5),
			CooldownMinutes:   getEnvAsInt("QUEUE_COOLDOWN_MINUTES", 30),
			SpamMaxAttempts:   getEnvAsInt("QUEUE_SPAM_MAX_ATTEMPTS", 5),
			SpamWindowMinutes: getEnvAsInt("QUEUE_SPAM_WINDOW_MINUTES", 10),
			SpamBlockMinutes:  getEnvAsInt("QUEUE_SPAM_BLOCK_MINUTES", 15),
			HistoryWindowDays: getEnvAsInt("QUEUE_HISTORY_WINDOW_DAYS", 30),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Reconcile returns the mirror reconciliation sweep interval.
func (q QueueConfig) Reconcile() time.Duration {
	return time.Duration(q.ReconcileSeconds) * time.Second
}

// Cooldown returns the post-decision submission cooldown window.
func (q QueueConfig) Cooldown() time.Duration {
	return time.Duration(q.CooldownMinutes) * time.Minute
}

// SpamWindow returns the sliding window over which submission attempts count.
func (q QueueConfig) SpamWindow() time.Duration {
	return time.Duration(q.SpamWindowMinutes) * time.Minute
}

// SpamBlock returns how long a submitter stays blocked after abuse.
func (q QueueConfig) SpamBlock() time.Duration {
	return time.Duration(q.SpamBlockMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
