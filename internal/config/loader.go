package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// StoreKind selects the persistence backend.
type StoreKind string

const (
	// StoreSQLite keeps every record in SQLite.
	StoreSQLite StoreKind = "sqlite"
	// StoreRedis keeps schedule states in Redis and everything else in SQLite.
	StoreRedis StoreKind = "redis"
	// StoreMemory keeps every record in process memory.
	StoreMemory StoreKind = "memory"
)

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	HTTPPort         int
	Store            StoreKind
	SQLiteDSN        string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	LogLevel         slog.Level
	LogFormat        string
	RetryAttempts    int
	RateLimit        float64
	EngineConfigPath string
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// required values and reporting localized error messages for missing entries.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:      8080,
		Store:         StoreSQLite,
		SQLiteDSN:     "data/scheduler.db",
		LogLevel:      slog.LevelInfo,
		LogFormat:     "text",
		RetryAttempts: 3,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := env("SCHEDULER_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "SCHEDULER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if storeValue := env("SCHEDULER_STORE"); storeValue != "" {
		switch kind := StoreKind(strings.ToLower(storeValue)); kind {
		case StoreSQLite, StoreRedis, StoreMemory:
			cfg.Store = kind
		default:
			invalid = append(invalid, "SCHEDULER_STORE")
		}
	}

	if dsn := env("SCHEDULER_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	cfg.RedisAddr = env("SCHEDULER_REDIS_ADDR")
	if cfg.Store == StoreRedis && cfg.RedisAddr == "" {
		missing = append(missing, "SCHEDULER_REDIS_ADDR")
	}
	cfg.RedisPassword = os.Getenv("SCHEDULER_REDIS_PASSWORD")
	if dbValue := env("SCHEDULER_REDIS_DB"); dbValue != "" {
		db, err := strconv.Atoi(dbValue)
		if err != nil || db < 0 {
			invalid = append(invalid, "SCHEDULER_REDIS_DB")
		} else {
			cfg.RedisDB = db
		}
	}

	if levelValue := env("SCHEDULER_LOG_LEVEL"); levelValue != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(levelValue)); err != nil {
			invalid = append(invalid, "SCHEDULER_LOG_LEVEL")
		}
	}

	if formatValue := env("SCHEDULER_LOG_FORMAT"); formatValue != "" {
		switch format := strings.ToLower(formatValue); format {
		case "text", "json":
			cfg.LogFormat = format
		default:
			invalid = append(invalid, "SCHEDULER_LOG_FORMAT")
		}
	}

	if attemptsValue := env("SCHEDULER_RETRY_ATTEMPTS"); attemptsValue != "" {
		attempts, err := strconv.Atoi(attemptsValue)
		if err != nil || attempts <= 0 {
			invalid = append(invalid, "SCHEDULER_RETRY_ATTEMPTS")
		} else {
			cfg.RetryAttempts = attempts
		}
	}

	if rateValue := env("SCHEDULER_RATE_LIMIT"); rateValue != "" {
		rate, err := strconv.ParseFloat(rateValue, 64)
		if err != nil || rate < 0 {
			invalid = append(invalid, "SCHEDULER_RATE_LIMIT")
		} else {
			cfg.RateLimit = rate
		}
	}

	cfg.EngineConfigPath = env("SCHEDULER_ENGINE_CONFIG")

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
