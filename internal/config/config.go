package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Storage
	StorageBackend string // memory | redis | postgres
	DatabaseURL    string
	RedisURL       string

	// JWT
	JWTSecret string

	// Tracking
	TickInterval      time.Duration
	SleepGapThreshold time.Duration
	RetentionDays     int

	// Sync
	SyncMarkOnExport bool

	// Frontend / extension origin
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:              getEnvOrDefault("PORT", "8080"),
		Env:               getEnvOrDefault("ENV", "development"),
		StorageBackend:    getEnvOrDefault("STORAGE_BACKEND", "memory"),
		DatabaseURL:       getEnvOrDefault("DATABASE_URL", ""),
		RedisURL:          getEnvOrDefault("REDIS_URL", ""),
		JWTSecret:         mustGetEnv("JWT_SECRET"),
		TickInterval:      time.Duration(getEnvAsIntOrDefault("TICK_INTERVAL_SECONDS", 15)) * time.Second,
		SleepGapThreshold: time.Duration(getEnvAsIntOrDefault("SLEEP_GAP_MINUTES", 5)) * time.Minute,
		RetentionDays:     getEnvAsIntOrDefault("RETENTION_DAYS", 90),
		SyncMarkOnExport:  getEnvAsBoolOrDefault("SYNC_MARK_ON_EXPORT", false),
		FrontendURL:       getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	switch cfg.StorageBackend {
	case "memory":
	case "redis":
		if cfg.RedisURL == "" {
			panic("STORAGE_BACKEND=redis requires REDIS_URL")
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			panic("STORAGE_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		panic(fmt.Sprintf("unknown STORAGE_BACKEND %q", cfg.StorageBackend))
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
