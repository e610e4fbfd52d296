package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string

	// PostgresDSN is optional; empty runs the engine without a journal.
	PostgresDSN string

	// RedisAddr is optional; empty runs without the snapshot cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Symbols to warm-start from the journal at boot.
	Symbols []string

	LogLevel string
	Pretty   bool
}

func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		CacheTTL: 5 * time.Minute,
		LogLevel: "info",
	}
}

// Load reads configuration from a .env file (if present) and environment
// variables. Priority: environment > .env file > defaults.
func Load() Config {
	cfg := Default()
	_ = godotenv.Load()

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.RedisDB = db
		}
	}
	if v := os.Getenv("CACHE_TTL_SECONDS"); v != "" {
		if s, err := strconv.Atoi(v); err == nil {
			cfg.CacheTTL = time.Duration(s) * time.Second
		}
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.Symbols = append(cfg.Symbols, s)
			}
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		cfg.Pretty = v == "1" || strings.EqualFold(v, "true")
	}
	return cfg
}
