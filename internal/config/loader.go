package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load merges the TOML file at path (if it exists) over the defaults, loads
// .env if present and applies environment overrides. The result is NOT
// validated; call Config.Validate.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// applyEnvOverrides overwrites fields for every well-known variable that is
// set and non-empty, so secrets can be injected without touching the file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setStr(&cfg.Server.Host, "PULSEBOARD_SERVER_HOST")
	setInt(&cfg.Server.Port, "PORT")
	setInt(&cfg.Server.Port, "PULSEBOARD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PULSEBOARD_SERVER_CORS_ORIGINS")
	setDuration(&cfg.Server.ShutdownTimeout, "PULSEBOARD_SERVER_SHUTDOWN_TIMEOUT")

	// ── Weather ──
	setStr(&cfg.Weather.BaseURL, "PULSEBOARD_WEATHER_BASE_URL")
	setStr(&cfg.Weather.City, "PULSEBOARD_WEATHER_CITY")
	setFloat64(&cfg.Weather.Latitude, "PULSEBOARD_WEATHER_LATITUDE")
	setFloat64(&cfg.Weather.Longitude, "PULSEBOARD_WEATHER_LONGITUDE")

	// ── Crypto ──
	setStr(&cfg.Crypto.BaseURL, "PULSEBOARD_CRYPTO_BASE_URL")
	setStr(&cfg.Crypto.APIKey, "COINMARKETCAP_API_KEY")
	setStr(&cfg.Crypto.APIKey, "PULSEBOARD_CRYPTO_API_KEY")

	// ── News ──
	setStr(&cfg.News.BaseURL, "PULSEBOARD_NEWS_BASE_URL")
	setStr(&cfg.News.APIKey, "NEWSAPI_KEY")
	setStr(&cfg.News.APIKey, "PULSEBOARD_NEWS_API_KEY")
	setStr(&cfg.News.Category, "PULSEBOARD_NEWS_CATEGORY")

	// ── Providers / push ──
	setDuration(&cfg.Providers.Timeout, "PULSEBOARD_PROVIDERS_TIMEOUT")
	setBool(&cfg.Providers.BreakerEnabled, "PULSEBOARD_PROVIDERS_BREAKER_ENABLED")
	setDuration(&cfg.Push.Interval, "PULSEBOARD_PUSH_INTERVAL")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "PULSEBOARD_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "PULSEBOARD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PULSEBOARD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PULSEBOARD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PULSEBOARD_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "PULSEBOARD_REDIS_TLS_ENABLED")

	// ── Rate limit ──
	setBool(&cfg.RateLimit.Enabled, "PULSEBOARD_RATE_LIMIT_ENABLED")
	setInt(&cfg.RateLimit.Requests, "PULSEBOARD_RATE_LIMIT_REQUESTS")
	setDuration(&cfg.RateLimit.Window, "PULSEBOARD_RATE_LIMIT_WINDOW")

	setStr(&cfg.LogLevel, "PULSEBOARD_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the variable is
// present, non-empty and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
