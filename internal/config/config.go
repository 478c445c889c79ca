// Package config defines the configuration of the dashboard backend and its
// terminal client, and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from
// defaults, an optional TOML file and then PULSEBOARD_* environment
// variables.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Weather   WeatherConfig   `toml:"weather"`
	Crypto    CryptoConfig    `toml:"crypto"`
	News      NewsConfig      `toml:"news"`
	Providers ProvidersConfig `toml:"providers"`
	Push      PushConfig      `toml:"push"`
	Redis     RedisConfig     `toml:"redis"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	LogLevel  string          `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	ShutdownTimeout duration `toml:"shutdown_timeout"`
}

// WeatherConfig fixes the location the dashboard reports weather for.
type WeatherConfig struct {
	BaseURL   string  `toml:"base_url"`
	City      string  `toml:"city"`
	Latitude  float64 `toml:"latitude"`
	Longitude float64 `toml:"longitude"`
}

// CryptoConfig holds CoinMarketCap settings.
type CryptoConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// NewsConfig holds NewsAPI settings.
type NewsConfig struct {
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
	Category string `toml:"category"`
}

// ProvidersConfig holds settings shared by all upstream clients.
type ProvidersConfig struct {
	Timeout duration `toml:"timeout"`

	// Breaker settings apply to each provider independently.
	BreakerEnabled      bool     `toml:"breaker_enabled"`
	BreakerFailureRatio float64  `toml:"breaker_failure_ratio"`
	BreakerMinRequests  int      `toml:"breaker_min_requests"`
	BreakerCooldown     duration `toml:"breaker_cooldown"`
}

// PushConfig holds push scheduler settings.
type PushConfig struct {
	Interval duration `toml:"interval"`
}

// RedisConfig holds Redis connection parameters. Redis is optional; it is
// only needed when several replicas share one push stream.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// RateLimitConfig limits /dashboard requests per client IP.
type RateLimitConfig struct {
	Enabled  bool     `toml:"enabled"`
	Requests int      `toml:"requests"`
	Window   duration `toml:"window"`
}

// duration wraps time.Duration so the TOML decoder can parse strings such
// as "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the built-in defaults.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            3000,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			ShutdownTimeout: duration{10 * time.Second},
		},
		Weather: WeatherConfig{
			BaseURL:   "https://api.open-meteo.com",
			City:      "London",
			Latitude:  51.5074,
			Longitude: -0.1278,
		},
		Crypto: CryptoConfig{
			BaseURL: "https://pro-api.coinmarketcap.com",
		},
		News: NewsConfig{
			BaseURL:  "https://newsapi.org",
			Category: "technology",
		},
		Providers: ProvidersConfig{
			Timeout:             duration{10 * time.Second},
			BreakerEnabled:      true,
			BreakerFailureRatio: 0.6,
			BreakerMinRequests:  5,
			BreakerCooldown:     duration{time.Minute},
		},
		Push: PushConfig{
			Interval: duration{30 * time.Second},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		RateLimit: RateLimitConfig{
			Enabled:  false,
			Requests: 60,
			Window:   duration{time.Minute},
		},
		LogLevel: "info",
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if c.Weather.BaseURL == "" {
		errs = append(errs, "weather: base_url must not be empty")
	}
	if c.Weather.Latitude < -90 || c.Weather.Latitude > 90 {
		errs = append(errs, fmt.Sprintf("weather: latitude must be -90..90, got %g", c.Weather.Latitude))
	}
	if c.Weather.Longitude < -180 || c.Weather.Longitude > 180 {
		errs = append(errs, fmt.Sprintf("weather: longitude must be -180..180, got %g", c.Weather.Longitude))
	}

	if c.Crypto.APIKey == "" {
		errs = append(errs, "crypto: api_key is required (set COINMARKETCAP_API_KEY)")
	}
	if c.News.APIKey == "" {
		errs = append(errs, "news: api_key is required (set NEWSAPI_KEY)")
	}

	if c.Providers.Timeout.Duration < 0 {
		errs = append(errs, "providers: timeout must not be negative")
	}
	if c.Providers.BreakerEnabled {
		if c.Providers.BreakerFailureRatio <= 0 || c.Providers.BreakerFailureRatio > 1 {
			errs = append(errs, fmt.Sprintf("providers: breaker_failure_ratio must be in (0, 1], got %g", c.Providers.BreakerFailureRatio))
		}
		if c.Providers.BreakerMinRequests < 1 {
			errs = append(errs, "providers: breaker_min_requests must be >= 1")
		}
		if c.Providers.BreakerCooldown.Duration <= 0 {
			errs = append(errs, "providers: breaker_cooldown must be > 0")
		}
	}
	if c.Push.Interval.Duration < time.Second {
		errs = append(errs, fmt.Sprintf("push: interval must be at least 1s, got %s", c.Push.Interval.Duration))
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Requests < 1 {
			errs = append(errs, "rate_limit: requests must be >= 1 when enabled")
		}
		if c.RateLimit.Window.Duration <= 0 {
			errs = append(errs, "rate_limit: window must be > 0 when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c *Config) ShutdownTimeout() time.Duration { return c.Server.ShutdownTimeout.Duration }

// ProviderTimeout returns the per-request upstream timeout.
func (c *Config) ProviderTimeout() time.Duration { return c.Providers.Timeout.Duration }

// BreakerCooldown returns how long an open provider circuit stays open.
func (c *Config) BreakerCooldown() time.Duration { return c.Providers.BreakerCooldown.Duration }

// PushInterval returns the push scheduler period.
func (c *Config) PushInterval() time.Duration { return c.Push.Interval.Duration }

// RateLimitWindow returns the rate limit window.
func (c *Config) RateLimitWindow() time.Duration { return c.RateLimit.Window.Duration }
