// README: Config loader: optional .env file, then TRACKER_* env vars with defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type TrackingConfig struct {
	StoreTimeout time.Duration
	CacheTimeout time.Duration
}

type SimulationConfig struct {
	Interval time.Duration
	Steps    int
}

type PricingConfig struct {
	BaseFare decimal.Decimal
	PerKm    decimal.Decimal
	Currency string
}

type Config struct {
	HTTP struct {
		Addr           string
		AllowedOrigins []string
	}
	DB struct {
		// DSN empty means the in-memory gateway.
		DSN string
	}
	Redis struct {
		// Addr empty disables the cache.
		Addr string
	}
	Auth struct {
		JWTSecret string
		Issuer    string
	}
	Maps struct {
		APIKey string
	}
	Payments struct {
		// Provider is "local" or "none".
		Provider string
	}
	Log struct {
		Level  string
		Format string
	}
	Roster struct {
		Schedule string
	}
	Tracking   TrackingConfig
	Simulation SimulationConfig
	Pricing    PricingConfig
}

// Load reads .env (if present) and the environment. Variables already set in
// the environment win over .env entries.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	var cfg Config
	cfg.HTTP.Addr = envOrDefault("TRACKER_HTTP_ADDR", ":8080")
	cfg.HTTP.AllowedOrigins = envList("TRACKER_HTTP_ALLOWED_ORIGINS")
	cfg.DB.DSN = os.Getenv("TRACKER_DB_DSN")
	cfg.Redis.Addr = os.Getenv("TRACKER_REDIS_ADDR")
	cfg.Auth.JWTSecret = os.Getenv("TRACKER_JWT_SECRET")
	cfg.Auth.Issuer = os.Getenv("TRACKER_JWT_ISSUER")
	cfg.Maps.APIKey = os.Getenv("TRACKER_MAPS_API_KEY")
	cfg.Payments.Provider = strings.ToLower(envOrDefault("TRACKER_PAYMENTS", "local"))
	cfg.Log.Level = envOrDefault("TRACKER_LOG_LEVEL", "info")
	cfg.Log.Format = envOrDefault("TRACKER_LOG_FORMAT", "json")
	cfg.Roster.Schedule = envOrDefault("TRACKER_ROSTER_SCHEDULE", "@every 30s")
	cfg.Tracking.StoreTimeout = envOrDefaultDuration("TRACKER_STORE_TIMEOUT", 3*time.Second)
	cfg.Tracking.CacheTimeout = envOrDefaultDuration("TRACKER_CACHE_TIMEOUT", 200*time.Millisecond)
	cfg.Simulation.Interval = envOrDefaultDuration("TRACKER_SIM_INTERVAL", 3*time.Second)
	cfg.Simulation.Steps = envOrDefaultInt("TRACKER_SIM_STEPS", 20)
	cfg.Pricing.BaseFare = envOrDefaultDecimal("TRACKER_PRICE_BASE", decimal.NewFromInt(5))
	cfg.Pricing.PerKm = envOrDefaultDecimal("TRACKER_PRICE_PER_KM", decimal.RequireFromString("0.5"))
	cfg.Pricing.Currency = envOrDefault("TRACKER_PRICE_CURRENCY", "USD")

	if cfg.Auth.JWTSecret == "" {
		return cfg, errors.New("TRACKER_JWT_SECRET is required")
	}
	switch cfg.Payments.Provider {
	case "local", "none":
	default:
		return cfg, fmt.Errorf("TRACKER_PAYMENTS must be local or none, got %q", cfg.Payments.Provider)
	}
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envOrDefaultDecimal(key string, def decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return def
}
