package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	xerrors "calvino-service/internal/pkg/errors"
	"calvino-service/internal/pkg/geo"
	"calvino-service/internal/pkg/jwt"
)

type AppConfig struct {
	// Server
	Env            string
	HTTPAddr       string
	AllowedOrigins []string
	// TrustedProxies may set X-Forwarded-For; nil trusts none.
	TrustedProxies []string

	// Storage
	DatabaseURL string
	RedisAddr   string
	RedisPass   string

	// Auth
	JWT                 jwt.Config
	RejectInactiveUsers bool

	// Geolocation
	Geo geo.Config

	// Admin bootstrap
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

func (c AppConfig) IsDev() bool {
	return c.Env == "development"
}

// Load reads the environment. JWT_SECRET is required; there is no fallback secret.
func Load() (AppConfig, error) {
	cfg := AppConfig{
		Env:            getEnv("APP_ENV", "production"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8000"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", nil),
		TrustedProxies: getEnvSlice("TRUSTED_PROXIES", nil),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:   getEnv("REDIS_PASS", ""),

		JWT: jwt.Config{
			Secret: os.Getenv("JWT_SECRET"),
		},

		Geo: geo.Config{
			BaseURL:  getEnv("GEO_API_URL", geo.DefaultBaseURL),
			CacheDir: getEnv("GEO_CACHE_DIR", geo.DefaultCacheDir),
		},

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),
	}

	if cfg.JWT.Secret == "" {
		return AppConfig{}, fmt.Errorf("JWT_SECRET: %w", xerrors.ErrMissingConfig)
	}
	if cfg.DatabaseURL == "" {
		return AppConfig{}, fmt.Errorf("DATABASE_URL: %w", xerrors.ErrMissingConfig)
	}

	var err error
	if cfg.JWT.AccessTTL, err = getEnvDuration("JWT_ACCESS_TTL", jwt.DefaultTTL); err != nil {
		return AppConfig{}, err
	}
	if cfg.JWT.RefreshTTL, err = getEnvDuration("JWT_REFRESH_TTL", jwt.DefaultTTL); err != nil {
		return AppConfig{}, err
	}
	if cfg.RejectInactiveUsers, err = getEnvBool("AUTH_REJECT_INACTIVE_USERS", false); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b, nil
}
