// Package config loads server settings from the environment (and an optional
// .env file) on top of built-in defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"portfolio/internal/tracking"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const EnvProduction = "production"

type Config struct {
	Port         string `koanf:"port"`
	DatabasePath string `koanf:"database_path"`
	Environment  string `koanf:"environment"`
	LogLevel     string `koanf:"log_level"`

	AnalyticsPassword     string        `koanf:"analytics_password"`
	AnalyticsPasswordHash string        `koanf:"analytics_password_hash"`
	LoginMaxAttempts      int           `koanf:"login_max_attempts"`
	LoginLockout          time.Duration `koanf:"login_lockout"`
	AdminSessionTTL       time.Duration `koanf:"admin_session_ttl"`

	VisitorSalt string `koanf:"visitor_salt"`
	SiteDomain  string `koanf:"site_domain"`
	SiteDir     string `koanf:"site_dir"`

	// TrustedProxies lists proxy addresses or CIDRs whose forwarding headers
	// are believed for login throttling and rate limits.
	TrustedProxies []string `koanf:"trusted_proxies"`

	GeoIPDBPath  string        `koanf:"geoip_db_path"`
	GeoAPIURL    string        `koanf:"geo_api_url"`
	GeoCacheSize int           `koanf:"geo_cache_size"`
	GeoCacheTTL  time.Duration `koanf:"geo_cache_ttl"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`

	ClickHouseAddr     string `koanf:"clickhouse_addr"`
	ClickHouseUser     string `koanf:"clickhouse_user"`
	ClickHousePassword string `koanf:"clickhouse_password"`
	ClickHouseDB       string `koanf:"clickhouse_db"`

	TelegramToken   string `koanf:"telegram_api_token"`
	TelegramOwnerID int64  `koanf:"telegram_owner_id"`
}

func defaultConfig() *Config {
	return &Config{
		Port:             "8080",
		DatabasePath:     "data/analytics.db",
		Environment:      "development",
		LogLevel:         "info",
		SiteDir:          "public",
		LoginMaxAttempts: 5,
		LoginLockout:     15 * time.Minute,
		AdminSessionTTL:  24 * time.Hour,
		GeoAPIURL:        "http://ip-api.com",
		GeoCacheSize:     10000,
		GeoCacheTTL:      24 * time.Hour,
		ClickHouseDB:     "default",
	}
}

// Load reads .env if present, then layers environment variables over the
// defaults. Variable names are the lower-cased koanf keys upper-cased,
// e.g. LOGIN_LOCKOUT=10m.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("Error loading .env file", "error", err)
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		key = strings.ToLower(key)
		if _, ok := sliceKeys[key]; ok {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// sliceKeys are read from the environment as comma-separated lists.
var sliceKeys = map[string]struct{}{
	"trusted_proxies": {},
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("PORT must be 1-65535, got %q", c.Port)
	}
	if c.DatabasePath == "" {
		return errors.New("DATABASE_PATH is required")
	}
	if c.LoginMaxAttempts < 1 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS must be positive, got %d", c.LoginMaxAttempts)
	}
	if c.LoginLockout <= 0 {
		return fmt.Errorf("LOGIN_LOCKOUT must be positive, got %v", c.LoginLockout)
	}
	if c.AdminSessionTTL <= 0 {
		return fmt.Errorf("ADMIN_SESSION_TTL must be positive, got %v", c.AdminSessionTTL)
	}
	if c.GeoCacheSize < 1 {
		return fmt.Errorf("GEO_CACHE_SIZE must be positive, got %d", c.GeoCacheSize)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := tracking.ParseProxies(c.TrustedProxies); err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	if c.IsProduction() && c.VisitorSalt == "" {
		return errors.New("VISITOR_SALT is required in production")
	}
	if c.TelegramToken != "" && c.TelegramOwnerID == 0 {
		return errors.New("TELEGRAM_OWNER_ID is required when TELEGRAM_API_TOKEN is set")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvProduction)
}

// SlogLevel returns the configured log level. Validate has already rejected
// unknown names.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}
