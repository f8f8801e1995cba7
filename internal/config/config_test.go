package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load understands so ambient values on the
// test machine do not leak in. Empty values are ignored by Load.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "DATABASE_PATH", "ENVIRONMENT", "LOG_LEVEL",
		"ANALYTICS_PASSWORD", "ANALYTICS_PASSWORD_HASH",
		"LOGIN_MAX_ATTEMPTS", "LOGIN_LOCKOUT", "ADMIN_SESSION_TTL",
		"VISITOR_SALT", "SITE_DOMAIN", "SITE_DIR", "GEOIP_DB_PATH", "GEO_API_URL",
		"GEO_CACHE_SIZE", "GEO_CACHE_TTL", "REDIS_ADDR", "REDIS_PASSWORD",
		"CLICKHOUSE_ADDR", "CLICKHOUSE_USER", "CLICKHOUSE_PASSWORD", "CLICKHOUSE_DB",
		"TELEGRAM_API_TOKEN", "TELEGRAM_OWNER_ID", "TRUSTED_PROXIES",
	} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" || cfg.DatabasePath != "data/analytics.db" {
		t.Errorf("port/db = %q/%q", cfg.Port, cfg.DatabasePath)
	}
	if cfg.LoginMaxAttempts != 5 || cfg.LoginLockout != 15*time.Minute || cfg.AdminSessionTTL != 24*time.Hour {
		t.Errorf("login defaults = %d/%v/%v", cfg.LoginMaxAttempts, cfg.LoginLockout, cfg.AdminSessionTTL)
	}
	if cfg.GeoAPIURL != "http://ip-api.com" || cfg.GeoCacheSize != 10000 {
		t.Errorf("geo defaults = %q/%d", cfg.GeoAPIURL, cfg.GeoCacheSize)
	}
	if cfg.IsProduction() || cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("env/level = %q/%v", cfg.Environment, cfg.SlogLevel())
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("LOGIN_LOCKOUT", "10m")
	t.Setenv("LOGIN_MAX_ATTEMPTS", "3")
	t.Setenv("TELEGRAM_API_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_OWNER_ID", "42")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("VISITOR_SALT", "pepper")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" || cfg.LoginLockout != 10*time.Minute || cfg.LoginMaxAttempts != 3 {
		t.Errorf("overrides = %q/%v/%d", cfg.Port, cfg.LoginLockout, cfg.LoginMaxAttempts)
	}
	if cfg.TelegramOwnerID != 42 || cfg.TelegramToken != "123:abc" {
		t.Errorf("telegram = %d/%q", cfg.TelegramOwnerID, cfg.TelegramToken)
	}
	if !cfg.IsProduction() || cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("env/level = %q/%v", cfg.Environment, cfg.SlogLevel())
	}
}

func TestLoad_TrustedProxiesList(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8, ,127.0.0.1 ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[0] != "10.0.0.0/8" || cfg.TrustedProxies[1] != "127.0.0.1" {
		t.Errorf("trusted proxies = %q", cfg.TrustedProxies)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Port = "http" }, "PORT"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "PORT"},
		{"no database", func(c *Config) { c.DatabasePath = "" }, "DATABASE_PATH"},
		{"zero attempts", func(c *Config) { c.LoginMaxAttempts = 0 }, "LOGIN_MAX_ATTEMPTS"},
		{"zero lockout", func(c *Config) { c.LoginLockout = 0 }, "LOGIN_LOCKOUT"},
		{"zero ttl", func(c *Config) { c.AdminSessionTTL = 0 }, "ADMIN_SESSION_TTL"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
		{"production without salt", func(c *Config) { c.Environment = "production" }, "VISITOR_SALT"},
		{"bot without owner", func(c *Config) { c.TelegramToken = "x" }, "TELEGRAM_OWNER_ID"},
		{"bad proxy", func(c *Config) { c.TrustedProxies = []string{"proxy.local"} }, "TRUSTED_PROXIES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
