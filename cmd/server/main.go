package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"portfolio/internal/auth"
	"portfolio/internal/config"
	"portfolio/internal/geo"
	"portfolio/internal/service"
	"portfolio/internal/tracking"
	"portfolio/internal/types"
	"syscall"
	"time"

	"portfolio/internal/bot"
	"portfolio/internal/cache"
	"portfolio/internal/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Could not load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	slog.Info("Starting portfolio service...", "port", cfg.Port, "environment", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var dbOpts []database.Option
	mirrorDone := make(chan struct{})
	if cfg.ClickHouseAddr != "" {
		analytics, err := database.ConnectClickHouse(ctx, cfg.ClickHouseAddr, cfg.ClickHouseUser, cfg.ClickHousePassword, cfg.ClickHouseDB)
		if err != nil {
			slog.Error("Could not connect to ClickHouse", "error", err)
			return
		}
		defer analytics.Close()

		mirror := database.NewMirror(analytics.InsertPageviews)
		dbOpts = append(dbOpts, database.WithSink(mirror))
		go func() {
			mirror.Run(ctx)
			close(mirrorDone)
		}()
	} else {
		close(mirrorDone)
	}

	db, err := database.ConnectSQLite(cfg.DatabasePath, dbOpts...)
	if err != nil {
		slog.Error("Could not open SQLite database", "error", err)
		return
	}
	defer db.Close()

	locator, closeLocator, err := newLocator(cfg)
	if err != nil {
		slog.Error("Could not initialize geolocation", "error", err)
		return
	}
	defer closeLocator()

	salt := cfg.VisitorSalt
	if salt == "" {
		salt = randomSalt()
		slog.Warn("VISITOR_SALT is not set, visitor ids will change on restart")
	}
	tracker := tracking.New(db, locator, tracking.NewHasher(salt), tracking.WithSiteDomain(cfg.SiteDomain))

	password, err := auth.NewPassword(cfg.AnalyticsPassword, cfg.AnalyticsPasswordHash)
	if err != nil {
		slog.Error("Could not prepare admin password", "error", err)
		return
	}
	if !password.Enabled() {
		slog.Warn("Admin login disabled, set ANALYTICS_PASSWORD or ANALYTICS_PASSWORD_HASH")
	}
	authenticator := auth.NewAuthenticator(password,
		auth.NewGuard(db, cfg.LoginMaxAttempts, cfg.LoginLockout),
		auth.NewSessions(db, cfg.AdminSessionTTL))

	proxies, err := tracking.ParseProxies(cfg.TrustedProxies)
	if err != nil {
		slog.Error("Invalid trusted proxies", "error", err)
		return
	}

	deps := service.Deps{
		Store:   db,
		Auth:    authenticator,
		Tracker: tracker,
		Locator: locator,
		Proxies: proxies,
		Site:    http.FileServer(http.Dir(cfg.SiteDir)),
	}

	botErr := make(chan error, 1)
	if cfg.TelegramToken != "" {
		tgBot, err := bot.NewTelegramBot(cfg.TelegramToken, cfg.TelegramOwnerID, db)
		if err != nil {
			slog.Error("Could not initialize bot", "error", err)
			return
		}
		deps.Notifier = tgBot
		go func() { botErr <- tgBot.Start(ctx) }()
	}

	server := service.NewServer(cfg.Port, cfg.IsProduction(), deps)
	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start(ctx) }()

	slog.Info("Service is up and running!")

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			slog.Error("Server stopped with error", "error", err)
		}
	case err := <-botErr:
		if err != nil {
			slog.Error("Bot stopped with error", "error", err)
		}
	}
	stop()

	slog.Info("Shutting down gracefully...")
	<-mirrorDone
}

// newLocator prefers a local GeoLite2 database and falls back to the ip-api
// service. Results are cached in Redis when configured, in memory otherwise.
func newLocator(cfg *config.Config) (geo.Locator, func(), error) {
	var (
		next    geo.Locator
		closers []func()
	)
	if cfg.GeoIPDBPath != "" {
		g, err := geo.NewGeoIP(cfg.GeoIPDBPath)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { g.Close() })
		next = g
	} else {
		next = geo.NewIPAPI(&http.Client{Timeout: 5 * time.Second}, cfg.GeoAPIURL)
	}

	var store cache.Store[types.GeoInfo]
	if cfg.RedisAddr != "" {
		rdb, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, nil, err
		}
		closers = append(closers, func() { rdb.Close() })
		store = cache.NewJSONStore[types.GeoInfo](rdb, "geo:", cfg.GeoCacheTTL)
	} else {
		store = cache.NewLRU[types.GeoInfo](cfg.GeoCacheSize, cfg.GeoCacheTTL)
	}

	return geo.NewCached(next, store), func() {
		for _, c := range closers {
			c()
		}
	}, nil
}

func randomSalt() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
