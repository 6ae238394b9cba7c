// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/ovoice-go/internal/auth"
	"github.com/olegiv/ovoice-go/internal/cache"
	"github.com/olegiv/ovoice-go/internal/config"
	"github.com/olegiv/ovoice-go/internal/handler"
	"github.com/olegiv/ovoice-go/internal/handler/api"
	"github.com/olegiv/ovoice-go/internal/logging"
	"github.com/olegiv/ovoice-go/internal/middleware"
	"github.com/olegiv/ovoice-go/internal/moderation"
	"github.com/olegiv/ovoice-go/internal/scheduler"
	"github.com/olegiv/ovoice-go/internal/store"
	"github.com/olegiv/ovoice-go/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")
	resetPassword := flag.String("reset-admin-password", "", "Overwrite the stored admin password and exit")
	checkDB := flag.Bool("check-db", false, "Open and migrate the database, print content counts and exit")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "oVoice - anonymous voices and comments with moderation\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OVOICE_SESSION_SECRET     Cookie signing key (required in production, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OVOICE_DB_PATH            SQLite database path (default: ./data/ovoice.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OVOICE_SERVER_PORT        Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OVOICE_ENV                Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OVOICE_ADMIN_PASSWORD     Initial admin password (default: 12345678)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OVOICE_RECOVERY_PASSWORD  Emergency admin password (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OVOICE_REDIS_URL          Redis URL for the listing cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OVOICE_CORS_ORIGINS       Comma-separated origins allowed to call /api (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	info := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
	if *showVersion {
		_, _ = fmt.Println(info.String())
		os.Exit(0)
	}

	var err error
	switch {
	case *resetPassword != "":
		err = runResetPassword(*resetPassword)
	case *checkDB:
		err = runCheckDB()
	default:
		err = run(info)
	}
	if err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// setup loads configuration, configures logging and opens the migrated database.
func setup() (*config.Config, *sql.DB, slog.Level, error) {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, nil, 0, fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("initializing database: %w", err)
	}

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, 0, fmt.Errorf("running migrations: %w", err)
	}

	return cfg, db, logLevel, nil
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newAuthService(cfg *config.Config, q *store.Queries) *auth.Service {
	return auth.NewService(q, auth.NewTokenCodec(cfg.EffectiveSessionSecret()), auth.ServiceConfig{
		SeedPassword:     cfg.AdminPassword,
		RecoveryPassword: cfg.RecoveryPassword,
		SecureCookie:     cfg.IsProduction(),
	})
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.Error("error closing database connection", "error", err)
	}
}

func runResetPassword(password string) error {
	cfg, db, _, err := setup()
	if err != nil {
		return err
	}
	defer closeDB(db)

	if err := newAuthService(cfg, store.New(db)).ResetPassword(context.Background(), password); err != nil {
		return fmt.Errorf("resetting admin password: %w", err)
	}
	_, _ = fmt.Println("Admin password updated.")
	return nil
}

func runCheckDB() error {
	_, db, _, err := setup()
	if err != nil {
		return err
	}
	defer closeDB(db)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	v, err := store.MigrationVersion(db)
	if err != nil {
		return err
	}

	q := store.New(db)
	voices, err := q.CountVoicesByStatus(ctx)
	if err != nil {
		return fmt.Errorf("counting voices: %w", err)
	}
	comments, err := q.CountCommentsByStatus(ctx)
	if err != nil {
		return fmt.Errorf("counting comments: %w", err)
	}

	_, _ = fmt.Printf("schema version: %d\n", v)
	for _, c := range voices {
		_, _ = fmt.Printf("voices   %-9s %d\n", c.Status, c.Count)
	}
	for _, c := range comments {
		_, _ = fmt.Printf("comments %-9s %d\n", c.Status, c.Count)
	}
	return nil
}

func run(info version.Info) error {
	cfg, db, logLevel, err := setup()
	if err != nil {
		return err
	}
	defer closeDB(db)
	slog.Info("database ready")

	// Mirror WARN and ERROR logs into the events table
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(logging.NewEventLogHandler(textHandler, db)))
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()
	q := store.New(db)

	authService := newAuthService(cfg, q)
	if err := authService.Bootstrap(ctx); err != nil {
		// The service retries on first login; a locked database at boot is not fatal.
		slog.Warn("admin credential bootstrap failed", "category", "auth", "error", err)
	}

	if cfg.DoSeed {
		if err := store.SeedDemo(ctx, db); err != nil {
			return fmt.Errorf("seeding demo content: %w", err)
		}
	}

	listCache, backend := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.CacheDuration(),
	})
	defer func() { _ = listCache.Close() }()
	slog.Info("listing cache ready", "backend", backend, "ttl", cfg.CacheDuration())

	moderationService := moderation.NewService(q, listCache, cfg.CacheDuration())

	maintenance := scheduler.New(q, cfg.EventRetention(), slog.Default())
	if err := maintenance.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer maintenance.Stop()

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Close()

	apiHandler := api.NewHandler(authService, moderationService, loginProtection).WithEvents(q)
	healthHandler := handler.NewHealthHandler(db, authService, filepath.Dir(cfg.DBPath), info.Short(), backend)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(middleware.Recoverer)
	r.Use(chimw.GetHead) // HEAD for uptime monitoring
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))

	healthHandler.Routes(r)
	r.Mount("/api", apiHandler.Routes(api.RoutesConfig{
		CORSOrigins: cfg.CORSOrigins,
		SubmitRate:  cfg.SubmitRate,
		CSRF:        middleware.DefaultCSRFConfig(cfg.EffectiveSessionSecret(), cfg.IsDevelopment()),
	}))

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", info.Short())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
