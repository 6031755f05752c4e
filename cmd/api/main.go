// Package main is the entrypoint for the notebook web server.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/notebook/notebook/internal/auth"
	"github.com/notebook/notebook/internal/cache"
	"github.com/notebook/notebook/internal/config"
	"github.com/notebook/notebook/internal/handler"
	"github.com/notebook/notebook/internal/identity"
	"github.com/notebook/notebook/internal/metrics"
	"github.com/notebook/notebook/internal/noteclient"
	"github.com/notebook/notebook/internal/repository"
	"github.com/notebook/notebook/internal/routing"
	"github.com/notebook/notebook/internal/server"
	"github.com/notebook/notebook/internal/service"
	"github.com/notebook/notebook/migrations"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := initLogger(os.Stdout, cfg)

	if cfg.AutoMigrate {
		if err := migrations.Up(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("auto migrate: %s", sanitizeError(err, cfg.DatabaseURL))
		}
		logger.Info("database migrations applied")
	}

	repoOpts := repository.DefaultOptions()
	repoOpts.Logger = logger
	repo, err := repository.NewWithOptions(ctx, cfg.DatabaseURL, repoOpts)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return fmt.Errorf("connect database")
	}
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL, cache.Options{PingAttempts: 5, Logger: logger})
	if err != nil {
		repo.Close()
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return fmt.Errorf("connect redis")
	}
	logger.Info("connected to Redis")

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	// Identity and sessions
	provider := identity.NewClient(identity.Config{
		BaseURL:   cfg.IdentityURL,
		PublicKey: cfg.IdentityPublicKey,
		Timeout:   cfg.IdentityTimeout,
	})
	cookies := auth.NewCookiePolicy(cfg.IsProduction())
	sessions := auth.NewResolver(auth.ResolverConfig{
		Provider: provider,
		Cookies:  cookies,
		Logger:   logger,
	})

	// Services
	userSync := service.NewUserSync(repo)
	noteService := service.NewNoteService(repo, recorder)
	accountService := service.NewAccountService(provider, userSync, logger, recorder)

	// Request router
	var resolver routing.NoteResolver
	switch cfg.RouterResolveMode {
	case config.ResolveModeDirect:
		resolver = routing.NewDirectResolver(noteService, userSync)
	default:
		resolver = noteclient.New(cfg.BaseURL, nil, cfg.RouterResolveTimeout)
	}
	router := routing.New(routing.Config{
		Notes:    resolver,
		Sessions: sessions,
		Timeout:  cfg.RouterResolveTimeout,
		Logger:   logger,
		Metrics:  recorder,
	})

	// Handlers
	pages, err := handler.NewPageHandler(noteService, logger)
	if err != nil {
		repo.Close()
		_ = cacheClient.Close()
		return err
	}

	r := setupRouter(routes{
		base:     handler.New(),
		health:   handler.NewHealthHandler(repo, cacheClient),
		metrics:  handler.NewMetricsHandler(registry),
		notes:    handler.NewNoteHandler(noteService, userSync, logger),
		actions:  handler.NewActionHandler(accountService, cookies, logger),
		pages:    pages,
		router:   router,
		sessions: sessions,
		limiter:  cacheClient,
		recorder: recorder,
	}, cfg, logger)

	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("postgres", func(ctx context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(ctx context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
		"resolve_mode", cfg.RouterResolveMode,
	)

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// initLogger initializes the slog logger based on configuration.
// "pretty" renders colored human-readable lines for local development.
func initLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	switch cfg.LogFormat {
	case "pretty":
		h = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	case "text":
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	default:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
