// Package main is the entrypoint for the Moneytrail API server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/moneytrail/moneytrail/internal/auth"
	"github.com/moneytrail/moneytrail/internal/cache"
	"github.com/moneytrail/moneytrail/internal/config"
	"github.com/moneytrail/moneytrail/internal/handler"
	"github.com/moneytrail/moneytrail/internal/metrics"
	"github.com/moneytrail/moneytrail/internal/middleware"
	"github.com/moneytrail/moneytrail/internal/model"
	"github.com/moneytrail/moneytrail/internal/repository"
	"github.com/moneytrail/moneytrail/internal/server"
	"github.com/moneytrail/moneytrail/internal/service"
)

// version is set at build time with -ldflags.
var version = "dev"

// identityCache is the cache backend plus its lifecycle.
type identityCache interface {
	service.IdentityCache
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	identities, cacheName, err := openCache(ctx, cfg)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		repo.Close()
		os.Exit(1)
	}
	logger.Info("identity cache ready", "backend", cacheName)

	recorder := metrics.NewInMemory()

	hasher, err := auth.NewHasher(cfg.PasswordHashAlgo, cfg.BcryptCost)
	if err != nil {
		logger.Error("failed to create password hasher", "error", err)
		os.Exit(1)
	}
	hashPool := auth.NewHashPool(hasher, cfg.HashWorkers(), cfg.HashTimeout, recorder)

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Error("failed to create token manager", "error", err)
		os.Exit(1)
	}

	authService := service.NewAuthService(service.AuthConfig{
		Users:        repo,
		Hasher:       hashPool,
		Tokens:       tokens,
		Cache:        identities,
		StoreTimeout: cfg.StoreTimeout,
		CacheTTL:     cfg.IdentityCacheTTL,
		Metrics:      recorder,
		Logger:       logger,
	})
	transactionService := service.NewTransactionService(repo, authService, cfg.StoreTimeout, recorder)

	h := handler.New(version)
	healthHandler := handler.NewHealthHandler(repo, identities, cacheName)
	metricsHandler := handler.NewMetricsHandler(recorder)
	authHandler := handler.NewAuthHandler(authService, cfg.CookieSecure, logger)
	transactionHandler := handler.NewTransactionHandler(transactionService, logger)
	session := middleware.Session(middleware.SessionConfig{
		Logger:        logger,
		Authenticator: authService,
		Metrics:       recorder,
	})

	r := setupRouter(h, healthHandler, metricsHandler, authHandler, transactionHandler, session, cfg, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// LIFO: the cache closes before the database.
	srv.OnShutdown("database", func(ctx context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("identity cache", func(ctx context.Context) error {
		return identities.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"version", version,
		"hash_algo", cfg.PasswordHashAlgo,
		"hash_workers", cfg.HashWorkers(),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		stop()
		os.Exit(1)
	}
}

// openCache connects to Redis when configured and falls back to an
// in-process cache otherwise.
func openCache(ctx context.Context, cfg *config.Config) (identityCache, string, error) {
	if cfg.RedisURL == "" {
		local, err := cache.NewLocal(cfg.IdentityCacheTTL)
		if err != nil {
			return nil, "", err
		}
		return local, "local", nil
	}

	client, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		return nil, "", err
	}
	return client, "redis", nil
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	metricsHandler *handler.MetricsHandler,
	authHandler *handler.AuthHandler,
	transactionHandler *handler.TransactionHandler,
	session func(http.Handler) http.Handler,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:      cfg.IsDevelopment(),
		AllowedOrigins:     corsCfg.AllowedOrigins,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	// Ops endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)
	r.Get("/", h.Hello)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(session)
			r.Post("/logout", authHandler.Logout)
			r.Get("/verify", authHandler.Verify)
		})
	})

	r.Route("/api/transaction", func(r chi.Router) {
		r.Use(session)

		r.Post("/add-incomes", transactionHandler.Add(model.KindIncome))
		r.Get("/get-incomes", transactionHandler.List(model.KindIncome))
		r.Delete("/delete-incomes/{id}", transactionHandler.Delete(model.KindIncome))

		r.Post("/add-expenses", transactionHandler.Add(model.KindExpense))
		r.Get("/get-expenses", transactionHandler.List(model.KindExpense))
		r.Delete("/delete-expenses/{id}", transactionHandler.Delete(model.KindExpense))

		r.Get("/summary", transactionHandler.Summary)
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
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
