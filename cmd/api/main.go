package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/smarta/server/internal/auth"
	"github.com/smarta/server/internal/config"
	"github.com/smarta/server/internal/dashboard"
	"github.com/smarta/server/internal/db"
	httphandler "github.com/smarta/server/internal/http"
	"github.com/smarta/server/internal/http/handlers"
	"github.com/smarta/server/internal/metrics"
	"github.com/smarta/server/internal/middleware"
	"github.com/smarta/server/internal/repo"
	"github.com/smarta/server/internal/storage"
	"github.com/smarta/server/internal/supabase"
	"github.com/smarta/server/pkg/logging"
)

func main() {
	// Load configuration (reads .env from CWD, env vars override)
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// Create context for startup operations
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var client *supabase.Client
	if cfg.SupabaseURL != "" {
		c, err := supabase.New(supabase.Config{
			URL:     cfg.SupabaseURL,
			AnonKey: cfg.SupabaseAnonKey,
			Timeout: cfg.UpstreamTimeout,
			Logger:  logger,
			Metrics: m,
		})
		if err != nil {
			return err
		}
		client = c
	}

	// Data backend
	var backend repo.Backend
	switch cfg.DataBackend {
	case config.BackendREST:
		backend = repo.NewRestBackend(client.Rest())
	case config.BackendPostgres:
		database, err := db.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer closeDB(database, logger)
		if err := db.Migrate(database); err != nil {
			return err
		}
		backend = repo.NewPostgresBackend(database)
	}
	logger.Info("data backend selected", "backend", cfg.DataBackend)

	// Pending sign-in slots survive restarts when Redis is configured
	var pending auth.PendingStore = storage.NewMemoryStore(storage.WithTTL(cfg.PendingTTL))
	if cfg.RedisAddr != "" {
		rdb, err := storage.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer closeRedis(rdb, logger)
		pending = storage.NewRedisStore(rdb, cfg.PendingTTL)
	}

	factory := func(clientID string) (*auth.Provider, error) {
		var channel auth.AuthChannel = auth.OfflineChannel{}
		if client != nil {
			channel = client.Auth()
		}
		codes, err := auth.NewCodeProvider(cfg.Mode, channel)
		if err != nil {
			return nil, err
		}
		return auth.NewProvider(auth.ProviderConfig{
			ClientID: clientID,
			Codes:    codes,
			Channel:  channel,
			Pending:  pending,
			Logger:   logger,
			Metrics:  m,
		}), nil
	}
	registry := auth.NewRegistry(factory, cfg.ClientIdleTTL, logger, m)
	defer registry.Close()

	var payments dashboard.PaymentGateway = dashboard.OfflinePayments{}
	if client != nil {
		payments = client.Functions()
	}
	service := dashboard.NewService(dashboard.Config{
		Backend:         backend,
		Payments:        payments,
		Logger:          logger,
		Metrics:         m,
		DevTenantUserID: cfg.DevTenantUserID,
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(logger)
	defer authHandler.Close()

	var mintLimiter *middleware.RateLimiter
	if cfg.ClientMintLimit > 0 {
		mintLimiter = middleware.NewRateLimiter(cfg.ClientMintWindow, cfg.ClientMintLimit)
		defer mintLimiter.Stop()
	}

	router := httphandler.NewRouter(httphandler.RouterConfig{
		AuthHandler:      authHandler,
		DashboardHandler: handlers.NewDashboardHandler(service, logger),
		Tokens:           auth.NewClientTokens(cfg.ClientSecret, cfg.ClientCookieTTL),
		Registry:         registry,
		MintLimiter:      mintLimiter,
		AllowedOrigins:   cfg.AllowedOrigins,
		SecureCookies:    !cfg.DevMode(),
		Gatherer:         reg,
		Logger:           logger,
	})

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "mode", cfg.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server exited")
	return nil
}

func closeDB(database *sql.DB, logger *slog.Logger) {
	if err := database.Close(); err != nil {
		logger.Warn("failed to close database", "error", err)
	}
}

func closeRedis(rdb *redis.Client, logger *slog.Logger) {
	if err := rdb.Close(); err != nil {
		logger.Warn("failed to close redis", "error", err)
	}
}
