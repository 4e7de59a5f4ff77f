package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	rediscache "github.com/SscSPs/bank_mesh/internal/adapters/cache/redis"
	"github.com/SscSPs/bank_mesh/internal/adapters/upstream"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portsrepo "github.com/SscSPs/bank_mesh/internal/core/ports/repositories"
	portsup "github.com/SscSPs/bank_mesh/internal/core/ports/upstream"
	"github.com/SscSPs/bank_mesh/internal/core/services"
	"github.com/SscSPs/bank_mesh/internal/handlers"
	"github.com/SscSPs/bank_mesh/internal/middleware"
	"github.com/SscSPs/bank_mesh/internal/platform/config"
	"github.com/SscSPs/bank_mesh/internal/repositories/database/pgsql"
	"github.com/SscSPs/bank_mesh/internal/repositories/memory"
	"github.com/SscSPs/bank_mesh/internal/workers"
	"github.com/SscSPs/bank_mesh/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

// @title Bank Mesh API
// @version 1.0
// @description Account, payment and credit card service with cross-service replication.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the identity token.

// @security BearerAuth
func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logger.Warn("Unknown LOG_LEVEL, keeping info", slog.String("value", cfg.LogLevel))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, closeRepos, err := setupRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to set up storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeRepos()

	freshness, closeFreshness, err := setupFreshness(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to set up freshness tracking", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeFreshness()

	serviceTokens := setupServiceTokens(cfg)
	up := services.UpstreamDeps{
		Identity:  setupIdentityProvider(cfg),
		Owners:    setupOwners(cfg, serviceTokens),
		Freshness: freshness,
	}
	svc := services.NewServiceContainer(cfg, repos, up)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery(), middleware.Metrics(), cors.New(corsConfig(cfg)))
	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var apiMiddleware []gin.HandlerFunc
	if cfg.RateLimit != "" {
		lim, err := middleware.NewRateLimiter(cfg.RateLimit)
		if err != nil {
			logger.Error("Failed to configure rate limiting", slog.String("error", err.Error()))
			os.Exit(1)
		}
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(lim))
	}
	handlers.RegisterRoutes(r, cfg, svc, apiMiddleware...)

	var worker *workers.ReplicationWorker
	switch {
	case cfg.SyncInterval <= 0:
		logger.Info("Background replication disabled")
	case serviceTokens == nil:
		logger.Warn("SYNC_INTERVAL is set but no service credentials are configured; background replication disabled")
	default:
		worker = workers.NewReplicationWorker(svc.Sync, serviceTokens, cfg.SyncInterval, cfg.ServiceName, logger)
		worker.Start(ctx)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server starting",
			slog.String("port", cfg.Port),
			slog.String("service", cfg.ServiceName),
			slog.Any("owned_collections", cfg.OwnedCollections))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	if worker != nil {
		worker.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", slog.String("error", err.Error()))
	}
}

// setupRepositories returns the Postgres repositories, or the in-memory
// store when no database URL is configured.
func setupRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.RepositoryProvider, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("Using the in-memory store; data is lost on restart")
		return memory.NewRepositoryProvider(memory.NewStore()), func() {}, nil
	}

	pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		return portsrepo.RepositoryProvider{}, nil, err
	}
	logger.Info("Running database migrations...")
	if err := database.RunMigrations(cfg.DatabaseURL, "file://migrations", logger); err != nil {
		pool.Close()
		return portsrepo.RepositoryProvider{}, nil, err
	}

	repos := pgsql.NewRepositoryProvider(pool,
		pgsql.WithMaxAttempts(cfg.LedgerMaxAttempts),
		pgsql.WithLockTimeout(cfg.LedgerLockTimeout),
	)
	return repos, func() { database.ClosePgxPool(pool) }, nil
}

// setupFreshness shares the staleness window through Redis when configured.
func setupFreshness(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsup.FreshnessTracker, func(), error) {
	if cfg.RedisAddr == "" {
		return memory.NewFreshnessTracker(cfg.ReplicaMaxStaleness, nil), func() {}, nil
	}
	client, err := rediscache.Connect(ctx, rediscache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Replica freshness tracked in Redis", slog.String("addr", cfg.RedisAddr))
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Error("Error closing Redis client", slog.String("error", err.Error()))
		}
	}
	return rediscache.NewFreshnessTracker(client, cfg.ServiceName, cfg.ReplicaMaxStaleness), closeFn, nil
}

// setupServiceTokens returns the credentials used for background sync and
// saga credits: SERVICE_TOKEN when set, otherwise self-signed tokens in jwt
// mode. It returns nil when neither is available.
func setupServiceTokens(cfg *config.Config) oauth2.TokenSource {
	switch {
	case cfg.ServiceToken != "":
		return upstream.StaticServiceToken(cfg.ServiceToken)
	case cfg.IdentityMode == config.IdentityModeJWT:
		return upstream.NewJWTServiceTokenSource(cfg.ServiceName, cfg.JWTSecret, cfg.JWTIssuer, 0)
	default:
		return nil
	}
}

func setupIdentityProvider(cfg *config.Config) portsup.IdentityProvider {
	if cfg.IdentityMode == config.IdentityModeJWT {
		return upstream.NewJWTIdentityProvider(cfg.JWTSecret, cfg.JWTIssuer)
	}
	return upstream.NewHTTPIdentityProvider(cfg.IdentityURL, cfg.UpstreamTimeout)
}

func setupOwners(cfg *config.Config, serviceTokens oauth2.TokenSource) *upstream.OwnerClient {
	urls := make(map[domain.Collection]string, len(domain.SyncOrder))
	for _, col := range domain.SyncOrder {
		urls[col] = cfg.UpstreamURL(col)
	}
	// Locally verified tokens have no directory to replicate clients from.
	if cfg.IdentityMode == config.IdentityModeJWT {
		delete(urls, domain.CollectionClients)
	}

	var opts []upstream.OwnerOption
	if serviceTokens != nil {
		opts = append(opts, upstream.WithServiceTokens(serviceTokens))
	}
	return upstream.NewOwnerClient(urls, cfg.UpstreamTimeout, opts...)
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", middleware.RequestIDHeader)
	c.ExposeHeaders = []string{middleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining"}
	if len(cfg.CORSAllowedOrigins) == 0 || slices.Contains(cfg.CORSAllowedOrigins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.CORSAllowedOrigins
	}
	return c
}
