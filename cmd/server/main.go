package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nklymok/monobank-mcp/internal/config"
	"github.com/nklymok/monobank-mcp/internal/database"
	"github.com/nklymok/monobank-mcp/internal/handler"
	"github.com/nklymok/monobank-mcp/internal/jobs"
	"github.com/nklymok/monobank-mcp/internal/limiter"
	"github.com/nklymok/monobank-mcp/internal/mcpserver"
	"github.com/nklymok/monobank-mcp/internal/middleware"
	"github.com/nklymok/monobank-mcp/internal/monobank"
	"github.com/nklymok/monobank-mcp/internal/repository"
	"github.com/nklymok/monobank-mcp/internal/service"
	"github.com/nklymok/monobank-mcp/internal/util"
)

const version = "1.0.0"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Stdout carries the MCP stdio transport, so logs must stay on stderr.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log.Info().Str("token", util.MaskToken(cfg.APIToken)).Msg("configuration loaded")

	var invocationRepo repository.InvocationRepository
	var recorder repository.InvocationRecorder = repository.NoopRecorder{}
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to ping database")
		}
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
		cancel()
		log.Info().Msg("database connected, audit trail enabled")

		invocationRepo = repository.NewInvocationRepository(db)
		recorder = invocationRepo

		retentionJob := jobs.NewRetentionJob(invocationRepo, cfg.AuditRetention(), config.RetentionJobInterval)
		retentionJob.Start()
		defer retentionJob.Stop()
	}

	var lim limiter.Limiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		log.Info().Msg("redis connected, shared rate windows enabled")

		lim = limiter.NewRedisLimiter(redisClient, cfg.RateLimitWindow())
	} else {
		lim = limiter.NewMemoryLimiter(cfg.RateLimitWindow(), limiter.SystemClock)
	}

	bankClient := monobank.NewClient(cfg.BaseURL, cfg.APIToken, cfg.HTTPTimeout())
	gateway := service.NewGateway(bankClient, lim, limiter.SystemClock, recorder)
	mcpSrv := mcpserver.New(gateway, version)

	switch cfg.Transport {
	case "http":
		runHTTP(cfg, mcpSrv, invocationRepo)
	default:
		log.Info().Msg("starting MCP server on stdio")
		if err := server.ServeStdio(mcpSrv); err != nil {
			log.Fatal().Err(err).Msg("stdio server error")
		}
	}
}

func runHTTP(cfg *config.Config, mcpSrv *server.MCPServer, invocationRepo repository.InvocationRepository) {
	statusHandler := handler.NewStatusHandler(invocationRepo, version)
	authMiddleware := middleware.NewAuthMiddleware(cfg.HTTPAuthToken)
	streamable := server.NewStreamableHTTPServer(mcpSrv)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", statusHandler.Health)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Get("/stats", statusHandler.Stats)
		r.Mount("/mcp", streamable)
	})

	srv := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     r,
		ReadTimeout: config.ServerReadTimeout,
		IdleTimeout: config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting MCP server on http")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
