// Command server runs the premium estimation backend.
//
// @title                      Insurance Premium API
// @version                    1.0
// @description                Premium estimation gateway with per-user estimate history.
// @BasePath                   /api
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-premium-backend/internal/auth"
	"github.com/tbourn/go-premium-backend/internal/config"
	"github.com/tbourn/go-premium-backend/internal/events"
	httpapi "github.com/tbourn/go-premium-backend/internal/http"
	"github.com/tbourn/go-premium-backend/internal/http/middleware"
	"github.com/tbourn/go-premium-backend/internal/observability"
	"github.com/tbourn/go-premium-backend/internal/predictor"
	"github.com/tbourn/go-premium-backend/internal/repo"
	"github.com/tbourn/go-premium-backend/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env never overrides variables already set in the environment.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.ConfigureLogger(cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	zerolog.DefaultContextLogger = &log.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.Open(cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("open store")
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		log.Fatal().Err(err).Msg("gorm tracing plugin")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("auth verifier")
	}

	pub, err := events.NewPublisher(cfg.Kafka)
	if err != nil {
		log.Fatal().Err(err).Msg("event publisher")
	}
	defer pub.Close()

	var rdb *redis.Client
	if cfg.RateRedisURL != "" {
		if rdb, err = middleware.NewRedisClient(cfg.RateRedisURL); err != nil {
			log.Fatal().Err(err).Msg("redis rate limiter")
		}
		defer rdb.Close()
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:        db,
		Predictor: predictor.New(cfg.Predictor.URL, cfg.Predictor.Timeout),
		Verifier:  verifier,
		Events:    pub,
		RateStore: rdb,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", version).
			Str("store", cfg.Store.Driver).
			Bool("events", len(cfg.Kafka.Brokers) > 0).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownOTel(shCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
