// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, authentication, idempotency, and rate limiting.
//
// Route layout (API group mounted at cfg.APIBasePath):
//
//	GET  /                  welcome text
//	GET  /health            liveness
//	GET  /metrics           Prometheus
//	GET  /swagger/*any      API docs (SWAGGER_ENABLED)
//	POST {api}/predict      relay to the prediction service
//	POST {api}/compare      range placement for an estimate
//	POST {api}/history      save an estimate      (bearer token)
//	GET  {api}/history      list saved estimates  (bearer token)
//	GET  {api}/history/:id  one saved estimate    (bearer token)
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-premium-backend/docs"
	"github.com/tbourn/go-premium-backend/internal/auth"
	"github.com/tbourn/go-premium-backend/internal/config"
	"github.com/tbourn/go-premium-backend/internal/domain"
	"github.com/tbourn/go-premium-backend/internal/events"
	"github.com/tbourn/go-premium-backend/internal/http/handlers"
	"github.com/tbourn/go-premium-backend/internal/http/middleware"
	"github.com/tbourn/go-premium-backend/internal/repo"
	"github.com/tbourn/go-premium-backend/internal/services"
)

// WelcomeText is served on GET /.
const WelcomeText = "Welcome to the Insurance API!"

// historyRepoShim adapts the repository free functions to the
// services.HistoryRepo interface expected by the HistoryService.
type historyRepoShim struct{}

// CreateHistory proxies repo.CreateHistory.
func (historyRepoShim) CreateHistory(ctx context.Context, db *gorm.DB, rec *domain.HistoryRecord) error {
	return repo.CreateHistory(ctx, db, rec)
}

// ListHistory proxies repo.ListHistory.
func (historyRepoShim) ListHistory(ctx context.Context, db *gorm.DB, tenant, ownerID string, limit int) ([]domain.HistoryRecord, error) {
	return repo.ListHistory(ctx, db, tenant, ownerID, limit)
}

// GetHistory proxies repo.GetHistory.
func (historyRepoShim) GetHistory(ctx context.Context, db *gorm.DB, tenant, ownerID, id string) (*domain.HistoryRecord, error) {
	return repo.GetHistory(ctx, db, tenant, ownerID, id)
}

// HistoryStats proxies repo.HistoryStats (ETag support).
func (historyRepoShim) HistoryStats(ctx context.Context, db *gorm.DB, tenant, ownerID string) (int64, *time.Time, error) {
	return repo.HistoryStats(ctx, db, tenant, ownerID)
}

// GetIdempotency proxies repo.GetIdempotency.
func (historyRepoShim) GetIdempotency(ctx context.Context, db *gorm.DB, ownerID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, db, ownerID, scope, key, now)
}

// CreateIdempotency proxies repo.CreateIdempotency.
func (historyRepoShim) CreateIdempotency(ctx context.Context, db *gorm.DB, ownerID, scope, key, recordID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, db, ownerID, scope, key, recordID, status, ttl)
}

// Deps are the collaborators RegisterRoutes injects into services.
type Deps struct {
	DB        *gorm.DB
	Predictor services.Forwarder
	Verifier  auth.Verifier

	// Events receives estimate.saved; nil disables publishing.
	Events events.Publisher
	// RateStore shares rate limits across replicas; nil keeps them in-process.
	RateStore *redis.Client
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Global middleware order:
//  1. OpenTelemetry
//  2. RequestID
//  3. Logger (request-scoped zerolog) and RedactingLogger (access log)
//  4. Recovery
//  5. Body size limiter
//  6. Metrics
//  7. CORS and security headers
//
// Rate limiting runs per route group: on history routes it sits after
// Authenticate and the idempotency validator, so limits are keyed by user
// and replays bypass them.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, WelcomeText) })
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/predictor
	estSvc := services.NewEstimateService(deps.Predictor)
	histSvc := services.NewHistoryService(deps.DB, historyRepoShim{}, cfg.Store.Tenant)
	histSvc.Events = deps.Events
	histSvc.Source = cfg.OTEL.ServiceName
	histSvc.IdempotencyTTL = cfg.IdempotencyTTL
	h := handlers.New(estSvc, histSvc)

	limit := rateLimiter(deps.RateStore, cfg)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/predict", limit, h.Predict)
		api.POST("/compare", limit, h.Compare)

		history := api.Group("/history",
			middleware.Authenticate(deps.Verifier, cfg.Auth.AllowAnonymous),
			middleware.IdempotencyValidator(
				middleware.IdempotencyOptions{Scope: services.IdempotencyScope},
				func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
					rec, err := repo.GetIdempotency(ctx, deps.DB, userID, scope, key, now)
					if err != nil || rec == nil {
						return false, nil
					}
					return true, nil
				},
			),
			limit,
		)
		history.POST("", h.SaveHistory)
		history.GET("", h.ListHistory)
		history.GET("/:id", h.GetHistory)
	}
}

// rateLimiter picks the Redis fixed-window limiter when a client is given and
// the in-process token bucket otherwise.
func rateLimiter(rdb *redis.Client, cfg config.Config) gin.HandlerFunc {
	if rdb != nil {
		return middleware.NewRedisRateLimiter(rdb, cfg.RateBurst, middleware.KeyByUserOrIP()).Handler()
	}
	return middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP()).Handler()
}

// corsMiddleware allows every origin when none are configured, otherwise it
// echoes allowlisted origins.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", handlers.HeaderReplayed},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		// ACAO is forced even without an Origin header so plain probes see it.
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody caps the request body size at maxBytes using
// http.MaxBytesReader. Reads past the cap return *http.MaxBytesError.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
