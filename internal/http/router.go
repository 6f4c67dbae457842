// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, authentication, CORS, security headers, idempotency, and rate
// limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Admin routes behind RequireAdmin; public tracking and contact open
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-shipment-tracker/docs"
	"github.com/tbourn/go-shipment-tracker/internal/config"
	"github.com/tbourn/go-shipment-tracker/internal/http/handlers"
	"github.com/tbourn/go-shipment-tracker/internal/http/middleware"
	"github.com/tbourn/go-shipment-tracker/internal/mailer"
	"github.com/tbourn/go-shipment-tracker/internal/report"
	"github.com/tbourn/go-shipment-tracker/internal/repo"
	"github.com/tbourn/go-shipment-tracker/internal/services"
	"github.com/tbourn/go-shipment-tracker/internal/trackid"
)

// Deps carries the collaborators that live outside the datastore. Zero
// values are valid: no cache, a mailer that only logs, anonymous callers and
// untracked background sends.
type Deps struct {
	Cache    services.ViewCache
	Mailer   mailer.Sender
	Verifier middleware.TokenVerifier
	IDs      *trackid.Generator
	// Tasks is waited on at shutdown for in-flight notification emails.
	Tasks *sync.WaitGroup
}

// Route patterns relative to the API base path.
const (
	routeShipments      = "/admin/shipments"
	routeShipment       = "/admin/shipments/:id"
	routeUpdateTracking = "/admin/update-tracking"
	routeTracking       = "/tracking/:trackingId"
	routeTrackingReport = "/tracking/:trackingId/report.pdf"
	routeContact        = "/contact"
)

// idempotencyLookup adapts the repository to middleware.IdempotencyLookup.
func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, userID, scope, key string, now time.Time) (*middleware.StoredResponse, error) {
		rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &middleware.StoredResponse{Status: rec.Status, Body: rec.Body}, nil
	}
}

// idempotencyStore adapts the repository to middleware.IdempotencyStore. A
// concurrent duplicate of the same key is not an error: the first one wins.
func idempotencyStore(db *gorm.DB, ttl time.Duration) middleware.IdempotencyStore {
	return func(ctx context.Context, userID, scope, key string, status int, body []byte) error {
		_, err := repo.CreateIdempotency(ctx, db, userID, scope, key, status, body, ttl)
		if errors.Is(err, repo.ErrDuplicate) {
			return nil
		}
		return err
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the versioned API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured access logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics, with lookup outcomes for the public tracking routes
//  7. Gzip (skipped for /metrics, which negotiates its own encoding)
//  8. Authenticate + ContextLogger: principal and request-scoped logger
//  9. CORS and Security headers
//
// Per group:
//   - admin: RequireAdmin, then idempotency (replays only reach admins and
//     skip the limiter), then the per-user limiter
//   - public: the per-IP limiter
func RegisterRoutes(r *gin.Engine, db *gorm.DB, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	if apiBase == "/" {
		apiBase = ""
	}

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(middleware.Metrics(apiBase+routeTracking, apiBase+routeTrackingReport))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(middleware.Authenticate(deps.Verifier))
	r.Use(middleware.ContextLogger())

	useCORS(r, cfg.CORS)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		NoStorePrefixes: []string{apiBase + "/admin"},
		EnablePolicy:    true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← db/cache/mailer
	m := deps.Mailer
	if m == nil {
		m = mailer.Noop{}
	}
	ids := deps.IDs
	if ids == nil {
		ids = trackid.New(cfg.TrackingPrefix)
	}
	loc := cfg.Location()

	shipSvc := services.NewShipmentService(db, ids, deps.Cache)
	trackSvc := services.NewTrackingService(db, deps.Cache, m, cfg.Email.NotifyUpdates, loc)
	trackSvc.Tasks = deps.Tasks
	viewSvc := services.NewTrackingViewService(db, deps.Cache, loc, cfg.FallbackSender)
	contactSvc := services.NewContactService(m, cfg.Email.Inbox)
	reports := report.New(report.Options{Company: cfg.FallbackSender.Company, Location: loc})
	h := handlers.New(shipSvc, trackSvc, viewSvc, contactSvc, reports)

	idempotency := middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
			Scopes: []string{
				http.MethodPost + " " + apiBase + routeShipments,
				http.MethodPost + " " + apiBase + routeUpdateTracking,
			},
			Store: idempotencyStore(db, cfg.IdempotencyTTL),
		},
		idempotencyLookup(db),
	)
	adminLimit := middleware.NewRateLimiter(middleware.RatePolicy{
		Name:  "admin",
		RPS:   cfg.RateRPS,
		Burst: cfg.RateBurst,
		Key:   middleware.KeyByUserOrIP(),
	})
	publicLimit := middleware.NewRateLimiter(middleware.RatePolicy{
		Name:  "public",
		RPS:   cfg.PublicRateRPS,
		Burst: cfg.PublicRateBurst,
		Key:   middleware.KeyByIP(),
	})

	api := groupWithPrefix(r, apiBase)
	{
		admin := api.Group("", middleware.RequireAdmin(), idempotency, adminLimit.Handler())
		admin.POST(routeShipments, h.CreateShipment)
		admin.GET(routeShipments, h.ListShipments)
		admin.DELETE(routeShipment, h.DeleteShipment)
		admin.POST(routeUpdateTracking, h.UpdateTracking)

		public := api.Group("", publicLimit.Handler())
		public.GET(routeTracking, h.GetTracking)
		public.GET(routeTrackingReport, h.GetTrackingReport)
		public.POST(routeContact, h.SubmitContact)
	}
}

// useCORS installs the CORS posture: allow all origins when none are
// configured, otherwise echo allow-listed origins.
func useCORS(r *gin.Engine, cfg config.CORSConfig) {
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey}
	methods := []string{"GET", "POST", "DELETE", "OPTIONS"}

	if len(cfg.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     methods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Disposition", "ETag"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
		return
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}
		c.Next()
	})
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     methods,
		AllowHeaders:     allowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Disposition", "ETag"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader. Requests exceeding the cap fail on read.
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
