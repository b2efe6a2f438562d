// Package api wires together all HTTP routes for the StreamVault access core.
//
// Route grouping philosophy:
//   - /health, /ready, and /version are unauthenticated so that load balancers
//     and Kubernetes probes can reach them without credentials.
//   - /api/v1/media/ is unauthenticated by design: locally stored media is
//     served against an HMAC-signed URL, and the signature is the credential.
//   - Everything else under /api/v1/ requires a valid JWT.
package api

import (
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/streamvault/streamvault/internal/access"
	"github.com/streamvault/streamvault/internal/audit"
	"github.com/streamvault/streamvault/internal/config"
	"github.com/streamvault/streamvault/internal/db/repositories"
	"github.com/streamvault/streamvault/internal/library"
	"github.com/streamvault/streamvault/internal/middleware"
	"github.com/streamvault/streamvault/internal/playback"
	"github.com/streamvault/streamvault/internal/storage"
	"github.com/streamvault/streamvault/internal/storage/local"
	"github.com/streamvault/streamvault/internal/streaming"

	// Import storage backends to register them. The local backend is
	// imported by name above for the media serving route.
	_ "github.com/streamvault/streamvault/internal/storage/azure"
	_ "github.com/streamvault/streamvault/internal/storage/gcs"
	_ "github.com/streamvault/streamvault/internal/storage/s3"
)

// BackgroundServices holds references to background resources that must be
// stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	auditShipper  *audit.MultiShipper
	rateLimiters  []*middleware.RateLimiter
	streamLimiter *middleware.StreamLimiter
}

// Shutdown stops background goroutines and flushes the audit pipeline. It
// should be called after the HTTP server has been shut down so that in-flight
// requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.streamLimiter != nil {
		bg.streamLimiter.Stop()
	}
	if bg.auditShipper != nil {
		if err := bg.auditShipper.Close(); err != nil {
			slog.Warn("failed to close audit shipper", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()
	bg := &BackgroundServices{}

	// Initialize the default storage backend; used by the readiness probe.
	// Per-media backends are resolved lazily during URL issuance.
	defaultBackend, err := storage.NewDefault(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage backend: %v", err)
	}
	log.Printf("Initialized storage backend: %s", cfg.Storage.DefaultBackend)

	// Initialize repositories
	accessStore := repositories.NewAccessStore(db)
	progressRepo := repositories.NewProgressRepository(db)

	// Wrap *sql.DB with sqlx for the library listing repository
	sqlxDB := sqlx.NewDb(db, "postgres")
	libraryRepo := repositories.NewLibraryRepository(sqlxDB)

	// Initialize the audit pipeline
	auditShipper := newAuditShipper(cfg)
	bg.auditShipper = auditShipper

	// Initialize services
	engine := access.NewEngine(access.NewSQLStore(accessStore))
	issuer := streaming.NewIssuer(engine, cfg, shipperOrNil(auditShipper))
	tracker := playback.NewTracker(progressRepo)
	librarySvc := library.NewService(libraryRepo)

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeaders()))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Readiness check endpoint (includes storage backend probe)
	router.GET("/ready", readinessHandler(db, defaultBackend))

	// API version
	router.GET("/version", versionHandler())

	// Media serving for the local backend. Signed URLs minted by the local
	// backend point here; the route stays unmounted when local storage is
	// not configured.
	if cfg.Storage.Local.SigningSecret != "" {
		localBackend, err := local.New(&cfg.Storage.Local, cfg.Server.BaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize local media serving: %v", err)
		}
		router.GET("/api/v1/media/*key",
			middleware.SecurityHeadersMiddleware(middleware.MediaPlaybackSecurityHeaders()),
			ServeMediaHandler(localBackend))
	}

	// Authenticated API routes
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware())

	if cfg.Security.RateLimiting.Enabled {
		rlCfg := middleware.DefaultRateLimitConfig()
		if cfg.Security.RateLimiting.RequestsPerMinute > 0 {
			rlCfg.RequestsPerMinute = cfg.Security.RateLimiting.RequestsPerMinute
		}
		if cfg.Security.RateLimiting.Burst > 0 {
			rlCfg.BurstSize = cfg.Security.RateLimiting.Burst
		}
		limiter := middleware.NewRateLimiter(rlCfg)
		bg.rateLimiters = append(bg.rateLimiters, limiter)
		api.Use(middleware.RateLimitMiddleware(limiter))
	}

	// Stream issuance carries its own stricter per-user limit.
	streamHandlers := []gin.HandlerFunc{}
	if cfg.Security.RateLimiting.Enabled {
		streamLimiter := middleware.NewStreamLimiter(cfg.Security.RateLimiting)
		bg.streamLimiter = streamLimiter
		streamHandlers = append(streamHandlers, middleware.StreamRateLimitMiddleware(streamLimiter))
	}
	streamHandlers = append(streamHandlers, StreamURLHandler(issuer))

	api.GET("/content/:id/stream", streamHandlers...)
	api.PUT("/content/:id/progress", SaveProgressHandler(tracker))
	api.GET("/content/:id/progress", GetProgressHandler(tracker))
	api.GET("/library", LibraryHandler(librarySvc))

	return router, bg
}

// newAuditShipper builds the audit pipeline from config. Returns nil when
// auditing is disabled or no shipper is configured.
func newAuditShipper(cfg *config.Config) *audit.MultiShipper {
	if !cfg.Audit.Enabled || len(cfg.Audit.Shippers) == 0 {
		return nil
	}

	configs := make([]audit.ShipperConfig, 0, len(cfg.Audit.Shippers))
	for _, sc := range cfg.Audit.Shippers {
		ac := audit.ShipperConfig{
			Enabled: sc.Enabled,
			Type:    sc.Type,
		}
		if sc.Webhook != nil {
			ac.Webhook = &audit.WebhookConfig{
				URL:           sc.Webhook.URL,
				Headers:       sc.Webhook.Headers,
				Timeout:       time.Duration(sc.Webhook.TimeoutSecs) * time.Second,
				BatchSize:     sc.Webhook.BatchSize,
				FlushInterval: time.Duration(sc.Webhook.FlushInterval) * time.Second,
			}
		}
		if sc.File != nil {
			ac.File = &audit.FileConfig{
				Path:       sc.File.Path,
				MaxSizeMB:  sc.File.MaxSizeMB,
				MaxBackups: sc.File.MaxBackups,
			}
		}
		configs = append(configs, ac)
	}

	shipper, err := audit.NewMultiShipper(configs)
	if err != nil {
		log.Fatalf("Failed to initialize audit shippers: %v", err)
	}
	return shipper
}

// shipperOrNil converts a possibly-nil *MultiShipper to the Shipper interface
// without producing a non-nil interface around a nil pointer.
func shipperOrNil(ms *audit.MultiShipper) audit.Shipper {
	if ms == nil {
		return nil
	}
	return ms
}

// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check database connection
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readinessHandler returns the readiness status of the service.
// Unlike the liveness probe (/health), this also checks the storage backend so
// that a Kubernetes readiness gate fails when URL signing would error.
func readinessHandler(db *sql.DB, storageBackend storage.Backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		// Check database connection
		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		// Check storage backend — probe with a known-absent sentinel path.
		// Exists() exercises authentication and network connectivity without
		// creating any state.
		if _, err := storageBackend.Exists(c.Request.Context(), ".readiness-probe"); err != nil {
			checks["storage"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "storage backend not ready",
			})
			return
		}
		checks["storage"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		// Log the request
		if cfg.Logging.Format == "json" {
			logJSON(c, latency, path, query)
		} else {
			logText(c, latency, path, query)
		}
	}
}

// logJSON logs a request as a JSON-structured slog record.
func logJSON(c *gin.Context, latency time.Duration, path, query string) {
	slog.LogAttrs(
		c.Request.Context(),
		slog.LevelInfo,
		"http request",
		slog.String("method", c.Request.Method),
		slog.String("path", path),
		slog.String("query", query),
		slog.Int("status", c.Writer.Status()),
		slog.Int("size", c.Writer.Size()),
		slog.Duration("latency", latency),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", middleware.RequestID(c)),
		slog.String("user_agent", c.Request.UserAgent()),
	)
}

// logText logs a request as a human-readable slog text record.
func logText(c *gin.Context, latency time.Duration, path, query string) {
	// reuse the same structured output; slog will emit text format when the global
	// handler is a TextHandler (configured in telemetry.SetupLogger).
	logJSON(c, latency, path, query)
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, PUT, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
