package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/storepulse/backend/config"
	"github.com/storepulse/backend/pkg/api/handlers"
	custommw "github.com/storepulse/backend/pkg/api/middleware"
	"github.com/storepulse/backend/pkg/cache"
	"github.com/storepulse/backend/pkg/database"
	"github.com/storepulse/backend/pkg/jobs"
	"github.com/storepulse/backend/pkg/logger"
	"github.com/storepulse/backend/pkg/metrics"
	custommiddleware "github.com/storepulse/backend/pkg/middleware"
	"github.com/storepulse/backend/pkg/oauth"
	"github.com/storepulse/backend/pkg/predictions"
	"github.com/storepulse/backend/pkg/providers/facebook"
	"github.com/storepulse/backend/pkg/providers/googleads"
	"github.com/storepulse/backend/pkg/providers/shopify"
	"github.com/storepulse/backend/pkg/storage"
	"github.com/storepulse/backend/pkg/stores"
	"github.com/storepulse/backend/pkg/sync"
	"github.com/storepulse/backend/pkg/tokens"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Printf("🔧 Configuration loaded (environment: %s)", cfg.APIEnvironment)

	appLog := logger.New(cfg.LogLevel, cfg.LogFormat)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 1.0,
			AttachStacktrace: true,
			BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
				return event
			},
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s)", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Printf("ℹ️  Sentry disabled (no DSN configured)")
	}

	// Initialize database
	db, err := database.NewClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize Redis cache
	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize Prometheus metrics
	prometheusMetrics := metrics.New()
	log.Printf("✅ Prometheus metrics initialized")

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Global rate limiter (per client IP)
	globalRateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)

	// Global middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("[%s] %s - Status: %d", c.Request().Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	// Sentry error tracking middleware (if configured)
	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true,
		}))
	}

	// Prometheus metrics middleware
	e.Use(prometheusMetrics.Middleware())

	// CORS with restricted origins
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	e.Use(middleware.Gzip())
	e.Use(middleware.Secure())

	// Global rate limiting
	e.Use(globalRateLimiter.RateLimitMiddleware())

	// Health check endpoints (public)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"name":        "StorePulse API",
			"version":     "0.1.0",
			"status":      "running",
			"environment": cfg.APIEnvironment,
			"timestamp":   time.Now().Unix(),
		})
	})

	e.GET("/health", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status":   "unhealthy",
				"database": "down",
			})
		}

		if err := redisClient.Redis.Ping(ctx).Err(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy",
				"cache":  "down",
			})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"status":   "healthy",
			"database": "up",
			"cache":    "up",
		})
	})

	// Prometheus metrics endpoint (public)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Initialize repositories
	storeRepo := storage.NewPostgresStoreRepository(db.DB)
	metricRepo := storage.NewPostgresMetricRepository(db.DB)

	// Initialize services
	tokenService := tokens.NewService(storeRepo, cfg.GoogleClientID, cfg.GoogleClientSecret)
	shopifyClient := shopify.NewClient(cfg.ShopifyAPIVersion, tokenService, appLog)
	facebookClient := facebook.NewClient(cfg.FacebookAPIVersion, tokenService, appLog)
	googleClient := googleads.NewClient(cfg.GoogleAdsAPIVersion, cfg.GoogleDeveloperToken, tokenService, appLog)
	syncService := sync.NewService(shopifyClient, facebookClient, googleClient, metricRepo, appLog, prometheusMetrics)
	storeService := stores.NewService(storeRepo)
	oauthService := oauth.NewService(storeRepo, oauth.NewStateStore(redisClient), cfg)
	predictionService := predictions.NewService(metricRepo, cfg.PredictionServiceURL)
	if predictionService.Enabled() {
		log.Printf("✅ Prediction service enabled (%s)", cfg.PredictionServiceURL)
	} else {
		log.Printf("ℹ️  Prediction service disabled (no URL configured)")
	}

	// Initialize cron manager for scheduled syncs
	cronManager := jobs.NewCronManager(storeRepo, syncService, prometheusMetrics, log.Default())
	if cfg.CronEnabled {
		if err := cronManager.SetupJobs(); err != nil {
			log.Fatalf("❌ Failed to setup cron jobs: %v", err)
		}
		cronManager.Start()
		log.Printf("✅ Cron jobs started successfully")
	} else {
		log.Printf("ℹ️  Cron disabled (CRON_ENABLED=false)")
	}

	// Initialize handlers
	storeHandler := handlers.NewStoreHandler(storeService)
	syncHandler := handlers.NewSyncHandler(storeRepo, syncService)
	metricsHandler := handlers.NewMetricsHandler(storeRepo, metricRepo)
	insightsHandler := handlers.NewInsightsHandler(storeRepo, facebookClient, shopifyClient)
	connectionsHandler := handlers.NewConnectionsHandler(storeRepo, shopifyClient, facebookClient, googleClient)
	oauthHandler := handlers.NewOAuthHandler(storeRepo, oauthService)
	predictionsHandler := handlers.NewPredictionsHandler(storeRepo, predictionService)

	// API v1 routes
	v1 := e.Group("/api/v1")

	// Ping endpoint (public)
	v1.GET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"message": "pong",
		})
	})

	// OAuth callback (public, providers redirect here without a JWT)
	v1.GET("/oauth/callback", oauthHandler.Callback)

	// Protected routes (require JWT)
	protected := v1.Group("")
	protected.Use(custommw.JWTMiddleware(cfg.JWTSecret))
	{
		// Store routes
		storesGroup := protected.Group("/stores")
		{
			storesGroup.GET("", storeHandler.List)
			storesGroup.POST("", storeHandler.Create, custommw.RequireAdmin())
			storesGroup.GET("/:id", storeHandler.Get)
			storesGroup.PATCH("/:id", storeHandler.Update, custommw.RequireAdmin())
			storesGroup.DELETE("/:id", storeHandler.Delete, custommw.RequireAdmin())

			// Manual sync triggers (admin; backfills hit provider rate limits)
			storesGroup.POST("/:id/sync/daily", syncHandler.SyncDaily, custommw.RequireAdmin())
			storesGroup.POST("/:id/sync/range", syncHandler.SyncRange, custommw.RequireAdmin())
			storesGroup.POST("/:id/sync/products", syncHandler.SyncProducts, custommw.RequireAdmin())
			storesGroup.POST("/:id/sync/traffic", syncHandler.SyncTraffic, custommw.RequireAdmin())

			// Persisted metrics
			storesGroup.GET("/:id/metrics/daily", metricsHandler.GetDaily)
			storesGroup.GET("/:id/metrics/products", metricsHandler.GetProducts)
			storesGroup.GET("/:id/metrics/traffic", metricsHandler.GetTraffic)

			// Live provider analytics
			storesGroup.GET("/:id/insights", insightsHandler.GetInsights)
			storesGroup.GET("/:id/geography", insightsHandler.GetGeography)

			// Connection health
			storesGroup.GET("/:id/connections", connectionsHandler.Test)

			// Provider linking
			storesGroup.GET("/:id/oauth/:provider", oauthHandler.Connect)

			// Forecasting
			storesGroup.POST("/:id/predictions/forecast", predictionsHandler.Forecast)
		}
	}

	// Start server in background
	go func() {
		addr := cfg.APIHost + ":" + cfg.APIPort
		log.Printf("🚀 Starting StorePulse API on %s", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Printf("🛑 Shutting down server...")

	// Stop cron jobs first so no new syncs start mid-shutdown
	if cfg.CronEnabled {
		cronManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Printf("✅ Server exited cleanly")
}
