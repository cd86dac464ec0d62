package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dalilsuez/backend/internal/auth"
	"github.com/dalilsuez/backend/internal/cache"
	"github.com/dalilsuez/backend/internal/config"
	"github.com/dalilsuez/backend/internal/database"
	"github.com/dalilsuez/backend/internal/events"
	"github.com/dalilsuez/backend/internal/handlers"
	"github.com/dalilsuez/backend/internal/idempotency"
	"github.com/dalilsuez/backend/internal/kernel"
	"github.com/dalilsuez/backend/internal/logger"
	"github.com/dalilsuez/backend/internal/metrics"
	"github.com/dalilsuez/backend/internal/middleware"
	"github.com/dalilsuez/backend/internal/ratelimit"
	"github.com/dalilsuez/backend/internal/recommend"
	"github.com/dalilsuez/backend/internal/telemetry"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const serviceName = "dalil-backend"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg := config.Load()

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("server starting",
		zap.String("service", serviceName),
		zap.String("environment", cfg.Environment),
	)

	if cfg.JWTSecret == "" {
		logger.Log.Fatal("JWT_SECRET environment variable is required")
	}

	// Database
	if err := database.Initialize(cfg.DatabaseURL); err != nil {
		logger.Log.Fatal("failed to initialize database", zap.Error(err))
	}
	if err := database.Migrate(); err != nil {
		logger.Log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis is optional; the distributed limiter and response cache pass
	// through when it is absent
	var redisClient *cache.RedisClient
	if cfg.RedisHost != "" {
		var err error
		redisClient, err = cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			logger.WarnWithError("redis unavailable, continuing without it", err)
		}
	}

	// Tracing
	tp, err := telemetry.InitTracer(telemetry.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
		Enabled:      cfg.OTLPEndpoint != "",
		SamplingRate: 1.0,
	})
	if err != nil {
		logger.WarnWithError("tracing disabled", err)
	}

	metrics.Initialize()

	// Wire the kernel
	limiter := ratelimit.NewLimiter(time.Minute)

	k := kernel.New().
		SetDB(database.DB).
		SetLogger(logger.Log).
		SetCache(redisClient).
		SetAuthService(auth.NewService([]byte(cfg.JWTSecret), database.DB)).
		SetLimiter(limiter).
		SetIdempotencyStore(idempotency.NewStore(database.DB)).
		SetEventsService(events.NewService(database.DB)).
		SetRecommender(recommend.NewResolver(database.DB)).
		SetSpans(telemetry.NewBusinessEvents())

	k.OnCleanup(func(ctx context.Context) error {
		limiter.Stop()
		return nil
	})
	if redisClient != nil {
		k.OnCleanup(func(ctx context.Context) error {
			return redisClient.Close()
		})
	}
	if tp != nil {
		k.OnCleanup(func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		})
	}

	if err := k.Validate(); err != nil {
		logger.Log.Fatal("kernel validation failed", zap.Error(err))
	}

	h := handlers.NewHandlers(k)
	authSvc := k.Auth()

	// Router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Idempotency-Key", "X-Request-ID"}
	r.Use(cors.New(corsConfig))

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		// Telemetry ingestion: identity optional, generous shared limit
		eventsGroup := api.Group("/events")
		{
			eventsGroup.Use(auth.OptionalAuth(authSvc))
			eventsGroup.Use(middleware.RedisRateLimitMiddleware("telemetry",
				middleware.TelemetryRateLimitConfig().Limit,
				middleware.TelemetryRateLimitConfig().Window))
			eventsGroup.POST("", h.RecordEvent)
			eventsGroup.POST("/batch", h.RecordEventBatch)
		}

		// Recommendations: personalized, short redis-backed cache
		api.GET("/recommendations/for-you",
			auth.OptionalAuth(authSvc),
			middleware.ResponseCacheMiddleware(30*time.Second),
			h.GetForYou,
		)

		places := api.Group("/places")
		{
			places.GET("/:id", h.GetPlace)
			places.GET("/:id/reviews", h.ListPlaceReviews)

			// The guarded primary write: hard auth, strict limit, idempotent
			reviewLimit := middleware.RateLimitConfig{
				Surface: "reviews",
				Limit:   cfg.ReviewRateLimit,
				Window:  cfg.ReviewRateWindow,
			}
			places.POST("/:id/reviews",
				auth.RequireAuth(authSvc),
				middleware.RateLimitMiddleware(k.Limiter(), reviewLimit),
				middleware.CacheInvalidationMiddleware("response:/api/v1/places/*"),
				h.CreateReview,
			)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Log.Info("listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("server forced to shutdown", zap.Error(err))
	}
	if err := k.Cleanup(ctx); err != nil {
		logger.Log.Error("cleanup failed", zap.Error(err))
	}

	logger.Log.Info("server exited")
}
