package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	billingapp "github.com/facturacion/backend/internal/application/billing"
	treasuryapp "github.com/facturacion/backend/internal/application/treasury"
	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/facturacion/backend/internal/infrastructure/cache"
	"github.com/facturacion/backend/internal/infrastructure/config"
	"github.com/facturacion/backend/internal/infrastructure/event"
	"github.com/facturacion/backend/internal/infrastructure/fiscal"
	"github.com/facturacion/backend/internal/infrastructure/logger"
	"github.com/facturacion/backend/internal/infrastructure/notification"
	"github.com/facturacion/backend/internal/infrastructure/persistence"
	"github.com/facturacion/backend/internal/infrastructure/telemetry"
	"github.com/facturacion/backend/internal/interfaces/http/handler"
	"github.com/facturacion/backend/internal/interfaces/http/middleware"
	"github.com/facturacion/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Facturacion Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled {
		if err := db.EnableTracing(); err != nil {
			log.Warn("Failed to enable database tracing", zap.Error(err))
		}
	}

	// Idempotency store: Redis when configured, in-process otherwise
	var idemStore shared.IdempotencyStore
	if cfg.Redis.Host != "" {
		redisStore, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		idemStore = redisStore
		log.Info("Idempotency store backed by Redis",
			zap.String("host", cfg.Redis.Host), zap.Int("port", cfg.Redis.Port))
	} else {
		idemStore = cache.NewInMemoryIdempotencyStore()
		log.Info("Idempotency store backed by process memory")
	}
	defer func() {
		if err := idemStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Initialize repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	collectionRepo := persistence.NewGormCollectionRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)

	// Retention agent standing from config
	agentConfig, err := fiscal.NewFileAgentConfigProvider(cfg.Retention)
	if err != nil {
		log.Fatal("Failed to load retention configuration", zap.Error(err))
	}

	// Certificate status cache over the fiscal gateway
	certFetcher := fiscal.NewHTTPCertificateStatusFetcher(cfg.Fiscal.GatewayURL, nil)
	certStatusCache := cache.NewCertificateStatusCache(certFetcher, cfg.Cache.CertificateStatusTTL)

	// Network declaration notifier
	notifier := notification.NewLogNotifier(log)

	// Initialize application services
	invoiceService := billingapp.NewInvoiceService(invoiceRepo, collectionRepo, paymentRepo)
	collectionService := treasuryapp.NewCollectionService(invoiceRepo, collectionRepo, notifier)
	paymentService := treasuryapp.NewPaymentService(invoiceRepo, paymentRepo, agentConfig, notifier)

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)

	settlementAuditHandler := treasuryapp.NewSettlementAuditHandler(log)
	eventBus.Subscribe(settlementAuditHandler)
	log.Info("Event handlers registered",
		zap.Strings("settlement_audit_events", settlementAuditHandler.EventTypes()),
	)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Inject event bus into services that publish events
	invoiceService.SetEventPublisher(eventBus)
	collectionService.SetEventPublisher(eventBus)
	paymentService.SetEventPublisher(eventBus)

	// Initialize HTTP handlers
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	collectionHandler := handler.NewCollectionHandler(collectionService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	fiscalHandler := handler.NewFiscalHandler(certStatusCache, log)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. CORS - Handle cross-origin requests
	// 5. BodyLimit - Limit request body size
	// 6. RateLimit - Apply rate limiting (if enabled)
	// 7. Tracing - Span per request (if enabled)
	// 8. Company - Resolve the workspace from X-Company-ID
	// 9. Idempotency - Reject replayed mutation keys
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
	}

	companyConfig := middleware.DefaultCompanyConfig()
	companyConfig.Logger = log
	engine.Use(middleware.CompanyMiddlewareWithConfig(companyConfig))

	engine.Use(middleware.Idempotency(middleware.IdempotencyConfig{
		Store:  idemStore,
		TTL:    cfg.Cache.IdempotencyTTL,
		Logger: log,
	}))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(invoiceHandler)
	r.Register(collectionHandler)
	r.Register(paymentHandler)
	if cfg.Fiscal.CertCheckEnabled {
		r.Register(fiscalHandler)
	}
	r.Register(systemHandler)
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
