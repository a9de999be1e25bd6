package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	identityapp "github.com/templeparties/backend/internal/application/identity"
	partyapp "github.com/templeparties/backend/internal/application/party"
	"github.com/templeparties/backend/internal/infrastructure/auth"
	"github.com/templeparties/backend/internal/infrastructure/config"
	"github.com/templeparties/backend/internal/infrastructure/event"
	"github.com/templeparties/backend/internal/infrastructure/logger"
	"github.com/templeparties/backend/internal/infrastructure/mail"
	"github.com/templeparties/backend/internal/infrastructure/persistence"
	"github.com/templeparties/backend/internal/infrastructure/telemetry"
	"github.com/templeparties/backend/internal/interfaces/http/handler"
	"github.com/templeparties/backend/internal/interfaces/http/middleware"
	"github.com/templeparties/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
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

	log.Info("Starting Temple Parties backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Initialize OpenTelemetry metrics
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

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

	// Register database query tracing (otelgorm)
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:          cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		WithoutVariables: cfg.App.Env == "production",
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}

	// Register database metrics collection
	if cfg.Telemetry.MetricsEnabled {
		dbMetrics, err := telemetry.NewDBMetrics(
			meterProvider.Meter("db"),
			telemetry.DefaultDBMetricsConfig(),
			log,
		)
		if err != nil {
			log.Warn("Failed to initialize database metrics", zap.Error(err))
		} else if err := db.DB.Use(telemetry.NewDBMetricsPlugin(dbMetrics, log)); err != nil {
			log.Warn("Failed to register database metrics plugin", zap.Error(err))
		}
	}

	// Initialize repositories
	partyRepo := persistence.NewGormPartyRepository(db.DB)
	goingRepo := persistence.NewGormGoingRepository(db.DB)
	profileRepo := persistence.NewGormProfileRepository(db.DB)

	// Magic link store: Redis in normal operation, in-memory for
	// single-process development setups without Redis
	var magicLinks auth.MagicLinkStore
	if cfg.Redis.Host != "" {
		store, err := auth.NewRedisMagicLinkStore(auth.RedisMagicLinkConfig{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		magicLinks = store
		log.Info("Redis magic link store initialized")
	} else {
		magicLinks = auth.NewInMemoryMagicLinkStore()
		log.Warn("Redis not configured, magic links held in memory")
	}

	// Outgoing mail for sign-in links
	mailer, err := mail.New(cfg.Mail, log)
	if err != nil {
		log.Fatal("Failed to initialize mailer", zap.Error(err))
	}

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)

	// Initialize application services
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(profileRepo, magicLinks, mailer, jwtService, identityapp.AuthServiceConfig{
		AllowedEmailDomain: cfg.Auth.AllowedEmailDomain,
		MagicLinkTTL:       cfg.Auth.MagicLinkTTL,
		AdminEmails:        cfg.Auth.AdminEmails,
		BaseURL:            cfg.App.BaseURL,
	}, log)
	partyService := partyapp.NewPartyService(partyRepo, goingRepo, eventBus, log)
	moderationService := partyapp.NewModerationService(partyRepo, eventBus, log)

	// Business metrics over the party and auth flows
	if cfg.Telemetry.MetricsEnabled {
		businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:              meterProvider.Meter("business"),
			Logger:             log,
			ModerationProvider: moderationService,
		})
		if err != nil {
			log.Warn("Failed to initialize business metrics", zap.Error(err))
		} else {
			authService = authService.WithMetrics(businessMetrics)
			partyService = partyService.WithMetrics(businessMetrics)
			moderationService = moderationService.WithMetrics(businessMetrics)
			businessMetrics.StartPeriodicCollection(ctx, cfg.Telemetry.MetricsInterval)
		}
	}

	// SSE handler streams approved/deleted/going-changed events to the feed
	sseHandler := handler.NewPartySSEHandler(handler.WithSSELogger(log))
	eventBus.Subscribe(sseHandler)
	log.Info("Event handlers registered",
		zap.Strings("sse_events", sseHandler.EventTypes()),
	)

	// Start event bus
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	sseHandler.Start()
	defer sseHandler.Stop()

	// Initialize HTTP handlers
	authHandler := handler.NewAuthHandler(authService)
	partyHandler := handler.NewPartyHandler(partyService)
	adminHandler := handler.NewAdminHandler(moderationService)
	systemHandler := handler.NewSystemHandler(db.DB)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

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
	// 4. Tracing - OpenTelemetry spans
	// 5. Metrics - HTTP metrics
	// 6. Security - Add security headers
	// 7. CORS - Handle cross-origin requests
	// 8. BodyLimit - Limit request body size
	// 9. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanEnrichment())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		ServiceName:   cfg.Telemetry.ServiceName,
		Enabled:       cfg.Telemetry.MetricsEnabled,
	}))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
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

	// Tighter per-IP limit on the signup endpoint so a single host
	// cannot flood campus inboxes with sign-in links
	authLimit := func(c *gin.Context) { c.Next() }
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		authLimit = middleware.AuthRateLimit(authLimiter)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", systemHandler.Health)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	requireAuth := middleware.JWTAuthMiddleware(jwtService)
	optionalAuth := middleware.OptionalJWTAuthMiddleware(jwtService)

	// Auth domain: signup/verify/refresh are public, the rest require a token
	authRoutes := router.NewDomainGroup("auth", "/auth")
	authRoutes.POST("/signup", authLimit, authHandler.Signup)
	authRoutes.GET("/verify", authHandler.Verify)
	authRoutes.POST("/refresh", authHandler.RefreshToken)
	authRoutes.POST("/username", requireAuth, authHandler.SetUsername)
	authRoutes.GET("/me", requireAuth, authHandler.GetCurrentProfile)

	// Party domain: the feed is public; a token personalizes it and
	// unlocks submissions and going toggles
	partyRoutes := router.NewDomainGroup("parties", "/parties")
	partyRoutes.GET("", optionalAuth, partyHandler.Feed)
	partyRoutes.GET("/stream", optionalAuth, sseHandler.Stream)
	partyRoutes.GET("/mine/going", requireAuth, partyHandler.MineGoing)
	partyRoutes.GET("/:id", optionalAuth, partyHandler.Get)
	partyRoutes.POST("", requireAuth, partyHandler.Create)
	partyRoutes.DELETE("/:id", requireAuth, partyHandler.Delete)
	partyRoutes.POST("/:id/going", requireAuth, partyHandler.ToggleGoing)

	// Admin domain: moderation queue, admins only
	adminRoutes := router.NewDomainGroup("admin", "/admin")
	adminRoutes.Use(requireAuth, middleware.AdminOnly())
	adminRoutes.GET("/parties", adminHandler.Pending)
	adminRoutes.POST("/parties/:id/approve", adminHandler.Approve)
	adminRoutes.POST("/parties/:id/reject", adminHandler.Reject)

	// System domain
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)

	r.Register(authRoutes).
		Register(partyRoutes).
		Register(adminRoutes).
		Register(systemRoutes)

	r.Setup()

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
