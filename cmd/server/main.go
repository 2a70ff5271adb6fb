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

	appbilling "github.com/propsign/backend/internal/application/billing"
	appdocument "github.com/propsign/backend/internal/application/document"
	"github.com/propsign/backend/internal/domain/billing"
	"github.com/propsign/backend/internal/infrastructure/ai"
	"github.com/propsign/backend/internal/infrastructure/auth"
	infrabilling "github.com/propsign/backend/internal/infrastructure/billing"
	"github.com/propsign/backend/internal/infrastructure/cache"
	"github.com/propsign/backend/internal/infrastructure/config"
	"github.com/propsign/backend/internal/infrastructure/email"
	"github.com/propsign/backend/internal/infrastructure/logger"
	"github.com/propsign/backend/internal/infrastructure/persistence"
	"github.com/propsign/backend/internal/infrastructure/scheduler"
	"github.com/propsign/backend/internal/infrastructure/signing"
	"github.com/propsign/backend/internal/infrastructure/storage"
	"github.com/propsign/backend/internal/infrastructure/telemetry"
	"github.com/propsign/backend/internal/interfaces/http/handler"
	"github.com/propsign/backend/internal/interfaces/http/middleware"
	"github.com/propsign/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

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

	log.Info("Starting PropSign Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// OpenTelemetry trace and metric export, no-op unless configured
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
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
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Database connection with a GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled: cfg.Telemetry.Enabled && cfg.Telemetry.TraceDB,
		DBName:  cfg.Database.DBName,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Repositories
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	planRepo := persistence.NewGormPlanRepository(db.DB)
	usageRepo := persistence.NewGormUsageRecordRepository(db.DB)
	alertRepo := persistence.NewGormAlertRecordRepository(db.DB)
	docRepo := persistence.NewGormDocumentRepository(db.DB)
	sigRepo := persistence.NewGormPendingSignatureRepository(db.DB)

	// Make sure the plan catalog exists before any entitlement lookup
	if err := planRepo.Seed(context.Background(), billing.DefaultPlans()); err != nil {
		log.Fatal("Failed to seed plan catalog", zap.Error(err))
	}

	// Idempotency store for Stripe webhook dedup (Redis, with an
	// in-memory fallback for local development)
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	idempotencyStore, err := storeFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Object storage for uploaded documents
	objectStorage, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}
	if err := objectStorage.EnsureBucket(context.Background()); err != nil {
		log.Fatal("Failed to ensure storage bucket", zap.Error(err))
	}

	// External providers
	parserClient, err := ai.NewParserClient(&cfg.AI, log)
	if err != nil {
		log.Fatal("Failed to initialize document parser client", zap.Error(err))
	}
	envelopeClient, err := signing.NewEnvelopeClient(&cfg.Signing, log)
	if err != nil {
		log.Fatal("Failed to initialize e-signature client", zap.Error(err))
	}

	var notifier appdocument.NotificationService
	if cfg.Email.Enabled {
		notifier, err = email.NewSMTPNotifier(&cfg.Email, log)
		if err != nil {
			log.Fatal("Failed to initialize SMTP notifier", zap.Error(err))
		}
	} else {
		notifier = email.NewNoopNotifier(log)
		log.Info("Email delivery disabled, notifications are logged only")
	}

	var gateway appbilling.PaymentGateway
	if cfg.Stripe.APIKey != "" {
		adapter, err := infrabilling.NewStripeAdapter(&cfg.Stripe, log)
		if err != nil {
			log.Fatal("Failed to initialize Stripe adapter", zap.Error(err))
		}
		gateway = adapter
	} else {
		log.Warn("Stripe API key not configured, paid plan changes are unavailable")
	}

	// Application services
	usageService := appbilling.NewUsageService(usageRepo, log)
	entitlementService := appbilling.NewEntitlementService(tenantRepo, planRepo, log)
	quotaService := appbilling.NewQuotaService(entitlementService, usageService, log)
	alertService := appbilling.NewAlertService(entitlementService, usageService, alertRepo, log)
	subscriptionService := appbilling.NewSubscriptionService(tenantRepo, planRepo, gateway, log)
	stripeWebhookService := appbilling.NewStripeWebhookService(cfg.Stripe.WebhookSecret, tenantRepo, idempotencyStore, log)

	documentService := appdocument.NewDocumentService(
		docRepo, sigRepo, tenantRepo,
		quotaService, usageService, alertService,
		objectStorage, parserClient, envelopeClient, notifier,
		log,
	)
	reminderService := appdocument.NewReminderService(sigRepo, docRepo, notifier, log)
	if cfg.Reminder.StaleAfter > 0 && cfg.Reminder.CoolDown > 0 {
		reminderService.SetConfig(appdocument.ReminderConfig{
			StaleAfter: cfg.Reminder.StaleAfter,
			CoolDown:   cfg.Reminder.CoolDown,
		})
	}

	// Reminder sweep scheduler
	reminderScheduler := scheduler.NewReminderScheduler(reminderService, log, scheduler.ReminderSchedulerConfig{
		Enabled:       cfg.Reminder.Enabled,
		SweepInterval: cfg.Reminder.SweepInterval,
	})
	if err := reminderScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start reminder scheduler", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := reminderScheduler.Stop(stopCtx); err != nil {
			log.Error("Error stopping reminder scheduler", zap.Error(err))
		}
	}()
	if cfg.Reminder.Enabled {
		log.Info("Reminder scheduler started",
			zap.Duration("sweep_interval", cfg.Reminder.SweepInterval))
	}

	// JWT
	jwtService := auth.NewJWTService(cfg.JWT)

	// Gin engine and middleware stack
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(logger.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		ServiceName:   cfg.Telemetry.ServiceName,
		Enabled:       cfg.Telemetry.Enabled,
	}))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/health",
			"/api/v1/health",
			"/api/v1/ready",
		},
		SkipPathPrefixes: []string{
			"/api/v1/webhooks",
		},
		Logger: log,
	}))
	if cfg.Telemetry.Enabled {
		// After JWT so spans carry the authenticated tenant.
		engine.Use(middleware.TracingAttributeInjector())
	}

	// Routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewSystemHandler(db.DB, version))
	r.Register(handler.NewDocumentHandler(documentService, reminderService))
	r.Register(handler.NewUsageHandler(usageService, entitlementService, quotaService, alertService))
	r.Register(handler.NewSubscriptionHandler(subscriptionService))
	r.Register(handler.NewStripeWebhookHandler(stripeWebhookService))
	r.Register(handler.NewSigningWebhookHandler(documentService, cfg.Signing.WebhookSecret))
	r.Setup()

	// HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
