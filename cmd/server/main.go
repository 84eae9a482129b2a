package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nicepick/backend/internal/admin"
	"github.com/nicepick/backend/internal/infrastructure/auth"
	"github.com/nicepick/backend/internal/infrastructure/config"
	"github.com/nicepick/backend/internal/infrastructure/docstore"
	"github.com/nicepick/backend/internal/infrastructure/logger"
	"github.com/nicepick/backend/internal/infrastructure/persistence"
	"github.com/nicepick/backend/internal/infrastructure/storage"
	"github.com/nicepick/backend/internal/infrastructure/telemetry"
	"github.com/nicepick/backend/internal/interfaces/http/handler"
	"github.com/nicepick/backend/internal/interfaces/http/middleware"
	"github.com/nicepick/backend/internal/interfaces/http/router"
	"github.com/nicepick/backend/internal/region"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

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

	regions := region.FromAppConfig(cfg)
	log.Info("Starting admin backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("cn_direct", regions.CN.DirectCredentials),
		zap.Bool("intl_direct", regions.INTL.DirectCredentials),
	)

	ctx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.TracingConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	adminMetrics, err := telemetry.NewAdminMetrics()
	if err != nil {
		log.Fatal("Failed to create admin metrics", zap.Error(err))
	}

	// CN backend: only opened when all direct credentials are present.
	// Without it the region resolves via proxy or reports missing.
	var docClient *docstore.Client
	if regions.CN.DirectCredentials {
		docClient, err = docstore.New(cfg.RegionCN, docstore.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to connect to CN document store", zap.Error(err))
		}
		defer func() {
			if err := docClient.Close(); err != nil {
				log.Error("Error closing document store", zap.Error(err))
			}
		}()
		log.Info("CN document store connected")
	}

	// INTL backend
	var db *gorm.DB
	if regions.INTL.DirectCredentials {
		db, err = persistence.Open(cfg.RegionINTL.DatabaseURL, log, cfg.Log.Level)
		if err != nil {
			log.Fatal("Failed to connect to INTL database", zap.Error(err))
		}
		log.Info("INTL database connected")
	}

	var artifacts storage.ObjectStorage
	if cfg.RegionINTL.Storage.Bucket != "" && cfg.RegionINTL.Storage.AccessKey != "" {
		s3Storage, err := storage.NewS3ObjectStorage(&cfg.RegionINTL.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		if err := s3Storage.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to ensure storage bucket", zap.Error(err))
		}
		artifacts = s3Storage
		log.Info("Object storage ready", zap.String("bucket", s3Storage.Bucket()))
	}

	proxyClient := admin.NewProxyClient(cfg.Proxy.Timeout, cfg.Session.CookieName,
		admin.WithProxyLogger(log))

	reconcilers := handler.Reconcilers{
		Users: admin.NewReconciler("users",
			admin.SplitFetcher(cnFetcher(docClient, docstore.UserFetcher), intlFetcher(db, persistence.UserFetcher)),
			proxyClient, admin.WithLogger[admin.UserRow](log), admin.WithMetrics[admin.UserRow](adminMetrics)),
		Orders: admin.NewReconciler("orders",
			admin.SplitFetcher(cnFetcher(docClient, docstore.OrderFetcher), intlFetcher(db, persistence.OrderFetcher)),
			proxyClient, admin.WithLogger[admin.OrderRow](log), admin.WithMetrics[admin.OrderRow](adminMetrics)),
		Payments: admin.NewReconciler("payments",
			admin.SplitFetcher(cnFetcher(docClient, docstore.PaymentFetcher), intlFetcher(db, persistence.PaymentFetcher)),
			proxyClient, admin.WithLogger[admin.PaymentRow](log), admin.WithMetrics[admin.PaymentRow](adminMetrics)),
		Releases: admin.NewReconciler("releases",
			admin.SplitFetcher(cnFetcher(docClient, docstore.ReleaseFetcher), intlFetcher(db, persistence.ReleaseFetcher)),
			proxyClient, admin.WithLogger[admin.ReleaseRow](log), admin.WithMetrics[admin.ReleaseRow](adminMetrics)),
		DeviceStats: admin.NewReconciler("device-stats",
			admin.SplitFetcher(cnFetcher(docClient, docstore.DeviceStatFetcher), intlFetcher(db, persistence.DeviceStatFetcher)),
			proxyClient, admin.WithLogger[admin.DeviceStatRow](log), admin.WithMetrics[admin.DeviceStatRow](adminMetrics)),
	}

	var cnReleases, intlReleases handler.ReleaseWriter
	var cnUsers, intlUsers handler.UserWriter
	var intlReleaseFinder handler.ReleaseFinder
	if docClient != nil {
		cnReleases = docstore.NewReleaseStore(docClient)
		cnUsers = docstore.NewUserStore(docClient)
	}
	if db != nil {
		repo := persistence.NewReleaseRepository(db)
		intlReleases = repo
		intlReleaseFinder = repo
		intlUsers = persistence.NewUserRepository(db)
	}

	regionSnapshot := func() region.Config { return region.FromAppConfig(cfg) }
	adminHandler := handler.NewAdminHandler(
		reconcilers,
		regionSnapshot,
		handler.NewReleaseMutator(cnReleases, intlReleases, intlReleaseFinder, artifacts, log),
		handler.NewUserMutator(cnUsers, intlUsers, log),
		handler.WithAdminLogger(log),
	)

	sessions := auth.NewSessionService(cfg.Session)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}
	engine.Use(
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.RequestID(),
		otelgin.Middleware(cfg.Telemetry.ServiceName),
	)
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))

	router.NewRouter(engine,
		router.WithAdminMiddleware(
			middleware.SessionAuth(middleware.SessionAuthConfig{
				Sessions:    sessions,
				CookieName:  cfg.Session.CookieName,
				ProxySecret: cfg.Proxy.SharedSecret,
				Logger:      log,
			}),
			middleware.NoStore(),
		),
	).
		RegisterPublic(handler.NewHealthHandler()).
		RegisterAdmin(adminHandler).
		Setup()

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
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer shutdown failed", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Meter shutdown failed", zap.Error(err))
	}
	log.Info("Shutdown complete")
}

// cnFetcher builds the CN side of a split fetcher, or nil when the
// region has no direct backend
func cnFetcher[T any](c *docstore.Client, build func(*docstore.Client) admin.Fetcher[T]) admin.Fetcher[T] {
	if c == nil {
		return nil
	}
	return build(c)
}

// intlFetcher builds the INTL side of a split fetcher, or nil when the
// region has no direct backend
func intlFetcher[T any](db *gorm.DB, build func(*gorm.DB) admin.Fetcher[T]) admin.Fetcher[T] {
	if db == nil {
		return nil
	}
	return build(db)
}
