package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/studyvault-api/api/swagger"
	"github.com/noah-isme/studyvault-api/internal/handler"
	"github.com/noah-isme/studyvault-api/internal/repository"
	"github.com/noah-isme/studyvault-api/internal/service"
	"github.com/noah-isme/studyvault-api/pkg/cache"
	"github.com/noah-isme/studyvault-api/pkg/config"
	"github.com/noah-isme/studyvault-api/pkg/database"
	"github.com/noah-isme/studyvault-api/pkg/jobs"
	"github.com/noah-isme/studyvault-api/pkg/logger"
	"github.com/noah-isme/studyvault-api/pkg/storage"
)

// @title StudyVault API
// @version 1.0.0
// @description Discovery, preview and download of course outlines and past exams
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logr.Fatal("failed to init object storage", zap.Error(err))
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	catalogRepo := repository.NewCatalogRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	viewRepo := repository.NewViewStateRepository(redisClient, cfg.Session.TTL)
	cacheRepo := repository.NewCacheRepository(redisClient)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, "studyvault", cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled)
	catalogSvc := service.NewCatalogService(catalogRepo, cacheSvc, logr, cfg.Catalog.CacheTTL)

	trackingSvc := service.NewTrackingService(activityRepo, metrics, logr)
	trackingQueue := jobs.NewQueue("activity-tracking", trackingSvc.Handle, jobs.QueueConfig{
		Workers:    cfg.Tracking.Workers,
		BufferSize: cfg.Tracking.BufferSize,
		JobTimeout: 5 * time.Second,
		Logger:     logr,
	})
	trackingSvc.UseQueue(trackingQueue)
	trackingQueue.Start(ctx)

	resolver := service.NewDocumentResolver(store, trackingSvc, metrics, logr, service.ResolverConfig{
		LegacyPrefixes:  cfg.Storage.LegacyPrefixes,
		SignedURLTTL:    cfg.Storage.SignedURLTTL,
		OfficeViewerURL: cfg.Preview.OfficeViewerURL,
	})
	quotaSvc := service.NewQuotaService(activityRepo, metrics, logr, service.QuotaConfig{
		MonthlyBytes: cfg.Quota.MonthlyBytes,
		FailOpen:     cfg.Quota.FailOpen,
	})
	previewMgr := service.NewPreviewManager(quotaSvc, resolver, logr, service.PreviewConfig{
		VisibilityMarginPx: cfg.Preview.VisibilityMarginPx,
		IdleTTL:            cfg.Session.TTL,
	})
	viewSvc := service.NewViewStateService(viewRepo, catalogSvc, logr, cfg.Preview.ShortFormMaxPages)
	uploadSvc := service.NewUploadService(store, catalogSvc, metrics, validate, logr, service.UploadConfig{
		MaxFileSizeBytes:  cfg.Uploads.MaxFileSizeBytes,
		AllowedExtensions: cfg.Uploads.AllowedExtensions,
	})
	reviewSvc := service.NewReviewService(reviewRepo, validate, logr)
	exportSvc := service.NewActivityExportService(activityRepo, nil, nil, logr)
	authSvc := service.NewAuthService(logr, service.AuthConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		Leeway:   30 * time.Second,
	})

	handlers := routeHandlers{
		catalog:  handler.NewCatalogHandler(viewSvc, catalogSvc),
		preview:  handler.NewPreviewHandler(catalogSvc, previewMgr, quotaSvc),
		upload:   handler.NewUploadHandler(uploadSvc),
		review:   handler.NewReviewHandler(reviewSvc),
		activity: handler.NewActivityHandler(exportSvc),
		metrics: handler.NewMetricsHandler(metrics.Handler(), map[string]handler.Pinger{
			"postgres": handler.PingFunc(db.PingContext),
			"redis":    handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		}),
	}
	if local, ok := store.(*storage.LocalStore); ok {
		handlers.files = handler.NewFileHandler(local)
	}

	r := newRouter(cfg, logr, metrics, authSvc, handlers)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http shutdown failed", zap.Error(err))
	}
	trackingQueue.Stop()
	logr.Info("shutdown complete")
}
