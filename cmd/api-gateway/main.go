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

	_ "github.com/noah-isme/cbcs-registration/api/swagger"
	"github.com/noah-isme/cbcs-registration/internal/handler"
	"github.com/noah-isme/cbcs-registration/internal/ledger"
	"github.com/noah-isme/cbcs-registration/internal/repository"
	"github.com/noah-isme/cbcs-registration/internal/router"
	"github.com/noah-isme/cbcs-registration/internal/service"
	"github.com/noah-isme/cbcs-registration/pkg/cache"
	"github.com/noah-isme/cbcs-registration/pkg/config"
	"github.com/noah-isme/cbcs-registration/pkg/errtrack"
	"github.com/noah-isme/cbcs-registration/pkg/export"
	"github.com/noah-isme/cbcs-registration/pkg/jobs"
	"github.com/noah-isme/cbcs-registration/pkg/logger"
)

// @title CBCS Registration Portal API
// @version 1.0.0
// @description Gateway in front of the registrar for credit-based course registration, approval review and bulk imports.
// @BasePath /api/v1
// @schemes http
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

	reporter := errtrack.New(cfg.Rollbar.Token, cfg.Env, logr)
	defer reporter.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis, logr)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	cacheRepo := repository.NewCacheRepository(redisClient, cfg.Redis.Namespace, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	validate := validator.New()

	registrar := repository.NewRegistrarClient(cfg.Registrar, nil, metrics, logr)
	sessionRepo := repository.NewSessionRepository(cacheRepo)
	heldRepo := repository.NewHeldCourseRepository(cacheRepo, cfg.Session.TTL)
	jobRepo := repository.NewImportJobRepository(cacheRepo, cfg.Import.JobTTL)
	studentRepo := repository.NewStudentRepository(registrar)
	courseRepo := repository.NewCourseRepository(registrar)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)
	authSvc := service.NewAuthService(repository.NewAuthRepository(registrar), sessionRepo, cacheSvc, validate, metrics, logr, service.AuthConfig{
		Secret: cfg.Session.Secret,
		TTL:    cfg.Session.TTL,
		Issuer: cfg.Session.Issuer,
	})
	enrollmentSvc := service.NewEnrollmentService(repository.NewDashboardRepository(registrar), heldRepo, metrics, logr, service.EnrollmentConfig{
		CreditCeiling: cfg.Registration.CreditCeiling,
		SemesterCount: cfg.Registration.SemesterCount,
		RemovalPolicy: ledger.RemovalPolicy(cfg.Registration.RemovalPolicy),
	})
	reviewSvc := service.NewReviewService(repository.NewReviewRepository(registrar), logr)
	exportSvc := service.NewExportService(export.Letterhead{
		Name:     cfg.Institution.Name,
		Subtitle: cfg.Institution.Subtitle,
		Address:  cfg.Institution.Address,
		Contact:  cfg.Institution.Contact,
	}, logr, nil, nil, nil)
	adminSvc := service.NewAdminService(repository.NewAdminRepository(registrar), studentRepo, courseRepo, exportSvc, cacheSvc, validate, logr, service.AdminConfig{
		SemesterCount: cfg.Registration.SemesterCount,
	})
	importer := service.NewImporter(courseRepo, studentRepo, cacheSvc, validate, metrics, logr, service.ImporterConfig{
		Mode:          cfg.Import.Mode,
		SemesterCount: cfg.Registration.SemesterCount,
	})

	worker := service.NewImportWorker(importer, jobRepo, logr)
	queue := jobs.NewQueue("imports", worker.Handle, jobs.QueueConfig{
		Workers:  cfg.Import.Workers,
		Logger:   logr,
		OnGiveUp: worker.GiveUp,
		Observer: metrics,
	})
	if err := metrics.RegisterQueueDepth("imports", queue.Pending); err != nil {
		logr.Warn("queue depth gauge not registered", zap.Error(err))
	}
	queue.Start(ctx)
	defer queue.Stop()
	importSvc := service.NewImportService(importer, jobRepo, queue, logr)

	engine := router.New(authSvc, &router.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Enrollment: handler.NewEnrollmentHandler(enrollmentSvc),
		Admin:      handler.NewAdminHandler(adminSvc),
		Review:     handler.NewReviewHandler(reviewSvc),
		Import:     handler.NewImportHandler(importSvc, cfg.Import.MaxFileSize),
		Metrics:    handler.NewMetricsHandler(metrics, map[string]handler.Pinger{"redis": cacheRepo}),
	}, router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        metrics,
		Reporter:       reporter,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("registrar", cfg.Registrar.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
