package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/recapstack/decide-api/internal/config"
	"github.com/recapstack/decide-api/internal/gumroad"
	"github.com/recapstack/decide-api/internal/handler"
	"github.com/recapstack/decide-api/internal/handler/middleware"
	"github.com/recapstack/decide-api/internal/ierr"
	"github.com/recapstack/decide-api/internal/mailer"
	"github.com/recapstack/decide-api/internal/migrations"
	"github.com/recapstack/decide-api/internal/service"
	"github.com/recapstack/decide-api/internal/storage/memstorage"
	"github.com/recapstack/decide-api/internal/storage/postgres"
	"github.com/recapstack/decide-api/internal/storage/redis"
	"github.com/recapstack/decide-api/internal/worker"
	"github.com/recapstack/decide-api/internal/youtube"
	"github.com/recapstack/decide-api/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "./configs/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.NewZapLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting decide-api", zap.String("log_level", cfg.Log.Level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Fatal("Fatal startup error", zap.Error(err))
	}

	appLogger.Info("Shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, appLogger *zap.Logger) error {
	if err := migrations.Run(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	appLogger.Info("Migrations applied")

	dbPool, err := postgres.NewPgxPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer dbPool.Close()

	redisClient, err := redis.NewRedisClient(ctx, &cfg.Redis, appLogger)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	licenseRepo := postgres.NewLicenseRepository(dbPool, appLogger)
	userRepo, err := memstorage.NewUserRepository(cfg.Admin.Username, cfg.Admin.Password)
	if err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}

	gumroadClient := gumroad.NewClient(&cfg.Gumroad, redisClient, appLogger)
	if gumroadClient.Configured() {
		appLogger.Info("Gumroad verification pass enabled")
	} else {
		appLogger.Info("Gumroad pass disabled (no product id), store-only verification")
	}

	deps := handlerDeps{
		verify:    service.NewVerifyService(gumroadClient, licenseRepo, appLogger),
		trial:     service.NewTrialService(licenseRepo, appLogger),
		license:   service.NewLicenseService(licenseRepo, appLogger),
		auth:      service.NewAuthService(userRepo, &cfg.Admin, appLogger),
		mailer:    mailer.NewResendMailer(&cfg.Contact, appLogger),
		youtube:   youtube.NewClient(cfg.YouTube.APIKey, appLogger),
		db:        dbPool,
		redis:     redisClient,
		productID: cfg.Gumroad.ProductID,
	}
	router := newRouter(cfg, deps, appLogger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLogger.Info("HTTP server listening", zap.String("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		appLogger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownPeriod)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := worker.RunWorkers(groupCtx, cfg, licenseRepo, appLogger); err != nil {
			return fmt.Errorf("asynq worker: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type handlerDeps struct {
	verify    *service.VerifyService
	trial     *service.TrialService
	license   *service.LicenseService
	auth      *service.AuthService
	mailer    *mailer.ResendMailer
	youtube   *youtube.Client
	db        *pgxpool.Pool
	redis     *goredis.Client
	productID string
}

func newRouter(cfg *config.Config, deps handlerDeps, appLogger *zap.Logger) *gin.Engine {
	healthHandler := handler.NewHealthHandler(deps.db, deps.redis, appLogger)
	licenseHandler := handler.NewLicenseHandler(deps.verify, deps.trial, deps.license, appLogger)
	webhookHandler := handler.NewWebhookHandler(deps.license, deps.productID, appLogger)
	contactHandler := handler.NewContactHandler(deps.mailer, appLogger)
	tutorialsHandler := handler.NewTutorialsHandler(deps.youtube, appLogger)
	authHandler := handler.NewAuthHandler(deps.auth, appLogger)
	dashboardHandler := handler.NewDashboardHandler(deps.license, appLogger)

	authRequired := middleware.AuthMiddleware(deps.auth, appLogger)

	router := gin.New()
	router.Use(requestLogger())
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		appLogger.Error("Panic recovered", zap.Any("panic", recovered), zap.Stack("stack"))
		_ = c.Error(ierr.ErrInternalServer)
		c.Abort()
	}))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.ErrorHandlerMiddleware(appLogger))

	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/webhooks/gumroad", webhookHandler.GumroadPing)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/auth/login", authHandler.Login)
		apiV1.POST("/contact", contactHandler.Submit)
		apiV1.GET("/tutorials/search", tutorialsHandler.Search)

		licenses := apiV1.Group("/licenses")
		{
			licenses.POST("/verify", licenseHandler.Verify)
			licenses.POST("/trial", licenseHandler.IssueTrial)

			licenses.Use(authRequired)
			licenses.POST("", licenseHandler.Create)
			licenses.GET("", licenseHandler.List)
			licenses.GET("/:id", licenseHandler.GetByID)
			licenses.DELETE("/:id", licenseHandler.Delete)
		}

		apiV1.GET("/dashboard/summary", authRequired, dashboardHandler.GetSummary)
	}

	return router
}

func requestLogger() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(p gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			p.ClientIP,
			p.TimeStamp.Format(time.RFC1123),
			p.Method,
			p.Path,
			p.Request.Proto,
			p.StatusCode,
			p.Latency,
			p.Request.UserAgent(),
			p.ErrorMessage,
		)
	})
}
