package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/courseops/admin-engine/internal/bulk"
	"github.com/courseops/admin-engine/internal/config"
	"github.com/courseops/admin-engine/internal/coreapi"
	"github.com/courseops/admin-engine/internal/handler"
	"github.com/courseops/admin-engine/internal/infra/postgresql"
	"github.com/courseops/admin-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/courseops/admin-engine/internal/infra/redis"
	"github.com/courseops/admin-engine/internal/observability"
	"github.com/courseops/admin-engine/internal/repository"
	"github.com/courseops/admin-engine/internal/service"
	"github.com/courseops/admin-engine/internal/tracker"
	"github.com/courseops/admin-engine/internal/transport"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const retentionSweepInterval = 6 * time.Hour

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	coreClient, err := coreapi.NewClient(cfg.CoreAPIURL, cfg.CoreAPIToken)
	if err != nil {
		logger.Fatal("core api client initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	runner, err := bulk.NewRunner(coreClient, limiter, time.Duration(cfg.BulkItemDelayMs)*time.Millisecond, logger)
	if err != nil {
		logger.Fatal("bulk runner initialization failed", zap.Error(err))
	}
	runner.SetMetrics(metrics)

	statusTracker, err := tracker.NewTracker(coreClient, time.Duration(cfg.PollIntervalMs)*time.Millisecond, logger)
	if err != nil {
		logger.Fatal("status tracker initialization failed", zap.Error(err))
	}
	statusTracker.SetMetrics(metrics)
	defer statusTracker.Close()

	runRepo := repository.NewGormBulkRunRepo(db)
	clientRepo := repository.NewGormClientRepo(db)
	chatbotRepo := repository.NewGormChatbotRepo(db)
	featureRepo := repository.NewGormFeatureRepo(db)
	operationRefRepo := repository.NewGormOperationRefRepo(db)

	catalogService, err := service.NewCatalogService(runner, runRepo, logger)
	if err != nil {
		logger.Fatal("catalog service initialization failed", zap.Error(err))
	}
	operationService, err := service.NewOperationService(coreClient, statusTracker, operationRefRepo, logger)
	if err != nil {
		logger.Fatal("operation service initialization failed", zap.Error(err))
	}
	operationService.SetMetrics(metrics)
	clientService, err := service.NewClientService(clientRepo, logger)
	if err != nil {
		logger.Fatal("client service initialization failed", zap.Error(err))
	}
	chatbotService, err := service.NewChatbotService(chatbotRepo, clientRepo, logger)
	if err != nil {
		logger.Fatal("chatbot service initialization failed", zap.Error(err))
	}
	featureService, err := service.NewFeatureService(featureRepo, clientRepo, logger)
	if err != nil {
		logger.Fatal("feature service initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      "admin-engine",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if err := handler.RegisterBulkRoutes(app, catalogService); err != nil {
		logger.Fatal("failed to register bulk routes", zap.Error(err))
	}
	if err := handler.RegisterOperationRoutes(app, operationService); err != nil {
		logger.Fatal("failed to register operation routes", zap.Error(err))
	}
	if err := handler.RegisterClientRoutes(app, clientService); err != nil {
		logger.Fatal("failed to register client routes", zap.Error(err))
	}
	if err := handler.RegisterChatbotRoutes(app, chatbotService); err != nil {
		logger.Fatal("failed to register chatbot routes", zap.Error(err))
	}
	if err := handler.RegisterFeatureRoutes(app, featureService); err != nil {
		logger.Fatal("failed to register feature routes", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("admin-engine api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down api server")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	group.Go(func() error {
		retention := time.Duration(cfg.RunRetentionDays) * 24 * time.Hour
		ticker := time.NewTicker(retentionSweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				if _, err := catalogService.PurgeExpiredRuns(groupCtx, retention); err != nil {
					logger.Warn("bulk run retention sweep failed", zap.Error(err))
				}
			}
		}
	})

	if err := group.Wait(); err != nil {
		logger.Error("api terminated", zap.Error(err))
		os.Exit(1)
	}
}
