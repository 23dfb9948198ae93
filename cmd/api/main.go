package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/bonus-desk/internal/api/http"
	"github.com/spec-kit/bonus-desk/internal/api/http/handlers"
	"github.com/spec-kit/bonus-desk/internal/auth"
	"github.com/spec-kit/bonus-desk/internal/config"
	"github.com/spec-kit/bonus-desk/internal/domain"
	"github.com/spec-kit/bonus-desk/internal/events"
	"github.com/spec-kit/bonus-desk/internal/mirror"
	"github.com/spec-kit/bonus-desk/internal/observability"
	"github.com/spec-kit/bonus-desk/internal/persistence"
	"github.com/spec-kit/bonus-desk/internal/repository"
	"github.com/spec-kit/bonus-desk/internal/service"
	"github.com/spec-kit/bonus-desk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	requestRepo := repository.NewRequestRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	bonusTypeRepo := repository.NewBonusTypeRepository(pool)
	statsRepo := repository.NewStatsRepository(pool)

	if pool != nil {
		if err := service.EnsureBootstrapAdmin(ctx, adminRepo, cfg.Auth, logger); err != nil {
			logger.Fatal("failed to seed bootstrap admin", zap.Error(err))
		}
	}

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	assignment := service.NewAssignmentService(service.AssignmentDependencies{
		RequestRepo: requestRepo,
		AdminRepo:   adminRepo,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
	})
	presence := service.NewPresenceService(service.PresenceDependencies{
		AdminRepo:  adminRepo,
		Assignment: assignment,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		AdminRepo: adminRepo,
		Presence:  presence,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), adminRepo)

	requestMirror := mirror.New()
	feed := mirror.NewRedisFeed(redis.Client, cfg.Redis.Channel)
	bridge := mirror.NewBridge(requestMirror, feed, func(ctx context.Context) ([]domain.BonusRequest, error) {
		return requestRepo.List(ctx, repository.RequestFilter{SinceDays: cfg.Queue.HistoryWindowDays})
	}, cfg.Queue.Reconcile(), logger)
	bridge.OnChange(metrics.RecordMirrorRefresh)
	if err := bridge.Start(ctx); err != nil {
		logger.Fatal("failed to start request mirror", zap.Error(err))
	}
	defer bridge.Stop()

	projector := service.NewQueueProjector(requestMirror, presence)
	submissions := service.NewSubmissionService(service.SubmissionDependencies{
		RequestRepo:   requestRepo,
		BonusTypeRepo: bonusTypeRepo,
		Gate:          service.NewSubmissionGate(cfg.Queue.SpamMaxAttempts, cfg.Queue.SpamWindow(), cfg.Queue.SpamBlock()),
		Projector:     projector,
		Dispatcher:    dispatcher,
		Cooldown:      cfg.Queue.Cooldown(),
	})
	bonusTypes := service.NewBonusTypeService(bonusTypeRepo)
	stats := service.NewStatsService(statsRepo, requestRepo)

	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger))
	worker.NewFeedForwarder(dispatcher, feed, logger).Register()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Requests:       handlers.NewRequestsHandler(submissions),
		Queue:          handlers.NewQueueHandler(assignment, projector, submissions),
		Admins:         handlers.NewAdminsHandler(authService, presence),
		Stats:          handlers.NewStatsHandler(stats),
		BonusTypes:     handlers.NewBonusTypesHandler(bonusTypes),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
