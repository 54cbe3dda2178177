package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/equipment-maintenance/internal/api/http"
	"github.com/spec-kit/equipment-maintenance/internal/api/http/handlers"
	"github.com/spec-kit/equipment-maintenance/internal/auth"
	"github.com/spec-kit/equipment-maintenance/internal/config"
	"github.com/spec-kit/equipment-maintenance/internal/events"
	"github.com/spec-kit/equipment-maintenance/internal/observability"
	"github.com/spec-kit/equipment-maintenance/internal/persistence"
	"github.com/spec-kit/equipment-maintenance/internal/repository"
	"github.com/spec-kit/equipment-maintenance/internal/service"
	"github.com/spec-kit/equipment-maintenance/internal/worker"
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
	userRepo := repository.NewUserRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	equipmentRepo := repository.NewEquipmentRepository(pool)
	equipmentLogRepo := repository.NewEquipmentLogRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	maintenanceRepo := repository.NewMaintenanceRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	unreadCache := persistence.NewRedisUnreadCache(redis, cfg.Notification.UnreadCacheTTL(), logger)

	downtime := service.NewDowntimeTracker(logger)
	ticketService := service.NewTicketService(ticketRepo, equipmentRepo, userRepo, downtime, dispatcher, logger)
	equipmentService := service.NewEquipmentService(equipmentRepo, equipmentLogRepo, departmentRepo, downtime, dispatcher, logger)
	maintenanceService := service.NewMaintenanceService(maintenanceRepo, equipmentRepo, equipmentLogRepo, dispatcher, metrics, cfg.Scheduler, logger)
	notificationService := service.NewNotificationService(notificationRepo, userRepo, unreadCache, logger)
	notificationService.RegisterHandlers(dispatcher)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager, userRepo)

	sweepWorker := worker.NewSweepWorker(maintenanceService, cfg.Scheduler.SweepInterval(), logger)
	go sweepWorker.Run(ctx)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Equipment:      handlers.NewEquipmentHandler(equipmentService),
		Maintenance:    handlers.NewMaintenanceHandler(maintenanceService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
