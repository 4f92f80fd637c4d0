package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/trackdesk/internal/api/http"
	"github.com/spec-kit/trackdesk/internal/api/http/handlers"
	"github.com/spec-kit/trackdesk/internal/auth"
	"github.com/spec-kit/trackdesk/internal/config"
	"github.com/spec-kit/trackdesk/internal/events"
	"github.com/spec-kit/trackdesk/internal/notify"
	"github.com/spec-kit/trackdesk/internal/observability"
	"github.com/spec-kit/trackdesk/internal/persistence"
	"github.com/spec-kit/trackdesk/internal/repository"
	"github.com/spec-kit/trackdesk/internal/sequence"
	"github.com/spec-kit/trackdesk/internal/service"
	"github.com/spec-kit/trackdesk/internal/worker"
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
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	allocator := sequence.NewAllocator(repository.NewCounterRepository(pool))
	dispatcher := events.NewInMemoryDispatcher()

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.Notification.RealtimeEnabled {
		notifier = notify.NewRedisNotifier(redis.Client, cfg.Notification.ChannelPrefix)
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:       ticketRepo,
		CommentRepo:      commentRepo,
		NotificationRepo: notificationRepo,
		AttachmentRepo:   attachmentRepo,
		DepartmentRepo:   departmentRepo,
		UserRepo:         userRepo,
		Allocator:        allocator,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})
	departmentService := service.NewDepartmentService(departmentRepo, userRepo)
	notificationService := service.NewNotificationService(dispatcher, notificationRepo, notifier, logger)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Departments:    handlers.NewDepartmentsHandler(departmentService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
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
