package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/gemini"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	"github.com/spec-kit/helpdesk-service/internal/worker"
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
	companyRepo := repository.NewCompanyRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	areaRepo := repository.NewAreaRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	responseRepo := repository.NewResponseRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	fileStore := storage.NewLocalStore(cfg.Attachments.StorageRoot)
	geminiClient := gemini.NewClient(cfg.Gemini)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		CompanyRepo:       companyRepo,
		PasswordResetRepo: resetRepo,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		CategoryRepo: categoryRepo,
		AreaRepo:     areaRepo,
		CompanyRepo:  companyRepo,
		UserRepo:     userRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	responseService := service.NewResponseService(service.ResponseDependencies{
		ResponseRepo: responseRepo,
		TicketRepo:   ticketRepo,
		UserRepo:     userRepo,
		Dispatcher:   dispatcher,
	})
	attachmentService := service.NewAttachmentService(service.AttachmentDependencies{
		AttachmentRepo: attachmentRepo,
		TicketRepo:     ticketRepo,
		ResponseRepo:   responseRepo,
		FileStore:      fileStore,
		Config:         cfg.Attachments,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	categoryService := service.NewCategoryService(categoryRepo, companyRepo, logger)
	areaService := service.NewAreaService(areaRepo, companyRepo)
	predictionService := service.NewAreaPredictionService(areaRepo, geminiClient, redis, cfg.Gemini, logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: int(cfg.Attachments.MaxSizeBytes) + 1024*1024,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, predictionService, categoryService),
		Responses:      handlers.NewResponsesHandler(responseService, ticketService),
		Attachments:    handlers.NewAttachmentsHandler(attachmentService, ticketService),
		Categories:     handlers.NewCategoriesHandler(categoryService),
		Areas:          handlers.NewAreasHandler(areaService),
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
