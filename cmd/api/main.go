package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/clearsight/auth-service/internal/api/http"
	"github.com/clearsight/auth-service/internal/api/http/handlers"
	"github.com/clearsight/auth-service/internal/auth"
	"github.com/clearsight/auth-service/internal/config"
	"github.com/clearsight/auth-service/internal/events"
	"github.com/clearsight/auth-service/internal/observability"
	"github.com/clearsight/auth-service/internal/persistence"
	"github.com/clearsight/auth-service/internal/ratelimit"
	"github.com/clearsight/auth-service/internal/repository"
	"github.com/clearsight/auth-service/internal/service"
	"github.com/clearsight/auth-service/internal/worker"
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
	refreshRepo := repository.NewRefreshTokenRepository(pool)
	codeRepo := repository.NewUserCodeRepository(pool)
	doctorRepo := repository.NewDoctorRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:         userRepo,
		RefreshTokenRepo: refreshRepo,
		DoctorRepo:       doctorRepo,
		Dispatcher:       dispatcher,
	}, logger)
	passwordService := service.NewPasswordService(*cfg, service.PasswordDependencies{
		UserRepo:         userRepo,
		UserCodeRepo:     codeRepo,
		RefreshTokenRepo: refreshRepo,
		Dispatcher:       dispatcher,
	}, logger)
	doctorService := service.NewDoctorService(userRepo, doctorRepo, dispatcher, logger)
	notificationService := service.NewNotificationService(dispatcher, service.LogSender{Logger: logger}, logger)

	stampValidator := auth.NewStampValidator(userRepo)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), stampValidator)

	var limiter *ratelimit.Limiter
	if cfg.Limits.Enabled {
		limiter = ratelimit.NewLimiter(redis.Client, cfg.Limits.MaxAttempts, cfg.Limits.Window())
	}

	worker.StartNotificationWorker(notificationService)
	worker.StartTokenSweeper(ctx, refreshRepo, cfg.Auth.SweepInterval(), logger)

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	authHandler := handlers.NewAuthHandler(authService, passwordService, logger)
	adminHandler := handlers.NewAdminHandler(doctorService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Auth:           authHandler,
		Admin:          adminHandler,
		AuthMiddleware: authMiddleware,
		Limiter:        limiter,
		Logger:         logger,
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
