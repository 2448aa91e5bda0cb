package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrowbid-backend/internal/config"
	"github.com/ignatzorin/escrowbid-backend/internal/db"
	"github.com/ignatzorin/escrowbid-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/escrowbid-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/escrowbid-backend/internal/http/router"
	"github.com/ignatzorin/escrowbid-backend/internal/logger"
	"github.com/ignatzorin/escrowbid-backend/internal/mailer"
	"github.com/ignatzorin/escrowbid-backend/internal/repository"
	"github.com/ignatzorin/escrowbid-backend/internal/scheduler"
	"github.com/ignatzorin/escrowbid-backend/internal/service"
	"github.com/ignatzorin/escrowbid-backend/internal/ws"
)

const (
	supplierCacheTTL     = 10 * time.Minute
	supplierCacheCleanup = 5 * time.Minute
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Component("main").Fatalf("ошибка загрузки конфигурации: %v", err)
	}

	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
	}
	logger.Init(logLevel)
	if cfg.Env == "development" {
		logger.SetTextFormatter()
	}
	log := logger.Component("main")

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("ошибка миграций: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	// Репозитории.
	quotationRepo := repository.NewQuotationRepository(dbConn)
	bidRepo := repository.NewBidRepository(dbConn)
	awardRepo := repository.NewAwardRepository(dbConn)
	escrowRepo := repository.NewEscrowRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	settingsRepo := repository.NewSettingsRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	supplierRepo := repository.NewSupplierRepository(dbConn)

	suppliers := service.NewSupplierCache(supplierRepo, supplierCacheTTL)
	goroutine.SafeGo(func() { suppliers.RunCleanup(ctx, supplierCacheCleanup) })

	// Вебсокеты и уведомления.
	hub := ws.NewHub(ctx)
	goroutine.SafeGo(hub.Run)

	notificationService := service.NewNotificationService(notificationRepo)
	notificationService.SetPublisher(hub)

	mailSender := mailer.New(cfg.Mail, logger.Component("mailer"))
	dispatch := service.NewDispatcher(notificationService, mailSender, suppliers, cfg.Mail.AdminEmail).
		WithLogger(logger.Component("dispatcher"))

	// Сервисы.
	quotationService := service.NewQuotationService(quotationRepo, bidRepo)
	bidService := service.NewBidService(bidRepo, dispatch)
	awardService := service.NewAwardService(awardRepo, dispatch, cfg.Escrow.Hold)
	escrowService := service.NewEscrowService(escrowRepo, disputeRepo, quotationRepo, dispatch, cfg.Escrow.Hold)
	disputeService := service.NewDisputeService(disputeRepo, dispatch)
	settingsService := service.NewSettingsService(settingsRepo)

	// Фоновые задачи.
	opts := scheduler.Options{
		Concurrency: cfg.Scheduler.Concurrency,
		ItemTimeout: cfg.Scheduler.ItemTimeout,
		BatchSize:   cfg.Scheduler.BatchSize,
	}
	escrowRunner := scheduler.NewRunner(
		scheduler.NewEscrowReleaseJob(escrowService, opts, logger.Component("escrow_release")),
		cfg.Escrow.ReleaseInterval,
		logger.Component("scheduler"),
	)
	auctionRunner := scheduler.NewRunner(
		scheduler.NewAuctionCloseJob(settingsService, quotationRepo, awardService,
			cfg.Auction.Window, cfg.Auction.DefaultCommissionPercent, opts, logger.Component("auction_close")),
		cfg.Auction.CloseInterval,
		logger.Component("scheduler"),
	)
	escrowRunner.Start(ctx)
	auctionRunner.Start(ctx)

	// HTTP хэндлеры.
	engine := httpRouter.SetupRouter(
		cfg,
		tokenManager,
		httpHandlers.NewQuotationHandler(quotationService, awardService),
		httpHandlers.NewBidHandler(bidService, escrowService),
		httpHandlers.NewDisputeHandler(disputeService),
		httpHandlers.NewSettingsHandler(settingsService),
		httpHandlers.NewNotificationHandler(notificationService),
		httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
		httpHandlers.NewHealthHandler(dbConn),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo(func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("ошибка остановки http сервера")
		}
	})

	log.Infof("HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("сервер завершился с ошибкой")
	}

	// Дожидаемся текущих прогонов фоновых задач.
	stop()
	escrowRunner.Stop()
	auctionRunner.Stop()
	log.Info("сервер остановлен")
}

// safeClose закрывает соединение с базой.
func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		logger.Component("main").WithError(err).Error("ошибка закрытия базы")
	}
}
