package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignatzorin/exwork-backend/internal/config"
	"github.com/ignatzorin/exwork-backend/internal/db"
	"github.com/ignatzorin/exwork-backend/internal/domain/repository"
	"github.com/ignatzorin/exwork-backend/internal/goroutine"
	httpRouter "github.com/ignatzorin/exwork-backend/internal/http/router"
	"github.com/ignatzorin/exwork-backend/internal/infrastructure/payment"
	"github.com/ignatzorin/exwork-backend/internal/infrastructure/persistence/memory"
	"github.com/ignatzorin/exwork-backend/internal/infrastructure/persistence/postgres"
	"github.com/ignatzorin/exwork-backend/internal/interface/http/handler"
	"github.com/ignatzorin/exwork-backend/internal/logger"
	"github.com/ignatzorin/exwork-backend/internal/mlproxy"
	"github.com/ignatzorin/exwork-backend/internal/notify"
	"github.com/ignatzorin/exwork-backend/internal/service"
	"github.com/ignatzorin/exwork-backend/internal/usecase/message"
	"github.com/ignatzorin/exwork-backend/internal/usecase/project"
	"github.com/ignatzorin/exwork-backend/internal/usecase/proposal"
	"github.com/ignatzorin/exwork-backend/internal/usecase/settlement"
	"github.com/ignatzorin/exwork-backend/internal/ws"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// devWebhookSecret подписывает вебхуки локального stripe-cli, когда секрет не задан.
const devWebhookSecret = "whsec_dev"

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel, cfg.IsProduction())

	store, closeStore := openStore(ctx, cfg)
	defer closeStore()

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	authService := service.NewAuthService(store.Users(), tokenManager)

	// Вебсокеты.
	hub := ws.NewHub()
	goroutine.SafeGoWithContext(ctx, "ws-hub", hub.Run)

	// Уведомления: почта (или лог) и push в открытые вкладки.
	var mail notify.Sender = notify.LogSender{}
	if cfg.MailAPIURL != "" {
		mail = notify.NewMailSender(cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailFrom, &http.Client{Timeout: cfg.NotifyTimeout})
	}
	dispatcher := notify.NewDispatcher(store.Users(), notify.Options{
		QueueSize: cfg.NotifyQueueSize,
		Workers:   cfg.NotifyWorkers,
		Timeout:   cfg.NotifyTimeout,
	}, mail, notify.NewPushSender(hub))
	// Воркеры живут дольше сигнального ctx: остаток очереди дошлёт Shutdown.
	workersCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	dispatcher.Start(workersCtx)

	gateway, verifier := paymentAdapters(cfg)

	mlCache := mlproxy.NewCache()
	goroutine.SafeGoWithContext(ctx, "ml-cache-cleanup", func(ctx context.Context) {
		mlCache.RunCleanup(ctx, time.Minute)
	})
	mlClient := mlproxy.NewClient(cfg.MLBaseURL, cfg.MLTimeout, cfg.MLCacheTTL, mlCache)

	// Use cases.
	confirmPayment := settlement.NewConfirmPaymentUseCase(store, gateway, dispatcher, cfg.GatewayTimeout)
	handlers := httpRouter.Handlers{
		Auth: handler.NewAuthHandler(authService),
		Project: handler.NewProjectHandler(
			project.NewCreateProjectUseCase(store),
			project.NewGetProjectUseCase(store),
			project.NewListProjectsUseCase(store),
			project.NewChangeProjectStatusUseCase(store, dispatcher),
		),
		Proposal: handler.NewProposalHandler(
			proposal.NewSubmitProposalUseCase(store, dispatcher),
			proposal.NewUpdateProposalStatusUseCase(store, dispatcher),
			proposal.NewListProjectProposalsUseCase(store),
			proposal.NewListMyProposalsUseCase(store),
		),
		Payment: handler.NewPaymentHandler(
			settlement.NewInitiatePaymentUseCase(store, gateway, cfg.PaymentCurrency, cfg.GatewayTimeout),
			confirmPayment,
			settlement.NewHandleGatewayEventUseCase(
				verifier,
				confirmPayment,
				settlement.NewFailPaymentUseCase(store),
				settlement.NewMarkProcessingUseCase(store),
			),
			settlement.NewListPaymentsUseCase(store),
		),
		Message: handler.NewMessageHandler(
			message.NewSendMessageUseCase(store, dispatcher),
			message.NewListProjectMessagesUseCase(store),
		),
		ML:     handler.NewMLHandler(mlClient),
		Health: handler.NewHealthHandler(store),
		WS:     handler.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
	}

	engine := httpRouter.SetupRouter(cfg, handlers, tokenManager)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Log.WithFields(logrus.Fields{
		"port":  cfg.HTTPPort,
		"store": cfg.StoreDriver,
		"env":   cfg.Env,
	}).Info("main: HTTP сервер запущен")

	serverErr := make(chan error, 1)
	goroutine.SafeGo("http-server", func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	})

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Log.WithError(err).Error("main: сервер завершился с ошибкой")
		stop()
	}

	// Сначала перестаём принимать запросы, потом дожидаемся очереди уведомлений.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("main: ошибка остановки http сервера")
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Warn("main: не все уведомления доставлены")
	}
	logger.Log.Info("main: сервер остановлен")
}

// openStore выбирает хранилище по STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func()) {
	if cfg.StoreDriver != config.StorePostgres {
		logger.Log.Warn("main: используется in-memory хранилище, данные не сохраняются между перезапусками")
		return memory.NewStore(), func() {}
	}

	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	if err := db.RunMigrations(ctx, dbConn); err != nil {
		safeClose(dbConn)
		log.Fatalf("main: ошибка миграций: %v", err)
	}
	return postgres.NewStore(dbConn), func() { safeClose(dbConn) }
}

// paymentAdapters: без STRIPE_SECRET_KEY платежи проходят через песочницу.
func paymentAdapters(cfg *config.Config) (repository.PaymentGateway, repository.WebhookVerifier) {
	secret := cfg.StripeWebhookSecret
	if secret == "" {
		secret = devWebhookSecret
	}
	verifier := payment.NewStripeWebhookVerifier(secret)

	if cfg.StripeSecretKey == "" {
		logger.Log.Warn("main: STRIPE_SECRET_KEY не задан, используется sandbox-шлюз")
		return payment.NewSandboxGateway(), verifier
	}
	return payment.NewStripeGateway(cfg.StripeSecretKey, cfg.GatewayTimeout), verifier
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
