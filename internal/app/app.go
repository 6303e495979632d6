// Package app собирает зависимости и запускает HTTP API вместе с ops-сервером
// (метрики и health) и outbox-воркером.
package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/health"
	"github.com/vladislavdragonenkov/marketplace/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/marketplace/internal/service/intent"
	"github.com/vladislavdragonenkov/marketplace/internal/service/order"
	"github.com/vladislavdragonenkov/marketplace/internal/service/outbox"
	"github.com/vladislavdragonenkov/marketplace/internal/service/payment"
	"github.com/vladislavdragonenkov/marketplace/internal/service/rest"
	"github.com/vladislavdragonenkov/marketplace/internal/version"
)

// Run собирает приложение и блокируется до отмены ctx или фатальной ошибки
// HTTP-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	// Kafka опциональна: без brokers события остаются в outbox.
	kafkaProducer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		kafkaProducer = nil
	}

	var workerWG sync.WaitGroup
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	if kafkaProducer != nil {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents)
		dlqPublisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)
		worker := outbox.NewWorker(
			deps.Outbox,
			publisher,
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(dlqPublisher),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			worker.Run(workerCtx)
		}()
	}

	// Intake читает события заказов и оплат обратно из Kafka: уведомления
	// менеджерам и счётчики потока событий.
	var intakeConsumer *kafka.Consumer
	if kafkaProducer != nil {
		intakeConsumer, err = initIntakeConsumer(cfg.KafkaBrokers, cfg.IntakeGroupID, kafkaProducer, cfg.OutboxMaxAttempts, logger)
		if err != nil {
			intakeConsumer = nil
		}
		if intakeConsumer != nil {
			if err := intakeConsumer.Start(workerCtx); err != nil {
				logger.WithError(err).Warn("failed to start intake consumer")
				intakeConsumer = nil
			}
		}
	}

	var processor domain.PaymentProcessor
	if cfg.GatewayBaseURL != "" && cfg.GatewaySecretKey != "" {
		processor = intent.NewHTTPGateway(cfg.GatewayBaseURL, cfg.GatewaySecretKey)
	} else {
		logger.Warn("payment gateway is not configured, using mock processor")
		processor = intent.NewMockProcessor()
	}

	handler := rest.NewHandler(
		order.NewManager(deps.Orders, deps.Catalog, deps.Timeline, deps.Outbox, logger.WithField("component", "order-lifecycle")),
		payment.NewRecorder(deps.Payments, deps.Outbox, logger.WithField("component", "payment-recorder")),
		intent.NewService(processor, logger.WithField("component", "payment-intent")),
		deps.Catalog,
		deps.Users,
		logger.WithField("component", "rest"),
	)

	healthHandler := health.NewHandler(version.GetVersion())
	if deps.Store != nil {
		healthHandler.RegisterChecker("postgres", health.NewDatabaseChecker(deps.Store.DB()))
	}
	if deps.Redis != nil {
		healthHandler.RegisterChecker("redis", health.NewRedisChecker(deps.Redis))
	}

	opsSrv := startOpsServer(ctx, cfg.OpsAddr, logger, healthHandler)
	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: rest.NewRouter(handler)}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(opsSrv, logger)
		stopWorker()
		workerWG.Wait()
		closeIntake(intakeConsumer, logger)
		closeKafka(kafkaProducer, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(opsSrv, logger)
		stopWorker()
		workerWG.Wait()
		closeIntake(intakeConsumer, logger)
		closeKafka(kafkaProducer, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startOpsServer запускает /metrics и health-пробы на отдельном порту.
func startOpsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *health.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", health.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("ops server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
