package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/cartstore/internal/health"
	"github.com/vladislavdragonenkov/cartstore/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/cartstore/internal/metrics"
	"github.com/vladislavdragonenkov/cartstore/internal/notify"
	"github.com/vladislavdragonenkov/cartstore/internal/service/cart"
	grpcsvc "github.com/vladislavdragonenkov/cartstore/internal/service/grpc"
	"github.com/vladislavdragonenkov/cartstore/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run поднимает сервис корзин и блокируется до отмены ctx или ошибки gRPC-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	// Kafka опциональна: без неё уведомления только пишутся в лог
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	repo := deps.repo
	var dispatcher *notify.Dispatcher
	if kafkaProducer != nil {
		repo = kafka.NewSnapshotMirror(repo, kafkaProducer)
		dispatcher = notify.NewDispatcher(kafkaProducer, notify.WithDispatcherLogger(logger.WithField("layer", "notify")))
		// defer выполнится раньше closeKafka: очередь уведомлений дописывается в живой producer
		defer startDispatcher(dispatcher)()
	}

	cartMetrics := metrics.NewCartMetrics()
	persister := cart.NewPersister(repo,
		cart.WithPersisterLogger(logger.WithField("layer", "persister")),
		cart.WithPersisterMetrics(cartMetrics),
		cart.WithMaxAttempts(cfg.PersistMaxAttempts),
		cart.WithRetryBaseDelay(cfg.PersistRetryDelay),
		cart.WithSaveTimeout(cfg.PersistSaveTimeout),
	)
	stopPersister := startPersister(persister)

	registry := cart.NewRegistry(repo, persister, notifierFactory(dispatcher, logger),
		cart.WithLogger(logger.WithField("layer", "cart")),
		cart.WithMetrics(cartMetrics),
	)
	evictor := cart.NewEvictor(registry,
		cart.WithIdleTTL(cfg.SessionIdleTTL),
		cart.WithEvictorLogger(logger.WithField("layer", "evictor")),
	)
	go evictor.Run(ctx)

	cartService := grpcsvc.NewCartService(registry, logger.WithField("layer", "grpc"))
	grpcMetrics := registerGRPCMetrics(logger)
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	grpcsvc.RegisterCartServiceServer(grpcServer, cartService)
	grpcMetrics.InitializeMetrics(grpcServer)

	// reflection нужен grpcurl: сервис описан без .proto
	reflection.Register(grpcServer)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcsvc.ServiceName, healthpb.HealthCheckResponse_SERVING)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.storageChecker != nil {
		healthHandler.RegisterChecker("storage", deps.storageChecker)
	}
	healthHandler.RegisterChecker("persister", healthcheck.NewBacklogChecker("persister", persister.Pending, cfg.PersistBacklogThreshold))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		stopPersister(logger)
		shutdownHTTP(metricsSrv, logger)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("gRPC сервер слушает %s", lis.Addr())
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем gRPC сервер")
		healthServer.Shutdown()
		stopGRPC(grpcServer, logger)
		stopPersister(logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		stopPersister(logger)
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// notifierFactory собирает уведомления сессии: всегда в лог и, если есть Kafka, в топик уведомлений.
func notifierFactory(dispatcher *notify.Dispatcher, logger *log.Entry) cart.NotifierFactory {
	return func(sessionID string) domain.Notifier {
		sessionLogger := logger.WithFields(log.Fields{"layer": "notify", "session_id": sessionID})
		notifiers := notify.Multi{notify.NewLogNotifier(sessionLogger)}
		if dispatcher != nil {
			notifiers = append(notifiers, notify.NewKafkaNotifier(sessionID, dispatcher))
		}
		return notifiers
	}
}

// startDispatcher запускает публикацию уведомлений. Возвращённая функция
// останавливает её после отправки всего, что уже в очереди.
func startDispatcher(dispatcher *notify.Dispatcher) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		dispatcher.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// startPersister запускает фоновую запись снимков. Возвращённая функция
// останавливает цикл и дописывает всё, что осталось в очереди.
func startPersister(persister *cart.Persister) func(*log.Entry) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		persister.Run(runCtx)
	}()

	stopped := false
	return func(logger *log.Entry) {
		if stopped {
			return
		}
		stopped = true
		cancel()
		<-done

		flushCtx, cancelFlush := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelFlush()
		if err := persister.Flush(flushCtx); err != nil {
			logger.WithError(err).Warn("failed to flush cart snapshots on shutdown")
			return
		}
		logger.Info("cart snapshots flushed")
	}
}

func registerGRPCMetrics(logger *log.Entry) *promgrpc.ServerMetrics {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				return existing
			}
		}
		logger.WithError(err).Warn("failed to register grpc metrics")
	}
	return grpcMetrics
}

func stopGRPC(server *grpc.Server, logger *log.Entry) {
	stoppedCh := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stoppedCh)
	}()
	select {
	case <-stoppedCh:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.Stop()
	}
}

// operationalMux собирает служебные HTTP-маршруты: метрики и health checks.
func operationalMux(healthHandler *healthcheck.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	return mux
}

// startMetricsServer запускает служебный HTTP-сервер и останавливает его при отмене ctx.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	srv := &http.Server{Addr: addr, Handler: operationalMux(healthHandler), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
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
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
