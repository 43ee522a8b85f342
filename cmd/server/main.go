package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	appHandler "readykids/internal/application/handler"
	appMetrics "readykids/internal/application/metrics"
	appService "readykids/internal/application/service"
	appStore "readykids/internal/application/store"
	"readykids/internal/health"
	"readykids/internal/platform/config"
	"readykids/internal/platform/httpserver"
	"readykids/internal/platform/logger"
	"readykids/internal/platform/metrics"
	"readykids/internal/platform/middleware"
	"readykids/internal/platform/postgres"
	redisClient "readykids/internal/platform/redis"
	rlMiddleware "readykids/internal/ratelimit/middleware"
	rlModels "readykids/internal/ratelimit/models"
	"readykids/internal/ratelimit/store/bucket"
	"readykids/pkg/platform/audit"
	"readykids/pkg/platform/audit/publisher"
	logSink "readykids/pkg/platform/audit/publishers/log"
	kafkaSink "readykids/pkg/platform/audit/publishers/kafka"
	"readykids/pkg/platform/middleware/metadata"
	"readykids/pkg/platform/middleware/requesttime"
	"readykids/pkg/platform/tx"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("readykids exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.New(registry)

	sink, closeSink, err := newLifecycleSink(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closeSink()
	events := publisher.NewPublisher(sink,
		publisher.WithAsyncBuffer(cfg.Kafka.BufferSize),
		publisher.WithLogger(log),
		publisher.WithDropHook(httpMetrics.IncrementEventsDropped),
	)
	defer events.Close()

	rdb, err := redisClient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}
	var primary rlMiddleware.BucketStore
	if rdb != nil {
		primary = bucket.NewRedisBucketStore(rdb)
	}
	limiter := rlMiddleware.New(
		rlMiddleware.NewLimiter(primary, bucket.NewInMemoryBucketStore(), log),
		log,
		rlMiddleware.WithMetrics(httpMetrics),
	)

	store := appStore.NewPostgres(db)
	service := appService.New(store, tx.NewRunner(db),
		appService.WithLogger(log),
		appService.WithAuditPublisher(events),
		appService.WithMetrics(appMetrics.New(registry)),
	)
	applications := appHandler.New(service, log,
		appHandler.WithSubmissionMiddleware(limiter.RateLimit(rlModels.ScopeSubmissions, rlModels.Limit{
			RequestsPerWindow: cfg.RateLimit.Submissions,
			Window:            cfg.RateLimit.Window,
		})),
	)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(cfg.Server.AllowedOrigin))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	r.Use(middleware.Latency(httpMetrics))
	r.Use(chimw.Timeout(cfg.Server.RequestTimeout))

	r.Method(http.MethodGet, "/health", health.New(postgres.Pinger{DB: db}, log))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	applications.Register(r)

	srv := httpserver.New(cfg.Server.Addr(), r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting readykids", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newLifecycleSink picks Kafka when brokers are configured and the log
// otherwise. The returned func releases the sink.
func newLifecycleSink(ctx context.Context, cfg config.Kafka, log *slog.Logger) (audit.Sink, func(), error) {
	brokers := cfg.BrokerList()
	if len(brokers) == 0 {
		log.Info("no kafka brokers configured, lifecycle events go to the log")
		return logSink.New(log), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	sink, err := kafkaSink.New(connectCtx, kafkaSink.Config{
		Brokers:    brokers,
		Topic:      cfg.Topic,
		Partitions: cfg.Partitions,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Info("publishing lifecycle events to kafka", "topic", cfg.Topic)
	return sink, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sink.Close(closeCtx); err != nil {
			log.Warn("failed to flush lifecycle events", "error", err)
		}
	}, nil
}
