package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/camayank/hookflow/internal/admin"
	"github.com/camayank/hookflow/internal/config"
	"github.com/camayank/hookflow/internal/db"
	"github.com/camayank/hookflow/internal/delivery"
	"github.com/camayank/hookflow/internal/endpoint"
	"github.com/camayank/hookflow/internal/logging"
	"github.com/camayank/hookflow/internal/metrics"
	"github.com/camayank/hookflow/internal/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("hookflow-worker").Plain().WithError(err).Fatal("config load failed")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize structured logging
	logger := logging.New("hookflow-worker")

	// Initialize OpenTelemetry tracing
	shutdownTracing, err := tracing.InitTracing(ctx, "hookflow-worker")
	if err != nil {
		logger.Plain().WithError(err).Fatal("Failed to initialize tracing")
	}
	defer shutdownTracing()

	// DB connect + migrations
	pool, err := db.Connect(ctx, cfg.DSN())
	if err != nil {
		logger.Plain().WithError(err).Fatal("db connect failed")
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		logger.Plain().WithError(err).Fatal("db migrate failed")
	}

	// Prom metrics
	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)

	// Delivery pipeline
	store := delivery.NewPGStore(pool)
	registry := endpoint.NewPGRegistry(pool)
	queue := delivery.NewQueue(cfg.Worker.QueueSize)
	client := delivery.NewClient(cfg.Delivery)
	worker := delivery.NewWorker(store, registry, client, queue, logger, delivery.WorkerConfig{
		PollInterval:  cfg.Worker.PollInterval,
		ClaimBatch:    cfg.Worker.ClaimBatch,
		RecoveryStale: cfg.Worker.RecoveryStale,
	})
	emitter := delivery.NewEmitter(queue, worker, logger)

	// Operator API + health/metrics
	api := admin.NewServer(emitter, store, logger)
	httpSrv := &http.Server{
		Addr:    cfg.Worker.HTTPAddr,
		Handler: api.Router(pool, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	}
	go func() {
		logger.Plain().WithField("addr", httpSrv.Addr).Info("worker HTTP server starting")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Plain().WithError(err).Fatal("worker HTTP server failed")
		}
	}()

	workerDone := make(chan error, 1)
	go func() { workerDone <- worker.Run(ctx) }()

	logger.Plain().Info("worker service started")

	// Graceful stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop

	logger.Plain().Info("Shutting down worker service")
	queue.Close()
	if err := <-workerDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Plain().WithError(err).Error("worker loop exited with error")
	}
	_ = httpSrv.Shutdown(context.Background())
	logger.Plain().Info("worker service stopped")
}
