package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shiroi-Max/koala-route/internal/bootstrap"
	"github.com/Shiroi-Max/koala-route/internal/config"
	"github.com/Shiroi-Max/koala-route/internal/observability/logging"
	"github.com/Shiroi-Max/koala-route/internal/observability/metrics"
)

const serviceName = "koala-route-worker"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsHandler(workerMetrics),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeGuideUploaded(ctx, func(handlerCtx context.Context, guideID string) error {
		indexCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		workerMetrics.StartGuide()
		start := time.Now()

		if guide, lookupErr := app.Registry.GetByID(indexCtx, guideID); lookupErr == nil {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(guide.CreatedAt))
		}

		indexErr := app.IndexUC.IndexByID(indexCtx, guideID)
		workerMetrics.FinishGuide(serviceName, time.Since(start), indexErr)

		if indexErr == nil {
			if guide, lookupErr := app.Registry.GetByID(indexCtx, guideID); lookupErr == nil {
				workerMetrics.ObserveSections(serviceName, guide.Sections)
			}
		}
		return indexErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func metricsHandler(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}
