package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/KimiAn12/StartUpIdea/internal/bootstrap"
	"github.com/KimiAn12/StartUpIdea/internal/queue"
	"github.com/KimiAn12/StartUpIdea/internal/shared/config"
	"github.com/KimiAn12/StartUpIdea/internal/shared/storage/db"
	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
	"github.com/KimiAn12/StartUpIdea/internal/workerproc"
)

type consumer interface {
	Run(ctx context.Context) error
}

func main() {
	cfg := config.Load()
	telemetry.Configure(os.Stdout, cfg.LogLevel)
	defer telemetry.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, bootstrap.Options{DB: db.DefaultWorkerOptions(), SkipQueue: true})
	if err != nil {
		telemetry.Error("worker.bootstrap_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer app.Close()

	c, closeFn, err := newConsumer(ctx, cfg, app.Analyses)
	if err != nil {
		telemetry.Error("worker.config_invalid", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer closeFn()

	if err := c.Run(ctx); err != nil {
		telemetry.Error("worker.stopped", map[string]any{"error": err.Error()})
	}
	telemetry.Info("worker.shutdown_complete", nil)
}

func newConsumer(ctx context.Context, cfg config.Config, p workerproc.Processor) (consumer, func() error, error) {
	noop := func() error { return nil }
	switch cfg.QueueBackend {
	case "sqs":
		if cfg.SQSQueueURL == "" {
			return nil, noop, fmt.Errorf("SQS_QUEUE_URL is required")
		}
		api, err := queue.NewSQS(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, noop, err
		}
		return &workerproc.SQSConsumer{
			API:               api,
			QueueURL:          cfg.SQSQueueURL,
			Processor:         p,
			Concurrency:       cfg.WorkerConcurrency,
			VisibilitySeconds: cfg.SQSVisibilitySeconds,
			ShutdownTimeout:   cfg.ShutdownTimeout,
		}, noop, nil
	case "kafka":
		reader, err := queue.NewKafkaReader(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID)
		if err != nil {
			return nil, noop, err
		}
		return &workerproc.KafkaConsumer{Reader: reader, Processor: p}, reader.Close, nil
	default:
		return nil, noop, fmt.Errorf("QUEUE_BACKEND must be sqs or kafka, got %q", cfg.QueueBackend)
	}
}
