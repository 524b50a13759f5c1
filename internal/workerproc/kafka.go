package workerproc

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/KimiAn12/StartUpIdea/internal/shared/metrics"
	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
)

// KafkaReader is the subset of *kafka.Reader the consumer needs.
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaConsumer processes one message at a time so offsets commit in order.
// Offsets are committed even when processing fails: a row left behind is
// failed by the stuck-analysis sweeper.
type KafkaConsumer struct {
	Reader    KafkaReader
	Processor Processor
}

// Run consumes until ctx is cancelled or the reader is closed.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	telemetry.Info("worker.started", map[string]any{"backend": "kafka"})
	for {
		msg, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			telemetry.Error("worker.receive_failed", map[string]any{"error": err.Error()})
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		metrics.IncQueueJobReceived()
		c.handle(context.WithoutCancel(ctx), msg)
		if err := c.Reader.CommitMessages(context.WithoutCancel(ctx), msg); err != nil {
			telemetry.Error("worker.commit_failed", kafkaFields(msg, "", err))
		}
	}
}

func (c *KafkaConsumer) handle(ctx context.Context, msg kafka.Message) {
	decoded, meta, err := ParseMessage(string(msg.Value))
	if err != nil {
		fields := kafkaFields(msg, decoded.AnalysisID, err)
		fields["body_len"] = meta.BodyLen
		telemetry.Error("worker.analysis.unprocessable", fields)
		metrics.IncQueueJobFailed()
		return
	}
	telemetry.Info("worker.analysis.received", kafkaFields(msg, decoded.AnalysisID, nil))
	if err := Process(ctx, c.Processor, decoded); err != nil {
		telemetry.Error("worker.analysis.failed", kafkaFields(msg, decoded.AnalysisID, err))
		metrics.IncQueueJobFailed()
		return
	}
	telemetry.Info("worker.analysis.completed", kafkaFields(msg, decoded.AnalysisID, nil))
}

func kafkaFields(msg kafka.Message, analysisID string, err error) map[string]any {
	fields := map[string]any{
		"analysis_id": analysisID,
		"partition":   msg.Partition,
		"offset":      msg.Offset,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	return fields
}
