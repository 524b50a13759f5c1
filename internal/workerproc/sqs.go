package workerproc

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/KimiAn12/StartUpIdea/internal/queue"
	"github.com/KimiAn12/StartUpIdea/internal/shared/metrics"
	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
)

const (
	DefaultVisibilitySeconds = 1200
	DefaultConcurrency       = 4
	DefaultShutdownTimeout   = 30 * time.Second
)

// SQSConsumer long-polls an SQS queue and processes messages concurrently.
// A message is deleted once processed or when it can never be processed;
// failures are left for redelivery.
type SQSConsumer struct {
	API               queue.SQSAPI
	QueueURL          string
	Processor         Processor
	Concurrency       int
	VisibilitySeconds int
	ShutdownTimeout   time.Duration
}

// Run polls until ctx is cancelled, then waits for in-flight jobs.
func (c *SQSConsumer) Run(ctx context.Context) error {
	concurrency := max(1, c.Concurrency)
	visibility := c.VisibilitySeconds
	if visibility <= 0 {
		visibility = DefaultVisibilitySeconds
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	telemetry.Info("worker.started", map[string]any{
		"backend":     "sqs",
		"queue":       c.QueueURL,
		"concurrency": concurrency,
		"visibility":  visibility,
	})

pollLoop:
	for ctx.Err() == nil {
		resp, err := c.API.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.QueueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   int32(visibility),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break
			}
			telemetry.Error("worker.receive_failed", map[string]any{"error": err.Error()})
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			metrics.IncQueueJobReceived()
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				// Jobs in flight finish even after shutdown starts.
				c.handle(context.WithoutCancel(ctx), m)
			}(msg)
		}
	}

	waitFor(&wg, c.shutdownTimeout())
	return nil
}

func (c *SQSConsumer) handle(ctx context.Context, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)
	decoded, meta, err := ParseMessage(body)
	if err != nil {
		fields := sqsFields(msg, decoded.AnalysisID, decoded.RequestID)
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.analysis.unprocessable", fields)
		metrics.IncQueueJobFailed()
		c.delete(ctx, msg, decoded.AnalysisID, decoded.RequestID)
		return
	}

	telemetry.Info("worker.analysis.received", sqsFields(msg, decoded.AnalysisID, decoded.RequestID))
	if err := Process(ctx, c.Processor, decoded); err != nil {
		fields := sqsFields(msg, decoded.AnalysisID, decoded.RequestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.analysis.failed", fields)
		metrics.IncQueueJobFailed()
		return
	}

	if c.delete(ctx, msg, decoded.AnalysisID, decoded.RequestID) {
		telemetry.Info("worker.analysis.completed", sqsFields(msg, decoded.AnalysisID, decoded.RequestID))
	}
}

func (c *SQSConsumer) delete(ctx context.Context, msg sqstypes.Message, analysisID, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := sqsFields(msg, analysisID, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.analysis.delete_failed", fields)
		return false
	}
	if _, err := c.API.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.QueueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := sqsFields(msg, analysisID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.analysis.delete_failed", fields)
		return false
	}
	return true
}

func (c *SQSConsumer) shutdownTimeout() time.Duration {
	if c.ShutdownTimeout > 0 {
		return c.ShutdownTimeout
	}
	return DefaultShutdownTimeout
}

func sqsFields(msg sqstypes.Message, analysisID, requestID string) map[string]any {
	fields := map[string]any{
		"analysis_id":    analysisID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}

func waitFor(wg *sync.WaitGroup, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		telemetry.Warn("worker.shutdown_timeout", map[string]any{"timeout": timeout.String()})
	}
}
