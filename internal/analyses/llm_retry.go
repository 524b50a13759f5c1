package analyses

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/KimiAn12/StartUpIdea/internal/llm"
	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
)

const llmRetryBaseDelay = 300 * time.Millisecond

// retryingLLM retries a completion once after a transient failure.
type retryingLLM struct {
	base       llm.Client
	requestID  string
	analysisID string
	delay      time.Duration
}

func newRetryingLLM(base llm.Client, analysisID, requestID string) llm.Client {
	if base == nil {
		return nil
	}
	return retryingLLM{
		base:       base,
		requestID:  requestID,
		analysisID: analysisID,
		delay:      llmRetryBaseDelay,
	}
}

func (r retryingLLM) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := r.base.Complete(ctx, prompt)
	if err == nil || !shouldRetryLLM(err) {
		return out, err
	}

	telemetry.Warn("llm.retry", map[string]any{
		"attempt":     1,
		"request_id":  r.requestID,
		"analysis_id": r.analysisID,
		"error":       sanitizeError(err.Error()),
	})
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return "", llm.TransportError("llm", ctx.Err())
	}

	return r.base.Complete(ctx, prompt)
}

func shouldRetryLLM(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, llm.ErrNotImplemented) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, llm.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var provErr *llm.ProviderError
	if errors.As(err, &provErr) {
		return provErr.Retryable()
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.HasSuffix(msg, "eof")
}
