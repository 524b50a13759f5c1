package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/KimiAn12/StartUpIdea/internal/analyses"
	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
)

// Dispatcher enqueues PENDING analyses for a worker process.
type Dispatcher struct {
	Client Client
	Now    func() time.Time
}

func (d *Dispatcher) Dispatch(ctx context.Context, analysisID string) error {
	now := time.Now()
	if d.Now != nil {
		now = d.Now()
	}
	requestID := analyses.RequestIDFromContext(ctx)
	if err := d.Client.Send(ctx, NewMessage(analysisID, requestID, now)); err != nil {
		return fmt.Errorf("enqueue analysis %s: %w", analysisID, err)
	}
	telemetry.Info("analysis.enqueued", map[string]any{"analysis_id": analysisID, "request_id": requestID})
	return nil
}

var _ analyses.Dispatcher = (*Dispatcher)(nil)
