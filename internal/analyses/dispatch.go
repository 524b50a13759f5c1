package analyses

import (
	"context"
	"sync"

	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
)

// BackgroundDispatcher runs each analysis on its own goroutine in this
// process.
type BackgroundDispatcher struct {
	Run func(ctx context.Context, analysisID string) error
	wg  sync.WaitGroup
}

// NewBackgroundDispatcher runs analyses through svc.ProcessAnalysis.
func NewBackgroundDispatcher(svc *Service) *BackgroundDispatcher {
	return &BackgroundDispatcher{Run: svc.ProcessAnalysis}
}

func (d *BackgroundDispatcher) Dispatch(ctx context.Context, analysisID string) error {
	bg := WithRequestID(context.Background(), RequestIDFromContext(ctx))
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				telemetry.Error("analysis.panic", map[string]any{"analysis_id": analysisID, "panic": r})
			}
		}()
		if err := d.Run(bg, analysisID); err != nil {
			telemetry.Error("analysis.process_failed", map[string]any{
				"analysis_id": analysisID,
				"error":       err.Error(),
			})
		}
	}()
	return nil
}

// Wait blocks until every dispatched analysis has returned.
func (d *BackgroundDispatcher) Wait() {
	d.wg.Wait()
}

var _ Dispatcher = (*BackgroundDispatcher)(nil)
