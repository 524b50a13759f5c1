package analyses

import (
	"context"
	"fmt"
	"time"

	"github.com/KimiAn12/StartUpIdea/internal/shared/metrics"
	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
)

const (
	DefaultSweepInterval = time.Minute
	DefaultStuckAfter    = 10 * time.Minute
)

// SweepStuck fails analyses left PENDING or RUNNING for longer than olderThan.
func (s *Service) SweepStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		olderThan = DefaultStuckAfter
	}
	now := s.now()
	n, err := s.Repo.SweepStuck(ctx, now.Add(-olderThan), timedOutMessage, now)
	if err != nil {
		return 0, fmt.Errorf("sweep stuck analyses: %w", err)
	}
	if n > 0 {
		metrics.AddAnalysisSwept(n)
		telemetry.Warn("analysis.swept", map[string]any{
			"count":       n,
			"stuck_after": olderThan.String(),
		})
	}
	return n, nil
}

// RunSweeper sweeps every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval, grace time.Duration) error {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.SweepStuck(ctx, grace); err != nil && ctx.Err() == nil {
				telemetry.Error("analysis.sweep_failed", map[string]any{"error": err.Error()})
			}
		}
	}
}
