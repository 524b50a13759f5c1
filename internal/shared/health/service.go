package health

import (
	"context"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	DB      Pinger
	Timeout time.Duration
}

// NewService constructs a new health service. db may be nil when the app runs
// on in-memory repositories.
func NewService(db Pinger) *Service {
	return &Service{DB: db, Timeout: 2 * time.Second}
}

// Status reports liveness and database reachability. ok is false only when a
// configured database does not answer.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	if s == nil || s.DB == nil {
		return map[string]any{"ok": true, "db": "memory"}, true
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.DB.PingContext(pingCtx); err != nil {
		return map[string]any{"ok": false, "db": "unreachable"}, false
	}
	return map[string]any{"ok": true, "db": "up"}, true
}
