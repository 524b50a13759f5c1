package analyses

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores analyses and clauses in memory and is safe for
// concurrent use.
type MemoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]Analysis
	clauses map[string][]Clause
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:    make(map[string]Analysis),
		clauses: make(map[string][]Clause),
	}
}

// Create stores the analysis unless one of the same type is in flight.
func (r *MemoryRepo) Create(ctx context.Context, a Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.DocumentID != "" {
		for _, existing := range r.byID {
			if existing.DocumentID == a.DocumentID && existing.Type == a.Type && !existing.Status.Terminal() {
				return ErrConflict
			}
		}
	}
	r.byID[a.ID] = a
	return nil
}

// Get returns an analysis by its ID.
func (r *MemoryRepo) Get(ctx context.Context, id string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) ListByDocument(ctx context.Context, documentID, ownerID string, t AnalysisType) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := []Analysis{}
	for _, a := range r.byID {
		if a.DocumentID != documentID || a.OwnerID != ownerID {
			continue
		}
		if t != "" && a.Type != t {
			continue
		}
		out = append(out, a)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) Transition(ctx context.Context, id string, t Transition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitionLocked(id, t)
}

func (r *MemoryRepo) transitionLocked(id string, t Transition) error {
	a, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if a.Status != t.From {
		return ErrStaleStatus
	}
	t.apply(&a)
	r.byID[id] = a
	return nil
}

func (r *MemoryRepo) CompleteWithClauses(ctx context.Context, id string, t Transition, documentID string, clauses []Clause) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.transitionLocked(id, t); err != nil {
		return err
	}
	r.clauses[documentID] = append([]Clause(nil), clauses...)
	return nil
}

// ListClauses returns the clause set by importance, then newest first.
func (r *MemoryRepo) ListClauses(ctx context.Context, documentID string) ([]Clause, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := append([]Clause{}, r.clauses[documentID]...)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if ri, rj := out[i].Importance.rank(), out[j].Importance.rank(); ri != rj {
			return ri > rj
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

// DeleteByDocument removes a document's analyses and clauses.
func (r *MemoryRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.byID {
		if a.DocumentID == documentID {
			delete(r.byID, id)
		}
	}
	delete(r.clauses, documentID)
	return nil
}

func (r *MemoryRepo) SweepStuck(ctx context.Context, cutoff time.Time, message string, at time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, a := range r.byID {
		if a.Status.Terminal() || !a.UpdatedAt.Before(cutoff) {
			continue
		}
		msg := message
		Transition{From: a.Status, To: StatusFailed, Error: &msg, At: at}.apply(&a)
		r.byID[id] = a
		n++
	}
	return n, nil
}

var _ Repo = (*MemoryRepo)(nil)
