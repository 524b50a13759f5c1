package analyses

import (
	"context"
	"time"
)

// Repo defines persistence operations for analyses and clauses.
type Repo interface {
	// Create inserts a PENDING row, failing with ErrConflict when the same
	// document already has a PENDING or RUNNING analysis of that type.
	Create(ctx context.Context, a Analysis) error
	Get(ctx context.Context, id string) (Analysis, error)
	// ListByDocument returns newest first; an empty type means all types.
	ListByDocument(ctx context.Context, documentID, ownerID string, t AnalysisType) ([]Analysis, error)
	Transition(ctx context.Context, id string, t Transition) error
	// CompleteWithClauses replaces the document's clause set and applies t
	// in one commit.
	CompleteWithClauses(ctx context.Context, id string, t Transition, documentID string, clauses []Clause) error
	ListClauses(ctx context.Context, documentID string) ([]Clause, error)
	DeleteByDocument(ctx context.Context, documentID string) error
	// SweepStuck fails PENDING or RUNNING rows last updated before cutoff.
	SweepStuck(ctx context.Context, cutoff time.Time, message string, at time.Time) (int, error)
}
