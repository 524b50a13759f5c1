package documents

import "context"

// Repo defines persistence operations for documents. Reads are owner-scoped;
// a document owned by someone else is reported as ErrNotFound.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	Get(ctx context.Context, id, ownerID string) (Document, error)
	List(ctx context.Context, ownerID string, q ListQuery) (Page, error)
	Transition(ctx context.Context, id string, t Transition) error
	Delete(ctx context.Context, id, ownerID string) error
}
