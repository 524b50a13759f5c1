package documents

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Document),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc.HasText = hasText(doc.ExtractedText)
	r.data[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id, ownerID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[id]
	if !ok || doc.OwnerID != ownerID {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// List returns the owner's documents newest first.
func (r *MemoryRepo) List(ctx context.Context, ownerID string, q ListQuery) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	search := strings.ToLower(strings.TrimSpace(q.Search))

	r.mu.RLock()
	var docs []Document
	for _, doc := range r.data {
		if doc.OwnerID != ownerID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(doc.OriginalName), search) {
			continue
		}
		doc.ExtractedText = nil
		docs = append(docs, doc)
	}
	r.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID > docs[j].ID
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	page := Page{Items: []Document{}, Total: len(docs)}
	offset := q.Page * q.Size
	if offset >= len(docs) {
		return page, nil
	}
	end := min(offset+q.Size, len(docs))
	page.Items = docs[offset:end]
	return page, nil
}

func (r *MemoryRepo) Transition(ctx context.Context, id string, t Transition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	if doc.Status != t.From {
		return ErrStaleStatus
	}
	doc.Status = t.To
	doc.ExtractedText = t.Text
	doc.ProcessingError = t.Error
	doc.HasText = hasText(t.Text)
	doc.UpdatedAt = t.At
	r.data[id] = doc
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok || doc.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func hasText(text *string) bool {
	return text != nil && strings.TrimSpace(*text) != ""
}

var _ Repo = (*MemoryRepo)(nil)
