package analyses

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/KimiAn12/StartUpIdea/internal/documents"
)

// scriptedLLM replays responses in order and records prompts.
type scriptedLLM struct {
	mu      sync.Mutex
	steps   []func(ctx context.Context, prompt string) (string, error)
	prompts []string
}

func replies(outputs ...string) *scriptedLLM {
	s := &scriptedLLM{}
	for _, out := range outputs {
		s.then(out, nil)
	}
	return s
}

func (s *scriptedLLM) then(out string, err error) *scriptedLLM {
	s.steps = append(s.steps, func(context.Context, string) (string, error) { return out, err })
	return s
}

func (s *scriptedLLM) thenDo(fn func(ctx context.Context, prompt string) (string, error)) *scriptedLLM {
	s.steps = append(s.steps, fn)
	return s
}

func (s *scriptedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	idx := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	var step func(context.Context, string) (string, error)
	if idx < len(s.steps) {
		step = s.steps[idx]
	} else if len(s.steps) > 0 {
		step = s.steps[len(s.steps)-1]
	}
	s.mu.Unlock()
	if step == nil {
		return "", nil
	}
	return step(ctx, prompt)
}

func (s *scriptedLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func (s *scriptedLLM) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}

type fixture struct {
	svc   *Service
	repo  *MemoryRepo
	docs  *documents.MemoryRepo
	owner string
}

func newFixture(t *testing.T, client *scriptedLLM) *fixture {
	t.Helper()
	f := &fixture{
		repo:  NewMemoryRepo(),
		docs:  documents.NewMemoryRepo(),
		owner: "user-1",
	}
	f.svc = &Service{
		Repo:      f.repo,
		Documents: f.docs,
		Timeout:   2 * time.Second,
	}
	if client != nil {
		f.svc.LLM = client
	}
	return f
}

func (f *fixture) seed(t *testing.T, id string, status documents.ProcessingStatus, text string) string {
	t.Helper()
	now := time.Now().UTC()
	doc := documents.Document{
		ID:           id,
		OwnerID:      f.owner,
		FileName:     id + ".pdf",
		OriginalName: "contract.pdf",
		ContentType:  "application/pdf",
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if status == documents.StatusCompleted {
		doc.ExtractedText = &text
	}
	require.NoError(t, f.docs.Create(context.Background(), doc))
	return id
}

func (f *fixture) count(t *testing.T, documentID string) int {
	t.Helper()
	items, err := f.repo.ListByDocument(context.Background(), documentID, f.owner, "")
	require.NoError(t, err)
	return len(items)
}
