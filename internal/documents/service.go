package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KimiAn12/StartUpIdea/internal/extract"
	"github.com/KimiAn12/StartUpIdea/internal/shared/metrics"
	"github.com/KimiAn12/StartUpIdea/internal/shared/storage/object"
	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
)

const (
	// MaxUploadBytes caps a single upload at 50 MiB.
	MaxUploadBytes = 50 << 20

	DefaultPageSize = 10
	MaxPageSize     = 100

	maxErrorLength = 500
)

// TextExtractor turns stored bytes into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, contentType, fileName string) (string, error)
}

// DependentsDeleter removes rows owned by a document when the repository
// cannot cascade on its own.
type DependentsDeleter interface {
	DeleteByDocument(ctx context.Context, documentID string) error
}

// Upload is one file received from a client.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Service contains business logic for documents.
type Service struct {
	Store      object.ObjectStore
	Repo       Repo
	Extractor  TextExtractor
	Dependents DependentsDeleter
	Now        func() time.Time
}

// Create validates and stores the upload, records it, and extracts its text
// before returning. Extraction problems leave the document FAILED; only
// storage faults are returned as errors.
func (s *Service) Create(ctx context.Context, ownerID string, up Upload) (Document, error) {
	if strings.TrimSpace(ownerID) == "" {
		return Document{}, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	originalName := strings.TrimSpace(filepath.Base(strings.ReplaceAll(up.FileName, `\`, "/")))
	if originalName == "" || originalName == "." || originalName == "/" {
		return Document{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	if up.Size > MaxUploadBytes {
		return Document{}, fmt.Errorf("%w: File size exceeds maximum allowed size of 50MB", ErrInvalidInput)
	}
	contentType := extract.NormalizeContentType(up.ContentType, originalName)
	if !extract.Supported(contentType) {
		return Document{}, fmt.Errorf("%w: Invalid file type. Only PDF and Word documents are allowed.", ErrInvalidInput)
	}
	if up.Body == nil {
		return Document{}, fmt.Errorf("%w: File is empty", ErrInvalidInput)
	}

	data, err := io.ReadAll(io.LimitReader(up.Body, MaxUploadBytes+1))
	if err != nil {
		return Document{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Document{}, fmt.Errorf("%w: File is empty", ErrInvalidInput)
	}
	if len(data) > MaxUploadBytes {
		return Document{}, fmt.Errorf("%w: File size exceeds maximum allowed size of 50MB", ErrInvalidInput)
	}

	id := uuid.NewString()
	storedName := id + strings.ToLower(filepath.Ext(originalName))
	storageKey, size, _, err := s.Store.Save(ctx, ownerID, storedName, bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("store upload: %w", err)
	}

	now := s.now()
	doc := Document{
		ID:           id,
		OwnerID:      ownerID,
		FileName:     storedName,
		OriginalName: originalName,
		FileSize:     size,
		ContentType:  contentType,
		StorageKey:   storageKey,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		s.discardBlob(storageKey)
		return Document{}, fmt.Errorf("create document: %w", err)
	}
	metrics.IncDocumentUploaded()
	telemetry.Info("document.created", map[string]any{
		"document_id":  doc.ID,
		"user_id":      ownerID,
		"content_type": contentType,
		"size_bytes":   size,
	})

	// From here on a cancelled request must not strand the row mid-lifecycle.
	bg := context.WithoutCancel(ctx)
	if err := s.transition(bg, &doc, Transition{From: StatusPending, To: StatusProcessing}); err != nil {
		s.discard(doc)
		return Document{}, err
	}

	start := time.Now()
	text, extractErr := s.Extractor.Extract(bg, data, contentType, originalName)
	metrics.ObserveExtractDurationMs(float64(time.Since(start).Milliseconds()))

	if extractErr != nil {
		msg := sanitizeError("Text extraction failed: " + extractErr.Error())
		if err := s.transition(bg, &doc, Transition{From: StatusProcessing, To: StatusFailed, Error: &msg}); err != nil {
			s.discard(doc)
			return Document{}, err
		}
		metrics.IncDocumentFailed()
		telemetry.Warn("document.extraction_failed", map[string]any{
			"document_id": doc.ID,
			"error":       msg,
		})
		return doc, nil
	}

	if err := s.transition(bg, &doc, Transition{From: StatusProcessing, To: StatusCompleted, Text: &text}); err != nil {
		s.discard(doc)
		return Document{}, err
	}
	metrics.IncDocumentExtracted()
	telemetry.Info("document.extracted", map[string]any{
		"document_id": doc.ID,
		"text_chars":  len(text),
	})
	return doc, nil
}

// Get returns a document owned by ownerID.
func (s *Service) Get(ctx context.Context, id, ownerID string) (Document, error) {
	if strings.TrimSpace(id) == "" {
		return Document{}, ErrNotFound
	}
	return s.Repo.Get(ctx, id, ownerID)
}

// List returns one page of the owner's documents. Size is clamped to 1..100.
func (s *Service) List(ctx context.Context, ownerID string, q ListQuery) (Page, error) {
	if q.Page < 0 {
		q.Page = 0
	}
	if q.Size <= 0 {
		q.Size = DefaultPageSize
	}
	if q.Size > MaxPageSize {
		q.Size = MaxPageSize
	}
	// Keep Page*Size representable; such a page is past the end anyway.
	if q.Page > math.MaxInt32/q.Size {
		q.Page = math.MaxInt32 / q.Size
	}
	q.Search = strings.TrimSpace(q.Search)
	return s.Repo.List(ctx, ownerID, q)
}

// Delete removes the record, its analyses and clauses, and then the blob.
func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	doc, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if s.Dependents != nil {
		if err := s.Dependents.DeleteByDocument(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete document dependents: %w", err)
		}
	}
	if err := s.Repo.Delete(ctx, doc.ID, ownerID); err != nil {
		return err
	}
	if err := s.Store.Delete(context.WithoutCancel(ctx), doc.StorageKey); err != nil {
		// The record is gone; an orphaned blob is only wasted space.
		telemetry.Warn("document.blob_delete_failed", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}
	telemetry.Info("document.deleted", map[string]any{"document_id": doc.ID, "user_id": ownerID})
	return nil
}

func (s *Service) transition(ctx context.Context, doc *Document, t Transition) error {
	t.At = s.now()
	if err := s.Repo.Transition(ctx, doc.ID, t); err != nil {
		return fmt.Errorf("document %s %s->%s: %w", doc.ID, t.From, t.To, err)
	}
	doc.Status = t.To
	doc.ExtractedText = t.Text
	doc.ProcessingError = t.Error
	doc.HasText = hasText(t.Text)
	doc.UpdatedAt = t.At
	telemetry.Info("document.status", map[string]any{
		"document_id":       doc.ID,
		"status_transition": string(t.From) + "->" + string(t.To),
	})
	return nil
}

// discard removes a half-processed document after a storage fault.
func (s *Service) discard(doc Document) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Repo.Delete(ctx, doc.ID, doc.OwnerID); err != nil && !errors.Is(err, ErrNotFound) {
		telemetry.Error("document.discard_failed", map[string]any{"document_id": doc.ID, "error": err.Error()})
	}
	s.discardBlob(doc.StorageKey)
}

func (s *Service) discardBlob(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Store.Delete(ctx, key); err != nil {
		telemetry.Error("document.blob_discard_failed", map[string]any{"error": err.Error()})
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func sanitizeError(msg string) string {
	msg = strings.Join(strings.Fields(msg), " ")
	if len(msg) > maxErrorLength {
		msg = strings.ToValidUTF8(msg[:maxErrorLength], "")
	}
	return msg
}
