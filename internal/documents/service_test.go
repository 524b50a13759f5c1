package documents

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KimiAn12/StartUpIdea/internal/extract"
	"github.com/KimiAn12/StartUpIdea/internal/shared/storage/object"
	"github.com/KimiAn12/StartUpIdea/internal/shared/storage/object/local"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Extract(_ context.Context, _ []byte, _, _ string) (string, error) {
	return f.text, f.err
}

type failingCreateRepo struct {
	*MemoryRepo
}

func (failingCreateRepo) Create(context.Context, Document) error {
	return errors.New("db down")
}

type recordingDependents struct {
	deleted []string
}

func (r *recordingDependents) DeleteByDocument(_ context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	return nil
}

func newTestService(t *testing.T, ex TextExtractor) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &Service{
		Store:     local.New(dir),
		Repo:      NewMemoryRepo(),
		Extractor: ex,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	}, dir
}

func pdfUpload(name string) Upload {
	body := "%PDF-1.4 contract"
	return Upload{FileName: name, ContentType: extract.MimePDF, Size: int64(len(body)), Body: strings.NewReader(body)}
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return err
	})
	require.NoError(t, err)
	return n
}

func TestCreateCompletesWithExtractedText(t *testing.T) {
	svc, dir := newTestService(t, fakeExtractor{text: "This Agreement is made between the parties."})
	ctx := context.Background()

	doc, err := svc.Create(ctx, "owner-1", pdfUpload("contract.pdf"))
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, doc.Status)
	assert.True(t, doc.HasText)
	assert.Nil(t, doc.ProcessingError)
	assert.Equal(t, "contract.pdf", doc.OriginalName)
	assert.Equal(t, doc.ID+".pdf", doc.FileName)
	assert.Equal(t, extract.MimePDF, doc.ContentType)
	assert.Equal(t, 1, countFiles(t, dir))

	stored, err := svc.Get(ctx, doc.ID, "owner-1")
	require.NoError(t, err)
	require.NotNil(t, stored.ExtractedText)
	assert.Equal(t, "This Agreement is made between the parties.", *stored.ExtractedText)
	assert.True(t, stored.UpdatedAt.After(stored.CreatedAt))

	rc, err := svc.Store.Open(ctx, stored.StorageKey)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "%PDF-1.4 contract", string(body))
}

func TestCreateRecordsExtractionFailure(t *testing.T) {
	svc, _ := newTestService(t, fakeExtractor{err: errors.New("PDF is password protected")})

	doc, err := svc.Create(context.Background(), "owner-1", pdfUpload("locked.pdf"))
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, doc.Status)
	assert.False(t, doc.HasText)
	assert.Nil(t, doc.ExtractedText)
	require.NotNil(t, doc.ProcessingError)
	assert.Contains(t, *doc.ProcessingError, "password protected")
}

func TestCreateRejectsInvalidUploadsWithoutSideEffects(t *testing.T) {
	cases := []struct {
		name string
		up   Upload
	}{
		{name: "unsupported type", up: Upload{FileName: "notes.txt", ContentType: "text/plain", Size: 5, Body: strings.NewReader("hello")}},
		{name: "image claiming pdf name", up: Upload{FileName: "scan.pdf", ContentType: "image/png", Size: 5, Body: strings.NewReader("hello")}},
		{name: "declared too large", up: Upload{FileName: "big.pdf", ContentType: extract.MimePDF, Size: 60 << 20, Body: strings.NewReader("x")}},
		{name: "empty body", up: Upload{FileName: "empty.pdf", ContentType: extract.MimePDF, Size: 0, Body: strings.NewReader("")}},
		{name: "missing name", up: Upload{FileName: "", ContentType: extract.MimePDF, Size: 1, Body: strings.NewReader("x")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, dir := newTestService(t, fakeExtractor{text: "ok"})
			_, err := svc.Create(context.Background(), "owner-1", tc.up)
			require.ErrorIs(t, err, ErrInvalidInput)

			page, err := svc.List(context.Background(), "owner-1", ListQuery{})
			require.NoError(t, err)
			assert.Zero(t, page.Total)
			assert.Zero(t, countFiles(t, dir))
		})
	}
}

func TestCreateRejectsOversizedBodyWhenSizeIsUnknown(t *testing.T) {
	svc, dir := newTestService(t, fakeExtractor{text: "ok"})
	body := io.LimitReader(zeroReader{}, MaxUploadBytes+10)

	_, err := svc.Create(context.Background(), "owner-1", Upload{FileName: "huge.pdf", ContentType: extract.MimePDF, Body: body})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "50MB")
	assert.Zero(t, countFiles(t, dir))
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

func TestCreateFallsBackToExtensionForGenericContentType(t *testing.T) {
	svc, _ := newTestService(t, fakeExtractor{text: "clause"})

	doc, err := svc.Create(context.Background(), "owner-1", Upload{
		FileName:    "Lease.DOCX",
		ContentType: "application/octet-stream",
		Size:        4,
		Body:        strings.NewReader("PK.."),
	})
	require.NoError(t, err)
	assert.Equal(t, extract.MimeDOCX, doc.ContentType)
	assert.Equal(t, doc.ID+".docx", doc.FileName)
}

func TestCreateRemovesBlobWhenRecordInsertFails(t *testing.T) {
	svc, dir := newTestService(t, fakeExtractor{text: "ok"})
	svc.Repo = failingCreateRepo{NewMemoryRepo()}

	_, err := svc.Create(context.Background(), "owner-1", pdfUpload("contract.pdf"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, countFiles(t, dir))
}

func TestGetIsOwnerScoped(t *testing.T) {
	svc, _ := newTestService(t, fakeExtractor{text: "ok"})
	doc, err := svc.Create(context.Background(), "owner-1", pdfUpload("contract.pdf"))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), doc.ID, "owner-2")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(context.Background(), "missing", "owner-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPagesSearchesAndClamps(t *testing.T) {
	svc, _ := newTestService(t, fakeExtractor{text: "ok"})
	ctx := context.Background()
	names := []string{"NDA-acme.pdf", "lease.pdf", "nda-globex.pdf", "employment.pdf"}
	for _, n := range names {
		_, err := svc.Create(ctx, "owner-1", pdfUpload(n))
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, "owner-2", pdfUpload("nda-other.pdf"))
	require.NoError(t, err)

	page, err := svc.List(ctx, "owner-1", ListQuery{Page: 0, Size: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "employment.pdf", page.Items[0].OriginalName, "newest first")
	assert.Nil(t, page.Items[0].ExtractedText)
	assert.True(t, page.Items[0].HasText)

	page, err = svc.List(ctx, "owner-1", ListQuery{Page: 1, Size: 3})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "NDA-acme.pdf", page.Items[0].OriginalName)

	page, err = svc.List(ctx, "owner-1", ListQuery{Search: "nda"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = svc.List(ctx, "owner-1", ListQuery{Page: -3, Size: 1000})
	require.NoError(t, err)
	assert.Len(t, page.Items, 4)
}

func TestDeleteRemovesRecordBlobAndDependents(t *testing.T) {
	svc, dir := newTestService(t, fakeExtractor{text: "ok"})
	deps := &recordingDependents{}
	svc.Dependents = deps
	ctx := context.Background()

	doc, err := svc.Create(ctx, "owner-1", pdfUpload("contract.pdf"))
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, doc.ID, "owner-2"), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, doc.ID, "owner-1"))

	assert.Equal(t, []string{doc.ID}, deps.deleted)
	assert.Zero(t, countFiles(t, dir))
	_, err = svc.Store.Open(ctx, doc.StorageKey)
	assert.ErrorIs(t, err, object.ErrNotFound)
	_, err = svc.Get(ctx, doc.ID, "owner-1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, doc.ID, "owner-1"), ErrNotFound)
}

func TestMemoryTransitionIsCompareAndSet(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, Document{ID: "d1", OwnerID: "o", Status: StatusPending}))

	require.NoError(t, repo.Transition(ctx, "d1", Transition{From: StatusPending, To: StatusProcessing}))
	err := repo.Transition(ctx, "d1", Transition{From: StatusPending, To: StatusProcessing})
	assert.ErrorIs(t, err, ErrStaleStatus)
	assert.ErrorIs(t, repo.Transition(ctx, "nope", Transition{From: StatusPending, To: StatusProcessing}), ErrNotFound)
}
