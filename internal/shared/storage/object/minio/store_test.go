package minio

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KimiAn12/StartUpIdea/internal/shared/storage/object"
)

func TestNewRequiresEndpointAndBucket(t *testing.T) {
	_, err := New(context.Background(), Options{Bucket: "docs"})
	assert.Error(t, err)
	_, err = New(context.Background(), Options{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}

// Runs against a live server when MINIO_ENDPOINT is set.
func TestStoreRoundTrip(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT not set")
	}
	ctx := context.Background()
	store, err := New(ctx, Options{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		Bucket:    "legal-documents-test",
	})
	require.NoError(t, err)

	body := []byte("%PDF-1.4 minio test")
	key, size, _, err := store.Save(ctx, "owner-1", "roundtrip.pdf", bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), size)

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	_ = rc.Close()
	assert.Equal(t, body, got)

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, object.ErrNotFound)
}
