package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KimiAn12/StartUpIdea/internal/shared/storage/object"
)

type fakeS3 struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
	deletes []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = body
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	key := aws.ToString(in.Key)
	delete(f.objects, key)
	f.deletes = append(f.deletes, key)
	return &s3.DeleteObjectOutput{}, nil
}

var pdfBytes = []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\n")

func TestSaveStoresUnderPrefixedOwnerKey(t *testing.T) {
	api := newFakeS3()
	store := NewWithClient(api, "contracts", "/legal/", "")

	key, size, mime, err := store.Save(context.Background(), "user-1", "lease.pdf", bytes.NewReader(pdfBytes))
	require.NoError(t, err)

	assert.Equal(t, object.OwnerPrefix("user-1")+"/lease.pdf", key)
	assert.NotContains(t, key, "legal")
	assert.EqualValues(t, len(pdfBytes), size)
	assert.Equal(t, "application/pdf", mime)

	require.Len(t, api.puts, 1)
	put := api.puts[0]
	assert.Equal(t, "contracts", aws.ToString(put.Bucket))
	assert.Equal(t, "legal/"+key, aws.ToString(put.Key))
	assert.Equal(t, s3types.ServerSideEncryptionAes256, put.ServerSideEncryption)
	assert.Nil(t, put.SSEKMSKeyId)
}

func TestSaveUsesKMSKeyWhenConfigured(t *testing.T) {
	api := newFakeS3()
	store := NewWithClient(api, "contracts", "", " alias/docs ")

	_, _, _, err := store.Save(context.Background(), "user-1", "nda.docx", strings.NewReader("PK"))
	require.NoError(t, err)

	put := api.puts[0]
	assert.Equal(t, s3types.ServerSideEncryptionAwsKms, put.ServerSideEncryption)
	assert.Equal(t, "alias/docs", aws.ToString(put.SSEKMSKeyId))
}

func TestSaveRejectsTraversalNames(t *testing.T) {
	api := newFakeS3()
	store := NewWithClient(api, "contracts", "", "")

	_, _, _, err := store.Save(context.Background(), "user-1", "../other/lease.pdf", bytes.NewReader(pdfBytes))
	assert.ErrorIs(t, err, object.ErrInvalidName)
	assert.Empty(t, api.puts)
}

func TestOpenAndDeleteRoundTrip(t *testing.T) {
	api := newFakeS3()
	store := NewWithClient(api, "contracts", "legal", "")
	ctx := context.Background()

	key, _, _, err := store.Save(ctx, "user-1", "lease.pdf", bytes.NewReader(pdfBytes))
	require.NoError(t, err)

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, pdfBytes, got)

	require.NoError(t, store.Delete(ctx, key))
	assert.Equal(t, []string{"legal/" + key}, api.deletes)

	_, err = store.Open(ctx, key)
	assert.True(t, errors.Is(err, object.ErrNotFound))
}

func TestApplyPrefix(t *testing.T) {
	tests := []struct {
		prefix, key, want string
	}{
		{"", "owner/lease.pdf", "owner/lease.pdf"},
		{"legal", "owner/lease.pdf", "legal/owner/lease.pdf"},
		{"/legal/", "/owner/lease.pdf", "legal/owner/lease.pdf"},
		{"legal/docs", "", "legal/docs"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, applyPrefix(tt.prefix, tt.key), "prefix=%q key=%q", tt.prefix, tt.key)
	}
}
