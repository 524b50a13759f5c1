package minio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/KimiAn12/StartUpIdea/internal/shared/storage/object"
	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
)

// Uploads have no known length up front; this bounds the multipart buffer.
const partSize = 16 << 20

// Options configures the MinIO connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store implements ObjectStore on a MinIO (or any S3-compatible) server.
type Store struct {
	client *miniogo.Client
	bucket string
}

// New connects to MinIO and creates the bucket when it does not exist yet.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, fmt.Errorf("minio endpoint and bucket are required")
	}
	client, err := miniogo.New(opts.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket exists %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, miniogo.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket %s: %w", opts.Bucket, err)
		}
		telemetry.Info("minio.bucket_created", map[string]any{"bucket": opts.Bucket})
	}
	return &Store{client: client, bucket: opts.Bucket}, nil
}

// Save streams the reader into the bucket under the owner's namespace.
func (s *Store) Save(ctx context.Context, ownerID string, name string, r io.Reader) (string, int64, string, error) {
	storageKey, err := object.Key(ownerID, name)
	if err != nil {
		return "", 0, "", fmt.Errorf("object key: %w", err)
	}

	br := bufio.NewReaderSize(r, 512)
	sniff, _ := br.Peek(512)
	mimeType := http.DetectContentType(sniff)

	info, err := s.client.PutObject(ctx, s.bucket, storageKey, br, -1, miniogo.PutObjectOptions{
		ContentType: mimeType,
		PartSize:    partSize,
	})
	if err != nil {
		return "", 0, "", fmt.Errorf("minio put object bucket=%s key=%s: %w", s.bucket, storageKey, err)
	}
	return storageKey, info.Size, mimeType, nil
}

// Open fetches a stored object for reading.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, storageKey, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get object bucket=%s key=%s: %w", s.bucket, storageKey, err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller reads.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if miniogo.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, object.ErrNotFound
		}
		return nil, fmt.Errorf("minio stat object bucket=%s key=%s: %w", s.bucket, storageKey, err)
	}
	return obj, nil
}

// Delete removes the object. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, storageKey string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, storageKey, miniogo.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio remove object bucket=%s key=%s: %w", s.bucket, storageKey, err)
	}
	return nil
}

var _ object.ObjectStore = (*Store)(nil)
