// Package s3offload keeps document ciphertext in S3 (or MinIO) instead of the document store.
//
// Store wraps any workflow.Store. On write, a ciphertext without a BlobKey is uploaded to
// "<prefix><id>/<version>-<nonce>.bin" and only the key is passed to the inner store; on Load the
// ciphertext is read back. Objects are written before the inner save, and an object whose save
// then fails is deleted again. Objects of superseded versions are kept.
//
// Documents returned by ListByRecipient and ListByOwner are not rehydrated: their Ciphertext is
// nil and BlobKey is set.
package s3offload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/information-sharing-networks/docsign/internal/workflow"
)

// API is the subset of the S3 client used by the store.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// NewClient returns an S3 client, pointed at endpointURL with path-style addressing when set
// (MinIO, LocalStack).
func NewClient(cfg aws.Config, endpointURL string) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpointURL != "" {
			o.BaseEndpoint = aws.String(endpointURL)
			o.UsePathStyle = true
		}
	})
}

// Store decorates a workflow.Store.
type Store struct {
	inner  workflow.Store
	client API
	bucket string
	prefix string
	logger *slog.Logger
}

// New wraps inner. prefix is prepended to every object key and may be empty.
func New(inner workflow.Store, client API, bucket, prefix string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		inner:  inner,
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}
}

// ObjectKey returns a new key for the ciphertext of version of document id.
// The nonce keeps writers racing for the same version from overwriting each other's object.
func (s *Store) ObjectKey(id string, version int64) string {
	return fmt.Sprintf("%s%s/%d-%s.bin", s.prefix, id, version, uuid.NewString())
}

func (s *Store) Create(ctx context.Context, doc *workflow.Document) error {
	stripped, uploaded, err := s.offload(ctx, doc, 1)
	if err != nil {
		return err
	}

	if err := s.inner.Create(ctx, stripped); err != nil {
		s.discard(ctx, uploaded)
		return err
	}
	doc.Version = stripped.Version
	return nil
}

func (s *Store) Load(ctx context.Context, id string) (*workflow.Document, error) {
	doc, err := s.inner.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.BlobKey == "" || doc.Ciphertext != nil {
		return doc, nil
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(doc.BlobKey),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get failed for %s: %w", doc.BlobKey, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", doc.BlobKey, err)
	}
	doc.Ciphertext = data
	return doc, nil
}

func (s *Store) Save(ctx context.Context, doc *workflow.Document, expectedVersion int64) error {
	stripped, uploaded, err := s.offload(ctx, doc, expectedVersion+1)
	if err != nil {
		return err
	}

	if err := s.inner.Save(ctx, stripped, expectedVersion); err != nil {
		s.discard(ctx, uploaded)
		return err
	}
	doc.Version = stripped.Version
	return nil
}

func (s *Store) ListByRecipient(ctx context.Context, email string) ([]*workflow.Document, error) {
	return s.inner.ListByRecipient(ctx, email)
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]*workflow.Document, error) {
	return s.inner.ListByOwner(ctx, ownerID)
}

// Ping checks the bucket and, when it supports it, the inner store.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.inner.(workflow.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("s3 bucket %s unavailable: %w", s.bucket, err)
	}
	return nil
}

// offload returns the copy of doc to hand to the inner store and the key of the object it
// uploaded, if any. doc itself is not modified.
func (s *Store) offload(ctx context.Context, doc *workflow.Document, version int64) (*workflow.Document, string, error) {
	stripped := doc.Clone()

	if stripped.BlobKey != "" || len(stripped.Ciphertext) == 0 {
		if stripped.BlobKey != "" {
			stripped.Ciphertext = nil
		}
		return stripped, "", nil
	}

	key := s.ObjectKey(doc.ID, version)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(doc.Ciphertext),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return nil, "", fmt.Errorf("s3 put failed for %s: %w", key, err)
	}

	stripped.Ciphertext = nil
	stripped.BlobKey = key
	return stripped, key, nil
}

// discard deletes an object whose document write failed. Failures are logged only: the object
// is unreferenced either way.
func (s *Store) discard(ctx context.Context, key string) {
	if key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.logger.Warn("failed to delete orphaned ciphertext object",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

var _ workflow.Store = (*Store)(nil)
