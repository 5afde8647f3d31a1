package s3offload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/information-sharing-networks/docsign/internal/store/memory"
	"github.com/information-sharing-networks/docsign/internal/store/storetest"
	"github.com/information-sharing-networks/docsign/internal/workflow"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(bytes.Clone(data)))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) workflow.Store {
		return New(memory.New(), newFakeS3(), "docs", "documents/", nil)
	})
}

func TestCiphertextLeavesInnerStore(t *testing.T) {
	ctx := context.Background()
	inner := memory.New()
	blobs := newFakeS3()
	s := New(inner, blobs, "docs", "documents/", nil)

	doc := storetest.NewDocument("owner-1", "a@example.com")
	require.NoError(t, s.Create(ctx, doc))
	assert.Empty(t, doc.BlobKey, "the caller's document is not modified")

	raw, err := inner.Load(ctx, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, raw.Ciphertext)
	assert.True(t, strings.HasPrefix(raw.BlobKey, "documents/"+doc.ID+"/1-"), raw.BlobKey)
	assert.Equal(t, 1, blobs.len())

	got, err := s.Load(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Ciphertext, got.Ciphertext)
	assert.Equal(t, raw.BlobKey, got.BlobKey)
}

func TestUnchangedCiphertextIsNotUploadedAgain(t *testing.T) {
	ctx := context.Background()
	blobs := newFakeS3()
	s := New(memory.New(), blobs, "docs", "", nil)

	doc := storetest.NewDocument("owner-1", "a@example.com")
	require.NoError(t, s.Create(ctx, doc))

	loaded, err := s.Load(ctx, doc.ID)
	require.NoError(t, err)
	loaded.State = workflow.StateAccepted
	require.NoError(t, s.Save(ctx, loaded, loaded.Version))

	assert.Equal(t, 1, blobs.len())

	// replacing the ciphertext means clearing BlobKey
	loaded.Ciphertext = []byte("signed copy")
	loaded.BlobKey = ""
	require.NoError(t, s.Save(ctx, loaded, loaded.Version))
	assert.Equal(t, 2, blobs.len())

	got, err := s.Load(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("signed copy"), got.Ciphertext)
}

func TestConflictDeletesUploadedObject(t *testing.T) {
	ctx := context.Background()
	blobs := newFakeS3()
	s := New(memory.New(), blobs, "docs", "", nil)

	doc := storetest.NewDocument("owner-1", "a@example.com")
	require.NoError(t, s.Create(ctx, doc))

	stale := doc.Clone()
	require.NoError(t, s.Save(ctx, doc, 1))
	before := blobs.len()

	stale.Ciphertext = []byte("late writer")
	require.ErrorIs(t, s.Save(ctx, stale, 1), workflow.ErrVersionConflict)
	assert.Equal(t, before, blobs.len(), "the losing writer's object is removed")

	got, err := s.Load(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Ciphertext, got.Ciphertext)
}

func TestUploadFailureLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	inner := memory.New()
	blobs := newFakeS3()
	blobs.putErr = errors.New("access denied")
	s := New(inner, blobs, "docs", "", nil)

	err := s.Create(ctx, storetest.NewDocument("owner-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Equal(t, 0, inner.Len())
}

func TestLoadMissingObject(t *testing.T) {
	ctx := context.Background()
	inner := memory.New()
	blobs := newFakeS3()
	s := New(inner, blobs, "docs", "", nil)

	doc := storetest.NewDocument("owner-1")
	require.NoError(t, s.Create(ctx, doc))
	blobs.objects = map[string][]byte{}

	_, err := s.Load(ctx, doc.ID)
	var noSuchKey *types.NoSuchKey
	require.ErrorAs(t, err, &noSuchKey)
}

func TestPing(t *testing.T) {
	s := New(memory.New(), newFakeS3(), "docs", "", nil)
	require.NoError(t, s.Ping(context.Background()))
}
