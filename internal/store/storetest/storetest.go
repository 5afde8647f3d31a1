// Package storetest is the behaviour every workflow.Store must satisfy. Store packages call
// Run from their own tests with a constructor for a fresh, empty store.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/information-sharing-networks/docsign/internal/workflow"
)

// NewDocument returns a pending document with distinct values in every field.
// Times are whole microseconds in UTC so that every backend stores them exactly.
func NewDocument(ownerID string, recipients ...string) *workflow.Document {
	uploaded := time.Date(2026, 3, 1, 12, 30, 45, 123456000, time.UTC)
	expiry := uploaded.Add(7 * 24 * time.Hour)

	rs := make([]workflow.Recipient, 0, len(recipients))
	for _, email := range recipients {
		rs = append(rs, workflow.Recipient{Name: "Recipient " + email, Email: email})
	}

	return &workflow.Document{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		OwnerEmail:    ownerID + "@example.com",
		FileName:      "contract.pdf",
		SizeBytes:     11,
		Ciphertext:    []byte("ciphertext\x00\x01\x02"),
		EncryptionKey: "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff",
		IV:            "000102030405060708090a0b0c0d0e0f",
		Recipients:    rs,
		State:         workflow.StatePendingSignature,
		ExpiryAt:      &expiry,
		UploadedAt:    uploaded,
	}
}

// Run runs the store contract against stores returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) workflow.Store) {
	t.Run("CreateAndLoad", func(t *testing.T) { testCreateAndLoad(t, newStore(t)) })
	t.Run("CreateDuplicate", func(t *testing.T) { testCreateDuplicate(t, newStore(t)) })
	t.Run("LoadMissing", func(t *testing.T) { testLoadMissing(t, newStore(t)) })
	t.Run("SaveVersioning", func(t *testing.T) { testSaveVersioning(t, newStore(t)) })
	t.Run("SaveMissing", func(t *testing.T) { testSaveMissing(t, newStore(t)) })
	t.Run("SaveFullRecord", func(t *testing.T) { testSaveFullRecord(t, newStore(t)) })
	t.Run("ListByRecipient", func(t *testing.T) { testListByRecipient(t, newStore(t)) })
	t.Run("ListByOwner", func(t *testing.T) { testListByOwner(t, newStore(t)) })
	t.Run("LoadReturnsCopy", func(t *testing.T) { testLoadReturnsCopy(t, newStore(t)) })
	t.Run("ConcurrentSaves", func(t *testing.T) { testConcurrentSaves(t, newStore(t)) })
}

// AssertDocumentsEqual compares documents field by field, comparing times with Equal.
func AssertDocumentsEqual(t *testing.T, want, got *workflow.Document) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.OwnerID, got.OwnerID)
	assert.Equal(t, want.OwnerEmail, got.OwnerEmail)
	assert.Equal(t, want.FileName, got.FileName)
	assert.Equal(t, want.SizeBytes, got.SizeBytes)
	assert.Equal(t, want.Ciphertext, got.Ciphertext)
	assert.Equal(t, want.EncryptionKey, got.EncryptionKey)
	assert.Equal(t, want.IV, got.IV)
	assert.Equal(t, want.State, got.State)
	assert.Equal(t, want.SignatureReady, got.SignatureReady)
	assert.Equal(t, want.Version, got.Version)
	assert.ElementsMatch(t, want.Recipients, got.Recipients)
	assert.Equal(t, len(want.InputFields), len(got.InputFields))
	for i := range want.InputFields {
		if i < len(got.InputFields) {
			assert.Equal(t, want.InputFields[i], got.InputFields[i])
		}
	}
	assert.True(t, want.UploadedAt.Equal(got.UploadedAt), "UploadedAt: want %v, got %v", want.UploadedAt, got.UploadedAt)
	assertTimePtrEqual(t, "ExpiryAt", want.ExpiryAt, got.ExpiryAt)
	assertTimePtrEqual(t, "SignedAt", want.SignedAt, got.SignedAt)
	assertTimePtrEqual(t, "DeletedAt", want.DeletedAt, got.DeletedAt)
}

func assertTimePtrEqual(t *testing.T, name string, want, got *time.Time) {
	t.Helper()
	if want == nil || got == nil {
		assert.Equal(t, want == nil, got == nil, "%s: want %v, got %v", name, want, got)
		return
	}
	assert.True(t, want.Equal(*got), "%s: want %v, got %v", name, *want, *got)
}

func testCreateAndLoad(t *testing.T, s workflow.Store) {
	ctx := context.Background()
	doc := NewDocument("owner-1", "a@example.com", "b@example.com")

	require.NoError(t, s.Create(ctx, doc))
	assert.Equal(t, int64(1), doc.Version)

	got, err := s.Load(ctx, doc.ID)
	require.NoError(t, err)
	AssertDocumentsEqual(t, doc, got)
}

func testCreateDuplicate(t *testing.T, s workflow.Store) {
	ctx := context.Background()
	doc := NewDocument("owner-1", "a@example.com")
	require.NoError(t, s.Create(ctx, doc))

	dup := NewDocument("owner-2", "c@example.com")
	dup.ID = doc.ID
	assert.ErrorIs(t, s.Create(ctx, dup), workflow.ErrAlreadyExists)
}

func testLoadMissing(t *testing.T, s workflow.Store) {
	_, err := s.Load(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func testSaveVersioning(t *testing.T, s workflow.Store) {
	ctx := context.Background()
	doc := NewDocument("owner-1", "a@example.com")
	require.NoError(t, s.Create(ctx, doc))

	doc.State = workflow.StateAccepted
	doc.ExpiryAt = nil
	require.NoError(t, s.Save(ctx, doc, 1))
	assert.Equal(t, int64(2), doc.Version)

	stale := doc.Clone()
	stale.State = workflow.StateRejected
	err := s.Save(ctx, stale, 1)
	assert.ErrorIs(t, err, workflow.ErrVersionConflict)

	got, err := s.Load(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateAccepted, got.State, "a rejected save must not change the record")
	assert.Equal(t, int64(2), got.Version)
	assert.Nil(t, got.ExpiryAt)
}

func testSaveMissing(t *testing.T, s workflow.Store) {
	doc := NewDocument("owner-1", "a@example.com")
	err := s.Save(context.Background(), doc, 1)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func testSaveFullRecord(t *testing.T, s workflow.Store) {
	ctx := context.Background()
	doc := NewDocument("owner-1", "a@example.com", "b@example.com")
	require.NoError(t, s.Create(ctx, doc))

	signed := doc.UploadedAt.Add(time.Hour)
	doc.State = workflow.StateSigned
	doc.ExpiryAt = nil
	doc.SignedAt = &signed
	doc.SignatureReady = true
	doc.Ciphertext = []byte("new ciphertext")
	doc.EncryptionKey = "ffeeddccbbaa99887766554433221100ffeeddccbbaa99887766554433221100"
	doc.IV = "0f0e0d0c0b0a09080706050403020100"
	doc.SizeBytes = 14
	doc.InputFields = []workflow.InputField{
		{ID: "f1", Type: "signature", OwnerRecipient: "a@example.com", Page: 0, X: 10.5, Y: 20.25},
		{ID: "f2", Type: "date", Value: "2026-03-01", OwnerRecipient: "b@example.com", Page: 2, X: 0, Y: 700},
	}
	require.NoError(t, s.Save(ctx, doc, 1))

	got, err := s.Load(ctx, doc.ID)
	require.NoError(t, err)
	AssertDocumentsEqual(t, doc, got)
}

func testListByRecipient(t *testing.T, s workflow.Store) {
	ctx := context.Background()

	first := NewDocument("owner-1", "a@example.com", "b@example.com")
	second := NewDocument("owner-2", "b@example.com")
	other := NewDocument("owner-1", "c@example.com")
	deleted := NewDocument("owner-1", "b@example.com")
	for _, d := range []*workflow.Document{first, second, other, deleted} {
		require.NoError(t, s.Create(ctx, d))
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	deleted.DeletedAt = &now
	require.NoError(t, s.Save(ctx, deleted, 1))

	docs, err := s.ListByRecipient(ctx, "b@example.com")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids(docs))

	docs, err = s.ListByRecipient(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func testListByOwner(t *testing.T, s workflow.Store) {
	ctx := context.Background()

	a := NewDocument("owner-1", "a@example.com")
	b := NewDocument("owner-1", "b@example.com")
	c := NewDocument("owner-2", "a@example.com")
	for _, d := range []*workflow.Document{a, b, c} {
		require.NoError(t, s.Create(ctx, d))
	}

	docs, err := s.ListByOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids(docs))
}

func testLoadReturnsCopy(t *testing.T, s workflow.Store) {
	ctx := context.Background()
	doc := NewDocument("owner-1", "a@example.com")
	require.NoError(t, s.Create(ctx, doc))

	// mutating the caller's copies must not reach the store
	doc.Recipients[0].Email = "mallory@example.com"
	got, err := s.Load(ctx, doc.ID)
	require.NoError(t, err)
	got.Ciphertext[0] = 'X'
	got.Recipients[0].Email = "mallory@example.com"

	again, err := s.Load(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", again.Recipients[0].Email)
	assert.Equal(t, byte('c'), again.Ciphertext[0])
}

// testConcurrentSaves races writers holding the same expected version: exactly one may win.
func testConcurrentSaves(t *testing.T, s workflow.Store) {
	ctx := context.Background()
	doc := NewDocument("owner-1", "a@example.com")
	require.NoError(t, s.Create(ctx, doc))

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := doc.Clone()
			d.FileName = uuid.NewString()
			d.SizeBytes = int64(i)
			err := s.Save(ctx, d, 1)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case assert.ErrorIs(t, err, workflow.ErrVersionConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, writers-1, conflicts)

	got, err := s.Load(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
}

func ids(docs []*workflow.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}
