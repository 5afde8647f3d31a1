// Package memory is an in-process workflow.Store, used by default in development and in tests.
// Documents do not survive a restart.
package memory

import (
	"context"
	"sync"

	"github.com/information-sharing-networks/docsign/internal/workflow"
)

// Store keeps documents in a map. Every read and write copies, so callers never share memory
// with the store.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*workflow.Document
}

// New returns an empty store.
func New() *Store {
	return &Store{docs: make(map[string]*workflow.Document)}
}

func (s *Store) Create(_ context.Context, doc *workflow.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[doc.ID]; ok {
		return workflow.ErrAlreadyExists
	}
	doc.Version = 1
	s.docs[doc.ID] = doc.Clone()
	return nil
}

func (s *Store) Load(_ context.Context, id string) (*workflow.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, workflow.ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *Store) Save(_ context.Context, doc *workflow.Document, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.docs[doc.ID]
	if !ok {
		return workflow.ErrNotFound
	}
	if current.Version != expectedVersion {
		return workflow.ErrVersionConflict
	}
	doc.Version = expectedVersion + 1
	s.docs[doc.ID] = doc.Clone()
	return nil
}

func (s *Store) ListByRecipient(_ context.Context, email string) ([]*workflow.Document, error) {
	return s.list(func(d *workflow.Document) bool {
		_, ok := d.RecipientByEmail(email)
		return ok
	}), nil
}

func (s *Store) ListByOwner(_ context.Context, ownerID string) ([]*workflow.Document, error) {
	return s.list(func(d *workflow.Document) bool {
		return d.OwnerID == ownerID
	}), nil
}

func (s *Store) list(match func(*workflow.Document) bool) []*workflow.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*workflow.Document, 0)
	for _, d := range s.docs {
		if d.IsDeleted() || !match(d) {
			continue
		}
		out = append(out, d.Clone())
	}
	return out
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Len returns the number of stored documents, deleted ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
