package workflow

import (
	"context"
	"errors"
)

// Store persists Document aggregates.
//
// Implementations live under internal/store. They must be safe for concurrent use and must
// return copies: the Engine mutates what Load returns before saving it.
type Store interface {
	// Create inserts a new document. doc.Version is set to 1 on success.
	// Returns ErrAlreadyExists if the id is taken.
	Create(ctx context.Context, doc *Document) error

	// Load returns the document with id, including logically deleted documents.
	// Returns ErrNotFound if there is no such document.
	Load(ctx context.Context, id string) (*Document, error)

	// Save replaces the stored document if its version still equals expectedVersion.
	// On success doc.Version is expectedVersion+1. Returns ErrVersionConflict otherwise.
	Save(ctx context.Context, doc *Document, expectedVersion int64) error

	// ListByRecipient returns the non-deleted documents listing email as a recipient.
	ListByRecipient(ctx context.Context, email string) ([]*Document, error)

	// ListByOwner returns the non-deleted documents owned by ownerID.
	ListByOwner(ctx context.Context, ownerID string) ([]*Document, error)
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

var (
	ErrNotFound        = errors.New("document not found")
	ErrAlreadyExists   = errors.New("document already exists")
	ErrVersionConflict = errors.New("document version conflict")
)
