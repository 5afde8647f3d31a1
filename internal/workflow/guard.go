package workflow

// guard.go decides whether an identity may read or act on a document.
//
// Expiry is always evaluated against the now passed in by the caller, which the Engine takes
// from its clock at the moment of the call. Guard checks never mutate the document.

import (
	"time"

	"github.com/information-sharing-networks/docsign/internal/identity"
)

// Need is the kind of access an operation requires.
type Need int

const (
	// NeedRead allows the owner or any recipient
	NeedRead Need = iota
	// NeedOwner allows only the owner
	NeedOwner
	// NeedRecipient allows only a recipient who is not also the owner
	NeedRecipient
)

// IsOwner reports whether id owns doc.
func IsOwner(id identity.Identity, doc *Document) bool {
	return id.ID != "" && id.ID == doc.OwnerID
}

// CanRead reports whether id may read doc at now: the document is not expired and id is the
// owner or one of the recipients.
func CanRead(id identity.Identity, doc *Document, now time.Time) bool {
	if doc.IsExpired(now) {
		return false
	}
	return isParticipant(id, doc)
}

// CanActAsRecipient reports whether id matches exactly one recipient of doc. The owner never
// acts as a recipient, even when their own email is on the recipient list.
func CanActAsRecipient(id identity.Identity, doc *Document) bool {
	if IsOwner(id, doc) {
		return false
	}
	email := id.NormalizedEmail()
	if email == "" {
		return false
	}
	matches := 0
	for _, r := range doc.Recipients {
		if identity.NormalizeEmail(r.Email) == email {
			matches++
		}
	}
	return matches == 1
}

func isParticipant(id identity.Identity, doc *Document) bool {
	if IsOwner(id, doc) {
		return true
	}
	_, ok := doc.RecipientByEmail(id.Email)
	return ok
}

// Authorize folds membership and expiry into a single error.
//
// Membership is checked first so callers unrelated to the document learn nothing about its
// expiry. Returns an unauthorized or expired WorkflowError, or nil.
func Authorize(id identity.Identity, doc *Document, now time.Time, need Need) error {
	switch need {
	case NeedOwner:
		if !IsOwner(id, doc) {
			return NewUnauthorizedError("only the document owner may perform this operation")
		}
	case NeedRecipient:
		if !CanActAsRecipient(id, doc) {
			return NewUnauthorizedError("only a recipient of the document may perform this operation")
		}
	default:
		if !isParticipant(id, doc) {
			return NewUnauthorizedError("caller is neither the owner nor a recipient of the document")
		}
	}

	if doc.IsExpired(now) {
		return NewExpiredError(doc.ID)
	}
	return nil
}
