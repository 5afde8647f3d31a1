package workflow

import (
	"slices"
	"time"

	"github.com/information-sharing-networks/docsign/internal/identity"
)

// State is the stored workflow state of a document.
type State string

const (
	// StateDraft exists only while a document is being assembled in UploadDocument; it is never persisted.
	StateDraft            State = "draft"
	StatePendingSignature State = "pending_signature"
	StateAccepted         State = "accepted"
	StateDelayed          State = "delayed"
	StateRejected         State = "rejected"
	StateSigned           State = "signed"
)

// Status is the state a caller observes: the stored state, or StatusExpired once the expiry has passed.
type Status string

const StatusExpired Status = "expired"

// IsTerminal reports whether no further transition is possible from s.
func (s State) IsTerminal() bool {
	return s == StateSigned || s == StateRejected
}

// Recipient is a party entitled to view and act on a document, identified by email.
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// InputField marks where a recipient must supply input (typically a signature).
type InputField struct {
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	Value          string  `json:"value,omitempty"`
	OwnerRecipient string  `json:"ownerRecipient"`
	Page           int     `json:"page"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
}

// Document is the workflow aggregate.
//
// Ciphertext, EncryptionKey and IV always belong together: any rewrite of the payload
// replaces all three.
type Document struct {
	ID         string
	OwnerID    string
	OwnerEmail string
	FileName   string
	SizeBytes  int64

	Ciphertext    []byte
	EncryptionKey string
	IV            string

	// BlobKey is set by stores that keep the ciphertext in object storage.
	// It is cleared whenever the ciphertext is replaced.
	BlobKey string

	Recipients     []Recipient
	State          State
	ExpiryAt       *time.Time
	InputFields    []InputField
	SignatureReady bool

	UploadedAt time.Time
	SignedAt   *time.Time

	// Version is incremented by the store on every successful save.
	Version   int64
	DeletedAt *time.Time
}

// IsExpired reports whether the expiry deadline has passed at now.
// The deadline itself is still inside the window.
func (d *Document) IsExpired(now time.Time) bool {
	return d.ExpiryAt != nil && d.ExpiryAt.Before(now)
}

// IsDeleted reports whether the document has been logically deleted.
func (d *Document) IsDeleted() bool {
	return d.DeletedAt != nil
}

// Status returns the state observed at now.
func (d *Document) Status(now time.Time) Status {
	if d.IsExpired(now) {
		return StatusExpired
	}
	return Status(d.State)
}

// RecipientByEmail returns the recipient entry matching email (case-insensitive).
func (d *Document) RecipientByEmail(email string) (Recipient, bool) {
	email = identity.NormalizeEmail(email)
	if email == "" {
		return Recipient{}, false
	}
	for _, r := range d.Recipients {
		if identity.NormalizeEmail(r.Email) == email {
			return r, true
		}
	}
	return Recipient{}, false
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	c := *d
	c.Ciphertext = slices.Clone(d.Ciphertext)
	c.Recipients = slices.Clone(d.Recipients)
	c.InputFields = slices.Clone(d.InputFields)
	c.ExpiryAt = cloneTime(d.ExpiryAt)
	c.SignedAt = cloneTime(d.SignedAt)
	c.DeletedAt = cloneTime(d.DeletedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// DocumentSummary is the metadata view of a document. It never contains the payload or key material.
type DocumentSummary struct {
	ID             string       `json:"id"`
	FileName       string       `json:"fileName"`
	SizeBytes      int64        `json:"sizeBytes"`
	OwnerEmail     string       `json:"ownerEmail"`
	Status         Status       `json:"status"`
	Recipients     []Recipient  `json:"recipients"`
	InputFields    []InputField `json:"inputFields"`
	SignatureReady bool         `json:"signatureReady"`
	ExpiryAt       *time.Time   `json:"expiryAt,omitempty"`
	UploadedAt     time.Time    `json:"uploadedAt"`
	SignedAt       *time.Time   `json:"signedAt,omitempty"`
	Version        int64        `json:"version"`
}

// DecryptedView is a summary plus the decrypted payload.
type DecryptedView struct {
	DocumentSummary

	Content        []byte `json:"content"`
	ChecksumSHA256 string `json:"checksumSha256"`
}

// Summarize returns the metadata view of d as observed at now.
func Summarize(d *Document, now time.Time) DocumentSummary {
	recipients := slices.Clone(d.Recipients)
	if recipients == nil {
		recipients = []Recipient{}
	}
	fields := slices.Clone(d.InputFields)
	if fields == nil {
		fields = []InputField{}
	}
	return DocumentSummary{
		ID:             d.ID,
		FileName:       d.FileName,
		SizeBytes:      d.SizeBytes,
		OwnerEmail:     d.OwnerEmail,
		Status:         d.Status(now),
		Recipients:     recipients,
		InputFields:    fields,
		SignatureReady: d.SignatureReady,
		ExpiryAt:       cloneTime(d.ExpiryAt),
		UploadedAt:     d.UploadedAt,
		SignedAt:       cloneTime(d.SignedAt),
		Version:        d.Version,
	}
}
