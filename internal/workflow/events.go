package workflow

import (
	"context"
	"time"
)

// EventType identifies a workflow event.
type EventType string

const (
	EventAccepted           EventType = "document.accepted"
	EventRejected           EventType = "document.rejected"
	EventDelayed            EventType = "document.delayed"
	EventSigned             EventType = "document.signed"
	EventSignatureRequested EventType = "document.signature_requested"
)

// Event is emitted after a workflow change has been saved.
//
// Actor is the recipient who acted (accept, reject, delay, sign). For signature requests,
// Recipient is the party being asked to sign and one event is emitted per recipient.
type Event struct {
	Type       EventType  `json:"type"`
	DocumentID string     `json:"documentId"`
	FileName   string     `json:"fileName"`
	OwnerID    string     `json:"ownerId"`
	OwnerEmail string     `json:"ownerEmail"`
	Actor      *Recipient `json:"actor,omitempty"`
	Recipient  *Recipient `json:"recipient,omitempty"`
	ExpiryAt   *time.Time `json:"expiryAt,omitempty"`
	Version    int64      `json:"version"`
	OccurredAt time.Time  `json:"occurredAt"`
}

// Notifier receives workflow events. Delivery is best-effort: the Engine logs a returned error
// and carries on, the triggering change stays committed.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NotifierFunc adapts a function to a Notifier.
type NotifierFunc func(ctx context.Context, event Event) error

func (f NotifierFunc) Notify(ctx context.Context, event Event) error { return f(ctx, event) }

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, Event) error { return nil }

func newEvent(t EventType, doc *Document, now time.Time) Event {
	return Event{
		Type:       t,
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		OwnerID:    doc.OwnerID,
		OwnerEmail: doc.OwnerEmail,
		ExpiryAt:   cloneTime(doc.ExpiryAt),
		OccurredAt: now,
	}
}

var actionEvents = map[Action]EventType{
	ActionAccept:           EventAccepted,
	ActionReject:           EventRejected,
	ActionDelay:            EventDelayed,
	ActionSubmitSignedCopy: EventSigned,
}
