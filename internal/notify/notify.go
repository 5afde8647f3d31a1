// Package notify delivers workflow events to people.
//
// The Dispatcher turns each workflow.Event into a Message (who it is from, who it is for and
// what it says) and hands it to a Sink: the log, an HTTP webhook, or an SMTP server.
// Delivery is best-effort with at most one attempt per event; a failure is counted and
// returned to the engine, which logs it. It never affects the workflow change that caused it.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/information-sharing-networks/docsign/internal/crypto"
	"github.com/information-sharing-networks/docsign/internal/workflow"
)

// Message is a notification ready for delivery.
type Message struct {
	// IdempotencyKey is the fingerprint of the event the message was built from.
	// Redelivering the same event produces the same key.
	IdempotencyKey string `json:"idempotencyKey"`

	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`

	Event workflow.Event `json:"event"`
}

// Sink delivers messages.
type Sink interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Dispatcher implements workflow.Notifier.
type Dispatcher struct {
	sink    Sink
	timeout time.Duration
	logger  *slog.Logger
	sent    metric.Int64Counter
}

// NewDispatcher creates a Dispatcher that sends through sink, giving each delivery at most timeout.
func NewDispatcher(sink Sink, timeout time.Duration, logger *slog.Logger) (*Dispatcher, error) {
	counter, err := otel.GetMeterProvider().Meter("github.com/information-sharing-networks/docsign/internal/notify").
		Int64Counter("docsign.notify.messages",
			metric.WithDescription("Notification delivery attempts by sink and result"),
			metric.WithUnit("{message}"),
		)
	if err != nil {
		return nil, fmt.Errorf("failed to create notify metrics: %w", err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{sink: sink, timeout: timeout, logger: logger, sent: counter}, nil
}

// Notify builds the message for ev and makes one delivery attempt.
func (d *Dispatcher) Notify(ctx context.Context, ev workflow.Event) error {
	msg, ok, err := Compose(ev)
	if err != nil {
		return err
	}
	if !ok {
		d.logger.Debug("no notification for event", slog.String("event", string(ev.Type)))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err = d.sink.Send(ctx, msg)

	result := "ok"
	if err != nil {
		result = "error"
	}
	d.sent.Add(ctx, 1, metric.WithAttributes(
		attribute.String("sink", d.sink.Name()),
		attribute.String("event", string(ev.Type)),
		attribute.String("result", result),
	))

	if err != nil {
		return fmt.Errorf("%s sink failed to deliver %s for document %s: %w", d.sink.Name(), ev.Type, ev.DocumentID, err)
	}
	d.logger.Debug("notification sent",
		slog.String("sink", d.sink.Name()),
		slog.String("event", string(ev.Type)),
		slog.String("document_id", ev.DocumentID),
		slog.String("idempotency_key", msg.IdempotencyKey),
	)
	return nil
}

// Compose builds the message for ev. ok is false for events nobody is notified about.
//
// Recipient actions notify the owner; signature requests notify the recipient asked to sign.
func Compose(ev workflow.Event) (msg Message, ok bool, err error) {
	key, err := crypto.Fingerprint(ev)
	if err != nil {
		return Message{}, false, fmt.Errorf("failed to fingerprint event: %w", err)
	}
	msg = Message{IdempotencyKey: key, Event: ev}

	actor := displayName(ev.Actor)
	switch ev.Type {
	case workflow.EventAccepted:
		msg.From, msg.To = actorEmail(ev.Actor), ev.OwnerEmail
		msg.Subject = "Document Signature Accepted"
		msg.Body = fmt.Sprintf("%s will be signing %s.", actor, ev.FileName)
	case workflow.EventRejected:
		msg.From, msg.To = actorEmail(ev.Actor), ev.OwnerEmail
		msg.Subject = "Document Signature Rejected"
		msg.Body = fmt.Sprintf("%s will not be signing %s.", actor, ev.FileName)
	case workflow.EventDelayed:
		msg.From, msg.To = actorEmail(ev.Actor), ev.OwnerEmail
		msg.Subject = "Document Signature Delayed"
		msg.Body = fmt.Sprintf("%s has delayed signing %s.", actor, ev.FileName)
		if ev.ExpiryAt != nil {
			msg.Body += fmt.Sprintf(" The new deadline is %s.", ev.ExpiryAt.UTC().Format(time.RFC1123))
		}
	case workflow.EventSigned:
		msg.From, msg.To = actorEmail(ev.Actor), ev.OwnerEmail
		msg.Subject = "Document Signed"
		msg.Body = fmt.Sprintf("%s has signed %s.", actor, ev.FileName)
	case workflow.EventSignatureRequested:
		if ev.Recipient == nil {
			return Message{}, false, fmt.Errorf("signature request event for document %s has no recipient", ev.DocumentID)
		}
		msg.From, msg.To = ev.OwnerEmail, ev.Recipient.Email
		msg.Subject = "Signature requested: " + ev.FileName
		msg.Body = fmt.Sprintf("Hello %s,\n\n%s has asked you to sign %s.", displayName(ev.Recipient), ev.OwnerEmail, ev.FileName)
		if ev.ExpiryAt != nil {
			msg.Body += fmt.Sprintf(" Please respond before %s.", ev.ExpiryAt.UTC().Format(time.RFC1123))
		}
	default:
		return Message{}, false, nil
	}

	if msg.To == "" {
		return Message{}, false, fmt.Errorf("%s event for document %s has no addressee", ev.Type, ev.DocumentID)
	}
	return msg, true, nil
}

func displayName(r *workflow.Recipient) string {
	if r == nil {
		return "A recipient"
	}
	if r.Name != "" {
		return r.Name
	}
	return r.Email
}

func actorEmail(r *workflow.Recipient) string {
	if r == nil {
		return ""
	}
	return r.Email
}
