package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"path"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/information-sharing-networks/docsign/internal/crypto"
	"github.com/information-sharing-networks/docsign/internal/identity"
	"github.com/information-sharing-networks/docsign/internal/lock"
	"github.com/information-sharing-networks/docsign/internal/logger"
)

const (
	maxRecipients        = 100
	maxFileNameLength    = 255
	lockKeyPrefix        = "document:"
	actionPlaceFields    = Action("place-fields")
	actionDeleteDocument = Action("delete")
)

// Config holds the workflow timings.
type Config struct {
	// ExpiryWindow is how long recipients have to act after upload
	ExpiryWindow time.Duration

	// DelayExtension is added to the current expiry by each delay
	DelayExtension time.Duration

	// RejectBackdate is how far into the past a rejected document's expiry is set
	RejectBackdate time.Duration

	// MaxConflictRetries is how many times a read-modify-write is retried after a version conflict
	MaxConflictRetries int
}

// DefaultConfig returns the standard timings: one week to act, one week per delay,
// rejected documents expire a day in the past.
func DefaultConfig() Config {
	return Config{
		ExpiryWindow:       7 * 24 * time.Hour,
		DelayExtension:     7 * 24 * time.Hour,
		RejectBackdate:     24 * time.Hour,
		MaxConflictRetries: 3,
	}
}

// Cipher seals and opens document payloads.
type Cipher interface {
	Seal(plaintext []byte) (crypto.SealedPayload, error)
	Open(ciphertext []byte, keyHex, ivHex string) ([]byte, error)
}

// Options configures an Engine. Only Store is required.
type Options struct {
	Store         Store
	Cipher        Cipher
	Locker        lock.Locker
	Notifier      Notifier
	Clock         Clock
	Logger        *slog.Logger
	MeterProvider metric.MeterProvider
	Config        Config
}

// Engine runs the document workflow.
type Engine struct {
	store    Store
	cipher   Cipher
	locker   lock.Locker
	notifier Notifier
	clock    Clock
	logger   *slog.Logger
	metrics  *engineMetrics
	config   Config
}

// NewEngine creates an Engine. Unset options default to: crypto.NewBox, an in-process
// lock, a notifier that discards events, the system clock, slog.Default and the global
// meter provider. Zero durations in opts.Config take their DefaultConfig value.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("workflow engine requires a store")
	}

	cfg := opts.Config
	defaults := DefaultConfig()
	if cfg.ExpiryWindow <= 0 {
		cfg.ExpiryWindow = defaults.ExpiryWindow
	}
	if cfg.DelayExtension <= 0 {
		cfg.DelayExtension = defaults.DelayExtension
	}
	if cfg.RejectBackdate <= 0 {
		cfg.RejectBackdate = defaults.RejectBackdate
	}
	if cfg.MaxConflictRetries < 0 {
		cfg.MaxConflictRetries = 0
	}

	e := &Engine{
		store:    opts.Store,
		cipher:   opts.Cipher,
		locker:   opts.Locker,
		notifier: opts.Notifier,
		clock:    opts.Clock,
		logger:   opts.Logger,
		config:   cfg,
	}
	if e.cipher == nil {
		e.cipher = crypto.NewBox()
	}
	if e.locker == nil {
		e.locker = lock.NewLocal()
	}
	if e.notifier == nil {
		e.notifier = discardNotifier{}
	}
	if e.clock == nil {
		e.clock = SystemClock{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	m, err := newEngineMetrics(opts.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow metrics: %w", err)
	}
	e.metrics = m

	return e, nil
}

// Config returns the timings in use.
func (e *Engine) Config() Config { return e.config }

// UploadDocument seals content and stores a new document for recipients, owned by owner.
// The document starts in PendingSignature and expires ExpiryWindow from now.
func (e *Engine) UploadDocument(ctx context.Context, owner identity.Identity, fileName string, content []byte, recipients []Recipient) (id string, err error) {
	defer func() { e.metrics.recordOperation(ctx, "upload", err) }()

	if owner.ID == "" {
		return "", NewUnauthorizedError("an authenticated owner is required")
	}
	fileName, err = normalizeFileName(fileName)
	if err != nil {
		return "", err
	}
	if len(content) == 0 {
		return "", NewValidationError("file is required")
	}
	normalized, err := normalizeRecipients(recipients)
	if err != nil {
		return "", err
	}

	now := e.clock.Now()
	doc := &Document{
		ID:         uuid.NewString(),
		OwnerID:    owner.ID,
		OwnerEmail: owner.NormalizedEmail(),
		FileName:   fileName,
		SizeBytes:  int64(len(content)),
		State:      StateDraft,
		UploadedAt: now,
	}

	sealed, err := e.cipher.Seal(content)
	if err != nil {
		return "", WrapInternalError(err, "failed to encrypt document")
	}
	doc.Ciphertext = sealed.Ciphertext
	doc.EncryptionKey = sealed.KeyHex
	doc.IV = sealed.IVHex

	// attaching recipients and an expiry is what makes a draft pending
	expiry := now.Add(e.config.ExpiryWindow)
	doc.Recipients = normalized
	doc.ExpiryAt = &expiry
	doc.State = StatePendingSignature

	if err := e.store.Create(ctx, doc); err != nil {
		return "", WrapInternalError(err, "failed to store document")
	}

	logger.ContextWithLogAttrs(ctx, slog.String("document_id", doc.ID))
	e.logger.Info("document uploaded",
		slog.String("document_id", doc.ID),
		slog.Int("recipients", len(normalized)),
		slog.Int64("size_bytes", doc.SizeBytes),
	)
	return doc.ID, nil
}

// GetDocument returns the decrypted document to its owner or a recipient, while it has not expired.
func (e *Engine) GetDocument(ctx context.Context, id identity.Identity, docID string) (view *DecryptedView, err error) {
	defer func() { e.metrics.recordOperation(ctx, "get", err) }()

	doc, err := e.load(ctx, docID, false)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	if err := Authorize(id, doc, now, NeedRead); err != nil {
		return nil, err
	}

	plaintext, err := e.cipher.Open(doc.Ciphertext, doc.EncryptionKey, doc.IV)
	if err != nil {
		return nil, openError(err, doc.ID)
	}

	return &DecryptedView{
		DocumentSummary: Summarize(doc, now),
		Content:         plaintext,
		ChecksumSHA256:  crypto.CalculateSHA256Hex(plaintext),
	}, nil
}

// pendingStates are the states in which a recipient still has something to do.
var pendingStates = map[State]bool{
	StatePendingSignature: true,
	StateDelayed:          true,
	StateAccepted:         true,
}

// ListPendingForRecipient lists the unexpired documents awaiting action from id as a recipient,
// newest first.
func (e *Engine) ListPendingForRecipient(ctx context.Context, id identity.Identity) (out []DocumentSummary, err error) {
	defer func() { e.metrics.recordOperation(ctx, "list_pending", err) }()

	email := id.NormalizedEmail()
	if email == "" {
		return nil, NewUnauthorizedError("caller has no email address")
	}

	docs, err := e.store.ListByRecipient(ctx, email)
	if err != nil {
		return nil, WrapInternalError(err, "failed to list documents")
	}

	now := e.clock.Now()
	out = []DocumentSummary{}
	for _, d := range docs {
		if d.IsDeleted() || d.IsExpired(now) || !pendingStates[d.State] || !CanActAsRecipient(id, d) {
			continue
		}
		out = append(out, Summarize(d, now))
	}
	sortSummaries(out)
	return out, nil
}

// ListOwned lists the documents owned by id, newest first. Expired documents are included
// with status expired.
func (e *Engine) ListOwned(ctx context.Context, id identity.Identity) (out []DocumentSummary, err error) {
	defer func() { e.metrics.recordOperation(ctx, "list_owned", err) }()

	if id.ID == "" {
		return nil, NewUnauthorizedError("an authenticated caller is required")
	}

	docs, err := e.store.ListByOwner(ctx, id.ID)
	if err != nil {
		return nil, WrapInternalError(err, "failed to list documents")
	}

	now := e.clock.Now()
	out = []DocumentSummary{}
	for _, d := range docs {
		if d.IsDeleted() || d.OwnerID != id.ID {
			continue
		}
		out = append(out, Summarize(d, now))
	}
	sortSummaries(out)
	return out, nil
}

// Accept moves a pending document to Accepted and clears its expiry.
func (e *Engine) Accept(ctx context.Context, id identity.Identity, docID string) (DocumentSummary, error) {
	return e.transition(ctx, id, docID, ActionAccept)
}

// Reject moves a pending or delayed document to Rejected. Its expiry is set in the past, which
// locks everybody out of it immediately.
func (e *Engine) Reject(ctx context.Context, id identity.Identity, docID string) (DocumentSummary, error) {
	return e.transition(ctx, id, docID, ActionReject)
}

// Delay extends the expiry of a pending or delayed document by DelayExtension, counted from
// the current expiry.
//
// Delay is not idempotent. A caller that retries after an ambiguous failure (for example a
// timeout after the save committed) extends the deadline twice. Callers that cannot tolerate
// this should compare the returned expiry, or re-read the document, before retrying.
func (e *Engine) Delay(ctx context.Context, id identity.Identity, docID string) (DocumentSummary, error) {
	return e.transition(ctx, id, docID, ActionDelay)
}

func (e *Engine) transition(ctx context.Context, id identity.Identity, docID string, action Action) (summary DocumentSummary, err error) {
	defer func() { e.metrics.recordOperation(ctx, string(action), err) }()

	doc, err := e.mutate(ctx, docID, false, func(doc *Document, now time.Time) ([]Event, error) {
		if err := Authorize(id, doc, now, NeedRecipient); err != nil {
			return nil, err
		}
		actor, _ := doc.RecipientByEmail(id.Email)

		if err := applyTransition(doc, action, now, e.config); err != nil {
			return nil, err
		}

		ev := newEvent(actionEvents[action], doc, now)
		ev.Actor = &actor
		return []Event{ev}, nil
	})
	if err != nil {
		return DocumentSummary{}, err
	}

	logger.ContextWithLogAttrs(ctx, slog.String("document_id", docID), slog.String("action", string(action)))
	e.logger.Info("document transitioned",
		slog.String("document_id", docID),
		slog.String("action", string(action)),
		slog.String("state", string(doc.State)),
	)
	return Summarize(doc, e.clock.Now()), nil
}

// PlaceFields attaches signature fields to the document and marks it ready for signing.
// Only the owner may place fields, and only while the document is pending, accepted or delayed
// and has not expired. One signature request event is emitted per recipient.
func (e *Engine) PlaceFields(ctx context.Context, owner identity.Identity, docID string, fields []InputField, mode PlaceMode) (summary DocumentSummary, err error) {
	defer func() { e.metrics.recordOperation(ctx, "place_fields", err) }()

	doc, err := e.mutate(ctx, docID, false, func(doc *Document, now time.Time) ([]Event, error) {
		if err := Authorize(owner, doc, now, NeedOwner); err != nil {
			return nil, err
		}
		if !placeableStates[doc.State] {
			return nil, NewInvalidTransitionError(doc.State, actionPlaceFields)
		}
		if err := placeFields(doc, fields, mode); err != nil {
			return nil, err
		}

		events := make([]Event, 0, len(doc.Recipients))
		for _, r := range doc.Recipients {
			ev := newEvent(EventSignatureRequested, doc, now)
			ev.Recipient = &r
			events = append(events, ev)
		}
		return events, nil
	})
	if err != nil {
		return DocumentSummary{}, err
	}

	e.logger.Info("signature fields placed",
		slog.String("document_id", docID),
		slog.String("mode", string(mode)),
		slog.Int("fields", len(doc.InputFields)),
	)
	return Summarize(doc, e.clock.Now()), nil
}

// CommitSignedPayload replaces the document payload with the signed copy submitted by a
// recipient and moves the document to Signed. The reseal and the transition are saved together.
func (e *Engine) CommitSignedPayload(ctx context.Context, id identity.Identity, docID string, content []byte) (_ string, err error) {
	defer func() { e.metrics.recordOperation(ctx, string(ActionSubmitSignedCopy), err) }()

	if len(content) == 0 {
		return "", NewValidationError("signed file is required")
	}

	_, err = e.mutate(ctx, docID, false, func(doc *Document, now time.Time) ([]Event, error) {
		if err := Authorize(id, doc, now, NeedRecipient); err != nil {
			return nil, err
		}
		if !doc.SignatureReady {
			return nil, NewNotSignatureReadyError(doc.ID)
		}
		if !Allowed(doc.State, ActionSubmitSignedCopy) {
			return nil, NewInvalidTransitionError(doc.State, ActionSubmitSignedCopy)
		}

		sealed, err := e.cipher.Seal(content)
		if err != nil {
			return nil, WrapInternalError(err, "failed to encrypt signed document")
		}
		doc.Ciphertext = sealed.Ciphertext
		doc.EncryptionKey = sealed.KeyHex
		doc.IV = sealed.IVHex
		doc.BlobKey = ""
		doc.SizeBytes = int64(len(content))

		if err := applyTransition(doc, ActionSubmitSignedCopy, now, e.config); err != nil {
			return nil, err
		}

		actor, _ := doc.RecipientByEmail(id.Email)
		ev := newEvent(EventSigned, doc, now)
		ev.Actor = &actor
		return []Event{ev}, nil
	})
	if err != nil {
		return "", err
	}

	logger.ContextWithLogAttrs(ctx, slog.String("document_id", docID))
	e.logger.Info("signed copy committed", slog.String("document_id", docID))
	return docID, nil
}

// DeleteDocument logically deletes a document. Only the owner may delete; deleting an already
// deleted document succeeds. The workflow state is left untouched, and a deleted document is not
// found by any other operation.
func (e *Engine) DeleteDocument(ctx context.Context, owner identity.Identity, docID string) (err error) {
	defer func() { e.metrics.recordOperation(ctx, string(actionDeleteDocument), err) }()

	_, err = e.mutate(ctx, docID, true, func(doc *Document, now time.Time) ([]Event, error) {
		if !IsOwner(owner, doc) {
			if doc.IsDeleted() {
				return nil, NewNotFoundError(doc.ID)
			}
			return nil, NewUnauthorizedError("only the document owner may delete it")
		}
		if doc.IsDeleted() {
			return nil, errNoChange
		}
		deletedAt := now
		doc.DeletedAt = &deletedAt
		return nil, nil
	})
	if err != nil {
		return err
	}

	e.logger.Info("document deleted", slog.String("document_id", docID))
	return nil
}

// errNoChange ends a mutation successfully without saving.
var errNoChange = errors.New("no change")

// mutation changes doc in place and returns the events to emit once the change is saved.
type mutation func(doc *Document, now time.Time) ([]Event, error)

// mutate is the only path through which documents change.
//
// It holds the document lock while it loads the document, applies fn to a copy and saves it
// against the version it loaded. If the store reports a version conflict (another writer that
// does not share this lock got there first) the whole read-modify-write is retried with a fresh
// read and a fresh clock, up to MaxConflictRetries times.
//
// Events are emitted after the save commits and the lock is released, so a slow sink never
// holds up other writers of the document. Notifier failures are logged and never undo the save.
func (e *Engine) mutate(ctx context.Context, docID string, includeDeleted bool, fn mutation) (*Document, error) {
	doc, events, err := e.mutateLocked(ctx, docID, includeDeleted, fn)
	if err != nil {
		return nil, err
	}
	e.emit(ctx, events)
	return doc, nil
}

func (e *Engine) mutateLocked(ctx context.Context, docID string, includeDeleted bool, fn mutation) (*Document, []Event, error) {
	unlock, err := e.locker.Lock(ctx, lockKeyPrefix+docID)
	if err != nil {
		return nil, nil, WrapInternalError(err, "failed to lock document")
	}
	defer unlock()

	for attempt := 1; ; attempt++ {
		current, err := e.load(ctx, docID, includeDeleted)
		if err != nil {
			return nil, nil, err
		}

		next := current.Clone()
		events, err := fn(next, e.clock.Now())
		if errors.Is(err, errNoChange) {
			return current, nil, nil
		}
		if err != nil {
			return nil, nil, err
		}

		err = e.store.Save(ctx, next, current.Version)
		switch {
		case err == nil:
			for i := range events {
				events[i].Version = next.Version
			}
			return next, events, nil
		case errors.Is(err, ErrNotFound):
			return nil, nil, NewNotFoundError(docID)
		case !errors.Is(err, ErrVersionConflict):
			return nil, nil, WrapInternalError(err, "failed to save document")
		}

		e.metrics.conflicts.Add(ctx, 1)
		if attempt > e.config.MaxConflictRetries {
			return nil, nil, NewConflictError(docID, attempt)
		}
		e.logger.Debug("version conflict, retrying",
			slog.String("document_id", docID),
			slog.Int("attempt", attempt),
			slog.Int64("expected_version", current.Version),
		)
	}
}

// emit hands events to the notifier. The request context may already be cancelled once the
// save has committed, so delivery runs on a context that ignores cancellation.
func (e *Engine) emit(ctx context.Context, events []Event) {
	if len(events) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, ev := range events {
		e.notify(ctx, ev)
	}
}

func (e *Engine) notify(ctx context.Context, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.metrics.notifyErrs.Add(ctx, 1)
			e.logger.Error("notifier panicked",
				slog.String("event", string(ev.Type)),
				slog.String("document_id", ev.DocumentID),
				slog.Any("panic", r),
			)
		}
	}()

	if err := e.notifier.Notify(ctx, ev); err != nil {
		e.metrics.notifyErrs.Add(ctx, 1)
		e.logger.Warn("failed to deliver notification",
			slog.String("event", string(ev.Type)),
			slog.String("document_id", ev.DocumentID),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) load(ctx context.Context, docID string, includeDeleted bool) (*Document, error) {
	if strings.TrimSpace(docID) == "" {
		return nil, NewValidationError("document id is required")
	}
	doc, err := e.store.Load(ctx, docID)
	if errors.Is(err, ErrNotFound) {
		return nil, NewNotFoundError(docID)
	}
	if err != nil {
		return nil, WrapInternalError(err, "failed to load document")
	}
	if doc.IsDeleted() && !includeDeleted {
		return nil, NewNotFoundError(docID)
	}
	return doc, nil
}

// openError maps a cipher failure to a workflow error.
func openError(err error, docID string) error {
	var cryptoErr *crypto.CryptoError
	if errors.As(err, &cryptoErr) && cryptoErr.Code() == crypto.ErrCodeDecryption {
		return WrapDecryptionError(err, fmt.Sprintf("stored payload of document %s cannot be decrypted", docID))
	}
	return WrapInternalError(err, "failed to decrypt document")
}

func normalizeFileName(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return "", NewValidationError("file name is required")
	}
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return "", NewValidationError("file name is required")
	}
	if len(name) > maxFileNameLength {
		return "", NewValidationError(fmt.Sprintf("file name must be at most %d bytes", maxFileNameLength))
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return "", NewValidationError("file name contains control characters")
	}
	return name, nil
}

// normalizeRecipients validates recipients and returns them with trimmed names and lower case
// emails. The list must be non-empty and unique by email.
func normalizeRecipients(recipients []Recipient) ([]Recipient, error) {
	if len(recipients) == 0 {
		return nil, NewValidationError("at least one recipient is required")
	}
	if len(recipients) > maxRecipients {
		return nil, NewValidationError(fmt.Sprintf("a document may have at most %d recipients", maxRecipients))
	}

	out := make([]Recipient, 0, len(recipients))
	seen := make(map[string]bool, len(recipients))
	for i, r := range recipients {
		email := identity.NormalizeEmail(r.Email)
		if email == "" {
			return nil, NewValidationError(fmt.Sprintf("recipient %d: email is required", i))
		}
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			return nil, NewValidationError(fmt.Sprintf("recipient %d: %q is not a valid email address", i, r.Email))
		}
		if seen[email] {
			return nil, NewValidationError(fmt.Sprintf("recipient %q is listed more than once", email))
		}
		seen[email] = true
		out = append(out, Recipient{Name: strings.TrimSpace(r.Name), Email: email})
	}
	return out, nil
}

func sortSummaries(s []DocumentSummary) {
	slices.SortFunc(s, func(a, b DocumentSummary) int {
		if c := b.UploadedAt.Compare(a.UploadedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
