package workflow_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/information-sharing-networks/docsign/internal/identity"
	"github.com/information-sharing-networks/docsign/internal/store/memory"
	"github.com/information-sharing-networks/docsign/internal/workflow"
)

var (
	owner = identity.Identity{ID: "owner-1", Email: "owner@example.com"}
	alice = identity.Identity{ID: "user-a", Email: "a@x.com"}
	bob   = identity.Identity{ID: "user-b", Email: "b@x.com"}
	eve   = identity.Identity{ID: "user-e", Email: "eve@example.com"}

	startTime = time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	week      = 7 * 24 * time.Hour
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingNotifier keeps every event it is given.
type recordingNotifier struct {
	mu     sync.Mutex
	events []workflow.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev workflow.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) Events() []workflow.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]workflow.Event(nil), n.events...)
}

func (n *recordingNotifier) OfType(t workflow.EventType) []workflow.Event {
	var out []workflow.Event
	for _, ev := range n.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type harness struct {
	engine   *workflow.Engine
	store    *memory.Store
	clock    *fakeClock
	notifier *recordingNotifier
}

func newHarness(t *testing.T, mutate ...func(*workflow.Options)) *harness {
	t.Helper()
	h := &harness{
		store:    memory.New(),
		clock:    newFakeClock(startTime),
		notifier: &recordingNotifier{},
	}
	opts := workflow.Options{
		Store:    h.store,
		Notifier: h.notifier,
		Clock:    h.clock,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:   workflow.DefaultConfig(),
	}
	for _, m := range mutate {
		m(&opts)
	}
	if s, ok := opts.Store.(*memory.Store); ok {
		h.store = s
	}

	engine, err := workflow.NewEngine(opts)
	require.NoError(t, err)
	h.engine = engine
	return h
}

// upload stores a document for alice and bob.
func (h *harness) upload(t *testing.T, content string) string {
	t.Helper()
	id, err := h.engine.UploadDocument(context.Background(), owner, "contract.pdf", []byte(content), []workflow.Recipient{
		{Name: "Alice", Email: "a@x.com"},
		{Name: "Bob", Email: "b@x.com"},
	})
	require.NoError(t, err)
	return id
}

func (h *harness) load(t *testing.T, id string) *workflow.Document {
	t.Helper()
	doc, err := h.store.Load(context.Background(), id)
	require.NoError(t, err)
	return doc
}

func (h *harness) placeSignatureFields(t *testing.T, id string) {
	t.Helper()
	_, err := h.engine.PlaceFields(context.Background(), owner, id, []workflow.InputField{
		{Type: "signature", OwnerRecipient: "a@x.com", Page: 0, X: 100, Y: 200},
		{Type: "signature", OwnerRecipient: "b@x.com", Page: 0, X: 100, Y: 400},
	}, workflow.PlaceAppend)
	require.NoError(t, err)
}

func requireCode(t *testing.T, err error, code workflow.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, workflow.HasCode(err, code), "error = %v (code %s), want code %s", err, workflow.CodeOf(err), code)
}
