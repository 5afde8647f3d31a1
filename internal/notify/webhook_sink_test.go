package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/information-sharing-networks/docsign/internal/workflow"
)

func TestWebhookSink(t *testing.T) {
	var (
		gotKey  string
		gotType string
		gotMsg  Message
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		gotType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotMsg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	msg, _, err := Compose(testEvent(workflow.EventAccepted))
	require.NoError(t, err)

	sink := NewWebhookSink(server.URL, server.Client())
	require.NoError(t, sink.Send(context.Background(), msg))

	assert.Equal(t, msg.IdempotencyKey, gotKey)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, msg.Subject, gotMsg.Subject)
	assert.Equal(t, "doc-1", gotMsg.Event.DocumentID)
	assert.Equal(t, workflow.EventAccepted, gotMsg.Event.Type)
}

func TestWebhookSinkErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "mailbox full", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	msg, _, err := Compose(testEvent(workflow.EventAccepted))
	require.NoError(t, err)

	err = NewWebhookSink(server.URL, nil).Send(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "mailbox full")
}
