package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/information-sharing-networks/docsign/internal/store/memory"
	"github.com/information-sharing-networks/docsign/internal/store/storetest"
)

func TestPrintStatus(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	doc := storetest.NewDocument("owner-1", "a@x.com", "b@x.com")
	require.NoError(t, s.Create(ctx, doc))

	t.Run("pending", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, printStatus(ctx, &out, s, doc.ID, doc.UploadedAt.Add(time.Hour)))
		assert.Contains(t, out.String(), "pending_signature")
		assert.Contains(t, out.String(), "a@x.com, b@x.com")
		assert.NotContains(t, out.String(), doc.EncryptionKey)
	})

	t.Run("expired", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, printStatus(ctx, &out, s, doc.ID, doc.ExpiryAt.Add(time.Second)))
		assert.Regexp(t, `status\s+expired`, out.String())
	})

	t.Run("missing", func(t *testing.T) {
		var out bytes.Buffer
		err := printStatus(ctx, &out, s, "missing", time.Now())
		assert.ErrorContains(t, err, "not found")
	})
}
