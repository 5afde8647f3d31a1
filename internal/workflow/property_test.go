package workflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/information-sharing-networks/docsign/internal/workflow"
)

// TestDelayProperties checks that n delays issued at arbitrary times before the deadline always
// land on E + n*7d.
func TestDelayProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("delays compound from the prior deadline", prop.ForAll(
		func(delays int, stepMinutes int) bool {
			h := newHarness(t)
			ctx := context.Background()
			id := h.upload(t, "payload")

			for range delays {
				h.clock.Advance(time.Duration(stepMinutes) * time.Minute)
				if _, err := h.engine.Delay(ctx, alice, id); err != nil {
					return false
				}
			}

			doc := h.load(t, id)
			want := startTime.Add(week).Add(time.Duration(delays) * week)
			return doc.ExpiryAt.Equal(want) && doc.State == workflow.StateDelayed
		},
		gen.IntRange(1, 10),
		gen.IntRange(0, 24*60),
	))

	properties.Property("expiry boundary is exclusive", prop.ForAll(
		func(offsetSeconds int) bool {
			h := newHarness(t)
			id := h.upload(t, "payload")
			expiry := startTime.Add(week)

			h.clock.Set(expiry.Add(time.Duration(offsetSeconds) * time.Second))
			_, err := h.engine.GetDocument(context.Background(), bob, id)
			if offsetSeconds <= 0 {
				return err == nil
			}
			return workflow.HasCode(err, workflow.ErrCodeExpired)
		},
		gen.IntRange(-3600, 3600),
	))

	properties.TestingRun(t)
}
