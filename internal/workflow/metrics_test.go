package workflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/information-sharing-networks/docsign/internal/workflow"
)

func TestEngineRecordsOperationMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	h := newHarness(t, func(o *workflow.Options) { o.MeterProvider = provider })
	ctx := context.Background()

	id := h.upload(t, "payload")
	_, err := h.engine.Accept(ctx, alice, id)
	require.NoError(t, err)
	_, err = h.engine.Accept(ctx, alice, id)
	require.Error(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "docsign.workflow.operations" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "unexpected data type %T", m.Data)
			for _, dp := range sum.DataPoints {
				op, _ := dp.Attributes.Value("operation")
				result, _ := dp.Attributes.Value("result")
				counts[op.AsString()+"/"+result.AsString()] += dp.Value
			}
		}
	}

	assert.Equal(t, int64(1), counts["upload/ok"])
	assert.Equal(t, int64(1), counts["accept/ok"])
	assert.Equal(t, int64(1), counts["accept/invalid_transition"])
}
