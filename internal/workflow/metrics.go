package workflow

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/information-sharing-networks/docsign/internal/workflow"

type engineMetrics struct {
	operations metric.Int64Counter
	conflicts  metric.Int64Counter
	notifyErrs metric.Int64Counter
}

func newEngineMetrics(provider metric.MeterProvider) (*engineMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	var (
		m   engineMetrics
		err error
	)
	m.operations, err = meter.Int64Counter("docsign.workflow.operations",
		metric.WithDescription("Workflow operations by operation and result code"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}
	m.conflicts, err = meter.Int64Counter("docsign.workflow.version_conflicts",
		metric.WithDescription("Optimistic version conflicts retried by the engine"),
		metric.WithUnit("{conflict}"),
	)
	if err != nil {
		return nil, err
	}
	m.notifyErrs, err = meter.Int64Counter("docsign.workflow.notify_errors",
		metric.WithDescription("Events the notifier failed to accept"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// recordOperation counts an operation outcome; result is "ok" or the error code.
func (m *engineMetrics) recordOperation(ctx context.Context, op string, err error) {
	result := "ok"
	if err != nil {
		result = string(CodeOf(err))
	}
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("result", result),
	))
}
