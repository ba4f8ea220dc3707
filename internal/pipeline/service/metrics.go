package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type metrics struct {
	validations metric.Int64Counter
	transitions metric.Int64Counter
	rejections  metric.Int64Counter
	staleRetry  metric.Int64Counter
	assignments metric.Int64Counter
	scoreErrors metric.Int64Counter
}

func newMetrics(meter metric.Meter) *metrics {
	fallback := noop.NewMeterProvider().Meter("pipeline")

	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			c, _ = fallback.Int64Counter(name)
		}
		return c
	}

	return &metrics{
		validations: counter("pipeline.validations", "Stage transitions evaluated, by outcome"),
		transitions: counter("pipeline.transitions.committed", "Stage moves committed"),
		rejections:  counter("pipeline.transitions.rejected", "Stage moves rejected by validation"),
		staleRetry:  counter("pipeline.transitions.stale", "Stage commits that lost a concurrent race"),
		assignments: counter("pipeline.assignments", "Leads and tasks assigned"),
		scoreErrors: counter("pipeline.workload.score_failures", "Agents excluded from ranking after a failed lookup"),
	}
}

func (m *metrics) validated(ctx context.Context, toStage string, valid bool) {
	m.validations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("to_stage", toStage),
		attribute.Bool("is_valid", valid),
	))
}

func (m *metrics) transition(ctx context.Context, counter metric.Int64Counter, toStage string) {
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("to_stage", toStage)))
}

func (m *metrics) assigned(ctx context.Context, kind string, manual bool) {
	m.assignments.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("manual", manual),
	))
}
