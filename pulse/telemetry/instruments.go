// Package telemetry records scheduler activity as OpenTelemetry metrics.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/teranos/cadence/pulse/instance"
)

// Instrument names.
const (
	MetricMaterialized   = "cadence.instances.materialized"
	MetricExisting       = "cadence.instances.existing"
	MetricTransitions    = "cadence.instances.transitions"
	MetricAdvanceFailed  = "cadence.advance.failures"
	MetricRunDuration    = "cadence.run.duration"
	MetricCadenceFailure = "cadence.run.cadence_failures"
)

// Instruments translates lifecycle events into counters and histograms.
// It satisfies instance.Observer.
type Instruments struct {
	materialized    metric.Int64Counter
	existing        metric.Int64Counter
	transitions     metric.Int64Counter
	advanceFailures metric.Int64Counter
	cadenceFailures metric.Int64Counter
	runDuration     metric.Float64Histogram
}

var _ instance.Observer = (*Instruments)(nil)

// NewInstruments creates the instruments on meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	materialized, err := meter.Int64Counter(MetricMaterialized,
		metric.WithDescription("Instances created by materialization"),
	)
	if err != nil {
		return nil, err
	}

	existing, err := meter.Int64Counter(MetricExisting,
		metric.WithDescription("Occurrences that already had an instance"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(MetricTransitions,
		metric.WithDescription("Instance status transitions"),
	)
	if err != nil {
		return nil, err
	}

	advanceFailures, err := meter.Int64Counter(MetricAdvanceFailed,
		metric.WithDescription("Rows that failed to advance in a clock pass"),
	)
	if err != nil {
		return nil, err
	}

	cadenceFailures, err := meter.Int64Counter(MetricCadenceFailure,
		metric.WithDescription("Cadences that failed to materialize in a driver run"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(MetricRunDuration,
		metric.WithDescription("Duration of a driver run in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Instruments{
		materialized:    materialized,
		existing:        existing,
		transitions:     transitions,
		advanceFailures: advanceFailures,
		cadenceFailures: cadenceFailures,
		runDuration:     runDuration,
	}, nil
}

// Materialized records the outcome of one materialize call.
func (i *Instruments) Materialized(ctx context.Context, cadenceID string, created, existing int) {
	attrs := metric.WithAttributes(attribute.String("cadence_id", cadenceID))
	i.materialized.Add(ctx, int64(created), attrs)
	i.existing.Add(ctx, int64(existing), attrs)
}

// Transitioned counts one status change.
func (i *Instruments) Transitioned(ctx context.Context, from, to instance.Status, trigger instance.Trigger) {
	i.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
		attribute.String("trigger", string(trigger)),
	))
}

// AdvanceFailed counts rows left behind by a clock pass.
func (i *Instruments) AdvanceFailed(ctx context.Context, failures int) {
	i.advanceFailures.Add(ctx, int64(failures))
}

// RunFinished records a driver run.
func (i *Instruments) RunFinished(ctx context.Context, status string, elapsed time.Duration, failedCadences int) {
	i.runDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("status", status)))
	if failedCadences > 0 {
		i.cadenceFailures.Add(ctx, int64(failedCadences))
	}
}
