package telemetry

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/teranos/cadence/errors"
)

// ScopeName is the instrumentation scope for every cadence instrument.
const ScopeName = "github.com/teranos/cadence/pulse"

// Provider is an in-process meter provider read on demand. The CLI prints a
// snapshot at the end of a run; long-running deployments can swap in an
// exporting reader.
type Provider struct {
	reader *sdkmetric.ManualReader
	mp     *sdkmetric.MeterProvider
	*Instruments
}

// NewProvider builds a manual-reader provider with instruments registered.
func NewProvider() (*Provider, error) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	inst, err := NewInstruments(mp.Meter(ScopeName))
	if err != nil {
		return nil, errors.Wrap(err, "create instruments")
	}
	return &Provider{reader: reader, mp: mp, Instruments: inst}, nil
}

// Sample is one collected data point, flattened for display.
type Sample struct {
	Name       string
	Attributes string
	Value      float64
	Count      uint64
}

// Snapshot collects current values. Sums report Value; histograms report
// Count and the Value as their sum.
func (p *Provider) Snapshot(ctx context.Context) ([]Sample, error) {
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return nil, errors.Wrap(err, "collect metrics")
	}

	var out []Sample
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out = append(out, Sample{Name: m.Name, Attributes: dp.Attributes.Encoded(attrEncoder), Value: float64(dp.Value)})
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					out = append(out, Sample{Name: m.Name, Attributes: dp.Attributes.Encoded(attrEncoder), Value: dp.Sum, Count: dp.Count})
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Attributes < out[j].Attributes
	})
	return out, nil
}

// Shutdown releases the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.mp.Shutdown(ctx)
}

var attrEncoder = attribute.DefaultEncoder()
