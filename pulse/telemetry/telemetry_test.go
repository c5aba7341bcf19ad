package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/cadence/pulse/instance"
)

func find(samples []Sample, name, attrs string) *Sample {
	for i := range samples {
		if samples[i].Name == name && samples[i].Attributes == attrs {
			return &samples[i]
		}
	}
	return nil
}

func TestProviderRecordsLifecycle(t *testing.T) {
	ctx := context.Background()
	p, err := NewProvider()
	require.NoError(t, err)
	defer p.Shutdown(ctx)

	p.Materialized(ctx, "cad-a", 3, 1)
	p.Materialized(ctx, "cad-a", 0, 4)
	p.Transitioned(ctx, instance.StatusReady, instance.StatusMissed, instance.TriggerClock)
	p.Transitioned(ctx, instance.StatusReady, instance.StatusMissed, instance.TriggerClock)
	p.Transitioned(ctx, instance.StatusReady, instance.StatusCompleted, instance.TriggerUser)
	p.AdvanceFailed(ctx, 2)
	p.RunFinished(ctx, "completed", 1500*time.Millisecond, 1)

	samples, err := p.Snapshot(ctx)
	require.NoError(t, err)

	created := find(samples, MetricMaterialized, "cadence_id=cad-a")
	require.NotNil(t, created)
	assert.Equal(t, float64(3), created.Value)

	existing := find(samples, MetricExisting, "cadence_id=cad-a")
	require.NotNil(t, existing)
	assert.Equal(t, float64(5), existing.Value)

	missed := find(samples, MetricTransitions, "from=ready,to=missed,trigger=clock")
	require.NotNil(t, missed)
	assert.Equal(t, float64(2), missed.Value)

	completed := find(samples, MetricTransitions, "from=ready,to=completed,trigger=user")
	require.NotNil(t, completed)
	assert.Equal(t, float64(1), completed.Value)

	failures := find(samples, MetricAdvanceFailed, "")
	require.NotNil(t, failures)
	assert.Equal(t, float64(2), failures.Value)

	run := find(samples, MetricRunDuration, "status=completed")
	require.NotNil(t, run)
	assert.Equal(t, uint64(1), run.Count)
	assert.InDelta(t, 1.5, run.Value, 1e-9)

	cadFail := find(samples, MetricCadenceFailure, "")
	require.NotNil(t, cadFail)
	assert.Equal(t, float64(1), cadFail.Value)
}

func TestInstrumentsDriveManager(t *testing.T) {
	ctx := context.Background()
	p, err := NewProvider()
	require.NoError(t, err)

	store := instance.NewMemoryStore()
	mgr := instance.NewManager(store, instance.WithObserver(p))

	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	_, err = store.InsertIfAbsent(ctx, &instance.Instance{
		ID:           "inst-1",
		CadenceID:    "cad-a",
		ScheduledFor: now.Add(-4 * time.Hour),
		DueAt:        now.Add(-2 * time.Hour),
		Status:       instance.StatusReady,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)

	_, err = mgr.AdvanceClock(ctx, now)
	require.NoError(t, err)

	samples, err := p.Snapshot(ctx)
	require.NoError(t, err)
	missed := find(samples, MetricTransitions, "from=ready,to=missed,trigger=clock")
	require.NotNil(t, missed)
	assert.Equal(t, float64(1), missed.Value)
}
