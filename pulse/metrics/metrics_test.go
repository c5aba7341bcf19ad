package metrics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/cadence/pulse/cadence"
	"github.com/teranos/cadence/pulse/instance"
)

var base = time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)

func inst(cadenceID string, status instance.Status, scheduled time.Time, completedAfter *time.Duration) *instance.Instance {
	i := &instance.Instance{
		ID:           cadenceID + "-" + scheduled.Format("0102"),
		CadenceID:    cadenceID,
		FormID:       "form-" + cadenceID,
		ScheduledFor: scheduled,
		DueAt:        scheduled.Add(2 * time.Hour),
		Status:       status,
	}
	if completedAfter != nil {
		t := scheduled.Add(*completedAfter)
		i.CompletedAt = &t
	}
	return i
}

func dur(d time.Duration) *time.Duration { return &d }

func TestComputeEmpty(t *testing.T) {
	m := Compute(nil, nil, nil)

	assert.Equal(t, 0, m.Total)
	assert.Equal(t, float64(0), m.CompletionRate)
	assert.Empty(t, m.ByCadence)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"completion_rate":0`)
}

func TestComputeCounts(t *testing.T) {
	instances := []*instance.Instance{
		inst("cad-a", instance.StatusCompleted, base, dur(30*time.Minute)),
		inst("cad-a", instance.StatusCompleted, base.Add(24*time.Hour), dur(90*time.Minute)),
		inst("cad-a", instance.StatusCompleted, base.Add(48*time.Hour), dur(3*time.Hour)),
		inst("cad-a", instance.StatusMissed, base.Add(72*time.Hour), nil),
		inst("cad-b", instance.StatusInProgress, base, nil),
		inst("cad-b", instance.StatusPending, base.Add(24*time.Hour), nil),
		inst("cad-b", instance.StatusReady, base.Add(48*time.Hour), nil),
		inst("cad-b", instance.StatusSkipped, base.Add(72*time.Hour), nil),
	}
	subs := []*Submission{
		{ID: "sub-1", FormID: "form-x", SubmittedAt: base.Add(time.Hour)},
		{ID: "sub-2", FormID: "form-x", SubmittedAt: base.Add(2 * time.Hour)},
	}

	m := Compute(instances, subs, nil)

	assert.Equal(t, 10, m.Total)
	assert.Equal(t, 5, m.Completed)
	assert.Equal(t, 1, m.Missed)
	assert.Equal(t, 1, m.InProgress)
	assert.Equal(t, 1, m.Pending)
	assert.Equal(t, 1, m.Ready)
	assert.Equal(t, 1, m.Skipped)
	assert.Equal(t, 1, m.Late, "only the three-hour completion is past due")
	assert.Equal(t, 8, m.Recurring)
	assert.Equal(t, 2, m.AdHoc)
	assert.InDelta(t, 50.0, m.CompletionRate, 1e-9)

	require.Len(t, m.ByCadence, 2)
	a, b := m.ByCadence[0], m.ByCadence[1]
	assert.Equal(t, "cad-a", a.CadenceID)
	assert.Equal(t, 4, a.Total)
	assert.Equal(t, 3, a.Completed)
	assert.InDelta(t, 75.0, a.CompletionRate, 1e-9)
	require.NotNil(t, a.AvgCompletionTimeMinutes)
	assert.InDelta(t, 100.0, *a.AvgCompletionTimeMinutes, 1e-9)

	assert.Equal(t, "cad-b", b.CadenceID)
	assert.Equal(t, 4, b.Total)
	assert.Equal(t, 0, b.Completed)
	assert.Nil(t, b.AvgCompletionTimeMinutes)
}

func TestComputeSkipsCompletedWithoutTimestamp(t *testing.T) {
	ragged := inst("cad-a", instance.StatusCompleted, base, nil)

	m := Compute([]*instance.Instance{ragged, nil}, []*Submission{nil}, nil)

	assert.Equal(t, 1, m.Total)
	assert.Equal(t, 1, m.Completed)
	require.Len(t, m.ByCadence, 1)
	assert.Nil(t, m.ByCadence[0].AvgCompletionTimeMinutes)
}

func TestComputeIncludesIdleCadences(t *testing.T) {
	cadences := []*cadence.Cadence{
		{ID: "cad-z", Name: "Closing checklist", FormID: "form-z"},
		{ID: "cad-a", Name: "Opening checklist", FormID: "form-a"},
	}
	instances := []*instance.Instance{
		inst("cad-a", instance.StatusCompleted, base, dur(10*time.Minute)),
	}

	m := Compute(instances, nil, cadences)

	require.Len(t, m.ByCadence, 2)
	assert.Equal(t, "cad-a", m.ByCadence[0].CadenceID)
	assert.Equal(t, "Opening checklist", m.ByCadence[0].Name)
	assert.Equal(t, "cad-z", m.ByCadence[1].CadenceID)
	assert.Equal(t, 0, m.ByCadence[1].Total)
	assert.Equal(t, float64(0), m.ByCadence[1].CompletionRate)
}

func TestAdHocItemsCountOverallOnly(t *testing.T) {
	m := Compute(nil, []*Submission{{ID: "sub-1", SubmittedAt: base}}, nil)

	assert.Equal(t, 1, m.Total)
	assert.Equal(t, 1, m.Completed)
	assert.Equal(t, 0, m.Late)
	assert.InDelta(t, 100.0, m.CompletionRate, 1e-9)
	assert.Empty(t, m.ByCadence)
}

func TestNormalize(t *testing.T) {
	i := inst("cad-a", instance.StatusReady, base, nil)
	s := &Submission{ID: "sub-1", SubmittedAt: base.Add(time.Hour)}

	items := Normalize([]*instance.Instance{i}, []*Submission{s})
	require.Len(t, items, 2)

	assert.Equal(t, KindRecurring, items[0].Kind)
	assert.Equal(t, "cad-a", items[0].CadenceID())
	assert.Equal(t, instance.StatusReady, items[0].Status())
	_, ok := items[0].CompletedAt()
	assert.False(t, ok)

	assert.Equal(t, KindAdHoc, items[1].Kind)
	assert.Empty(t, items[1].CadenceID())
	assert.Equal(t, instance.StatusCompleted, items[1].Status())
	assert.Equal(t, s.SubmittedAt, items[1].ScheduledFor())
	done, ok := items[1].CompletedAt()
	assert.True(t, ok)
	assert.Equal(t, s.SubmittedAt, done)
}

func TestMetricsJSONShape(t *testing.T) {
	m := Compute([]*instance.Instance{
		inst("cad-a", instance.StatusCompleted, base, dur(15*time.Minute)),
		inst("cad-b", instance.StatusMissed, base, nil),
	}, nil, nil)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.EqualValues(t, 2, decoded["total"])
	assert.EqualValues(t, 50, decoded["completion_rate"])

	rows := decoded["by_cadence"].([]any)
	require.Len(t, rows, 2)
	first := rows[0].(map[string]any)
	assert.EqualValues(t, 15, first["avg_completion_time_minutes"])
	second := rows[1].(map[string]any)
	_, present := second["avg_completion_time_minutes"]
	assert.False(t, present, "omitted rather than zero")
}
