package cadence

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/cadence/errors"
	cadencetest "github.com/teranos/cadence/internal/testing"
	"github.com/teranos/cadence/pulse/recurrence"
)

func newCadence() *Cadence {
	return &Cadence{
		WorkspaceID: "ws-1",
		FormID:      "form-safety",
		Name:        "Morning safety check",
		IsActive:    true,
		Schedule: recurrence.Schedule{
			Pattern:               recurrence.Daily,
			Time:                  civil.Time{Hour: 9},
			Timezone:              "America/New_York",
			DaysOfWeek:            []int{1, 3, 5},
			StartDate:             civil.Date{Year: 2025, Month: 1, Day: 6},
			CompletionWindowHours: 2,
		},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(cadencetest.CreateTestDB(t))
	s.now = func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := newCadence()
	end := civil.Date{Year: 2025, Month: 12, Day: 31}
	c.Schedule.EndDate = &end
	require.NoError(t, s.Create(ctx, c))
	require.NotEmpty(t, c.ID, "ID is assigned")

	got, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestStoreCreateNormalizesTimezone(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := newCadence()
	c.Schedule.Timezone = "EST"
	require.NoError(t, s.Create(ctx, c))

	got, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", got.Schedule.Timezone)
}

func TestStoreCreateRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := newCadence()
	c.Schedule.DaysOfWeek = nil
	err := s.Create(ctx, c)
	assert.True(t, errors.Is(err, recurrence.ErrScheduleConfigInvalid))

	c = newCadence()
	c.FormID = ""
	err = s.Create(ctx, c)
	assert.True(t, errors.IsInvalidRequestError(err))

	c = newCadence()
	c.Schedule.Timezone = "Nowhere/Special"
	err = s.Create(ctx, c)
	assert.True(t, errors.Is(err, recurrence.ErrScheduleConfigInvalid))
}

func TestStoreCreateDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := newCadence()
	c.ID = "cad-1"
	require.NoError(t, s.Create(ctx, c))

	dup := newCadence()
	dup.ID = "cad-1"
	err := s.Create(ctx, dup)
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestStoreGetMissing(t *testing.T) {
	_, err := newTestStore(t).Get(context.Background(), "nope")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestStoreListAndPause(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, spec := range []struct{ id, ws string }{{"a", "ws-1"}, {"b", "ws-2"}, {"c", "ws-1"}} {
		c := newCadence()
		c.ID, c.WorkspaceID = spec.id, spec.ws
		require.NoError(t, s.Create(ctx, c))
	}

	require.NoError(t, s.SetActive(ctx, "b", false))

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(active))

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(all))

	ws1, err := s.List(ctx, "ws-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(ws1))

	require.NoError(t, s.SetActive(ctx, "b", true))
	active, err = s.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 3)

	assert.True(t, errors.IsNotFoundError(s.SetActive(ctx, "zzz", true)))
}

func TestExpandInactiveCadence(t *testing.T) {
	c := newCadence()
	c.IsActive = false

	got, err := Expand(c, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExpandActiveCadence(t *testing.T) {
	c := newCadence()

	// Week of Monday 2025-03-10
	got, err := Expand(c, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func ids(cadences []*Cadence) []string {
	out := make([]string, len(cadences))
	for i, c := range cadences {
		out[i] = c.ID
	}
	return out
}
