package cadence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/pulse/recurrence"
)

const tomlImport = `
format_version = "1.2.0"

[[cadence]]
id = "cad-safety"
workspace_id = "ws-1"
form_id = "daily-safety-check"
pattern = "daily"
time = "09:00"
timezone = "America/New_York"
days_of_week = [1, 2, 3, 4, 5]
start_date = "2025-01-06"
completion_window_hours = 2

[[cadence]]
id = "cad-audit"
workspace_id = "ws-1"
form_id = "quarterly-audit"
pattern = "quarterly"
time = "10:30"
timezone = "Europe/Amsterdam"
start_date = "2025-01-15"
end_date = "2026-12-31"
completion_window_hours = 168
active = false
`

const yamlImport = `
format_version: "1.0"
cadence:
  - id: cad-monthly
    workspace_id: ws-2
    form_id: monthly-inspection
    pattern: monthly
    time: "07:15"
    timezone: Asia/Tokyo
    start_date: "2025-01-31"
    completion_window_hours: 48
`

func TestParseTOML(t *testing.T) {
	cadences, err := Parse([]byte(tomlImport), FormatTOML)
	require.NoError(t, err)
	require.Len(t, cadences, 2)

	safety := cadences[0]
	assert.Equal(t, "cad-safety", safety.ID)
	assert.Equal(t, recurrence.Daily, safety.Schedule.Pattern)
	assert.Equal(t, civil.Time{Hour: 9}, safety.Schedule.Time)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, safety.Schedule.DaysOfWeek)
	assert.True(t, safety.IsActive)
	assert.Nil(t, safety.Schedule.EndDate)

	audit := cadences[1]
	assert.Equal(t, recurrence.Quarterly, audit.Schedule.Pattern)
	assert.False(t, audit.IsActive)
	require.NotNil(t, audit.Schedule.EndDate)
	assert.Equal(t, civil.Date{Year: 2026, Month: 12, Day: 31}, *audit.Schedule.EndDate)
}

func TestParseYAML(t *testing.T) {
	cadences, err := Parse([]byte(yamlImport), FormatYAML)
	require.NoError(t, err)
	require.Len(t, cadences, 1)
	assert.Equal(t, recurrence.Monthly, cadences[0].Schedule.Pattern)
	assert.Equal(t, civil.Time{Hour: 7, Minute: 15}, cadences[0].Schedule.Time)
	assert.Equal(t, 48, cadences[0].Schedule.CompletionWindowHours)
}

func TestParseYAMLRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("format_version: \"1.0\"\ncadence:\n  - pattern: daily\n    every: 3d\n"), FormatYAML)
	assert.Error(t, err)
}

func TestParseFormatVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantErr bool
	}{
		{"exact", `"1.0"`, false},
		{"minor bump", `"1.9.3"`, false},
		{"major bump", `"2.0"`, true},
		{"not a version", `"latest"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte("format_version = "+tt.version+"\n"), FormatTOML)
			if tt.wantErr {
				assert.True(t, errors.IsInvalidRequestError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := Parse([]byte("[[cadence]]\npattern = \"daily\"\n"), FormatTOML)
	assert.True(t, errors.IsInvalidRequestError(err), "missing format_version")
}

func TestParseBadEntry(t *testing.T) {
	doc := "format_version = \"1.0\"\n[[cadence]]\npattern = \"hourly\"\n"
	_, err := Parse([]byte(doc), FormatTOML)
	require.Error(t, err)
	assert.True(t, errors.Is(err, recurrence.ErrScheduleConfigInvalid))
	assert.Contains(t, err.Error(), "cadence #1")
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("x/cadences.YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = FormatFromPath("cadences.json")
	assert.True(t, errors.IsInvalidRequestError(err))
}

func TestImportFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	path := filepath.Join(t.TempDir(), "cadences.toml")
	require.NoError(t, os.WriteFile(path, []byte(tomlImport), 0644))

	created, err := ImportFile(ctx, s, path)
	require.NoError(t, err)
	assert.Len(t, created, 2)

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cad-safety"}, ids(active))

	// Re-import collides on IDs
	created, err = ImportFile(ctx, s, path)
	assert.True(t, errors.Is(err, errors.ErrConflict))
	assert.Empty(t, created)
}
