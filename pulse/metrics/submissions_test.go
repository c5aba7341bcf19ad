package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubmissions(t *testing.T) {
	subs, err := ParseSubmissions([]byte(`
submissions:
  - id: sub-1
    workspace_id: ws-1
    form_id: form-incident
    submitted_at: 2025-03-10T09:05:00-04:00
  - id: sub-2
    form_id: form-incident
    submitted_at: 2025-03-11T14:00:00Z
`))
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, time.Date(2025, 3, 10, 13, 5, 0, 0, time.UTC), subs[0].SubmittedAt)
	assert.Equal(t, "ws-1", subs[0].WorkspaceID)
}

func TestParseSubmissionsErrors(t *testing.T) {
	_, err := ParseSubmissions([]byte("submissions:\n  - id: sub-1\n"))
	assert.ErrorContains(t, err, "submitted_at is required")

	_, err = ParseSubmissions([]byte("submissions:\n  - id: sub-1\n    submited_at: 2025-03-10T09:05:00Z\n"))
	assert.Error(t, err, "unknown fields are rejected")

	subs, err := ParseSubmissions(nil)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestLoadSubmissionsAndWithin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adhoc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
submissions:
  - {id: a, submitted_at: 2025-03-01T00:00:00Z}
  - {id: b, submitted_at: 2025-03-15T00:00:00Z}
  - {id: c, submitted_at: 2025-04-01T00:00:00Z}
`), 0o644))

	subs, err := LoadSubmissions(path)
	require.NoError(t, err)
	require.Len(t, subs, 3)

	march := Within(subs,
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, march, 2)
	assert.Equal(t, "a", march[0].ID)
	assert.Equal(t, "b", march[1].ID)

	_, err = LoadSubmissions(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
