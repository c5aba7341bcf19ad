package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), DefaultDirPermissions))
	require.NoError(t, os.WriteFile(path, []byte(content), DefaultFilePermissions))
}

func settingsByKey(t *testing.T) map[string]SettingInfo {
	t.Helper()
	settings, err := GetConfigIntrospection()
	require.NoError(t, err)
	byKey := make(map[string]SettingInfo, len(settings))
	for _, s := range settings {
		byKey[s.Key] = s
	}
	return byKey
}

// TestSourceTrackingIntegration runs the full load -> introspection flow
// against real files in a temporary home and project directory.
func TestSourceTrackingIntegration(t *testing.T) {
	t.Run("project config overrides user config", func(t *testing.T) {
		Reset()
		defer Reset()

		homeDir := t.TempDir()
		projectDir := t.TempDir()
		t.Setenv("HOME", homeDir)
		t.Chdir(projectDir)

		userFile := filepath.Join(homeDir, ".cadence", ConfigFileName)
		writeFile(t, userFile, `
[pulse]
lookahead_hours = 48
up_next_window_hours = 12
`)
		projectFile := filepath.Join(projectDir, ConfigFileName)
		writeFile(t, projectFile, `
[pulse]
lookahead_hours = 72
`)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 72, cfg.Pulse.LookaheadHours)
		assert.Equal(t, 12, cfg.Pulse.UpNextWindowHours)

		byKey := settingsByKey(t)

		lookahead := byKey["pulse.lookahead_hours"]
		assert.Equal(t, SourceProject, lookahead.Source)
		assert.Equal(t, projectFile, lookahead.SourcePath)

		window := byKey["pulse.up_next_window_hours"]
		assert.Equal(t, SourceUser, window.Source)
		assert.Equal(t, userFile, window.SourcePath)
	})

	t.Run("environment overrides files", func(t *testing.T) {
		Reset()
		defer Reset()

		homeDir := t.TempDir()
		t.Setenv("HOME", homeDir)
		t.Chdir(homeDir)
		writeFile(t, filepath.Join(homeDir, ".cadence", ConfigFileName), `
[database]
path = "file.db"
`)
		t.Setenv("CADENCE_DATABASE_PATH", "env.db")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "env.db", cfg.Database.Path)

		dbPath := settingsByKey(t)["database.path"]
		assert.Equal(t, SourceEnvironment, dbPath.Source)
		assert.Equal(t, "CADENCE_DATABASE_PATH", dbPath.SourcePath)
		assert.Equal(t, "env.db", dbPath.Value)
	})

	t.Run("invalid merged value fails load", func(t *testing.T) {
		Reset()
		defer Reset()

		homeDir := t.TempDir()
		t.Setenv("HOME", homeDir)
		t.Chdir(homeDir)
		writeFile(t, filepath.Join(homeDir, ".cadence", ConfigFileName), `
[pulse]
trigger_schedule = "every now and then"
`)

		_, err := Load()
		require.Error(t, err)
	})
}

func TestSourceTrackingDefaults(t *testing.T) {
	Reset()
	defer Reset()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)

	_, err := Load()
	require.NoError(t, err)

	trigger := settingsByKey(t)["pulse.trigger_schedule"]
	assert.Equal(t, SourceDefault, trigger.Source)
	assert.Equal(t, "built-in default", trigger.SourcePath)
	assert.Equal(t, DefaultTriggerSchedule, trigger.Value)
}
