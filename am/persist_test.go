package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfigWritesLoadableDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ConfigFileName)

	require.NoError(t, InitConfig(path, false))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestInitConfigRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, InitConfig(path, false))

	err := InitConfig(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, InitConfig(path, true))
	_, err = os.Stat(path + ".back1")
	assert.NoError(t, err, "forced init keeps a backup")
}

func TestWriteConfigRotatesBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	for hours := 1; hours <= 5; hours++ {
		cfg := DefaultConfig()
		cfg.Pulse.LookaheadHours = hours
		require.NoError(t, WriteConfig(path, cfg))
	}

	current, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5, current.Pulse.LookaheadHours)

	for i, want := range []int{4, 3, 2} {
		backup, err := LoadFromFile(path + backupSuffixes[i])
		require.NoError(t, err)
		assert.Equal(t, want, backup.Pulse.LookaheadHours)
	}
}

func TestWriteConfigRejectsInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pulse.TriggerSchedule = "whenever"

	err := WriteConfig(filepath.Join(t.TempDir(), ConfigFileName), cfg)
	assert.Error(t, err)
}
