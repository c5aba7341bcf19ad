package am

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Isolated viper instance without loading user/system config
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	if err != nil {
		t.Fatalf("LoadWithViper() failed: %v", err)
	}

	if cfg.Database.Path != DefaultDatabasePath {
		t.Errorf("expected default database path %q, got %q", DefaultDatabasePath, cfg.Database.Path)
	}
	if cfg.Pulse.LookaheadHours != 168 {
		t.Errorf("expected default lookahead 168h, got %d", cfg.Pulse.LookaheadHours)
	}
	if cfg.Pulse.TriggerSchedule != "*/5 * * * *" {
		t.Errorf("expected default trigger schedule, got %q", cfg.Pulse.TriggerSchedule)
	}
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "zero values are valid", config: Config{}},
		{name: "negative lookahead is invalid", config: Config{Pulse: PulseConfig{LookaheadHours: -1}}, wantErr: true},
		{name: "zero throttle is valid (unthrottled)", config: Config{Pulse: PulseConfig{MaterializePerSecond: 0}}},
		{name: "negative throttle is invalid", config: Config{Pulse: PulseConfig{MaterializePerSecond: -0.5}}, wantErr: true},
		{name: "negative up-next window is invalid", config: Config{Pulse: PulseConfig{UpNextWindowHours: -2}}, wantErr: true},
		{name: "descriptor trigger is valid", config: Config{Pulse: PulseConfig{TriggerSchedule: "@every 5m"}}},
		{name: "six-field trigger is invalid", config: Config{Pulse: PulseConfig{TriggerSchedule: "0 */5 * * * *"}}, wantErr: true},
		{name: "garbage trigger is invalid", config: Config{Pulse: PulseConfig{TriggerSchedule: "every so often"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigGettersFallBackOnZero(t *testing.T) {
	var cfg Config
	assert.Equal(t, DefaultDatabasePath, cfg.GetDatabasePath())
	assert.Equal(t, 168*time.Hour, cfg.Lookahead())
	assert.Equal(t, 24*time.Hour, cfg.UpNextWindow())
	assert.Equal(t, DefaultTriggerSchedule, cfg.GetTriggerSchedule())

	cfg.Pulse.LookaheadHours = 48
	assert.Equal(t, 48*time.Hour, cfg.Lookahead())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := `
[database]
path = "/var/lib/cadence/cadence.db"

[pulse]
lookahead_hours = 72
trigger_schedule = "@every 10m"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/cadence/cadence.db", cfg.Database.Path)
	assert.Equal(t, 72, cfg.Pulse.LookaheadHours)
	assert.Equal(t, "@every 10m", cfg.Pulse.TriggerSchedule)
	// Untouched keys keep defaults
	assert.Equal(t, DefaultUpNextWindowHours, cfg.Pulse.UpNextWindowHours)
}

func TestLoadFromFile_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("[pulse]\nlookahead_hours = -5\n"), 0644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookahead_hours")
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestMergeConfigFilesTracksSources(t *testing.T) {
	dir := t.TempDir()
	system := filepath.Join(dir, "system.toml")
	project := filepath.Join(dir, "project.toml")
	require.NoError(t, os.WriteFile(system, []byte("[pulse]\nlookahead_hours = 24\nup_next_window_hours = 6\n"), 0644))
	require.NoError(t, os.WriteFile(project, []byte("[pulse]\nlookahead_hours = 96\n"), 0644))

	Reset()
	t.Cleanup(Reset)

	v := viper.New()
	SetDefaults(v)
	mergeConfigFiles(v, []sourcePath{
		{Source: SourceSystem, Path: system},
		{Source: SourceUser, Path: filepath.Join(dir, "missing.toml")},
		{Source: SourceProject, Path: project},
	})

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)
	assert.Equal(t, 96, cfg.Pulse.LookaheadHours, "project file wins over system")
	assert.Equal(t, 6, cfg.Pulse.UpNextWindowHours)

	settings := introspect(v, ConfigSources)
	byKey := map[string]SettingInfo{}
	for _, s := range settings {
		byKey[s.Key] = s
	}
	assert.Equal(t, SourceProject, byKey["pulse.lookahead_hours"].Source)
	assert.Equal(t, SourceSystem, byKey["pulse.up_next_window_hours"].Source)
	assert.Equal(t, SourceDefault, byKey["database.path"].Source)
}

func TestEnvironmentOutranksConfigFiles(t *testing.T) {
	dir := t.TempDir()
	user := filepath.Join(dir, "user.toml")
	require.NoError(t, os.WriteFile(user, []byte("[database]\npath = \"file.db\"\n[pulse]\nlookahead_hours = 48\n"), 0644))
	t.Setenv("CADENCE_DATABASE_PATH", "env.db")
	t.Setenv("CADENCE_PULSE_LOOKAHEAD_HOURS", "12")

	Reset()
	t.Cleanup(Reset)

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindSensitiveEnvVars(v)
	SetDefaults(v)
	mergeConfigFiles(v, []sourcePath{{Source: SourceUser, Path: user}})

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Database.Path)
	assert.Equal(t, 12, cfg.Pulse.LookaheadHours)

	assert.Equal(t, SourceInfo{Source: SourceEnvironment, Path: "CADENCE_DATABASE_PATH"}, ConfigSources["database.path"])
	assert.Equal(t, SourceEnvironment, ConfigSources["pulse.lookahead_hours"].Source)
}

func TestIntrospectReportsEnvironment(t *testing.T) {
	t.Setenv("CADENCE_DATABASE_PATH", "/tmp/env.db")

	v := viper.New()
	SetDefaults(v)

	settings := introspect(v, map[string]SourceInfo{})
	for _, s := range settings {
		if s.Key == "database.path" {
			assert.Equal(t, SourceEnvironment, s.Source)
			assert.Equal(t, "CADENCE_DATABASE_PATH", s.SourcePath)
			return
		}
	}
	t.Fatal("database.path missing from introspection")
}
