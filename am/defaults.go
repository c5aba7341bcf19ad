package am

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Default values, shared by SetDefaults and the zero-value getters
const (
	DefaultDatabasePath         = "cadence.db"
	DefaultLookaheadHours       = 168
	DefaultTriggerSchedule      = "*/5 * * * *"
	DefaultMaterializePerSecond = 50.0
	DefaultUpNextWindowHours    = 24
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("pulse.lookahead_hours", DefaultLookaheadHours)
	v.SetDefault("pulse.trigger_schedule", DefaultTriggerSchedule)
	v.SetDefault("pulse.materialize_per_second", DefaultMaterializePerSecond)
	v.SetDefault("pulse.up_next_window_hours", DefaultUpNextWindowHours)

	v.SetDefault("log.json", false)
}

// BindSensitiveEnvVars explicitly binds configuration that deployments set through the environment
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", EnvPrefix+"_DATABASE_PATH")
	v.BindEnv("pulse.trigger_schedule", EnvPrefix+"_PULSE_TRIGGER_SCHEDULE")
	v.BindEnv("pulse.lookahead_hours", EnvPrefix+"_PULSE_LOOKAHEAD_HOURS")
}

// DefaultConfig returns the configuration SetDefaults describes
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Path: DefaultDatabasePath},
		Pulse: PulseConfig{
			LookaheadHours:       DefaultLookaheadHours,
			TriggerSchedule:      DefaultTriggerSchedule,
			MaterializePerSecond: DefaultMaterializePerSecond,
			UpNextWindowHours:    DefaultUpNextWindowHours,
		},
	}
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return DefaultDatabasePath
	}
	return c.Database.Path
}

// Lookahead returns the materialization horizon length
func (c *Config) Lookahead() time.Duration {
	if c.Pulse.LookaheadHours == 0 {
		return DefaultLookaheadHours * time.Hour
	}
	return time.Duration(c.Pulse.LookaheadHours) * time.Hour
}

// UpNextWindow returns the window used by "up next" listings
func (c *Config) UpNextWindow() time.Duration {
	if c.Pulse.UpNextWindowHours == 0 {
		return DefaultUpNextWindowHours * time.Hour
	}
	return time.Duration(c.Pulse.UpNextWindowHours) * time.Hour
}

// GetTriggerSchedule returns the driver's cron expression
func (c *Config) GetTriggerSchedule() string {
	if c.Pulse.TriggerSchedule == "" {
		return DefaultTriggerSchedule
	}
	return c.Pulse.TriggerSchedule
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Pulse: {Lookahead: %dh, Trigger: %q}}",
		c.Database.Path, c.Pulse.LookaheadHours, c.Pulse.TriggerSchedule)
}
