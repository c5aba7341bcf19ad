package am

// Config represents the cadence engine configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database" toml:"database"`
	Pulse    PulseConfig    `mapstructure:"pulse" toml:"pulse"`
	Log      LogConfig      `mapstructure:"log" toml:"log"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// PulseConfig configures the scheduler driver
type PulseConfig struct {
	// How far ahead each run materializes instances (default: 168 = one week)
	LookaheadHours int `mapstructure:"lookahead_hours" toml:"lookahead_hours"`

	// Cron expression for `pulse start`; standard 5-field or descriptors like "@every 5m"
	TriggerSchedule string `mapstructure:"trigger_schedule" toml:"trigger_schedule"`

	// Cadences materialized per second within a run (0 = unthrottled)
	MaterializePerSecond float64 `mapstructure:"materialize_per_second" toml:"materialize_per_second"`

	// Window used by "up next" listings (default: 24)
	UpNextWindowHours int `mapstructure:"up_next_window_hours" toml:"up_next_window_hours"`
}

// LogConfig configures log output
type LogConfig struct {
	JSON bool `mapstructure:"json" toml:"json"`
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

// ConfigFileName is the file searched for in system, user and project locations
const ConfigFileName = "am.toml"

// EnvPrefix prefixes every environment override (CADENCE_DATABASE_PATH, ...)
const EnvPrefix = "CADENCE"
