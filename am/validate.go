package am

import (
	"github.com/robfig/cron/v3"

	"github.com/teranos/cadence/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Database path is optional - empty defaults to DefaultDatabasePath

	if c.Pulse.LookaheadHours < 0 {
		return errors.Newf("pulse.lookahead_hours must be >= 0, got %d", c.Pulse.LookaheadHours)
	}

	// 0 = unthrottled, negative = invalid
	if c.Pulse.MaterializePerSecond < 0 {
		return errors.Newf("pulse.materialize_per_second must be >= 0, got %f", c.Pulse.MaterializePerSecond)
	}

	if c.Pulse.UpNextWindowHours < 0 {
		return errors.Newf("pulse.up_next_window_hours must be >= 0, got %d", c.Pulse.UpNextWindowHours)
	}

	if c.Pulse.TriggerSchedule != "" {
		if _, err := TriggerParser.Parse(c.Pulse.TriggerSchedule); err != nil {
			return errors.WithHint(
				errors.Wrapf(err, "pulse.trigger_schedule %q is not a valid cron expression", c.Pulse.TriggerSchedule),
				"use five fields (\"*/5 * * * *\") or a descriptor (\"@every 5m\")")
		}
	}

	return nil
}

// TriggerParser parses pulse.trigger_schedule: standard 5-field cron plus descriptors
var TriggerParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)
