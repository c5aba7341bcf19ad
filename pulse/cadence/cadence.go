// Package cadence holds recurring schedule definitions and their storage.
//
// The scheduling engine only reads cadences. Creation and editing go
// through Store, standing in for the schedule-settings surface.
package cadence

import (
	"context"
	"time"

	"github.com/teranos/cadence/am/geotime"
	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/pulse/recurrence"
)

// Cadence is a recurring schedule bound to a form in a workspace.
type Cadence struct {
	ID          string
	WorkspaceID string
	FormID      string
	Name        string
	Schedule    recurrence.Schedule
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Reader is the read side the scheduler driver depends on.
type Reader interface {
	ListActive(ctx context.Context) ([]*Cadence, error)
}

// Validate checks identifiers and the schedule.
func (c *Cadence) Validate() error {
	if c.WorkspaceID == "" {
		return errors.Wrap(errors.ErrInvalidRequest, "workspace_id is required")
	}
	if c.FormID == "" {
		return errors.Wrap(errors.ErrInvalidRequest, "form_id is required")
	}
	return c.Schedule.Validate()
}

// Normalize canonicalizes a client-observed timezone ("EST", "amsterdam")
// into an IANA name. Only called on creation; recurrence math loads the
// stored name as-is.
func (c *Cadence) Normalize() error {
	tz, err := geotime.NormalizeTimezone(c.Schedule.Timezone)
	if err != nil {
		return errors.WithHint(
			errors.Wrapf(recurrence.ErrScheduleConfigInvalid, "timezone %q: %v", c.Schedule.Timezone, err),
			"use an IANA name such as America/New_York")
	}
	c.Schedule.Timezone = tz
	return nil
}

// Expand returns the occurrences of c in [horizonStart, horizonEnd).
// Inactive cadences have none.
func Expand(c *Cadence, horizonStart, horizonEnd time.Time) ([]time.Time, error) {
	if !c.IsActive {
		return nil, nil
	}
	occurrences, err := recurrence.Expand(c.Schedule, horizonStart, horizonEnd)
	if err != nil {
		return nil, errors.Wrapf(err, "cadence %s", c.ID)
	}
	return occurrences, nil
}
