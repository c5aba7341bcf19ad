// Package recurrence turns a cadence schedule into concrete UTC instants.
//
// Everything here is pure: no clock reads, no I/O. Timezone offsets are
// resolved per calendar date through the IANA database, so a schedule at
// 09:00 America/New_York lands at 14:00Z in winter and 13:00Z in summer.
package recurrence

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/teranos/cadence/errors"
)

// ErrScheduleConfigInvalid marks every schedule validation failure.
var ErrScheduleConfigInvalid = errors.New("schedule config invalid")

// Pattern is the recurrence pattern of a schedule.
type Pattern string

const (
	Daily     Pattern = "daily"
	Weekly    Pattern = "weekly"
	Monthly   Pattern = "monthly"
	Quarterly Pattern = "quarterly"
)

// Patterns lists every supported pattern.
var Patterns = []Pattern{Daily, Weekly, Monthly, Quarterly}

// ParsePattern accepts a pattern name in any case.
func ParsePattern(s string) (Pattern, error) {
	p := Pattern(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Patterns {
		if p == known {
			return p, nil
		}
	}
	return "", errors.WithHint(
		errors.Wrapf(ErrScheduleConfigInvalid, "unknown pattern %q", s),
		"use one of daily, weekly, monthly, quarterly")
}

// usesWeekdays reports whether the pattern filters by DaysOfWeek.
func (p Pattern) usesWeekdays() bool {
	return p == Daily || p == Weekly
}

// ISO weekday numbers.
const (
	Monday = 1
	Sunday = 7
)

// Schedule is the recurrence part of a cadence.
type Schedule struct {
	Pattern Pattern

	// Local time of day in Timezone
	Time civil.Time

	// IANA zone name, e.g. "America/New_York"
	Timezone string

	// ISO weekdays, 1 = Monday ... 7 = Sunday. Required for daily and weekly.
	DaysOfWeek []int

	StartDate civil.Date
	EndDate   *civil.Date

	CompletionWindowHours int
}

// CompletionWindow returns the time allowed after each occurrence.
func (s Schedule) CompletionWindow() time.Duration {
	return time.Duration(s.CompletionWindowHours) * time.Hour
}

// DueAt returns scheduledFor plus the completion window.
func (s Schedule) DueAt(scheduledFor time.Time) time.Time {
	return scheduledFor.Add(s.CompletionWindow())
}

// Validate checks every schedule invariant. Failures wrap ErrScheduleConfigInvalid.
func (s Schedule) Validate() error {
	_, err := s.location()
	return err
}

// location validates s and loads its zone.
func (s Schedule) location() (*time.Location, error) {
	if _, err := ParsePattern(string(s.Pattern)); err != nil {
		return nil, err
	}

	if !s.Time.IsValid() {
		return nil, errors.Wrapf(ErrScheduleConfigInvalid, "time of day %s out of range", s.Time)
	}
	// Occurrences are keyed at second precision
	if s.Time.Nanosecond != 0 {
		return nil, errors.Wrapf(ErrScheduleConfigInvalid, "time of day %s has fractional seconds", s.Time)
	}

	if s.Timezone == "" {
		return nil, errors.Wrap(ErrScheduleConfigInvalid, "timezone is required")
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(ErrScheduleConfigInvalid, "timezone %q: %v", s.Timezone, err),
			"use an IANA name such as America/New_York")
	}

	if s.Pattern.usesWeekdays() && len(s.DaysOfWeek) == 0 {
		return nil, errors.WithHint(
			errors.Wrapf(ErrScheduleConfigInvalid, "days_of_week must not be empty for %s", s.Pattern),
			"weekdays are numbered 1 (Monday) to 7 (Sunday)")
	}
	for _, d := range s.DaysOfWeek {
		if d < Monday || d > Sunday {
			return nil, errors.WithHint(
				errors.Wrapf(ErrScheduleConfigInvalid, "day of week %d out of range", d),
				"weekdays are numbered 1 (Monday) to 7 (Sunday)")
		}
	}

	if !s.StartDate.IsValid() {
		return nil, errors.Wrapf(ErrScheduleConfigInvalid, "start date %s is not a valid date", s.StartDate)
	}
	if s.EndDate != nil {
		if !s.EndDate.IsValid() {
			return nil, errors.Wrapf(ErrScheduleConfigInvalid, "end date %s is not a valid date", *s.EndDate)
		}
		if s.EndDate.Before(s.StartDate) {
			return nil, errors.Wrapf(ErrScheduleConfigInvalid, "end date %s before start date %s", *s.EndDate, s.StartDate)
		}
	}

	if s.CompletionWindowHours <= 0 {
		return nil, errors.Wrapf(ErrScheduleConfigInvalid, "completion window must be positive, got %d hours", s.CompletionWindowHours)
	}

	return loc, nil
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (civil.Time, error) {
	trimmed := strings.TrimSpace(s)
	if strings.Count(trimmed, ":") == 1 {
		trimmed += ":00"
	}
	t, err := civil.ParseTime(trimmed)
	if err != nil {
		return civil.Time{}, errors.WithHint(
			errors.Wrapf(ErrScheduleConfigInvalid, "time of day %q", s),
			"use 24-hour HH:MM, e.g. 09:00")
	}
	return t, nil
}

// FormatTimeOfDay renders t as HH:MM, or HH:MM:SS when seconds are set.
func FormatTimeOfDay(t civil.Time) string {
	if t.Second == 0 && t.Nanosecond == 0 {
		return t.String()[:5]
	}
	return t.String()[:8]
}

// ParseDate accepts YYYY-MM-DD.
func ParseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, errors.Wrapf(ErrScheduleConfigInvalid, "date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// ISOWeekday returns 1 (Monday) through 7 (Sunday) for d.
func ISOWeekday(d civil.Date) int {
	wd := int(d.In(time.UTC).Weekday())
	if wd == 0 {
		return Sunday
	}
	return wd
}
