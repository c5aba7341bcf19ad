package recurrence

import (
	"slices"
	"time"

	"cloud.google.com/go/civil"
)

// IsOccurrenceDate reports whether the schedule fires on local calendar date d.
func IsOccurrenceDate(s Schedule, d civil.Date) (bool, error) {
	if err := s.Validate(); err != nil {
		return false, err
	}
	return isOccurrenceDate(s, d), nil
}

// OccurrenceAt returns the UTC instant of the occurrence on local date d.
//
// The zone offset is looked up for d itself. A wall time inside a
// spring-forward gap is shifted forward by the gap length (02:30 becomes
// 03:30). A wall time repeated by a fall-back transition resolves to the
// earlier of the two instants.
func OccurrenceAt(s Schedule, d civil.Date) (time.Time, error) {
	loc, err := s.location()
	if err != nil {
		return time.Time{}, err
	}
	return occurrenceAt(s, loc, d), nil
}

func isOccurrenceDate(s Schedule, d civil.Date) bool {
	if d.Before(s.StartDate) {
		return false
	}
	if s.EndDate != nil && d.After(*s.EndDate) {
		return false
	}

	switch s.Pattern {
	case Daily, Weekly:
		return slices.Contains(s.DaysOfWeek, ISOWeekday(d))
	case Monthly:
		return d.Day == anchorDay(s.StartDate.Day, d.Year, d.Month)
	case Quarterly:
		months := (d.Year*12 + int(d.Month)) - (s.StartDate.Year*12 + int(s.StartDate.Month))
		if months%3 != 0 {
			return false
		}
		return d.Day == anchorDay(s.StartDate.Day, d.Year, d.Month)
	}
	return false
}

func occurrenceAt(s Schedule, loc *time.Location, d civil.Date) time.Time {
	t := time.Date(d.Year, d.Month, d.Day,
		s.Time.Hour, s.Time.Minute, s.Time.Second, s.Time.Nanosecond, loc)

	// time.Date leaves gap times behind the requested wall clock
	wanted := time.Date(d.Year, d.Month, d.Day,
		s.Time.Hour, s.Time.Minute, s.Time.Second, s.Time.Nanosecond, time.UTC)
	shown := time.Date(t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	if gap := wanted.Sub(shown); gap > 0 {
		t = t.Add(gap)
	}
	return t.UTC()
}

// anchorDay clamps day to the length of the given month, so a schedule
// anchored on the 31st fires on the last day of shorter months.
func anchorDay(day, year int, month time.Month) int {
	last := daysIn(year, month)
	if day > last {
		return last
	}
	return day
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
