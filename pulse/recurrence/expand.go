package recurrence

import (
	"time"

	"cloud.google.com/go/civil"
)

// Expand returns the ascending UTC instants of every occurrence of s that
// falls in [horizonStart, horizonEnd). An empty or inverted horizon yields
// no instants. The only error is a wrapped ErrScheduleConfigInvalid.
//
// Local dates are scanned from one day before horizonStart to one day after
// horizonEnd so zones far from UTC do not lose boundary days.
func Expand(s Schedule, horizonStart, horizonEnd time.Time) ([]time.Time, error) {
	loc, err := s.location()
	if err != nil {
		return nil, err
	}
	if !horizonEnd.After(horizonStart) {
		return nil, nil
	}

	first := civil.DateOf(horizonStart.In(loc)).AddDays(-1)
	last := civil.DateOf(horizonEnd.In(loc)).AddDays(1)
	if first.Before(s.StartDate) {
		first = s.StartDate
	}
	if s.EndDate != nil && last.After(*s.EndDate) {
		last = *s.EndDate
	}

	var out []time.Time
	for d := first; !d.After(last); d = d.AddDays(1) {
		if !isOccurrenceDate(s, d) {
			continue
		}
		at := occurrenceAt(s, loc, d)
		if at.Before(horizonStart) || !at.Before(horizonEnd) {
			continue
		}
		out = append(out, at)
	}
	return out, nil
}
