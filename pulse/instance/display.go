package instance

import "time"

// Display predicates for calendar and "my work" views. Pure functions of
// the instance and the caller's clock; none of them change state.

// IsOverdue reports an open instance past its due time.
func (i *Instance) IsOverdue(now time.Time) bool {
	return !i.Status.IsTerminal() && now.After(i.DueAt)
}

// IsDue reports an open instance inside its completion window.
func (i *Instance) IsDue(now time.Time) bool {
	return !i.Status.IsTerminal() && !now.Before(i.ScheduledFor) && !now.After(i.DueAt)
}

// IsUpNext reports a pending instance starting within the given window.
func (i *Instance) IsUpNext(now time.Time, within time.Duration) bool {
	return i.Status == StatusPending && i.ScheduledFor.After(now) && !i.ScheduledFor.After(now.Add(within))
}
