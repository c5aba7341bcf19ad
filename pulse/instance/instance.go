// Package instance materializes cadence occurrences and moves them through
// their lifecycle.
//
//	pending ──clock──▶ ready ──user──▶ in_progress ──user──▶ completed
//	   │                 │                  │
//	   └─────────────────┴──────clock───────┴──────────────▶ missed
//
// pending and ready may also be skipped or completed directly by a user.
// completed, missed and skipped are terminal. Every transition is a
// compare-and-swap on the stored status, so concurrent drivers and user
// actions never double-apply.
package instance

import (
	"time"
)

// Instance is one materialized occurrence of a cadence.
type Instance struct {
	ID           string     `json:"id"`
	CadenceID    string     `json:"cadence_id"`
	FormID       string     `json:"form_id"`
	WorkspaceID  string     `json:"workspace_id"`
	ScheduledFor time.Time  `json:"scheduled_for"`
	DueAt        time.Time  `json:"due_at"`
	Status       Status     `json:"status"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	SubmissionID string     `json:"submission_id,omitempty"`
	SkipReason   string     `json:"skip_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsLate reports a completion recorded after the due time.
func (i *Instance) IsLate() bool {
	return i.Status == StatusCompleted && i.CompletedAt != nil && i.CompletedAt.After(i.DueAt)
}

// InitialStatus is the status a freshly materialized occurrence starts in.
func InitialStatus(scheduledFor, dueAt, now time.Time) Status {
	switch {
	case scheduledFor.After(now):
		return StatusPending
	case now.Before(dueAt):
		return StatusReady
	default:
		return StatusMissed
	}
}

// clockTarget returns the status the clock moves i to at now, if any.
func clockTarget(i *Instance, now time.Time) (Status, bool) {
	if i.Status.IsTerminal() {
		return "", false
	}
	if now.After(i.DueAt) {
		return StatusMissed, true
	}
	if i.Status == StatusPending && !now.Before(i.ScheduledFor) {
		return StatusReady, true
	}
	return "", false
}

func (i *Instance) clone() *Instance {
	c := *i
	if i.StartedAt != nil {
		t := *i.StartedAt
		c.StartedAt = &t
	}
	if i.CompletedAt != nil {
		t := *i.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
