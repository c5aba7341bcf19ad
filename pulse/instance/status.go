package instance

import (
	"github.com/teranos/cadence/errors"
)

// ErrInvalidTransition is returned when a requested status change is not in
// the transition table, or when the row moved underneath the caller.
var ErrInvalidTransition = errors.New("invalid status transition")

// Status is the lifecycle state of an instance.
type Status string

const (
	StatusPending    Status = "pending"
	StatusReady      Status = "ready"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusMissed     Status = "missed"
	StatusSkipped    Status = "skipped"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusPending,
	StatusReady,
	StatusInProgress,
	StatusCompleted,
	StatusMissed,
	StatusSkipped,
}

// OpenStatuses are the statuses AdvanceClock scans.
var OpenStatuses = []Status{StatusPending, StatusReady, StatusInProgress}

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if Status(s) == st {
			return st, nil
		}
	}
	return "", errors.Wrapf(errors.ErrInvalidRequest, "unknown status %q", s)
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusMissed || s == StatusSkipped
}

// Trigger names who may drive a transition.
type Trigger string

const (
	TriggerClock Trigger = "clock"
	TriggerUser  Trigger = "user"
)

// transitions is the closed table of legal status changes.
var transitions = map[Status]map[Status]Trigger{
	StatusPending: {
		StatusReady:      TriggerClock,
		StatusInProgress: TriggerUser,
		StatusCompleted:  TriggerUser,
		StatusMissed:     TriggerClock,
		StatusSkipped:    TriggerUser,
	},
	StatusReady: {
		StatusInProgress: TriggerUser,
		StatusCompleted:  TriggerUser,
		StatusMissed:     TriggerClock,
		StatusSkipped:    TriggerUser,
	},
	StatusInProgress: {
		StatusCompleted: TriggerUser,
		StatusMissed:    TriggerClock,
	},
}

// CanTransition reports whether from -> to is legal for trigger.
func CanTransition(from, to Status, trigger Trigger) bool {
	t, ok := transitions[from][to]
	return ok && t == trigger
}

func invalidTransition(id string, from, to Status, reason string) error {
	err := errors.Wrapf(ErrInvalidTransition, "instance %s: %s -> %s", id, from, to)
	if reason != "" {
		err = errors.WithDetail(err, reason)
	}
	return err
}
