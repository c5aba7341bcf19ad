package instance

import (
	"context"
	"time"
)

// Store is the persistence contract the Manager relies on.
//
// Implementations must make InsertIfAbsent and CompareAndSwap atomic with
// respect to concurrent callers, including other processes sharing the
// same database.
type Store interface {
	// InsertIfAbsent inserts inst unless an instance with the same
	// (CadenceID, ScheduledFor) exists. created is false on conflict.
	InsertIfAbsent(ctx context.Context, inst *Instance) (created bool, err error)

	// Get returns the instance or a wrapped errors.ErrNotFound.
	Get(ctx context.Context, id string) (*Instance, error)

	// ListOpen returns every pending, ready or in_progress instance.
	ListOpen(ctx context.Context) ([]*Instance, error)

	// List returns instances matching f, ordered by ScheduledFor then ID.
	List(ctx context.Context, f Filter) ([]*Instance, error)

	// CompareAndSwap applies t only if the stored status still equals t.From.
	// applied is false when the guard failed.
	CompareAndSwap(ctx context.Context, t Transition) (applied bool, err error)
}

// Transition is a guarded status change plus the audit fields it sets.
// Nil pointers and empty strings leave the stored value untouched.
type Transition struct {
	ID           string
	From         Status
	To           Status
	StartedAt    *time.Time
	CompletedAt  *time.Time
	SubmissionID string
	SkipReason   string
	UpdatedAt    time.Time
}

// apply returns a copy of inst with t applied.
func (t Transition) apply(inst *Instance) *Instance {
	out := inst.clone()
	out.Status = t.To
	if t.StartedAt != nil {
		at := *t.StartedAt
		out.StartedAt = &at
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		out.CompletedAt = &at
	}
	if t.SubmissionID != "" {
		out.SubmissionID = t.SubmissionID
	}
	if t.SkipReason != "" {
		out.SkipReason = t.SkipReason
	}
	out.UpdatedAt = t.UpdatedAt
	return out
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	WorkspaceID string
	CadenceID   string
	Statuses    []Status

	// ScheduledFor in [From, To)
	From *time.Time
	To   *time.Time

	Limit int
}

func (f Filter) matches(inst *Instance) bool {
	if f.WorkspaceID != "" && inst.WorkspaceID != f.WorkspaceID {
		return false
	}
	if f.CadenceID != "" && inst.CadenceID != f.CadenceID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if inst.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && inst.ScheduledFor.Before(*f.From) {
		return false
	}
	if f.To != nil && !inst.ScheduledFor.Before(*f.To) {
		return false
	}
	return true
}
