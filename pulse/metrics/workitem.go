// Package metrics aggregates completion statistics over recurring instances
// and ad-hoc submissions.
//
// Both sources are first normalised into a WorkItem so the aggregation only
// ever sees one shape. Nothing here reads the clock or touches storage.
package metrics

import (
	"time"

	"github.com/teranos/cadence/pulse/instance"
)

// Kind tags the source of a WorkItem.
type Kind string

const (
	KindRecurring Kind = "recurring"
	KindAdHoc     Kind = "adhoc"
)

// Submission is a form submission made outside any cadence.
type Submission struct {
	ID          string    `json:"id" yaml:"id"`
	WorkspaceID string    `json:"workspace_id" yaml:"workspace_id"`
	FormID      string    `json:"form_id" yaml:"form_id"`
	SubmittedAt time.Time `json:"submitted_at" yaml:"submitted_at"`
}

// WorkItem is the normalised view of either an instance or an ad-hoc
// submission. Exactly one of Instance and Submission is set, matching Kind.
type WorkItem struct {
	Kind       Kind
	Instance   *instance.Instance
	Submission *Submission
}

// FromInstance wraps a recurring instance.
func FromInstance(inst *instance.Instance) WorkItem {
	return WorkItem{Kind: KindRecurring, Instance: inst}
}

// FromSubmission wraps an ad-hoc submission.
func FromSubmission(s *Submission) WorkItem {
	return WorkItem{Kind: KindAdHoc, Submission: s}
}

// Normalize adapts both inputs into one slice, recurring items first.
// Nil entries are dropped.
func Normalize(instances []*instance.Instance, submissions []*Submission) []WorkItem {
	items := make([]WorkItem, 0, len(instances)+len(submissions))
	for _, inst := range instances {
		if inst != nil {
			items = append(items, FromInstance(inst))
		}
	}
	for _, s := range submissions {
		if s != nil {
			items = append(items, FromSubmission(s))
		}
	}
	return items
}

// CadenceID is empty for ad-hoc items.
func (w WorkItem) CadenceID() string {
	if w.Kind == KindRecurring && w.Instance != nil {
		return w.Instance.CadenceID
	}
	return ""
}

// Status of an ad-hoc submission is always completed.
func (w WorkItem) Status() instance.Status {
	switch {
	case w.Kind == KindRecurring && w.Instance != nil:
		return w.Instance.Status
	case w.Kind == KindAdHoc && w.Submission != nil:
		return instance.StatusCompleted
	default:
		return ""
	}
}

// ScheduledFor is the submission time for ad-hoc items.
func (w WorkItem) ScheduledFor() time.Time {
	switch {
	case w.Kind == KindRecurring && w.Instance != nil:
		return w.Instance.ScheduledFor
	case w.Kind == KindAdHoc && w.Submission != nil:
		return w.Submission.SubmittedAt
	default:
		return time.Time{}
	}
}

// CompletedAt returns the completion time, if one is known.
func (w WorkItem) CompletedAt() (time.Time, bool) {
	switch {
	case w.Kind == KindRecurring && w.Instance != nil:
		if w.Instance.CompletedAt == nil {
			return time.Time{}, false
		}
		return *w.Instance.CompletedAt, true
	case w.Kind == KindAdHoc && w.Submission != nil:
		return w.Submission.SubmittedAt, !w.Submission.SubmittedAt.IsZero()
	default:
		return time.Time{}, false
	}
}

// IsLate never holds for ad-hoc items, which have no due time.
func (w WorkItem) IsLate() bool {
	return w.Kind == KindRecurring && w.Instance != nil && w.Instance.IsLate()
}
