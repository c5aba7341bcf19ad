package metrics

import (
	"sort"

	"github.com/teranos/cadence/pulse/cadence"
	"github.com/teranos/cadence/pulse/instance"
)

// Counts tallies work items by status.
type Counts struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Missed         int     `json:"missed"`
	InProgress     int     `json:"in_progress"`
	Pending        int     `json:"pending"`
	Ready          int     `json:"ready"`
	Skipped        int     `json:"skipped"`
	Late           int     `json:"late"`
	Recurring      int     `json:"recurring"`
	AdHoc          int     `json:"adhoc"`
	CompletionRate float64 `json:"completion_rate"`
}

// CadenceMetrics is the breakdown for a single cadence.
type CadenceMetrics struct {
	CadenceID string `json:"cadence_id"`
	Name      string `json:"name,omitempty"`
	FormID    string `json:"form_id,omitempty"`
	Counts
	// AvgCompletionTimeMinutes is nil when no completed item has both
	// timestamps.
	AvgCompletionTimeMinutes *float64 `json:"avg_completion_time_minutes,omitempty"`
}

// Metrics is the value handed to reporting.
type Metrics struct {
	Counts
	ByCadence []CadenceMetrics `json:"by_cadence"`
}

// Compute normalises instances and ad-hoc submissions, then aggregates them.
func Compute(instances []*instance.Instance, submissions []*Submission, cadences []*cadence.Cadence) Metrics {
	return Aggregate(Normalize(instances, submissions), cadences)
}

// Aggregate computes overall and per-cadence metrics. Every supplied cadence
// gets an entry, as does every cadence ID seen among the items. Ad-hoc items
// only count toward the overall figures.
func Aggregate(items []WorkItem, cadences []*cadence.Cadence) Metrics {
	type acc struct {
		m        CadenceMetrics
		sumMins  float64
		nTimings int
	}
	byID := make(map[string]*acc)
	entry := func(id string) *acc {
		a, ok := byID[id]
		if !ok {
			a = &acc{m: CadenceMetrics{CadenceID: id}}
			byID[id] = a
		}
		return a
	}

	for _, c := range cadences {
		if c == nil || c.ID == "" {
			continue
		}
		a := entry(c.ID)
		a.m.Name = c.Name
		a.m.FormID = c.FormID
	}

	var out Metrics
	for _, item := range items {
		status := item.Status()
		if status == "" {
			continue
		}
		out.Counts.add(item, status)

		id := item.CadenceID()
		if id == "" {
			continue
		}
		a := entry(id)
		a.m.Counts.add(item, status)
		if a.m.FormID == "" && item.Instance != nil {
			a.m.FormID = item.Instance.FormID
		}
		if status != instance.StatusCompleted {
			continue
		}
		completed, ok := item.CompletedAt()
		scheduled := item.ScheduledFor()
		if !ok || scheduled.IsZero() {
			continue
		}
		a.sumMins += completed.Sub(scheduled).Minutes()
		a.nTimings++
	}
	out.Counts.finish()

	out.ByCadence = make([]CadenceMetrics, 0, len(byID))
	for _, a := range byID {
		a.m.Counts.finish()
		if a.nTimings > 0 {
			avg := a.sumMins / float64(a.nTimings)
			a.m.AvgCompletionTimeMinutes = &avg
		}
		out.ByCadence = append(out.ByCadence, a.m)
	}
	sort.Slice(out.ByCadence, func(i, j int) bool {
		return out.ByCadence[i].CadenceID < out.ByCadence[j].CadenceID
	})
	return out
}

func (c *Counts) add(item WorkItem, status instance.Status) {
	c.Total++
	switch item.Kind {
	case KindRecurring:
		c.Recurring++
	case KindAdHoc:
		c.AdHoc++
	}
	switch status {
	case instance.StatusCompleted:
		c.Completed++
		if item.IsLate() {
			c.Late++
		}
	case instance.StatusMissed:
		c.Missed++
	case instance.StatusInProgress:
		c.InProgress++
	case instance.StatusPending:
		c.Pending++
	case instance.StatusReady:
		c.Ready++
	case instance.StatusSkipped:
		c.Skipped++
	}
}

func (c *Counts) finish() {
	if c.Total == 0 {
		c.CompletionRate = 0
		return
	}
	c.CompletionRate = float64(c.Completed) / float64(c.Total) * 100
}
