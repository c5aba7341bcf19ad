package instance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/teranos/cadence/errors"
)

// MemoryStore is an in-process Store for tests and dry runs.
type MemoryStore struct {
	mu          sync.Mutex
	byID        map[string]*Instance
	occurrences map[occurrenceKey]string
}

type occurrenceKey struct {
	cadenceID    string
	scheduledFor int64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:        make(map[string]*Instance),
		occurrences: make(map[occurrenceKey]string),
	}
}

var _ Store = (*MemoryStore)(nil)

func keyOf(inst *Instance) occurrenceKey {
	// Second precision, matching the SQL store's storage format
	return occurrenceKey{cadenceID: inst.CadenceID, scheduledFor: inst.ScheduledFor.Truncate(time.Second).Unix()}
}

// InsertIfAbsent stores a copy of inst unless its occurrence exists.
func (m *MemoryStore) InsertIfAbsent(ctx context.Context, inst *Instance) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := keyOf(inst)
	if _, exists := m.occurrences[key]; exists {
		return false, nil
	}
	if _, exists := m.byID[inst.ID]; exists {
		return false, errors.Wrapf(errors.ErrConflict, "instance %s already exists", inst.ID)
	}

	m.byID[inst.ID] = inst.clone()
	m.occurrences[key] = inst.ID
	return true, nil
}

// Get returns a copy of the instance.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.byID[id]
	if !ok {
		return nil, errors.NewNotFoundError("instance %s", id)
	}
	return inst.clone(), nil
}

// ListOpen returns copies of every non-terminal instance, earliest due first.
func (m *MemoryStore) ListOpen(ctx context.Context) ([]*Instance, error) {
	out, err := m.List(ctx, Filter{Statuses: OpenStatuses})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DueAt.Equal(out[j].DueAt) {
			return out[i].DueAt.Before(out[j].DueAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// List returns copies of the instances matching f.
func (m *MemoryStore) List(ctx context.Context, f Filter) ([]*Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	var out []*Instance
	for _, inst := range m.byID {
		if f.matches(inst) {
			out = append(out, inst.clone())
		}
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledFor.Equal(out[j].ScheduledFor) {
			return out[i].ScheduledFor.Before(out[j].ScheduledFor)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// CompareAndSwap applies t if the stored status equals t.From.
func (m *MemoryStore) CompareAndSwap(ctx context.Context, t Transition) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.byID[t.ID]
	if !ok || inst.Status != t.From {
		return false, nil
	}
	m.byID[t.ID] = t.apply(inst)
	return true, nil
}
