package instance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/logger"
	"github.com/teranos/cadence/pulse/cadence"
)

// Observer receives lifecycle events, typically for metrics export.
type Observer interface {
	Materialized(ctx context.Context, cadenceID string, created, existing int)
	Transitioned(ctx context.Context, from, to Status, trigger Trigger)
	AdvanceFailed(ctx context.Context, failures int)
}

type nopObserver struct{}

func (nopObserver) Materialized(context.Context, string, int, int)      {}
func (nopObserver) Transitioned(context.Context, Status, Status, Trigger) {}
func (nopObserver) AdvanceFailed(context.Context, int)                  {}

// Manager owns every instance status change.
type Manager struct {
	store    Store
	log      *zap.SugaredLogger
	observer Observer
	clock    func() time.Time
	newID    func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger
func WithLogger(l *zap.SugaredLogger) Option {
	return func(m *Manager) { m.log = logger.AddInstanceSymbol(l) }
}

// WithObserver registers a lifecycle observer
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithClock overrides the clock used to stamp Skip.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) { m.clock = clock }
}

// NewManager creates a manager over store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		log:      logger.AddInstanceSymbol(nil),
		observer: nopObserver{},
		clock:    time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying store for read paths.
func (m *Manager) Store() Store {
	return m.store
}

// MaterializeResult counts what one Materialize call did.
type MaterializeResult struct {
	CadenceID   string `json:"cadence_id"`
	Occurrences int    `json:"occurrences"`
	Created     int    `json:"created"`
	Existing    int    `json:"existing"`
}

// Materialize expands c over [horizonStart, horizonEnd) and inserts every
// occurrence that does not exist yet. Re-running over the same horizon is a
// no-op. Existing instances are never modified.
func (m *Manager) Materialize(ctx context.Context, c *cadence.Cadence, horizonStart, horizonEnd, now time.Time) (MaterializeResult, error) {
	result := MaterializeResult{CadenceID: c.ID}

	occurrences, err := cadence.Expand(c, horizonStart, horizonEnd)
	if err != nil {
		return result, err
	}
	result.Occurrences = len(occurrences)

	stamp := now.UTC().Truncate(time.Second)
	for _, at := range occurrences {
		due := c.Schedule.DueAt(at)
		inst := &Instance{
			ID:           m.newID(),
			CadenceID:    c.ID,
			FormID:       c.FormID,
			WorkspaceID:  c.WorkspaceID,
			ScheduledFor: at,
			DueAt:        due,
			Status:       InitialStatus(at, due, now),
			CreatedAt:    stamp,
			UpdatedAt:    stamp,
		}

		created, err := m.store.InsertIfAbsent(ctx, inst)
		if err != nil {
			m.observer.Materialized(ctx, c.ID, result.Created, result.Existing)
			return result, errors.Wrapf(err, "materialize cadence %s", c.ID)
		}
		if created {
			result.Created++
			m.log.Debugw("Instance materialized",
				logger.FieldCadenceID, c.ID,
				logger.FieldInstanceID, inst.ID,
				logger.FieldScheduledFor, at,
				logger.FieldStatus, inst.Status)
		} else {
			result.Existing++
		}
	}

	m.observer.Materialized(ctx, c.ID, result.Created, result.Existing)
	return result, nil
}

// RowFailure is one instance AdvanceClock could not update.
type RowFailure struct {
	InstanceID string
	Err        error
}

// AdvanceResult counts what one AdvanceClock pass did.
type AdvanceResult struct {
	Scanned  int          `json:"scanned"`
	Advanced int          `json:"advanced"`
	ToReady  int          `json:"to_ready"`
	ToMissed int          `json:"to_missed"`
	Raced    int          `json:"raced"`
	Failed   []RowFailure `json:"-"`
}

// AdvanceClock moves open instances forward in time: pending becomes ready
// once scheduled, and anything open past its due time becomes missed.
//
// Each row is an independent compare-and-swap. A row that changed since it
// was read is counted as Raced. A row whose update fails is recorded in
// Failed and the pass continues. Only failing to list candidates is an error.
func (m *Manager) AdvanceClock(ctx context.Context, now time.Time) (AdvanceResult, error) {
	var result AdvanceResult

	open, err := m.store.ListOpen(ctx)
	if err != nil {
		return result, errors.Wrap(err, "list open instances")
	}
	result.Scanned = len(open)

	stamp := now.UTC().Truncate(time.Second)
	for _, inst := range open {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		to, ok := clockTarget(inst, now)
		if !ok {
			continue
		}

		applied, err := m.store.CompareAndSwap(ctx, Transition{
			ID:        inst.ID,
			From:      inst.Status,
			To:        to,
			UpdatedAt: stamp,
		})
		if err != nil {
			result.Failed = append(result.Failed, RowFailure{InstanceID: inst.ID, Err: err})
			m.log.Warnw("Instance advance failed",
				logger.FieldInstanceID, inst.ID,
				logger.FieldFrom, inst.Status,
				logger.FieldTo, to,
				logger.FieldError, err)
			continue
		}
		if !applied {
			result.Raced++
			continue
		}

		result.Advanced++
		if to == StatusMissed {
			result.ToMissed++
		} else {
			result.ToReady++
		}
		m.observer.Transitioned(ctx, inst.Status, to, TriggerClock)
	}

	if len(result.Failed) > 0 {
		m.observer.AdvanceFailed(ctx, len(result.Failed))
	}
	return result, nil
}

// Start moves a pending or ready instance to in_progress. It fails once the
// instance is past due.
func (m *Manager) Start(ctx context.Context, id string, now time.Time) (*Instance, error) {
	inst, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !now.Before(inst.DueAt) {
		return nil, invalidTransition(id, inst.Status, StatusInProgress, "instance is past due")
	}

	started := now.UTC().Truncate(time.Second)
	return m.userTransition(ctx, inst, Transition{
		To:        StatusInProgress,
		StartedAt: &started,
		UpdatedAt: started,
	})
}

// Complete records a submission against an open instance. Completion after
// the due time is accepted and shows up as late.
func (m *Manager) Complete(ctx context.Context, id, submissionID string, now time.Time) (*Instance, error) {
	inst, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	completed := ceilSecond(now)
	return m.userTransition(ctx, inst, Transition{
		To:           StatusCompleted,
		CompletedAt:  &completed,
		SubmissionID: submissionID,
		UpdatedAt:    completed,
	})
}

// Skip marks a pending or ready instance as intentionally not done.
func (m *Manager) Skip(ctx context.Context, id, reason string) (*Instance, error) {
	inst, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return m.userTransition(ctx, inst, Transition{
		To:         StatusSkipped,
		SkipReason: reason,
		UpdatedAt:  m.clock().UTC().Truncate(time.Second),
	})
}

func (m *Manager) userTransition(ctx context.Context, inst *Instance, t Transition) (*Instance, error) {
	t.ID = inst.ID
	t.From = inst.Status

	if !CanTransition(t.From, t.To, TriggerUser) {
		return nil, invalidTransition(inst.ID, t.From, t.To, "")
	}

	applied, err := m.store.CompareAndSwap(ctx, t)
	if err != nil {
		return nil, errors.Wrapf(err, "instance %s", inst.ID)
	}
	if !applied {
		return nil, invalidTransition(inst.ID, t.From, t.To, "instance changed concurrently")
	}

	m.observer.Transitioned(ctx, t.From, t.To, TriggerUser)
	m.log.Infow("Instance transitioned",
		logger.FieldInstanceID, inst.ID,
		logger.FieldCadenceID, inst.CadenceID,
		logger.FieldFrom, t.From,
		logger.FieldTo, t.To)

	return t.apply(inst), nil
}

// ceilSecond rounds t up to whole seconds, so a completion stamped after the
// due time never stores as on time.
func ceilSecond(t time.Time) time.Time {
	t = t.UTC()
	if trunc := t.Truncate(time.Second); trunc.Before(t) {
		return trunc.Add(time.Second)
	}
	return t
}
