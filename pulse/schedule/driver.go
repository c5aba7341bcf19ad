package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/cadence/am"
	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/logger"
	"github.com/teranos/cadence/pulse/cadence"
	"github.com/teranos/cadence/pulse/instance"
)

// RunObserver receives a callback after every driver run.
type RunObserver interface {
	RunFinished(ctx context.Context, status string, elapsed time.Duration, failedCadences int)
}

// DriverConfig contains configuration for the scheduler driver
type DriverConfig struct {
	Lookahead            time.Duration // Materialization horizon past now
	TriggerSchedule      string        // Cron expression, evaluated in UTC
	MaterializePerSecond float64       // Cadences materialized per second; 0 means unthrottled
}

// DriverConfigFromAM maps the pulse section of the loaded configuration.
func DriverConfigFromAM(cfg *am.Config) DriverConfig {
	return DriverConfig{
		Lookahead:            cfg.Lookahead(),
		TriggerSchedule:      cfg.GetTriggerSchedule(),
		MaterializePerSecond: cfg.Pulse.MaterializePerSecond,
	}
}

// Driver periodically materializes active cadences and advances the clock.
// A pass holds no state between invocations; everything it decides comes
// from the trigger time and what is stored.
type Driver struct {
	cadences cadence.Reader
	manager  *instance.Manager
	runs     *RunStore
	observer RunObserver
	limiter  *rate.Limiter
	schedule cron.Schedule
	spec     string
	clock    func() time.Time
	logger   *zap.SugaredLogger
	pulseLog *zap.SugaredLogger // Logger with Pulse symbol pre-attached

	mu        sync.Mutex
	lookahead time.Duration
	cron      *cron.Cron
	cancel    context.CancelFunc
	lastRun   *Run
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithRunStore records every pass in the run log.
func WithRunStore(s *RunStore) DriverOption {
	return func(d *Driver) { d.runs = s }
}

// WithRunObserver reports finished runs, typically to telemetry.
func WithRunObserver(o RunObserver) DriverOption {
	return func(d *Driver) { d.observer = o }
}

// WithDriverLogger sets the driver logger.
func WithDriverLogger(l *zap.SugaredLogger) DriverOption {
	return func(d *Driver) { d.logger = l }
}

// WithDriverClock overrides the clock used for cron-triggered passes and
// run bookkeeping.
func WithDriverClock(clock func() time.Time) DriverOption {
	return func(d *Driver) { d.clock = clock }
}

// NewDriver creates a driver. The trigger schedule is parsed up front so a bad
// expression fails at startup rather than silently never firing.
func NewDriver(cadences cadence.Reader, manager *instance.Manager, cfg DriverConfig, opts ...DriverOption) (*Driver, error) {
	if cfg.Lookahead <= 0 {
		return nil, errors.WithHint(
			errors.Newf("lookahead must be positive, got %s", cfg.Lookahead),
			"set pulse.lookahead_hours in am.toml")
	}
	spec := cfg.TriggerSchedule
	if spec == "" {
		spec = am.DefaultTriggerSchedule
	}
	schedule, err := am.TriggerParser.Parse(spec)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid trigger schedule %q", spec)
	}

	d := &Driver{
		cadences:  cadences,
		manager:   manager,
		limiter:   newLimiter(cfg.MaterializePerSecond),
		schedule:  schedule,
		spec:      spec,
		clock:     time.Now,
		lookahead: cfg.Lookahead,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logger.OrNop(d.logger)
	d.pulseLog = logger.AddPulseSymbol(d.logger)
	return d, nil
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Lookahead returns the current materialization horizon.
func (d *Driver) Lookahead() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lookahead
}

// SetLookahead changes the horizon for subsequent passes. Non-positive values
// are ignored.
func (d *Driver) SetLookahead(lookahead time.Duration) {
	if lookahead <= 0 {
		return
	}
	d.mu.Lock()
	prev := d.lookahead
	d.lookahead = lookahead
	d.mu.Unlock()
	if prev != lookahead {
		d.pulseLog.Infow("Lookahead updated", "from", prev, "to", lookahead)
	}
}

// SetRate changes the materialization throttle. Zero disables it.
func (d *Driver) SetRate(perSecond float64) {
	if perSecond <= 0 {
		d.limiter.SetLimit(rate.Inf)
		return
	}
	d.limiter.SetLimit(rate.Limit(perSecond))
	if burst := int(perSecond); burst > 1 {
		d.limiter.SetBurst(burst)
	} else {
		d.limiter.SetBurst(1)
	}
}

// Next returns the next trigger time after t.
func (d *Driver) Next(t time.Time) time.Time {
	return d.schedule.Next(t.UTC())
}

// LastRun returns the most recent pass made by this process, or nil.
func (d *Driver) LastRun() *Run {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastRun
}

// RunOnce performs a single pass at now: materialize every active cadence over
// [now, now+lookahead), then advance the clock. A cadence that fails to
// materialize and an instance that fails to advance are recorded and the pass
// continues. Only failing to list cadences or instances fails the run.
// The run row is written even when ctx is cancelled mid-pass.
func (d *Driver) RunOnce(ctx context.Context, now time.Time) (*Run, error) {
	now = now.UTC()
	started := d.clock().UTC()
	run := &Run{
		ID:          uuid.NewString(),
		Status:      RunStatusRunning,
		TriggeredAt: now.Truncate(time.Second),
		StartedAt:   started.Truncate(time.Second),
		CreatedAt:   started.Truncate(time.Second),
		UpdatedAt:   started.Truncate(time.Second),
	}
	ctx = logger.WithRunID(ctx, run.ID)
	log := logger.FromContext(ctx, d.pulseLog)

	recorded := false
	if d.runs != nil {
		if err := d.runs.CreateRun(context.WithoutCancel(ctx), run); err != nil {
			// Run history is for operators; the pass itself still proceeds
			log.Errorw("Failed to create run record", logger.FieldError, err)
		} else {
			recorded = true
		}
	}

	err := d.pass(ctx, run, now, log)
	d.finish(ctx, run, err, recorded, log)
	return run, err
}

func (d *Driver) pass(ctx context.Context, run *Run, now time.Time, log *zap.SugaredLogger) error {
	cadences, err := d.cadences.ListActive(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list active cadences")
	}

	horizonEnd := now.Add(d.Lookahead())
	for _, c := range cadences {
		if err := d.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "materialize interrupted")
		}

		res, err := d.manager.Materialize(ctx, c, now, horizonEnd, now)
		run.CadencesProcessed++
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return errors.Wrap(ctxErr, "materialize interrupted")
			}
			run.FailedCadences++
			run.Failures = append(run.Failures, Failure{
				Stage:     StageMaterialize,
				SubjectID: c.ID,
				Message:   err.Error(),
				CreatedAt: d.clock().UTC().Truncate(time.Second),
			})
			log.Warnw("Cadence materialize failed",
				logger.FieldCadenceID, c.ID,
				logger.FieldError, err)
			continue
		}
		run.InstancesCreated += res.Created
	}

	adv, err := d.manager.AdvanceClock(ctx, now)
	run.InstancesAdvanced = adv.Advanced
	if err != nil {
		return errors.Wrap(err, "failed to advance clock")
	}
	run.FailedInstances = len(adv.Failed)
	for _, f := range adv.Failed {
		run.Failures = append(run.Failures, Failure{
			Stage:     StageAdvance,
			SubjectID: f.InstanceID,
			Message:   f.Err.Error(),
			CreatedAt: d.clock().UTC().Truncate(time.Second),
		})
	}
	return nil
}

func (d *Driver) finish(ctx context.Context, run *Run, passErr error, recorded bool, log *zap.SugaredLogger) {
	completed := d.clock().UTC()
	durationMs := int(completed.Sub(run.StartedAt).Milliseconds())
	if durationMs < 0 {
		durationMs = 0
	}
	stamp := completed.Truncate(time.Second)
	run.CompletedAt = &stamp
	run.DurationMs = &durationMs
	run.UpdatedAt = stamp

	if passErr != nil {
		run.Status = RunStatusFailed
		msg := passErr.Error()
		run.ErrorMessage = &msg
		log.Errorw("Pulse run FAILED",
			logger.FieldDurationMS, durationMs,
			logger.FieldError, passErr)
	} else {
		run.Status = RunStatusCompleted
		log.Infow("Pulse run OK",
			"cadences", run.CadencesProcessed,
			logger.FieldCreated, run.InstancesCreated,
			logger.FieldAdvanced, run.InstancesAdvanced,
			"failed_cadences", run.FailedCadences,
			"failed_instances", run.FailedInstances,
			logger.FieldDurationMS, durationMs)
	}

	if recorded {
		if err := d.runs.FinishRun(context.WithoutCancel(ctx), run); err != nil {
			log.Errorw("Failed to update run record", logger.FieldError, err)
		}
	}
	if d.observer != nil {
		d.observer.RunFinished(ctx, run.Status, time.Duration(durationMs)*time.Millisecond, run.FailedCadences)
	}

	d.mu.Lock()
	d.lastRun = run
	d.mu.Unlock()
}

// Start schedules RunOnce on the trigger expression in UTC. Overlapping
// triggers inside this process are skipped; concurrent processes are safe
// because materialization and transitions are idempotent.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cron != nil {
		return errors.New("driver already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithParser(am.TriggerParser),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{d.logger})),
	)
	if _, err := c.AddFunc(d.spec, func() { d.tick(runCtx) }); err != nil {
		cancel()
		return errors.Wrapf(err, "failed to schedule %q", d.spec)
	}
	c.Start()
	d.cron, d.cancel = c, cancel

	logger.AddPulseOpenSymbol(d.logger).Infow("Pulse driver started",
		"schedule", d.spec,
		"lookahead", d.lookahead,
		"next", d.schedule.Next(d.clock().UTC()).Format(time.RFC3339))
	return nil
}

// Stop cancels any in-flight pass and waits for it to return.
func (d *Driver) Stop() {
	d.mu.Lock()
	c, cancel := d.cron, d.cancel
	d.cron, d.cancel = nil, nil
	d.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	logger.AddPulseCloseSymbol(d.logger).Infow("Pulse driver stopped")
}

func (d *Driver) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := d.RunOnce(ctx, d.clock()); err != nil {
		// Already logged by finish; the next trigger retries
		return
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("cron: "+msg, append(keysAndValues, logger.FieldError, err)...)
}
