package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/cadence/am"
	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/logger"
	"github.com/teranos/cadence/pulse/cadence"
	"github.com/teranos/cadence/pulse/instance"
	"github.com/teranos/cadence/pulse/schedule"
	"github.com/teranos/cadence/pulse/telemetry"
	"github.com/teranos/cadence/sym"
)

// PulseCmd represents the pulse command - the scheduler driver
var PulseCmd = &cobra.Command{
	Use:   "pulse",
	Short: sym.Pulse + " Run the scheduler driver",
	Long: sym.Pulse + ` Pulse — the scheduler driver.

Each pass materializes every active cadence over [now, now + lookahead) and
then advances open instances: pending becomes ready at its scheduled time,
anything still open past its due time becomes missed. Passes are idempotent,
so overlapping triggers or several hosts running pulse are safe.

Examples:
  cadence pulse run                      # One pass now
  cadence pulse run --at 2025-03-10T14:00:00Z
  cadence pulse start                    # Run on pulse.trigger_schedule until Ctrl+C
  cadence pulse runs --limit 10          # Recent run history`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var pulseRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single pass",
	RunE:  runPulseRun,
}

var pulseStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run passes on the configured cron trigger",
	Long: `Run passes on pulse.trigger_schedule (UTC) until interrupted.

Changes to the config file are picked up live: a new lookahead or throttle
applies from the next pass. Changing the trigger schedule needs a restart.`,
	RunE: runPulseStart,
}

var pulseRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent driver runs",
	RunE:  runPulseRuns,
}

var (
	runAt        string
	runsLimit    int
	runsStatus   string
	showFailures string
)

func init() {
	pulseRunCmd.Flags().StringVar(&runAt, "at", "", "Pretend the pass runs at this time (RFC3339 or YYYY-MM-DD)")
	pulseRunsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Number of runs to show")
	pulseRunsCmd.Flags().StringVar(&runsStatus, "status", "", "Only runs with this status")
	pulseRunsCmd.Flags().StringVar(&showFailures, "failures", "", "Show failures recorded by this run ID")

	PulseCmd.AddCommand(pulseRunCmd)
	PulseCmd.AddCommand(pulseStartCmd)
	PulseCmd.AddCommand(pulseRunsCmd)
}

type driverBundle struct {
	database  *sql.DB
	driver    *schedule.Driver
	telemetry *telemetry.Provider
}

func (b *driverBundle) Close() {
	_ = b.telemetry.Shutdown(context.Background())
	b.database.Close()
}

func newDriver(cmd *cobra.Command, cfg *am.Config) (*driverBundle, error) {
	database, err := openDatabase(cmd)
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.NewProvider()
	if err != nil {
		database.Close()
		return nil, err
	}

	mgr := instance.NewManager(instance.NewSQLStore(database),
		instance.WithLogger(logger.AddInstanceSymbol(logger.ComponentLogger("pulse.instance"))),
		instance.WithObserver(tel))

	driver, err := schedule.NewDriver(cadence.NewStore(database), mgr, schedule.DriverConfigFromAM(cfg),
		schedule.WithRunStore(schedule.NewRunStore(database)),
		schedule.WithRunObserver(tel),
		schedule.WithDriverLogger(logger.ComponentLogger("pulse.driver")))
	if err != nil {
		_ = tel.Shutdown(context.Background())
		database.Close()
		return nil, err
	}
	return &driverBundle{database: database, driver: driver, telemetry: tel}, nil
}

func runPulseRun(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	now := time.Now()
	if runAt != "" {
		if now, err = parseWhen(runAt); err != nil {
			return err
		}
	}

	b, err := newDriver(cmd, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	run, runErr := b.driver.RunOnce(cmd.Context(), now)
	renderRun(run)
	if err := renderTelemetry(cmd.Context(), b.telemetry); err != nil {
		logger.Logger.Warnw("Failed to collect telemetry", logger.FieldError, err)
	}
	return runErr
}

func runPulseStart(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	b, err := newDriver(cmd, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if watcher := startConfigWatcher(b.driver); watcher != nil {
		defer watcher.Stop()
	}

	if err := b.driver.Start(ctx); err != nil {
		return err
	}

	next := b.driver.Next(time.Now())
	pterm.DefaultSection.Println(sym.Pulse + " Pulse driver started")
	pterm.Printfln("  Trigger:   %s (UTC)", cfg.GetTriggerSchedule())
	pterm.Printfln("  Lookahead: %s", b.driver.Lookahead())
	pterm.Printfln("  Next run:  %s (in %s)", next.Format(time.RFC3339), time.Until(next).Round(time.Second))
	pterm.Printfln("\n%s Press Ctrl+C to stop\n", sym.Pulse)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	fmt.Printf("\n%s Stopping, waiting for any in-flight pass...\n", sym.PulseClose)
	b.driver.Stop()
	if last := b.driver.LastRun(); last != nil {
		renderRun(last)
	}
	return nil
}

// startConfigWatcher applies lookahead and throttle changes to a running
// driver. Returns nil when there is no user config to watch.
func startConfigWatcher(driver *schedule.Driver) *am.ConfigWatcher {
	path := am.FindProjectConfig()
	if path == "" {
		if dir := am.UserConfigDir(); dir != "" {
			path = filepath.Join(dir, am.ConfigFileName)
		}
	}
	if path == "" {
		return nil
	}

	watcher, err := am.NewConfigWatcher(path)
	if err != nil {
		logger.Logger.Warnw("Config watcher disabled", logger.FieldPath, path, logger.FieldError, err)
		return nil
	}
	watcher.OnReload(func(cfg *am.Config) error {
		driver.SetLookahead(cfg.Lookahead())
		driver.SetRate(cfg.Pulse.MaterializePerSecond)
		return nil
	})
	am.SetGlobalWatcher(watcher)
	watcher.Start()
	return watcher
}

func runPulseRuns(cmd *cobra.Command, args []string) error {
	database, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	store := schedule.NewRunStore(database)
	if showFailures != "" {
		run, err := store.GetRun(cmd.Context(), showFailures)
		if err != nil {
			return err
		}
		renderRun(run)
		return nil
	}

	runs, err := store.ListRuns(cmd.Context(), runsLimit, runsStatus)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		pterm.Info.Println("No runs recorded")
		return nil
	}

	data := pterm.TableData{{"ID", "Status", "Triggered", "Duration", "Cadences", "Created", "Advanced", "Failed"}}
	for _, r := range runs {
		duration := "-"
		if r.DurationMs != nil {
			duration = (time.Duration(*r.DurationMs) * time.Millisecond).String()
		}
		data = append(data, []string{
			r.ID,
			r.Status,
			r.TriggeredAt.Format(time.RFC3339),
			duration,
			fmt.Sprint(r.CadencesProcessed),
			fmt.Sprint(r.InstancesCreated),
			fmt.Sprint(r.InstancesAdvanced),
			fmt.Sprint(r.FailedCadences + r.FailedInstances),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func renderRun(run *schedule.Run) {
	if run == nil {
		return
	}
	switch run.Status {
	case schedule.RunStatusCompleted:
		pterm.Success.Printfln("Run %s completed", run.ID)
	case schedule.RunStatusFailed:
		msg := ""
		if run.ErrorMessage != nil {
			msg = *run.ErrorMessage
		}
		pterm.Error.Printfln("Run %s failed: %s", run.ID, msg)
	default:
		pterm.Info.Printfln("Run %s %s", run.ID, run.Status)
	}
	pterm.Printfln("  Triggered at:       %s", run.TriggeredAt.Format(time.RFC3339))
	pterm.Printfln("  Cadences processed: %d (%d failed)", run.CadencesProcessed, run.FailedCadences)
	pterm.Printfln("  Instances created:  %d", run.InstancesCreated)
	pterm.Printfln("  Instances advanced: %d (%d failed)", run.InstancesAdvanced, run.FailedInstances)

	if len(run.Failures) == 0 {
		return
	}
	data := pterm.TableData{{"Stage", "Subject", "Error"}}
	for _, f := range run.Failures {
		data = append(data, []string{f.Stage, f.SubjectID, f.Message})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func renderTelemetry(ctx context.Context, p *telemetry.Provider) error {
	samples, err := p.Snapshot(ctx)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return nil
	}
	data := pterm.TableData{{"Metric", "Attributes", "Value"}}
	for _, s := range samples {
		value := fmt.Sprintf("%g", s.Value)
		if s.Count > 0 {
			value = fmt.Sprintf("%d obs, sum %.3f", s.Count, s.Value)
		}
		data = append(data, []string{s.Name, s.Attributes, value})
	}
	pterm.Println()
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
