package commands

import (
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/cadence/am"
	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/logger"
	"github.com/teranos/cadence/pulse/instance"
	"github.com/teranos/cadence/sym"
)

// InstanceCmd lists and transitions instances, standing in for the
// submission flow and the "My Work" views.
var InstanceCmd = &cobra.Command{
	Use:     "instance",
	Aliases: []string{"at"},
	Short:   sym.AT + " List and act on instances",
	Long: sym.AT + ` instance — List and act on materialized instances

Examples:
  cadence instance ls                          # Open instances, soonest due first
  cadence instance ls --status completed,missed --from 2025-03-01
  cadence instance start <id>                  # User opened the form
  cadence instance complete <id> --submission sub-42
  cadence instance skip <id> --reason "site closed"`,
}

var instanceLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List instances",
	RunE:  runInstanceLs,
}

var instanceStartCmd = &cobra.Command{
	Use:   "start <id>",
	Short: "Start work on a pending or ready instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return transitionInstance(cmd, func(m *instance.Manager) (*instance.Instance, error) {
			return m.Start(cmd.Context(), args[0], time.Now())
		})
	},
}

var instanceCompleteCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Complete an instance (accepted after the due time, flagged late)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return transitionInstance(cmd, func(m *instance.Manager) (*instance.Instance, error) {
			return m.Complete(cmd.Context(), args[0], completeSubmission, time.Now())
		})
	},
}

var instanceSkipCmd = &cobra.Command{
	Use:   "skip <id>",
	Short: "Skip a pending or ready instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return transitionInstance(cmd, func(m *instance.Manager) (*instance.Instance, error) {
			return m.Skip(cmd.Context(), args[0], skipReason)
		})
	},
}

var (
	lsStatus  string
	lsCadence string
	lsInstWs  string
	lsFrom    string
	lsTo      string
	lsLimit   int
	lsUpNext  bool

	completeSubmission string
	skipReason         string
)

func init() {
	f := instanceLsCmd.Flags()
	f.StringVar(&lsStatus, "status", "", "Comma-separated statuses, or all (default: open ones)")
	f.StringVar(&lsCadence, "cadence", "", "Only this cadence")
	f.StringVar(&lsInstWs, "workspace", "", "Only this workspace")
	f.StringVar(&lsFrom, "from", "", "Scheduled at or after (RFC3339 or YYYY-MM-DD)")
	f.StringVar(&lsTo, "to", "", "Scheduled before (RFC3339 or YYYY-MM-DD)")
	f.IntVar(&lsLimit, "limit", 100, "Maximum rows")
	f.BoolVar(&lsUpNext, "up-next", false, "Only pending instances starting within pulse.up_next_window_hours")

	instanceCompleteCmd.Flags().StringVar(&completeSubmission, "submission", "", "Submission ID (required)")
	_ = instanceCompleteCmd.MarkFlagRequired("submission")
	instanceSkipCmd.Flags().StringVar(&skipReason, "reason", "", "Reason, kept for audit")

	InstanceCmd.AddCommand(instanceLsCmd)
	InstanceCmd.AddCommand(instanceStartCmd)
	InstanceCmd.AddCommand(instanceCompleteCmd)
	InstanceCmd.AddCommand(instanceSkipCmd)
}

func runInstanceLs(cmd *cobra.Command, args []string) error {
	filter, err := instanceFilterFromFlags()
	if err != nil {
		return err
	}

	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	database, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	list, err := instance.NewSQLStore(database).List(cmd.Context(), filter)
	if err != nil {
		return err
	}

	now := time.Now()
	window := cfg.UpNextWindow()
	data := pterm.TableData{{"ID", "Cadence", "Scheduled", "Due", "Status", "Flags", "Submission"}}
	shown := 0
	for _, inst := range list {
		if lsUpNext && !inst.IsUpNext(now, window) {
			continue
		}
		shown++
		data = append(data, []string{
			inst.ID,
			inst.CadenceID,
			inst.ScheduledFor.Format(time.RFC3339),
			inst.DueAt.Format(time.RFC3339),
			string(inst.Status),
			displayFlags(inst, now, window),
			inst.SubmissionID,
		})
	}
	if shown == 0 {
		pterm.Info.Println("No instances")
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func instanceFilterFromFlags() (instance.Filter, error) {
	filter := instance.Filter{
		WorkspaceID: lsInstWs,
		CadenceID:   lsCadence,
		Limit:       lsLimit,
	}

	switch {
	case lsUpNext:
		filter.Statuses = []instance.Status{instance.StatusPending}
	case lsStatus == "":
		filter.Statuses = instance.OpenStatuses
	case lsStatus == "all":
	default:
		for _, s := range strings.Split(lsStatus, ",") {
			status, err := instance.ParseStatus(strings.TrimSpace(s))
			if err != nil {
				return filter, err
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	if lsFrom != "" {
		from, err := parseWhen(lsFrom)
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}
	if lsTo != "" {
		to, err := parseWhen(lsTo)
		if err != nil {
			return filter, err
		}
		filter.To = &to
	}
	return filter, nil
}

func displayFlags(inst *instance.Instance, now time.Time, upNext time.Duration) string {
	var flags []string
	switch {
	case inst.IsOverdue(now):
		flags = append(flags, pterm.Red("overdue"))
	case inst.IsDue(now):
		flags = append(flags, pterm.Yellow("due"))
	case inst.IsUpNext(now, upNext):
		flags = append(flags, pterm.Cyan("up next"))
	}
	if inst.IsLate() {
		flags = append(flags, pterm.Magenta("late"))
	}
	return strings.Join(flags, " ")
}

func transitionInstance(cmd *cobra.Command, apply func(*instance.Manager) (*instance.Instance, error)) error {
	database, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	mgr := instance.NewManager(instance.NewSQLStore(database),
		instance.WithLogger(logger.AddInstanceSymbol(logger.ComponentLogger("pulse.instance"))))
	inst, err := apply(mgr)
	if err != nil {
		if errors.Is(err, instance.ErrInvalidTransition) {
			return errors.WithHint(err, "this item can no longer be changed this way; check its status with `cadence instance ls --status all`")
		}
		return err
	}

	pterm.Success.Printfln("%s %s is now %s", sym.AT, inst.ID, inst.Status)
	if inst.IsLate() {
		pterm.Warning.Printfln("Completed after its due time (%s)", inst.DueAt.Format(time.RFC3339))
	}
	return nil
}
