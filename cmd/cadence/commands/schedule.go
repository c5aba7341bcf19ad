package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/cadence/am/geotime"
	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/logger"
	"github.com/teranos/cadence/pulse/cadence"
	"github.com/teranos/cadence/pulse/recurrence"
	"github.com/teranos/cadence/sym"
)

// ScheduleCmd manages cadences, standing in for the schedule-settings UI.
var ScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: sym.Pulse + " Create, import and pause cadences",
	Long: sym.Pulse + ` schedule — Manage cadences

A cadence binds a form to a recurring schedule. The engine only reads active
cadences; pausing one stops new instances without touching existing ones.

Examples:
  cadence schedule add --workspace ws-1 --form safety --time 09:00 --days weekdays
  cadence schedule add --workspace ws-1 --form audit --pattern monthly --start 2025-01-31
  cadence schedule import cadences.yaml
  cadence schedule ls --all
  cadence schedule preview <id> --days 14
  cadence schedule pause <id>`,
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a cadence",
	RunE:  runScheduleAdd,
}

var scheduleImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import cadences from a TOML or YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleImport,
}

var scheduleLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List cadences",
	RunE:  runScheduleLs,
}

var schedulePreviewCmd = &cobra.Command{
	Use:   "preview <id>",
	Short: "Show upcoming occurrences without materializing them",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchedulePreview,
}

var schedulePauseCmd = &cobra.Command{
	Use:   "pause <id>",
	Short: "Stop materializing a cadence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setCadenceActive(cmd, args[0], false)
	},
}

var scheduleResumeCmd = &cobra.Command{
	Use:   "resume <id>",
	Short: "Resume a paused cadence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setCadenceActive(cmd, args[0], true)
	},
}

var (
	addID          string
	addWorkspace   string
	addForm        string
	addName        string
	addPattern     string
	addTime        string
	addTimezone    string
	addDays        string
	addStart       string
	addEnd         string
	addWindowHours int
	addPaused      bool

	lsWorkspace string
	lsAll       bool

	previewDays int
)

func init() {
	f := scheduleAddCmd.Flags()
	f.StringVar(&addID, "id", "", "Cadence ID (default: generated)")
	f.StringVar(&addWorkspace, "workspace", "", "Workspace ID (required)")
	f.StringVar(&addForm, "form", "", "Form ID (required)")
	f.StringVar(&addName, "name", "", "Human-readable label")
	f.StringVar(&addPattern, "pattern", string(recurrence.Daily), "daily, weekly, monthly or quarterly")
	f.StringVar(&addTime, "time", "09:00", "Local time of day, HH:MM")
	f.StringVar(&addTimezone, "timezone", "", "IANA zone, city or abbreviation (default: this machine's zone)")
	f.StringVar(&addDays, "days", "all", "Weekdays for daily/weekly: 1,3,5 | mon,wed,fri | weekdays | all")
	f.StringVar(&addStart, "start", "", "First date, YYYY-MM-DD (default: today)")
	f.StringVar(&addEnd, "end", "", "Last date, YYYY-MM-DD")
	f.IntVar(&addWindowHours, "window", 2, "Completion window in hours")
	f.BoolVar(&addPaused, "paused", false, "Create the cadence inactive")
	_ = scheduleAddCmd.MarkFlagRequired("workspace")
	_ = scheduleAddCmd.MarkFlagRequired("form")

	scheduleLsCmd.Flags().StringVar(&lsWorkspace, "workspace", "", "Only this workspace")
	scheduleLsCmd.Flags().BoolVar(&lsAll, "all", false, "Include paused cadences")

	schedulePreviewCmd.Flags().IntVar(&previewDays, "days", 7, "How many days ahead to expand")

	ScheduleCmd.AddCommand(scheduleAddCmd)
	ScheduleCmd.AddCommand(scheduleImportCmd)
	ScheduleCmd.AddCommand(scheduleLsCmd)
	ScheduleCmd.AddCommand(schedulePreviewCmd)
	ScheduleCmd.AddCommand(schedulePauseCmd)
	ScheduleCmd.AddCommand(scheduleResumeCmd)
}

func runScheduleAdd(cmd *cobra.Command, args []string) error {
	c, err := cadenceFromFlags(time.Now())
	if err != nil {
		return err
	}

	database, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := cadence.NewStore(database).Create(cmd.Context(), c); err != nil {
		return err
	}
	pterm.Success.Printfln("Created cadence %s (%s at %s %s)",
		c.ID, c.Schedule.Pattern, recurrence.FormatTimeOfDay(c.Schedule.Time), c.Schedule.Timezone)
	return nil
}

// cadenceFromFlags builds a cadence from the add flags. The machine's zone is
// only a default suggestion; the stored zone is what recurrence math uses.
func cadenceFromFlags(now time.Time) (*cadence.Cadence, error) {
	pattern, err := recurrence.ParsePattern(addPattern)
	if err != nil {
		return nil, err
	}
	tod, err := recurrence.ParseTimeOfDay(addTime)
	if err != nil {
		return nil, err
	}

	tz := addTimezone
	if tz == "" {
		detected, err := geotime.DetectLocalTimezone()
		if err != nil {
			return nil, errors.WithHint(
				errors.Wrap(err, "could not detect local timezone"),
				"pass --timezone, e.g. --timezone America/New_York")
		}
		tz = detected
		logger.Logger.Infow("Using detected timezone", "timezone", tz)
	}

	var days []int
	if pattern == recurrence.Daily || pattern == recurrence.Weekly {
		if days, err = parseDays(addDays); err != nil {
			return nil, err
		}
	}

	start := civil.DateOf(now)
	if addStart != "" {
		if start, err = recurrence.ParseDate(addStart); err != nil {
			return nil, err
		}
	}
	var end *civil.Date
	if addEnd != "" {
		d, err := recurrence.ParseDate(addEnd)
		if err != nil {
			return nil, err
		}
		end = &d
	}

	return &cadence.Cadence{
		ID:          addID,
		WorkspaceID: addWorkspace,
		FormID:      addForm,
		Name:        addName,
		IsActive:    !addPaused,
		Schedule: recurrence.Schedule{
			Pattern:               pattern,
			Time:                  tod,
			Timezone:              tz,
			DaysOfWeek:            days,
			StartDate:             start,
			EndDate:               end,
			CompletionWindowHours: addWindowHours,
		},
	}, nil
}

func runScheduleImport(cmd *cobra.Command, args []string) error {
	database, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	created, err := cadence.ImportFile(cmd.Context(), cadence.NewStore(database), args[0])
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Imported %d cadence(s) from %s", len(created), args[0])
	return renderCadences(created)
}

func runScheduleLs(cmd *cobra.Command, args []string) error {
	database, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	store := cadence.NewStore(database)
	var list []*cadence.Cadence
	if lsAll || lsWorkspace != "" {
		list, err = store.List(cmd.Context(), lsWorkspace)
	} else {
		list, err = store.ListActive(cmd.Context())
	}
	if err != nil {
		return err
	}

	var shown []*cadence.Cadence
	for _, c := range list {
		if lsAll || c.IsActive {
			shown = append(shown, c)
		}
	}
	if len(shown) == 0 {
		pterm.Info.Println("No cadences")
		return nil
	}
	return renderCadences(shown)
}

func runSchedulePreview(cmd *cobra.Command, args []string) error {
	database, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	c, err := cadence.NewStore(database).Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	occurrences, err := recurrence.Expand(c.Schedule, now, now.AddDate(0, 0, previewDays))
	if err != nil {
		return err
	}
	if !c.IsActive {
		pterm.Warning.Println("Cadence is paused; these occurrences will not be materialized")
	}

	loc, _ := time.LoadLocation(c.Schedule.Timezone)
	data := pterm.TableData{{"Scheduled (UTC)", "Local", "Due (UTC)"}}
	for _, at := range occurrences {
		local := at.Format("Mon 2006-01-02 15:04 MST")
		if loc != nil {
			local = at.In(loc).Format("Mon 2006-01-02 15:04 MST")
		}
		data = append(data, []string{
			at.Format(time.RFC3339),
			local,
			c.Schedule.DueAt(at).Format(time.RFC3339),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func setCadenceActive(cmd *cobra.Command, id string, active bool) error {
	database, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := cadence.NewStore(database).SetActive(cmd.Context(), id, active); err != nil {
		return err
	}
	if active {
		pterm.Success.Printfln("Resumed cadence %s", id)
	} else {
		pterm.Success.Printfln("Paused cadence %s", id)
	}
	return nil
}

func renderCadences(list []*cadence.Cadence) error {
	data := pterm.TableData{{"ID", "Workspace", "Form", "Name", "Pattern", "Time", "Timezone", "Days", "Window", "Active"}}
	for _, c := range list {
		days := make([]string, len(c.Schedule.DaysOfWeek))
		for i, d := range c.Schedule.DaysOfWeek {
			days[i] = strconv.Itoa(d)
		}
		data = append(data, []string{
			c.ID,
			c.WorkspaceID,
			c.FormID,
			c.Name,
			string(c.Schedule.Pattern),
			recurrence.FormatTimeOfDay(c.Schedule.Time),
			c.Schedule.Timezone,
			strings.Join(days, ","),
			fmt.Sprintf("%dh", c.Schedule.CompletionWindowHours),
			strconv.FormatBool(c.IsActive),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
