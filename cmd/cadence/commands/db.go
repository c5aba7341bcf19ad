package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/cadence/db"
	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/sym"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: sym.DB + " Manage the cadence database",
	Long: sym.DB + ` db — Manage the cadence database

Examples:
  cadence db migrate              # Apply pending migrations
  cadence db stats                # Row counts by table and instance status`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE:  runDbMigrate,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	RunE:  runDbStats,
}

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatsCmd)
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	database, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	status, err := db.Status(cmd.Context(), database)
	if err != nil {
		return err
	}

	data := pterm.TableData{{"Version", "Migration", "Applied"}}
	for _, m := range status {
		applied := "pending"
		if m.Applied() {
			applied = *m.AppliedAt
		}
		data = append(data, []string{m.Version, m.Name, applied})
	}

	pterm.Success.Println("Database is up to date")
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func runDbStats(cmd *cobra.Command, args []string) error {
	database, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := cmd.Context()
	var cadences, active, runs int
	if err := database.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(is_active), 0) FROM cadences`).Scan(&cadences, &active); err != nil {
		return errors.Wrap(err, "failed to count cadences")
	}
	if err := database.QueryRowContext(ctx, `SELECT COUNT(*) FROM scheduler_runs`).Scan(&runs); err != nil {
		return errors.Wrap(err, "failed to count runs")
	}

	rows, err := database.QueryContext(ctx, `SELECT status, COUNT(*) FROM instances GROUP BY status ORDER BY status`)
	if err != nil {
		return errors.Wrap(err, "failed to count instances")
	}
	defer rows.Close()

	data := pterm.TableData{{"Instance status", "Count"}}
	total := 0
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return errors.Wrap(err, "failed to scan instance count")
		}
		total += n
		data = append(data, []string{status, fmt.Sprint(n)})
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "error iterating instance counts")
	}

	pterm.DefaultSection.Println(sym.DB + " Database statistics")
	pterm.Printfln("Cadences:  %d (%d active)", cadences, active)
	pterm.Printfln("Instances: %d", total)
	pterm.Printfln("Runs:      %d", runs)
	pterm.Println()
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
