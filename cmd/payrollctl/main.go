/*
payrollctl - Operator CLI for maintenance passes

PURPOSE:
  Runs the team-scoped deduplication sweep and the reconciliation audit
  against the database directly, without going through the HTTP server.
  Meant for cron jobs and one-off operator investigations.

USAGE:
  payrollctl dedupe --db payroll.db --team crew-7 --date 2026-08-31
  payrollctl audit  --db payroll.db --employee emp-42 \
      --from 2026-08-01 --to 2026-08-31 --csv

SEE ALSO:
  - engine/dedupe.go: The sweep this drives
  - engine/audit.go: The reconciliation pass and CSV export
*/
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/store/sqlite"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "payrollctl",
	Short: "Maintenance CLI for the payroll-hour engine",
	Long: `payrollctl runs the engine's maintenance passes directly against the
database: the duplicate-shift sweep and the reconciliation audit.`,
}

var (
	dedupeTeam string
	dedupeDate string
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Remove duplicate shift recordings for a team and date",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := engine.ParseWorkDate(dedupeDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}

		store, err := sqlite.New(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		aggregator := &engine.Aggregator{
			Shifts:     store,
			Segments:   store,
			Aggregates: store,
			Holidays:   store,
		}
		dedupe := &engine.Deduplicator{
			Shifts:     store,
			Segments:   store,
			Teams:      store,
			Aggregator: aggregator,
		}

		result, err := dedupe.Dedupe(context.Background(), engine.TeamID(dedupeTeam), date)
		if err != nil {
			return err
		}

		fmt.Printf("kept %d shift(s), removed %d duplicate(s)\n", len(result.Kept), len(result.Removed))
		for _, shift := range result.Removed {
			fmt.Printf("  removed %s (%s, start %s)\n", shift.ID, shift.EmployeeID, shift.Start.Format("15:04:05"))
		}
		return nil
	},
}

var (
	auditEmployee string
	auditFrom     string
	auditTo       string
	auditCSV      bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Reconcile raw shifts against stored aggregates for an employee",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := engine.ParseWorkDate(auditFrom)
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		to, err := engine.ParseWorkDate(auditTo)
		if err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}

		store, err := sqlite.New(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		auditor := &engine.Auditor{Shifts: store, Aggregates: store}
		results, err := auditor.Audit(context.Background(), engine.EmployeeID(auditEmployee), from, to)
		if err != nil {
			return err
		}

		if auditCSV {
			return engine.WriteCSV(os.Stdout, results)
		}

		for _, r := range results {
			aggTotal := "-"
			if r.AggregateTotal != nil {
				aggTotal = r.AggregateTotal.String()
			}
			line := fmt.Sprintf("%s  entries=%s aggregate=%s delta=%s",
				r.Date, r.EntriesTotal, aggTotal, r.Delta)
			if r.Discrepancy {
				line += " DISCREPANCY"
			}
			if r.Incomplete {
				line += " INCOMPLETE"
			}
			if r.MissingAggregate {
				line += " MISSING_AGGREGATE"
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "payroll.db", "SQLite database path")

	dedupeCmd.Flags().StringVar(&dedupeTeam, "team", "", "team ID (required)")
	dedupeCmd.Flags().StringVar(&dedupeDate, "date", "", "work date, ISO format (required)")
	dedupeCmd.MarkFlagRequired("team")
	dedupeCmd.MarkFlagRequired("date")

	auditCmd.Flags().StringVar(&auditEmployee, "employee", "", "employee ID (required)")
	auditCmd.Flags().StringVar(&auditFrom, "from", "", "range start, ISO date (required)")
	auditCmd.Flags().StringVar(&auditTo, "to", "", "range end, ISO date (required)")
	auditCmd.Flags().BoolVar(&auditCSV, "csv", false, "emit the flat CSV export")
	auditCmd.MarkFlagRequired("employee")
	auditCmd.MarkFlagRequired("from")
	auditCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(dedupeCmd)
	rootCmd.AddCommand(auditCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
