package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/faceclock/faceclock/internal/attendance"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill <org-id>",
	Short: "Rebuild the daily record cache from the event log",
	Long: `Rebuild the daily record cache from the event log.
Re-derives every employee's daily record for the requested date range
and upserts the results. Safe to run repeatedly: the event log is the
source of truth and derived rows are overwritable. Exception
adjustments applied after the covered dates are re-applied by their
approvals, not by this command.`,
	Args: cobra.ExactArgs(1),
	RunE: runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)

	backfillCmd.Flags().String("from", "", "First day to rebuild as YYYY-MM-DD (required)")
	backfillCmd.Flags().String("to", "", "Last day to rebuild as YYYY-MM-DD (default today)")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	orgID := args[0]

	ctx := context.Background()
	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	// Day boundaries follow the business time zone.
	loc := d.engine.Location()
	from, err := time.ParseInLocation("2006-01-02", mustGetString(cmd, "from"), loc)
	if err != nil {
		return fmt.Errorf("--from must be YYYY-MM-DD: %w", err)
	}
	to := time.Now().In(loc)
	if toFlag := mustGetString(cmd, "to"); toFlag != "" {
		to, err = time.ParseInLocation("2006-01-02", toFlag, loc)
		if err != nil {
			return fmt.Errorf("--to must be YYYY-MM-DD: %w", err)
		}
	}
	if to.Before(from) {
		return fmt.Errorf("--to %s is before --from %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}

	employees, err := d.directory.ListByOrg(ctx, orgID)
	if err != nil {
		return fmt.Errorf("listing employees: %w", err)
	}
	if len(employees) == 0 {
		fmt.Printf("No employees found for org %s\n", orgID)
		return nil
	}

	days := int(to.Sub(from).Hours()/24) + 1
	fmt.Printf("Rebuilding %d days for %d employees...\n", days, len(employees))

	bar := progressbar.NewOptions(days*len(employees),
		progressbar.OptionSetDescription("Rebuilding records"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("records"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var written, errored int
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		for _, emp := range employees {
			rec, err := d.engine.Status(ctx, emp.ID, day)
			if err != nil {
				errored++
				bar.Add(1)
				continue
			}

			stored := attendance.StoredFromRecord(rec)
			stored.OrgID = orgID
			stored.UpdatedAt = time.Now()
			if err := d.records.SaveDayRecord(ctx, stored); err != nil {
				errored++
			} else {
				written++
			}
			bar.Add(1)
		}
	}
	fmt.Println()

	fmt.Printf("Done: %d records written", written)
	if errored > 0 {
		fmt.Printf(", %d failed", errored)
	}
	fmt.Println()
	return nil
}
