package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/faceclock/faceclock/internal/attendance"
)

var statusCmd = &cobra.Command{
	Use:   "status <employee-id>",
	Short: "Show an employee's attendance record for a day",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().String("date", "", "Day to show as YYYY-MM-DD (default today)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	employeeID := args[0]

	ctx := context.Background()
	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	day := time.Now()
	if dateFlag := mustGetString(cmd, "date"); dateFlag != "" {
		// Interpret the date in the business time zone.
		parsed, err := time.ParseInLocation("2006-01-02", dateFlag, d.engine.Location())
		if err != nil {
			return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
		}
		day = parsed
	}

	rec, err := d.engine.Status(ctx, employeeID, day)
	if err != nil {
		return fmt.Errorf("deriving day record: %w", err)
	}

	printDayRecord(rec)
	return nil
}

func printDayRecord(rec *attendance.DayRecord) {
	fmt.Printf("%s on %s: %s\n", rec.EmployeeID, rec.Date.Format("2006-01-02"), rec.Status)
	if rec.ClockIn != nil {
		late := ""
		if rec.Late {
			late = fmt.Sprintf(" (late %d min)", rec.LateMinutes)
		}
		fmt.Printf("  Clock in:  %s%s\n", rec.ClockIn.Format("15:04"), late)
	}
	if rec.ClockOut != nil {
		early := ""
		if rec.EarlyLeave {
			early = fmt.Sprintf(" (early %d min)", rec.EarlyLeaveMinutes)
		}
		fmt.Printf("  Clock out: %s%s\n", rec.ClockOut.Format("15:04"), early)
	}
	exceeded := 0
	for _, b := range rec.Breaks {
		exceeded += b.ExceededMinutes
	}
	fmt.Printf("  Breaks:    %d min", rec.BreakMinutes)
	if exceeded > 0 {
		fmt.Printf(" (exceeded by %d min)", exceeded)
	}
	fmt.Println()
	fmt.Printf("  Worked:    %d min", rec.WorkMinutes)
	if rec.OvertimeMinutes > 0 {
		fmt.Printf(" (+%d overtime)", rec.OvertimeMinutes)
	}
	fmt.Println()
	if rec.AdjustmentReason != "" {
		fmt.Printf("  Adjusted:  %d min (%s)\n", rec.AdjustedWorkMinutes, rec.AdjustmentReason)
	}
}
