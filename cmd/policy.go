package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/faceclock/faceclock/internal/attendance"
	"github.com/faceclock/faceclock/internal/database"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage attendance policies",
}

var policyShowCmd = &cobra.Command{
	Use:   "show <org-id>",
	Short: "Show the policy effective for an organization today",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyShow,
}

var policySetCmd = &cobra.Command{
	Use:   "set <org-id>",
	Short: "Store a new policy version for an organization",
	Long: `Store a new policy version for an organization.
Policies are versioned by effective date; the newest version effective
on or before a day applies to it. Existing versions are never changed,
so historical records keep folding against the policy of their day.`,
	Args: cobra.ExactArgs(1),
	RunE: runPolicySet,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyShowCmd)
	policyCmd.AddCommand(policySetCmd)

	policySetCmd.Flags().String("effective-from", "", "First day the policy applies as YYYY-MM-DD (default today)")
	policySetCmd.Flags().String("shift-start", "08:00", "Shift start as HH:MM")
	policySetCmd.Flags().String("shift-end", "17:00", "Shift end as HH:MM")
	policySetCmd.Flags().Int("late-threshold", 15, "Minutes after shift start before a check-in counts as late")
	policySetCmd.Flags().Int("early-leave", 15, "Minutes before shift end before a check-out counts as leaving early")
	policySetCmd.Flags().Int("break-total", 60, "Total break minutes allowed per day")
	policySetCmd.Flags().Int("break-paid", 30, "Paid break minutes per day")
	policySetCmd.Flags().Bool("overtime", false, "Count work after shift end as overtime")
	policySetCmd.Flags().Float64("overtime-rate", 1.5, "Overtime pay multiplier")
}

func runPolicyShow(cmd *cobra.Command, args []string) error {
	orgID := args[0]
	ctx := context.Background()

	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	policy := d.engine.EffectivePolicy(ctx, orgID, time.Now())
	fmt.Printf("Policy for org %s today:\n", orgID)
	fmt.Printf("  Shift:          %s - %s\n", attendance.FormatClock(policy.ShiftStartMin), attendance.FormatClock(policy.ShiftEndMin))
	fmt.Printf("  Late threshold: %d min\n", policy.LateThresholdMin)
	fmt.Printf("  Early leave:    %d min\n", policy.EarlyLeaveMin)
	fmt.Printf("  Breaks:         %d min total, %d paid\n", policy.BreakTotalMin, policy.BreakPaidMin)
	if policy.OvertimeEnabled {
		fmt.Printf("  Overtime:       enabled, rate %.2f\n", policy.OvertimeRate)
	} else {
		fmt.Printf("  Overtime:       disabled\n")
	}
	return nil
}

func runPolicySet(cmd *cobra.Command, args []string) error {
	orgID := args[0]

	ctx := context.Background()
	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	effectiveFrom := time.Now()
	if fromFlag := mustGetString(cmd, "effective-from"); fromFlag != "" {
		parsed, err := time.ParseInLocation("2006-01-02", fromFlag, d.engine.Location())
		if err != nil {
			return fmt.Errorf("--effective-from must be YYYY-MM-DD: %w", err)
		}
		effectiveFrom = parsed
	}

	stored := database.StoredPolicy{
		OrgID:            orgID,
		EffectiveFrom:    effectiveFrom,
		ShiftStart:       mustGetString(cmd, "shift-start"),
		ShiftEnd:         mustGetString(cmd, "shift-end"),
		LateThresholdMin: mustGetInt(cmd, "late-threshold"),
		EarlyLeaveMin:    mustGetInt(cmd, "early-leave"),
		BreakTotalMin:    mustGetInt(cmd, "break-total"),
		BreakPaidMin:     mustGetInt(cmd, "break-paid"),
		OvertimeEnabled:  mustGetBool(cmd, "overtime"),
		OvertimeRate:     mustGetFloat64(cmd, "overtime-rate"),
	}

	// Reject malformed clock values before they reach storage.
	if _, err := attendance.PolicyFromStored(&stored); err != nil {
		return fmt.Errorf("invalid policy: %w", err)
	}

	if err := d.policies.SavePolicy(ctx, &stored); err != nil {
		return fmt.Errorf("storing policy: %w", err)
	}
	fmt.Printf("Stored policy %d for org %s, effective from %s\n",
		stored.ID, orgID, effectiveFrom.Format("2006-01-02"))
	return nil
}
