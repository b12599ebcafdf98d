package attendance

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/faceclock/faceclock/internal/database"
)

// Policy is the resolved attendance policy applied when folding a day.
// Times of day are minutes since midnight.
type Policy struct {
	ShiftStartMin    int
	ShiftEndMin      int
	LateThresholdMin int
	EarlyLeaveMin    int
	BreakTotalMin    int
	BreakPaidMin     int
	OvertimeEnabled  bool
	OvertimeRate     float64
}

// DefaultPolicy is the documented built-in fallback used when no policy
// row covers the date: shift 08:00-17:00, 15-minute late threshold.
func DefaultPolicy() Policy {
	return Policy{
		ShiftStartMin:    8 * 60,
		ShiftEndMin:      17 * 60,
		LateThresholdMin: 15,
		EarlyLeaveMin:    15,
		BreakTotalMin:    60,
		BreakPaidMin:     30,
		OvertimeEnabled:  false,
		OvertimeRate:     1.5,
	}
}

// ParseClock parses an "HH:MM" time of day into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// PolicyFromStored converts a policy row into a resolved Policy.
func PolicyFromStored(stored *database.StoredPolicy) (Policy, error) {
	start, err := ParseClock(stored.ShiftStart)
	if err != nil {
		return Policy{}, fmt.Errorf("shift start: %w", err)
	}
	end, err := ParseClock(stored.ShiftEnd)
	if err != nil {
		return Policy{}, fmt.Errorf("shift end: %w", err)
	}
	if end <= start {
		return Policy{}, fmt.Errorf("shift end %s not after start %s", stored.ShiftEnd, stored.ShiftStart)
	}
	return Policy{
		ShiftStartMin:    start,
		ShiftEndMin:      end,
		LateThresholdMin: stored.LateThresholdMin,
		EarlyLeaveMin:    stored.EarlyLeaveMin,
		BreakTotalMin:    stored.BreakTotalMin,
		BreakPaidMin:     stored.BreakPaidMin,
		OvertimeEnabled:  stored.OvertimeEnabled,
		OvertimeRate:     stored.OvertimeRate,
	}, nil
}
