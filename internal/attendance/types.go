// Package attendance derives daily attendance records from the append-only
// event log and validates state transitions for new events.
package attendance

import (
	"time"
)

// Status is the derived state of an employee's day.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusCheckedIn  Status = "checked_in"
	StatusOnBreak    Status = "on_break"
	StatusCheckedOut Status = "checked_out"
)

// BreakSession is one break within a day. A session left open at check-out
// keeps InProgress set; its minutes are counted up to the check-out time
// for compliance reporting, but no break-end event is ever fabricated.
type BreakSession struct {
	Start           time.Time  `json:"start"`
	End             *time.Time `json:"end,omitempty"`
	InProgress      bool       `json:"inProgress"`
	Minutes         int        `json:"minutes"`
	Exceeded        bool       `json:"exceeded"`
	ExceededMinutes int        `json:"exceededMinutes"`
	PaidMinutes     int        `json:"paidMinutes"`
	UnpaidMinutes   int        `json:"unpaidMinutes"`
}

// DayRecord is the single authoritative summary of one employee's calendar
// day, derived by folding that day's events in timestamp order.
type DayRecord struct {
	EmployeeID string    `json:"employeeId"`
	Date       time.Time `json:"date"` // midnight, local to the deployment

	Status   Status     `json:"status"`
	ClockIn  *time.Time `json:"clockIn,omitempty"`
	ClockOut *time.Time `json:"clockOut,omitempty"`

	Late        bool `json:"late"`
	LateMinutes int  `json:"lateMinutes"`

	EarlyLeave        bool `json:"earlyLeave"`
	EarlyLeaveMinutes int  `json:"earlyLeaveMinutes"`

	Breaks       []BreakSession `json:"breaks,omitempty"`
	BreakMinutes int            `json:"breakMinutes"`

	WorkMinutes     int `json:"workMinutes"`
	OvertimeMinutes int `json:"overtimeMinutes"`

	// Set by the exception engine when an approved request adjusts the day.
	AdjustedWorkMinutes int    `json:"adjustedWorkMinutes"`
	AdjustmentReason    string `json:"adjustmentReason,omitempty"`
}

// DayOf truncates a timestamp to its calendar day in the given location.
func DayOf(ts time.Time, loc *time.Location) time.Time {
	t := ts.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// minutesSinceMidnight returns the time of day of ts in loc, in minutes.
func minutesSinceMidnight(ts time.Time, loc *time.Location) int {
	t := ts.In(loc)
	return t.Hour()*60 + t.Minute()
}
