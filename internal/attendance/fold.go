package attendance

import (
	"sort"
	"time"

	"github.com/faceclock/faceclock/internal/database"
)

// DeriveDay folds one day's events into a DayRecord. The fold is pure:
// it sorts a copy of the events by timestamp and replays the state
// machine, so repeated invocations on the same input always produce an
// identical record. Events that are invalid for the current state (for
// example a stray second check-in inserted by an admin override) are
// skipped rather than corrupting the derived state.
func DeriveDay(employeeID string, date time.Time, events []database.AttendanceEvent, policy Policy, loc *time.Location) *DayRecord {
	rec := &DayRecord{
		EmployeeID: employeeID,
		Date:       DayOf(date, loc),
		Status:     StatusNotStarted,
	}

	ordered := make([]database.AttendanceEvent, len(events))
	copy(ordered, events)
	// Events may arrive out of submission order; the fold reorders by
	// timestamp. CreatedAt then ID break exact-timestamp ties so the
	// result stays deterministic.
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Timestamp.Equal(ordered[j].Timestamp) {
			return ordered[i].Timestamp.Before(ordered[j].Timestamp)
		}
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	var openBreak *time.Time
	for i := range ordered {
		ev := &ordered[i]
		switch ev.Kind {
		case database.EventCheckIn:
			if rec.Status != StatusNotStarted {
				continue
			}
			ts := ev.Timestamp
			rec.ClockIn = &ts
			rec.Status = StatusCheckedIn
			applyLateness(rec, policy, loc)

		case database.EventBreakStart:
			if rec.Status != StatusCheckedIn {
				continue
			}
			ts := ev.Timestamp
			openBreak = &ts
			rec.Status = StatusOnBreak

		case database.EventBreakEnd:
			if rec.Status != StatusOnBreak || openBreak == nil {
				continue
			}
			closeBreak(rec, *openBreak, ev.Timestamp, false, policy)
			openBreak = nil
			rec.Status = StatusCheckedIn

		case database.EventCheckOut:
			if rec.Status != StatusCheckedIn && rec.Status != StatusOnBreak {
				continue
			}
			if rec.Status == StatusOnBreak && openBreak != nil {
				// The open break is counted up to check-out for
				// compliance reporting only; no break-end event exists.
				closeBreak(rec, *openBreak, ev.Timestamp, true, policy)
				openBreak = nil
			}
			ts := ev.Timestamp
			rec.ClockOut = &ts
			rec.Status = StatusCheckedOut
			applyEarlyLeave(rec, policy, loc)
		}
	}

	computeWorkMinutes(rec, policy, loc)
	rec.AdjustedWorkMinutes = rec.WorkMinutes
	return rec
}

// applyLateness flags a late check-in. Only check-ins are evaluated here;
// check-out earliness is a separate flag.
func applyLateness(rec *DayRecord, policy Policy, loc *time.Location) {
	if rec.ClockIn == nil {
		return
	}
	tod := minutesSinceMidnight(*rec.ClockIn, loc)
	deadline := policy.ShiftStartMin + policy.LateThresholdMin
	if tod > deadline {
		rec.Late = true
		rec.LateMinutes = tod - deadline
	}
}

// applyEarlyLeave flags a check-out earlier than shift end minus the
// early-leave grace, symmetric to lateness.
func applyEarlyLeave(rec *DayRecord, policy Policy, loc *time.Location) {
	if rec.ClockOut == nil {
		return
	}
	tod := minutesSinceMidnight(*rec.ClockOut, loc)
	earliest := policy.ShiftEndMin - policy.EarlyLeaveMin
	if tod < earliest {
		rec.EarlyLeave = true
		rec.EarlyLeaveMinutes = earliest - tod
	}
}

// closeBreak appends a break session, recomputes cumulative compliance
// against the policy allowance and splits the session into paid/unpaid.
func closeBreak(rec *DayRecord, start, end time.Time, stillOpen bool, policy Policy) {
	if end.Before(start) {
		end = start
	}
	minutes := int(end.Sub(start) / time.Minute)

	session := BreakSession{
		Start:      start,
		InProgress: stillOpen,
		Minutes:    minutes,
	}
	if !stillOpen {
		e := end
		session.End = &e
	}

	cumulative := rec.BreakMinutes + minutes
	if cumulative > policy.BreakTotalMin {
		session.Exceeded = true
		session.ExceededMinutes = cumulative - policy.BreakTotalMin
		if session.ExceededMinutes > minutes {
			session.ExceededMinutes = minutes
		}
	}

	// Paid allowance is consumed in order; a session past the allowance
	// is paid only for the remaining portion.
	paidUsed := 0
	for _, b := range rec.Breaks {
		paidUsed += b.PaidMinutes
	}
	remaining := policy.BreakPaidMin - paidUsed
	if remaining < 0 {
		remaining = 0
	}
	if minutes <= remaining {
		session.PaidMinutes = minutes
	} else {
		session.PaidMinutes = remaining
	}
	session.UnpaidMinutes = minutes - session.PaidMinutes

	rec.Breaks = append(rec.Breaks, session)
	rec.BreakMinutes = cumulative
}

// computeWorkMinutes fills in work and overtime totals once the day's
// clock-in/out pair is known.
func computeWorkMinutes(rec *DayRecord, policy Policy, loc *time.Location) {
	if rec.ClockIn == nil || rec.ClockOut == nil {
		return
	}

	gross := int(rec.ClockOut.Sub(*rec.ClockIn) / time.Minute)
	work := gross - rec.BreakMinutes
	if work < 0 {
		work = 0
	}
	rec.WorkMinutes = work

	if !policy.OvertimeEnabled {
		return
	}

	outTod := minutesSinceMidnight(*rec.ClockOut, loc)
	if outTod <= policy.ShiftEndMin {
		return
	}
	overtime := outTod - policy.ShiftEndMin

	// Break time taken after shift end is not overtime.
	shiftEnd := rec.Date.Add(time.Duration(policy.ShiftEndMin) * time.Minute)
	for _, b := range rec.Breaks {
		end := rec.ClockOut
		if b.End != nil {
			end = b.End
		}
		if end.After(shiftEnd) {
			from := b.Start
			if from.Before(shiftEnd) {
				from = shiftEnd
			}
			overtime -= int(end.Sub(from) / time.Minute)
		}
	}
	if overtime < 0 {
		overtime = 0
	}
	rec.OvertimeMinutes = overtime
}
