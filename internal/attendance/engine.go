package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/faceclock/faceclock/internal/database"
	"github.com/faceclock/faceclock/internal/notify"
)

// Engine validates attendance events against the per-day state machine
// and appends them to the event log. It holds no derived state; every
// decision starts from a fresh fold of the day's events.
type Engine struct {
	events    database.EventWriter
	policies  database.PolicyReader
	directory database.Directory
	records   database.DayRecordWriter // optional day-record cache
	sink      notify.Sink
	loc       *time.Location
	fallback  Policy
	locks     *dayLocks

	// now is swappable for tests.
	now func() time.Time
}

// NewEngine constructs an engine. The fallback policy is used, with a
// logged warning, whenever no policy row covers the requested date.
// records may be nil; when set, the derived summary is cached after
// every recorded event so organization-wide queries (late ratios) see
// the current day.
func NewEngine(
	events database.EventWriter,
	policies database.PolicyReader,
	directory database.Directory,
	records database.DayRecordWriter,
	sink notify.Sink,
	loc *time.Location,
	fallback Policy,
) *Engine {
	if loc == nil {
		loc = time.Local
	}
	if sink == nil {
		sink = notify.LogSink{}
	}
	return &Engine{
		events:    events,
		policies:  policies,
		directory: directory,
		records:   records,
		sink:      sink,
		loc:       loc,
		fallback:  fallback,
		locks:     newDayLocks(),
		now:       time.Now,
	}
}

// Location returns the business time zone used for day boundaries.
// Inbound dates and timestamps must be interpreted in this zone.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// RecordRequest describes one attendance event to record.
type RecordRequest struct {
	EmployeeID string
	Kind       database.EventKind
	Timestamp  time.Time // zero means now
	Location   string
	Confidence *float64 // set only for biometric-triggered events
	Verified   bool
}

// Record validates and appends one attendance event, returning the day's
// record after the event. Business rejections come back as *Error with a
// stable code; only storage faults return plain errors.
func (e *Engine) Record(ctx context.Context, req RecordRequest) (*DayRecord, error) {
	if !req.Kind.Valid() {
		return nil, E(CodeValidationFailed, fmt.Sprintf("unknown event kind %q", req.Kind))
	}
	if req.EmployeeID == "" {
		return nil, E(CodeValidationFailed, "employee id is required")
	}

	employee, err := e.directory.GetEmployee(ctx, req.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("looking up employee %s: %w", req.EmployeeID, err)
	}
	if employee == nil {
		return nil, E(CodeUserNotFound, "employee not found")
	}
	if !employee.Active {
		return nil, E(CodeUserInactive, "employee is deactivated")
	}

	ts := req.Timestamp
	if ts.IsZero() {
		ts = e.now()
	}
	// Normalize to the business time zone before anything derives a
	// calendar day from the timestamp. The storage layer computes the
	// event date from the timestamp's own location; without this a
	// timestamp carrying a foreign offset lands on the wrong day and
	// slips past the one-check-in-per-day guard.
	ts = ts.In(e.loc)
	day := DayOf(ts, e.loc)

	// Serialize per employee+day so the fold below stays coherent with
	// the append. The storage layer's conditional insert remains the
	// authoritative duplicate guard across processes.
	unlock := e.locks.acquire(req.EmployeeID + "|" + day.Format("2006-01-02"))
	defer unlock()

	events, err := e.events.GetEventsForDay(ctx, req.EmployeeID, day)
	if err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}

	policy := e.effectivePolicy(ctx, employee.OrgID, day)
	rec := DeriveDay(req.EmployeeID, day, events, policy, e.loc)

	if err := validateTransition(rec.Status, req.Kind); err != nil {
		return nil, err
	}

	event := database.AttendanceEvent{
		ID:         uuid.NewString(),
		EmployeeID: req.EmployeeID,
		Kind:       req.Kind,
		Timestamp:  ts,
		Location:   req.Location,
		Confidence: req.Confidence,
		Verified:   req.Verified,
		CreatedAt:  e.now(),
	}
	if err := e.events.AppendEvent(ctx, &event); err != nil {
		if errors.Is(err, database.ErrDuplicateEvent) {
			// A concurrent retry won the conditional insert.
			return nil, E(CodeAlreadyCheckedIn, "already checked in today")
		}
		return nil, fmt.Errorf("appending event: %w", err)
	}

	rec = DeriveDay(req.EmployeeID, day, append(events, event), policy, e.loc)
	e.cacheRecord(ctx, rec, employee.OrgID)
	e.publish(rec, req.Kind, ts)
	return rec, nil
}

// cacheRecord upserts the derived summary. Cache failures are logged,
// never surfaced: the event append already succeeded and the cache can
// be rebuilt by backfill.
func (e *Engine) cacheRecord(ctx context.Context, rec *DayRecord, orgID string) {
	if e.records == nil {
		return
	}
	stored := StoredFromRecord(rec)
	stored.OrgID = orgID
	stored.UpdatedAt = e.now()
	if err := e.records.SaveDayRecord(ctx, stored); err != nil {
		log.Printf("WARNING: caching day record for %s: %v", rec.EmployeeID, err)
	}
}

// StoredFromRecord converts a derived record into its storable form.
func StoredFromRecord(rec *DayRecord) *database.StoredDayRecord {
	return &database.StoredDayRecord{
		EmployeeID:       rec.EmployeeID,
		Date:             rec.Date,
		Status:           string(rec.Status),
		ClockIn:          rec.ClockIn,
		ClockOut:         rec.ClockOut,
		Late:             rec.Late,
		LateMinutes:      rec.LateMinutes,
		EarlyLeave:       rec.EarlyLeave,
		EarlyLeaveMin:    rec.EarlyLeaveMinutes,
		BreakMinutes:     rec.BreakMinutes,
		WorkMinutes:      rec.WorkMinutes,
		OvertimeMinutes:  rec.OvertimeMinutes,
		AdjustedMinutes:  rec.AdjustedWorkMinutes,
		AdjustmentReason: rec.AdjustmentReason,
	}
}

// Status derives the current day record for an employee without mutating
// anything. Pure fold: invoking it any number of times yields the same
// record for the same underlying events.
func (e *Engine) Status(ctx context.Context, employeeID string, date time.Time) (*DayRecord, error) {
	employee, err := e.directory.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("looking up employee %s: %w", employeeID, err)
	}
	if employee == nil {
		return nil, E(CodeUserNotFound, "employee not found")
	}

	day := DayOf(date, e.loc)
	events, err := e.events.GetEventsForDay(ctx, employeeID, day)
	if err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}

	policy := e.effectivePolicy(ctx, employee.OrgID, day)
	return DeriveDay(employeeID, day, events, policy, e.loc), nil
}

// EffectivePolicy resolves the policy for an organization and day,
// falling back to the built-in default when none is configured.
func (e *Engine) EffectivePolicy(ctx context.Context, orgID string, day time.Time) Policy {
	return e.effectivePolicy(ctx, orgID, day)
}

func (e *Engine) effectivePolicy(ctx context.Context, orgID string, day time.Time) Policy {
	stored, err := e.policies.GetEffectivePolicy(ctx, orgID, day)
	if err != nil {
		log.Printf("WARNING: loading policy for org %s: %v; using default", orgID, err)
		return e.fallback
	}
	if stored == nil {
		// POLICY_NOT_CONFIGURED is a warning, not a failure.
		log.Printf("WARNING: no policy configured for org %s on %s; using default", orgID, day.Format("2006-01-02"))
		return e.fallback
	}
	policy, err := PolicyFromStored(stored)
	if err != nil {
		log.Printf("WARNING: invalid policy %d for org %s: %v; using default", stored.ID, orgID, err)
		return e.fallback
	}
	return policy
}

// validateTransition checks an event kind against the folded day state.
func validateTransition(status Status, kind database.EventKind) error {
	switch kind {
	case database.EventCheckIn:
		switch status {
		case StatusNotStarted:
			return nil
		case StatusCheckedOut:
			return E(CodeAlreadyCheckedOut, "already checked out today")
		default:
			return E(CodeAlreadyCheckedIn, "already checked in today")
		}
	case database.EventCheckOut:
		switch status {
		case StatusCheckedIn, StatusOnBreak:
			return nil
		case StatusCheckedOut:
			return E(CodeAlreadyCheckedOut, "already checked out today")
		default:
			return E(CodeNotCheckedIn, "not checked in yet")
		}
	case database.EventBreakStart:
		switch status {
		case StatusCheckedIn:
			return nil
		case StatusOnBreak:
			return E(CodeBreakInProgress, "a break is already in progress")
		case StatusCheckedOut:
			return E(CodeAlreadyCheckedOut, "already checked out today")
		default:
			return E(CodeNotCheckedIn, "not checked in yet")
		}
	case database.EventBreakEnd:
		if status == StatusOnBreak {
			return nil
		}
		return E(CodeNoActiveBreak, "no break in progress")
	}
	return E(CodeValidationFailed, fmt.Sprintf("unknown event kind %q", kind))
}

// publish forwards domain events to the notification sink.
func (e *Engine) publish(rec *DayRecord, kind database.EventKind, at time.Time) {
	var name string
	switch kind {
	case database.EventCheckIn:
		name = notify.CheckInRecorded
	case database.EventCheckOut:
		name = notify.CheckOutRecorded
	case database.EventBreakStart:
		name = notify.BreakStarted
	case database.EventBreakEnd:
		name = notify.BreakEnded
	}
	e.sink.Publish(notify.Event{
		Kind:       name,
		EmployeeID: rec.EmployeeID,
		At:         at,
		Detail:     map[string]string{"status": string(rec.Status)},
	})

	if kind == database.EventCheckIn && rec.Late {
		e.sink.Publish(notify.Event{
			Kind:       notify.LateArrival,
			EmployeeID: rec.EmployeeID,
			At:         at,
			Detail:     map[string]string{"lateMinutes": strconv.Itoa(rec.LateMinutes)},
		})
	}
}
