package exceptions

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/faceclock/faceclock/internal/attendance"
	"github.com/faceclock/faceclock/internal/database"
	"github.com/faceclock/faceclock/internal/notify"
)

// Processor runs the rule engine against incoming exception requests and
// persists the outcome. It reads the attendance record it references but
// never mutates the event log; approved adjustments land in the derived
// day-record cache.
type Processor struct {
	rules      *RuleEngine
	store      database.ExceptionStore
	events     database.EventReader
	directory  database.Directory
	records    database.DayRecordWriter
	attendance *attendance.Engine
	sink       notify.Sink

	now func() time.Time
}

// NewProcessor wires a processor.
func NewProcessor(
	store database.ExceptionStore,
	events database.EventReader,
	directory database.Directory,
	records database.DayRecordWriter,
	att *attendance.Engine,
	sink notify.Sink,
) *Processor {
	if sink == nil {
		sink = notify.LogSink{}
	}
	return &Processor{
		rules:      NewRuleEngine(),
		store:      store,
		events:     events,
		directory:  directory,
		records:    records,
		attendance: att,
		sink:       sink,
		now:        time.Now,
	}
}

// Location returns the business time zone exception dates are
// interpreted in.
func (p *Processor) Location() *time.Location {
	return p.attendance.Location()
}

// Submit validates, evaluates and persists a new exception request.
// The returned request reflects the decision.
func (p *Processor) Submit(ctx context.Context, exc *database.StoredException) (*database.StoredException, error) {
	if !KnownType(exc.Type) {
		return nil, attendance.E(attendance.CodeValidationFailed, fmt.Sprintf("unknown exception type %q", exc.Type))
	}
	if exc.DeviationMinutes <= 0 {
		return nil, attendance.E(attendance.CodeValidationFailed, "deviation minutes must be positive")
	}

	employee, err := p.directory.GetEmployee(ctx, exc.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("looking up employee: %w", err)
	}
	if employee == nil {
		return nil, attendance.E(attendance.CodeUserNotFound, "employee not found")
	}
	exc.OrgID = employee.OrgID

	ratio, err := p.events.OrgLateRatio(ctx, employee.OrgID, exc.Date)
	if err != nil {
		return nil, fmt.Errorf("loading org late ratio: %w", err)
	}

	decision := p.rules.Evaluate(exc, Context{
		OrgLateRatio: ratio,
		HourlyRate:   employee.HourlyRate,
	})

	if exc.ID == "" {
		exc.ID = uuid.NewString()
	}
	exc.CreatedAt = p.now()
	applyDecision(exc, decision, p.now())

	if err := p.store.CreateException(ctx, exc); err != nil {
		return nil, fmt.Errorf("storing exception: %w", err)
	}

	if decision.Status == database.ExceptionAutoApproved {
		if err := p.applyAdjustment(ctx, exc); err != nil {
			return nil, err
		}
		if err := p.audit(ctx, exc.ID, "rules", "auto_approve", decision.Rule); err != nil {
			return nil, err
		}
		p.sink.Publish(notify.Event{
			Kind:       notify.ExceptionAutoApproved,
			EmployeeID: exc.EmployeeID,
			At:         p.now(),
			Detail: map[string]string{
				"rule":              decision.Rule,
				"adjustmentMinutes": strconv.Itoa(decision.TimeAdjustmentMinutes),
			},
		})
	} else {
		if err := p.audit(ctx, exc.ID, exc.EmployeeID, "submit", exc.Reason); err != nil {
			return nil, err
		}
		p.sink.Publish(notify.Event{
			Kind:       notify.ExceptionPending,
			EmployeeID: exc.EmployeeID,
			At:         p.now(),
			Detail:     map[string]string{"type": exc.Type},
		})
	}

	return exc, nil
}

// Decide applies a human approver's decision to a pending request.
func (p *Processor) Decide(ctx context.Context, id, approver string, approve bool, note string) (*database.StoredException, error) {
	exc, err := p.store.GetException(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading exception: %w", err)
	}
	if exc == nil {
		return nil, attendance.E(attendance.CodeValidationFailed, "exception not found")
	}
	if exc.Status.Terminal() {
		return nil, attendance.E(attendance.CodeValidationFailed, "exception already decided")
	}

	now := p.now()
	action := "reject"
	if approve {
		action = "approve"
		exc.Status = database.ExceptionApproved
		exc.AdjustmentMinutes = exc.DeviationMinutes
		exc.AffectSalary = false
		exc.SalaryDeduction = 0
		exc.AffectPerformance = false
		exc.PerformancePenalty = 0
	} else {
		exc.Status = database.ExceptionRejected
	}
	exc.DecidedBy = approver
	exc.DecidedAt = &now

	if err := p.store.UpdateDecision(ctx, exc); err != nil {
		return nil, fmt.Errorf("updating exception: %w", err)
	}
	if approve {
		if err := p.applyAdjustment(ctx, exc); err != nil {
			return nil, err
		}
	}
	if err := p.audit(ctx, exc.ID, approver, action, note); err != nil {
		return nil, err
	}
	return exc, nil
}

// Pending lists requests awaiting a human decision.
func (p *Processor) Pending(ctx context.Context, orgID string) ([]database.StoredException, error) {
	return p.store.ListPending(ctx, orgID)
}

// applyAdjustment folds the referenced day and writes the adjusted
// summary to the day-record cache. The event log is never touched.
func (p *Processor) applyAdjustment(ctx context.Context, exc *database.StoredException) error {
	rec, err := p.attendance.Status(ctx, exc.EmployeeID, exc.Date)
	if err != nil {
		return fmt.Errorf("deriving day record: %w", err)
	}
	rec.AdjustedWorkMinutes = rec.WorkMinutes + exc.AdjustmentMinutes
	rec.AdjustmentReason = exc.Type + ": " + exc.Reason

	stored := attendance.StoredFromRecord(rec)
	stored.OrgID = exc.OrgID
	stored.UpdatedAt = p.now()
	if err := p.records.SaveDayRecord(ctx, stored); err != nil {
		return fmt.Errorf("saving adjusted day record: %w", err)
	}
	return nil
}

func (p *Processor) audit(ctx context.Context, excID, actor, action, detail string) error {
	entry := database.AuditEntry{
		ExceptionID: excID,
		Actor:       actor,
		Action:      action,
		Detail:      detail,
		CreatedAt:   p.now(),
	}
	if err := p.store.AppendAudit(ctx, &entry); err != nil {
		return fmt.Errorf("writing audit entry: %w", err)
	}
	return nil
}

func applyDecision(exc *database.StoredException, d Decision, now time.Time) {
	exc.Status = d.Status
	exc.AdjustmentMinutes = d.TimeAdjustmentMinutes
	exc.AffectSalary = d.AffectSalary
	exc.SalaryDeduction = d.SalaryDeduction
	exc.AffectPerformance = d.AffectPerformance
	exc.PerformancePenalty = d.PerformancePenalty
	if d.Status == database.ExceptionAutoApproved {
		exc.DecidedBy = "rules"
		exc.DecidedAt = &now
	}
}
