// Package exceptions decides whether late/early deviations are excused
// automatically or parked for human review, and computes their salary and
// performance impact.
package exceptions

import (
	"github.com/faceclock/faceclock/internal/database"
)

// Exception types. The late_/early_ prefix encodes which deviation the
// request refers to.
const (
	TypeLateWeather   = "late_weather"
	TypeLateTraffic   = "late_traffic"
	TypeLatePersonal  = "late_personal"
	TypeEarlyMedical  = "early_medical"
	TypeEarlyPersonal = "early_personal"
)

// KnownType reports whether t is a recognized exception type.
func KnownType(t string) bool {
	switch t {
	case TypeLateWeather, TypeLateTraffic, TypeLatePersonal, TypeEarlyMedical, TypeEarlyPersonal:
		return true
	}
	return false
}

// MassLateRatioThreshold is the fraction of organization-wide late
// check-ins above which a weather exception is treated as a mass event.
const MassLateRatioThreshold = 0.3

// Context carries the signals the rules read besides the request itself.
type Context struct {
	OrgLateRatio float64 // fraction of the org's check-ins that were late that day
	HourlyRate   float64 // employee's rate, for the deduction computation
}

// Decision is the outcome of evaluating one exception request.
type Decision struct {
	Status                database.ExceptionStatus
	TimeAdjustmentMinutes int
	AffectSalary          bool
	SalaryDeduction       float64
	AffectPerformance     bool
	PerformancePenalty    float64
	Rule                  string // which rule matched, empty for pending
}

// RuleEngine evaluates exception requests. Evaluation is pure; applying a
// decision to storage is the Processor's job.
type RuleEngine struct{}

// NewRuleEngine creates a rule engine.
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{}
}

// performanceIncidentPenalty is the performance points charged per
// unexcused deviation.
const performanceIncidentPenalty = 1.0

// Evaluate computes the decision for a request. Auto-approval rules run
// in order; the first match wins:
//
//  1. early_medical with a supporting document
//  2. late_weather on a mass-late day (org late ratio above threshold)
//  3. otherwise pending, awaiting a human approver
//
// An auto-approved deviation is fully excused: the adjustment equals the
// deviation and salary/performance impact is zeroed. A pending request
// carries the provisional impact a rejection would make final.
func (e *RuleEngine) Evaluate(exc *database.StoredException, ctx Context) Decision {
	d := Decision{Status: database.ExceptionPending}

	if exc.RequestAdjustment {
		// The employee asks for the deviation to be excused rather than
		// paid out: no financial impact, work hours raised instead.
		d.TimeAdjustmentMinutes = exc.DeviationMinutes
	} else {
		d.AffectSalary = true
		d.SalaryDeduction = float64(exc.DeviationMinutes) / 60 * ctx.HourlyRate
		d.AffectPerformance = true
		d.PerformancePenalty = performanceIncidentPenalty
	}

	switch {
	case exc.Type == TypeEarlyMedical && exc.DocumentRef != "":
		d.Rule = "medical_documented"
	case exc.Type == TypeLateWeather && ctx.OrgLateRatio > MassLateRatioThreshold:
		d.Rule = "mass_late_event"
	default:
		return d
	}

	d.Status = database.ExceptionAutoApproved
	d.TimeAdjustmentMinutes = exc.DeviationMinutes
	d.AffectSalary = false
	d.SalaryDeduction = 0
	d.AffectPerformance = false
	d.PerformancePenalty = 0
	return d
}
