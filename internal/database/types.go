package database

import (
	"time"
)

// EventKind is the closed set of attendance event kinds.
type EventKind string

const (
	EventCheckIn    EventKind = "check_in"
	EventCheckOut   EventKind = "check_out"
	EventBreakStart EventKind = "break_start"
	EventBreakEnd   EventKind = "break_end"
)

// Valid reports whether the kind is one of the known event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventCheckIn, EventCheckOut, EventBreakStart, EventBreakEnd:
		return true
	}
	return false
}

// StoredEmbedding represents a face embedding enrolled for an employee.
// Embeddings are append-only; revocation sets RevokedAt instead of deleting.
type StoredEmbedding struct {
	ID         int64
	EmployeeID string
	Embedding  []float32
	Model      string
	Dim        int
	Quality    int // enrollment quality score (0-100)
	CapturedAt time.Time
	CreatedAt  time.Time
	RevokedAt  *time.Time
}

// Active reports whether the embedding is still usable for matching.
func (e *StoredEmbedding) Active() bool {
	return e.RevokedAt == nil
}

// AttendanceEvent is a single append-only attendance event row.
// Confidence is set only for biometric-triggered events; manual entries
// leave it nil and set Verified via the admin path instead.
type AttendanceEvent struct {
	ID         string // UUID
	EmployeeID string
	Kind       EventKind
	Timestamp  time.Time
	Location   string
	Confidence *float64
	Verified   bool
	CreatedAt  time.Time
}

// StoredPolicy is an attendance policy row, versioned by effective date.
type StoredPolicy struct {
	ID               int64
	OrgID            string
	EffectiveFrom    time.Time
	ShiftStart       string // "HH:MM"
	ShiftEnd         string // "HH:MM"
	LateThresholdMin int
	EarlyLeaveMin    int
	BreakTotalMin    int
	BreakPaidMin     int
	OvertimeEnabled  bool
	OvertimeRate     float64
	CreatedAt        time.Time
}

// Employee is a row from the HRIS employee directory (read-only).
type Employee struct {
	ID         string
	FullName   string
	OrgID      string
	Active     bool
	HourlyRate float64
}

// ExceptionStatus is the approval state of an exception request.
type ExceptionStatus string

const (
	ExceptionPending      ExceptionStatus = "pending"
	ExceptionApproved     ExceptionStatus = "approved"
	ExceptionRejected     ExceptionStatus = "rejected"
	ExceptionAutoApproved ExceptionStatus = "auto_approved"
)

// Terminal reports whether the status can no longer change.
func (s ExceptionStatus) Terminal() bool {
	return s == ExceptionApproved || s == ExceptionRejected || s == ExceptionAutoApproved
}

// StoredException is a persisted exception request.
type StoredException struct {
	ID                 string // UUID
	EmployeeID         string
	OrgID              string
	Date               time.Time // calendar day of the attendance record
	Type               string    // late_weather, early_medical, ...
	Reason             string
	DocumentRef        string // empty when no supporting document
	DeviationMinutes   int
	RequestAdjustment  bool
	Status             ExceptionStatus
	AdjustmentMinutes  int
	AffectSalary       bool
	SalaryDeduction    float64
	AffectPerformance  bool
	PerformancePenalty float64
	DecidedBy          string // "rules" for auto approval, approver id otherwise
	DecidedAt          *time.Time
	CreatedAt          time.Time
}

// AuditEntry records a decision made about an exception request.
type AuditEntry struct {
	ID          int64
	ExceptionID string
	Actor       string
	Action      string
	Detail      string
	CreatedAt   time.Time
}

// StoredDayRecord is a cached daily attendance summary, written by the
// backfill command and after exception adjustments. The source of truth
// remains the event log; rows here are derived and overwritable.
type StoredDayRecord struct {
	EmployeeID       string
	OrgID            string
	Date             time.Time
	Status           string
	ClockIn          *time.Time
	ClockOut         *time.Time
	Late             bool
	LateMinutes      int
	EarlyLeave       bool
	EarlyLeaveMin    int
	BreakMinutes     int
	WorkMinutes      int
	OvertimeMinutes  int
	AdjustedMinutes  int
	AdjustmentReason string
	UpdatedAt        time.Time
}
