package database

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateEvent is returned by AppendEvent when the insert would violate
// the one-check-in-per-day constraint. Callers rely on this being raised by
// the storage layer itself, not by a read-then-write check.
var ErrDuplicateEvent = errors.New("duplicate attendance event")

// EmbeddingReader provides read-only access to enrolled face embeddings
type EmbeddingReader interface {
	// GetByEmployee retrieves all embeddings (including revoked) for an employee
	GetByEmployee(ctx context.Context, employeeID string) ([]StoredEmbedding, error)
	// GetActive retrieves all non-revoked embeddings across the deployment
	GetActive(ctx context.Context) ([]StoredEmbedding, error)
	// Count returns the number of active embeddings
	Count(ctx context.Context) (int, error)
}

// EmbeddingWriter provides write access to enrolled face embeddings
type EmbeddingWriter interface {
	EmbeddingReader

	// SaveEmbedding stores a new embedding and fills in its ID.
	// Embeddings are immutable once stored.
	SaveEmbedding(ctx context.Context, emb *StoredEmbedding) error
	// RevokeEmbedding marks an embedding as revoked (never deletes)
	RevokeEmbedding(ctx context.Context, id int64) error
}

// EventReader provides read-only access to attendance events
type EventReader interface {
	// GetEventsForDay retrieves all events for an employee on a calendar day,
	// ordered by timestamp
	GetEventsForDay(ctx context.Context, employeeID string, day time.Time) ([]AttendanceEvent, error)
	// OrgLateRatio returns the fraction of the organization's check-ins on
	// the given day that were late (0 when nobody checked in)
	OrgLateRatio(ctx context.Context, orgID string, day time.Time) (float64, error)
}

// EventWriter provides append access to the attendance event log
type EventWriter interface {
	EventReader

	// AppendEvent inserts an event. The event date is derived from the
	// timestamp's own location, so callers must normalize timestamps to
	// the business time zone first. For check_in kinds the insert is
	// conditional: a second check-in for the same employee and day fails
	// with ErrDuplicateEvent, atomically, even under concurrent retries.
	AppendEvent(ctx context.Context, event *AttendanceEvent) error
}

// PolicyReader resolves the attendance policy effective for a date
type PolicyReader interface {
	// GetEffectivePolicy returns the newest policy effective on or before
	// the given day, or nil when the organization has none configured
	GetEffectivePolicy(ctx context.Context, orgID string, day time.Time) (*StoredPolicy, error)
}

// PolicyWriter provides write access to attendance policies
type PolicyWriter interface {
	PolicyReader

	// SavePolicy stores a new policy version
	SavePolicy(ctx context.Context, policy *StoredPolicy) error
}

// ExceptionStore persists exception requests and their audit trail
type ExceptionStore interface {
	// CreateException stores a new exception request
	CreateException(ctx context.Context, exc *StoredException) error
	// GetException retrieves an exception by ID, nil if not found
	GetException(ctx context.Context, id string) (*StoredException, error)
	// ListPending retrieves exceptions awaiting a human decision
	ListPending(ctx context.Context, orgID string) ([]StoredException, error)
	// UpdateDecision writes the decision fields of an exception.
	// Fails if the stored status is already terminal.
	UpdateDecision(ctx context.Context, exc *StoredException) error
	// AppendAudit records an audit trail entry for an exception
	AppendAudit(ctx context.Context, entry *AuditEntry) error
}

// DayRecordWriter caches derived daily summaries for reporting
type DayRecordWriter interface {
	// SaveDayRecord upserts a derived daily record
	SaveDayRecord(ctx context.Context, rec *StoredDayRecord) error
}

// Directory provides read-only access to the HRIS employee master data
type Directory interface {
	// GetEmployee retrieves an employee by ID, nil if not found
	GetEmployee(ctx context.Context, id string) (*Employee, error)
	// FindByName retrieves an employee by normalized full name, nil if not found
	FindByName(ctx context.Context, name string) (*Employee, error)
	// ListByOrg retrieves all employees of an organization
	ListByOrg(ctx context.Context, orgID string) ([]Employee, error)
}
