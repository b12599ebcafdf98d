package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/faceclock/faceclock/internal/database"
)

// EventRepository provides append access to the attendance event log.
type EventRepository struct {
	pool *Pool
}

// NewEventRepository creates a new PostgreSQL event repository.
func NewEventRepository(pool *Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// GetEventsForDay retrieves all events for an employee on a calendar day.
func (r *EventRepository) GetEventsForDay(ctx context.Context, employeeID string, day time.Time) ([]database.AttendanceEvent, error) {
	query := `
		SELECT id, employee_id, kind, ts, location, confidence, verified, created_at
		FROM attendance_events
		WHERE employee_id = $1 AND event_date = $2
		ORDER BY ts, created_at
	`
	rows, err := r.pool.Query(ctx, query, employeeID, day.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []database.AttendanceEvent
	for rows.Next() {
		var ev database.AttendanceEvent
		var confidence sql.NullFloat64
		if err := rows.Scan(&ev.ID, &ev.EmployeeID, &ev.Kind, &ev.Timestamp,
			&ev.Location, &confidence, &ev.Verified, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if confidence.Valid {
			c := confidence.Float64
			ev.Confidence = &c
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// OrgLateRatio returns the fraction of an organization's check-ins that
// were late on a day. Lateness is read from the daily_records cache,
// which the engine and backfill keep current; days without cached
// records report 0.
func (r *EventRepository) OrgLateRatio(ctx context.Context, orgID string, day time.Time) (float64, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE late),
			COUNT(*)
		FROM daily_records
		WHERE date = $1 AND org_id = $2 AND clock_in IS NOT NULL
	`
	var late, total int
	if err := r.pool.QueryRow(ctx, query, day.Format("2006-01-02"), orgID).Scan(&late, &total); err != nil {
		return 0, fmt.Errorf("query late ratio: %w", err)
	}
	if total == 0 {
		return 0, nil
	}
	return float64(late) / float64(total), nil
}

// AppendEvent inserts an event. event_date is formatted from the
// timestamp's own location; the engine normalizes timestamps to the
// business time zone before they reach this layer. The partial unique
// index on (employee_id, event_date) for check-ins makes the duplicate
// check atomic; a losing concurrent insert comes back as
// ErrDuplicateEvent.
func (r *EventRepository) AppendEvent(ctx context.Context, event *database.AttendanceEvent) error {
	query := `
		INSERT INTO attendance_events (id, employee_id, kind, ts, event_date, location, confidence, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	var confidence sql.NullFloat64
	if event.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *event.Confidence, Valid: true}
	}
	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.EmployeeID,
		string(event.Kind),
		event.Timestamp,
		event.Timestamp.Format("2006-01-02"),
		event.Location,
		confidence,
		event.Verified,
		event.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return database.ErrDuplicateEvent
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}
