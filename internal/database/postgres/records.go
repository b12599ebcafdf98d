package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/faceclock/faceclock/internal/database"
)

// DayRecordRepository caches derived daily summaries.
type DayRecordRepository struct {
	pool *Pool
}

// NewDayRecordRepository creates a new day-record repository.
func NewDayRecordRepository(pool *Pool) *DayRecordRepository {
	return &DayRecordRepository{pool: pool}
}

// SaveDayRecord upserts a derived daily record.
func (r *DayRecordRepository) SaveDayRecord(ctx context.Context, rec *database.StoredDayRecord) error {
	query := `
		INSERT INTO daily_records
			(employee_id, org_id, date, status, clock_in, clock_out,
			 late, late_minutes, early_leave, early_leave_min,
			 break_minutes, work_minutes, overtime_minutes,
			 adjusted_minutes, adjustment_reason, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (employee_id, date) DO UPDATE SET
			org_id = EXCLUDED.org_id,
			status = EXCLUDED.status,
			clock_in = EXCLUDED.clock_in,
			clock_out = EXCLUDED.clock_out,
			late = EXCLUDED.late,
			late_minutes = EXCLUDED.late_minutes,
			early_leave = EXCLUDED.early_leave,
			early_leave_min = EXCLUDED.early_leave_min,
			break_minutes = EXCLUDED.break_minutes,
			work_minutes = EXCLUDED.work_minutes,
			overtime_minutes = EXCLUDED.overtime_minutes,
			adjusted_minutes = EXCLUDED.adjusted_minutes,
			adjustment_reason = EXCLUDED.adjustment_reason,
			updated_at = EXCLUDED.updated_at
	`
	var clockIn, clockOut sql.NullTime
	if rec.ClockIn != nil {
		clockIn = sql.NullTime{Time: *rec.ClockIn, Valid: true}
	}
	if rec.ClockOut != nil {
		clockOut = sql.NullTime{Time: *rec.ClockOut, Valid: true}
	}
	_, err := r.pool.Exec(ctx, query,
		rec.EmployeeID,
		rec.OrgID,
		rec.Date.Format("2006-01-02"),
		rec.Status,
		clockIn,
		clockOut,
		rec.Late,
		rec.LateMinutes,
		rec.EarlyLeave,
		rec.EarlyLeaveMin,
		rec.BreakMinutes,
		rec.WorkMinutes,
		rec.OvertimeMinutes,
		rec.AdjustedMinutes,
		rec.AdjustmentReason,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert day record: %w", err)
	}
	return nil
}
