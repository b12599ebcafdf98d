package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/faceclock/faceclock/internal/database"
)

// PolicyRepository stores attendance policies versioned by effective date.
type PolicyRepository struct {
	pool *Pool
}

// NewPolicyRepository creates a new PostgreSQL policy repository.
func NewPolicyRepository(pool *Pool) *PolicyRepository {
	return &PolicyRepository{pool: pool}
}

// GetEffectivePolicy returns the newest policy effective on or before the
// given day, or nil when the organization has none configured.
func (r *PolicyRepository) GetEffectivePolicy(ctx context.Context, orgID string, day time.Time) (*database.StoredPolicy, error) {
	query := `
		SELECT id, org_id, effective_from, shift_start, shift_end,
		       late_threshold_min, early_leave_min, break_total_min, break_paid_min,
		       overtime_enabled, overtime_rate, created_at
		FROM attendance_policies
		WHERE org_id = $1 AND effective_from <= $2
		ORDER BY effective_from DESC
		LIMIT 1
	`
	var p database.StoredPolicy
	err := r.pool.QueryRow(ctx, query, orgID, day.Format("2006-01-02")).Scan(
		&p.ID, &p.OrgID, &p.EffectiveFrom, &p.ShiftStart, &p.ShiftEnd,
		&p.LateThresholdMin, &p.EarlyLeaveMin, &p.BreakTotalMin, &p.BreakPaidMin,
		&p.OvertimeEnabled, &p.OvertimeRate, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query policy: %w", err)
	}
	return &p, nil
}

// SavePolicy stores a new policy version.
func (r *PolicyRepository) SavePolicy(ctx context.Context, policy *database.StoredPolicy) error {
	query := `
		INSERT INTO attendance_policies
			(org_id, effective_from, shift_start, shift_end,
			 late_threshold_min, early_leave_min, break_total_min, break_paid_min,
			 overtime_enabled, overtime_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		policy.OrgID,
		policy.EffectiveFrom.Format("2006-01-02"),
		policy.ShiftStart,
		policy.ShiftEnd,
		policy.LateThresholdMin,
		policy.EarlyLeaveMin,
		policy.BreakTotalMin,
		policy.BreakPaidMin,
		policy.OvertimeEnabled,
		policy.OvertimeRate,
	).Scan(&policy.ID, &policy.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert policy: %w", err)
	}
	return nil
}
