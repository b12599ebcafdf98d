package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/faceclock/faceclock/internal/database"
)

// ExceptionRepository persists exception requests and their audit trail.
type ExceptionRepository struct {
	pool *Pool
}

// NewExceptionRepository creates a new exception repository.
func NewExceptionRepository(pool *Pool) *ExceptionRepository {
	return &ExceptionRepository{pool: pool}
}

const exceptionColumns = `id, employee_id, org_id, date, type, reason, document_ref,
	deviation_minutes, request_adjustment, status, adjustment_minutes,
	affect_salary, salary_deduction, affect_performance, performance_penalty,
	decided_by, decided_at, created_at`

func scanException(scan func(dest ...any) error) (database.StoredException, error) {
	var exc database.StoredException
	var decidedAt sql.NullTime
	err := scan(
		&exc.ID, &exc.EmployeeID, &exc.OrgID, &exc.Date, &exc.Type, &exc.Reason, &exc.DocumentRef,
		&exc.DeviationMinutes, &exc.RequestAdjustment, &exc.Status, &exc.AdjustmentMinutes,
		&exc.AffectSalary, &exc.SalaryDeduction, &exc.AffectPerformance, &exc.PerformancePenalty,
		&exc.DecidedBy, &decidedAt, &exc.CreatedAt,
	)
	if err != nil {
		return exc, err
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		exc.DecidedAt = &t
	}
	return exc, nil
}

// CreateException stores a new exception request.
func (r *ExceptionRepository) CreateException(ctx context.Context, exc *database.StoredException) error {
	query := `
		INSERT INTO exceptions (` + exceptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	var decidedAt sql.NullTime
	if exc.DecidedAt != nil {
		decidedAt = sql.NullTime{Time: *exc.DecidedAt, Valid: true}
	}
	_, err := r.pool.Exec(ctx, query,
		exc.ID, exc.EmployeeID, exc.OrgID, exc.Date.Format("2006-01-02"), exc.Type, exc.Reason, exc.DocumentRef,
		exc.DeviationMinutes, exc.RequestAdjustment, string(exc.Status), exc.AdjustmentMinutes,
		exc.AffectSalary, exc.SalaryDeduction, exc.AffectPerformance, exc.PerformancePenalty,
		exc.DecidedBy, decidedAt, exc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert exception: %w", err)
	}
	return nil
}

// GetException retrieves an exception by ID, nil if not found.
func (r *ExceptionRepository) GetException(ctx context.Context, id string) (*database.StoredException, error) {
	exc, err := scanException(r.pool.QueryRow(ctx,
		"SELECT "+exceptionColumns+" FROM exceptions WHERE id = $1", id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query exception: %w", err)
	}
	return &exc, nil
}

// ListPending retrieves exceptions awaiting a human decision.
func (r *ExceptionRepository) ListPending(ctx context.Context, orgID string) ([]database.StoredException, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+exceptionColumns+" FROM exceptions WHERE org_id = $1 AND status = 'pending' ORDER BY created_at",
		orgID)
	if err != nil {
		return nil, fmt.Errorf("query pending exceptions: %w", err)
	}
	defer rows.Close()

	var out []database.StoredException
	for rows.Next() {
		exc, err := scanException(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan exception: %w", err)
		}
		out = append(out, exc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exceptions: %w", err)
	}
	return out, nil
}

// UpdateDecision writes the decision fields of an exception. The status
// guard in the WHERE clause keeps terminal states immutable.
func (r *ExceptionRepository) UpdateDecision(ctx context.Context, exc *database.StoredException) error {
	query := `
		UPDATE exceptions SET
			status = $2, adjustment_minutes = $3,
			affect_salary = $4, salary_deduction = $5,
			affect_performance = $6, performance_penalty = $7,
			decided_by = $8, decided_at = $9
		WHERE id = $1 AND status = 'pending'
	`
	var decidedAt sql.NullTime
	if exc.DecidedAt != nil {
		decidedAt = sql.NullTime{Time: *exc.DecidedAt, Valid: true}
	}
	res, err := r.pool.Exec(ctx, query,
		exc.ID, string(exc.Status), exc.AdjustmentMinutes,
		exc.AffectSalary, exc.SalaryDeduction,
		exc.AffectPerformance, exc.PerformancePenalty,
		exc.DecidedBy, decidedAt,
	)
	if err != nil {
		return fmt.Errorf("update exception: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update exception rows: %w", err)
	}
	if n == 0 {
		return errors.New("exception not found or already decided")
	}
	return nil
}

// AppendAudit records an audit trail entry for an exception.
func (r *ExceptionRepository) AppendAudit(ctx context.Context, entry *database.AuditEntry) error {
	query := `
		INSERT INTO exception_audit (exception_id, actor, action, detail, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, query,
		entry.ExceptionID, entry.Actor, entry.Action, entry.Detail, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
