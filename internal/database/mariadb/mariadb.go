// Package mariadb reads employee master data directly from an existing
// HRIS MariaDB instance. Access is strictly read-only; faceclock never
// writes to the HRIS schema.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/faceclock/faceclock/internal/database"
)

// Pool manages a MariaDB connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MariaDB connection pool.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// EmployeeDirectory implements database.Directory against the HRIS
// employees table.
type EmployeeDirectory struct {
	pool *Pool
}

// NewEmployeeDirectory creates a directory reader over the pool.
func NewEmployeeDirectory(pool *Pool) *EmployeeDirectory {
	return &EmployeeDirectory{pool: pool}
}

const employeeColumns = "employee_id, full_name, org_id, active, hourly_rate"

func scanEmployee(scan func(dest ...any) error) (database.Employee, error) {
	var emp database.Employee
	err := scan(&emp.ID, &emp.FullName, &emp.OrgID, &emp.Active, &emp.HourlyRate)
	return emp, err
}

// GetEmployee retrieves an employee by ID, nil if not found.
func (d *EmployeeDirectory) GetEmployee(ctx context.Context, id string) (*database.Employee, error) {
	emp, err := scanEmployee(d.pool.db.QueryRowContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE employee_id = ?", id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query employee: %w", err)
	}
	return &emp, nil
}

// FindByName retrieves an employee by full name. Names are normalized
// (lowercase, no diacritics, dashes to spaces) before comparison, so
// "jan-novak" matches "Jan Novák".
func (d *EmployeeDirectory) FindByName(ctx context.Context, name string) (*database.Employee, error) {
	target := NormalizeName(name)

	rows, err := d.pool.db.QueryContext(ctx, "SELECT "+employeeColumns+" FROM employees")
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		emp, err := scanEmployee(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		if NormalizeName(emp.FullName) == target {
			return &emp, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return nil, nil
}

// ListByOrg retrieves all employees of an organization.
func (d *EmployeeDirectory) ListByOrg(ctx context.Context, orgID string) ([]database.Employee, error) {
	rows, err := d.pool.db.QueryContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE org_id = ?", orgID)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var out []database.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return out, nil
}
