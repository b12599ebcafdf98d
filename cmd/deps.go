package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/faceclock/faceclock/internal/attendance"
	"github.com/faceclock/faceclock/internal/config"
	"github.com/faceclock/faceclock/internal/database/mariadb"
	"github.com/faceclock/faceclock/internal/database/postgres"
	"github.com/faceclock/faceclock/internal/exceptions"
	"github.com/faceclock/faceclock/internal/recognize"
)

// deps bundles the stores and services shared by the commands. Close
// releases both database pools.
type deps struct {
	cfg        *config.Config
	pool       *postgres.Pool
	hris       *mariadb.Pool
	embeddings *postgres.EmbeddingRepository
	events     *postgres.EventRepository
	policies   *postgres.PolicyRepository
	records    *postgres.DayRecordRepository
	excStore   *postgres.ExceptionRepository
	directory  *mariadb.EmployeeDirectory
	matches    *recognize.Service
	engine     *attendance.Engine
	processor  *exceptions.Processor
}

// openDeps connects to both databases, runs migrations and wires the
// engine, matcher and exception processor.
func openDeps(ctx context.Context) (*deps, error) {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.HRIS.DatabaseURL == "" {
		return nil, errors.New("HRIS_DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	hris, err := mariadb.NewPool(cfg.HRIS.DatabaseURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to HRIS MariaDB: %w", err)
	}

	d := &deps{
		cfg:        cfg,
		pool:       pool,
		hris:       hris,
		embeddings: postgres.NewEmbeddingRepository(pool),
		events:     postgres.NewEventRepository(pool),
		policies:   postgres.NewPolicyRepository(pool),
		records:    postgres.NewDayRecordRepository(pool),
		excStore:   postgres.NewExceptionRepository(pool),
		directory:  mariadb.NewEmployeeDirectory(hris),
	}

	matcher := recognize.NewMatcher(cfg.Embedding.Dim, cfg.Embedding.MatchThreshold, cfg.Embedding.Strict)
	d.matches = recognize.NewService(matcher)

	d.engine = attendance.NewEngine(
		d.events, d.policies, d.directory, d.records,
		nil, cfg.Location(), fallbackPolicy(cfg),
	)
	d.processor = exceptions.NewProcessor(
		d.excStore, d.events, d.directory, d.records, d.engine, nil,
	)
	return d, nil
}

func (d *deps) Close() {
	d.hris.Close()
	d.pool.Close()
}

// fallbackPolicy resolves the embedded default policy, keeping the
// documented defaults for any field that fails to parse.
func fallbackPolicy(cfg *config.Config) attendance.Policy {
	policy := attendance.DefaultPolicy()

	if start, err := attendance.ParseClock(cfg.Policy.ShiftStart); err == nil {
		policy.ShiftStartMin = start
	}
	if end, err := attendance.ParseClock(cfg.Policy.ShiftEnd); err == nil && end > policy.ShiftStartMin {
		policy.ShiftEndMin = end
	}
	if cfg.Policy.LateThreshold > 0 {
		policy.LateThresholdMin = cfg.Policy.LateThreshold
	}
	if cfg.Policy.EarlyLeave > 0 {
		policy.EarlyLeaveMin = cfg.Policy.EarlyLeave
	}
	if cfg.Policy.BreakTotal > 0 {
		policy.BreakTotalMin = cfg.Policy.BreakTotal
	}
	if cfg.Policy.BreakPaid >= 0 {
		policy.BreakPaidMin = cfg.Policy.BreakPaid
	}
	policy.OvertimeEnabled = cfg.Policy.Overtime.Enabled
	if cfg.Policy.Overtime.Rate > 0 {
		policy.OvertimeRate = cfg.Policy.Overtime.Rate
	}
	return policy
}
