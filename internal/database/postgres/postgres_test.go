//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/faceclock/faceclock/internal/config"
	"github.com/faceclock/faceclock/internal/database"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestEmbeddingRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewEmbeddingRepository(pool)

	t.Run("SaveAndGet", func(t *testing.T) {
		embedding := make([]float32, 128)
		for i := range embedding {
			embedding[i] = float32(i) / 128.0
		}

		emb := database.StoredEmbedding{
			EmployeeID: "emp-1",
			Embedding:  embedding,
			Model:      "facenet-v1",
			Dim:        128,
			Quality:    92,
			CapturedAt: time.Now(),
		}
		if err := repo.SaveEmbedding(ctx, &emb); err != nil {
			t.Fatalf("Failed to save embedding: %v", err)
		}
		if emb.ID == 0 {
			t.Fatal("SaveEmbedding should fill in the row ID")
		}

		got, err := repo.GetByEmployee(ctx, "emp-1")
		if err != nil {
			t.Fatalf("Failed to get embeddings: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("Expected 1 embedding, got %d", len(got))
		}
		if got[0].Model != "facenet-v1" || got[0].Quality != 92 {
			t.Errorf("Round trip lost fields: %+v", got[0])
		}
		if len(got[0].Embedding) != 128 {
			t.Errorf("Expected 128 dimensions, got %d", len(got[0].Embedding))
		}
	})

	t.Run("RevokeExcludesFromActive", func(t *testing.T) {
		active, err := repo.GetActive(ctx)
		if err != nil {
			t.Fatalf("Failed to get active: %v", err)
		}
		before := len(active)

		if err := repo.RevokeEmbedding(ctx, active[0].ID); err != nil {
			t.Fatalf("Failed to revoke: %v", err)
		}

		active, err = repo.GetActive(ctx)
		if err != nil {
			t.Fatalf("Failed to get active: %v", err)
		}
		if len(active) != before-1 {
			t.Errorf("Active count = %d, want %d", len(active), before-1)
		}

		// The row itself stays.
		all, err := repo.GetByEmployee(ctx, "emp-1")
		if err != nil {
			t.Fatalf("Failed to get by employee: %v", err)
		}
		if len(all) != 1 || all[0].RevokedAt == nil {
			t.Error("Revoked embedding should remain with RevokedAt set")
		}
	})
}

func TestEventRepository_DuplicateCheckIn(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewEventRepository(pool)
	ts := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)

	event := func() *database.AttendanceEvent {
		return &database.AttendanceEvent{
			ID:         uuid.NewString(),
			EmployeeID: "emp-1",
			Kind:       database.EventCheckIn,
			Timestamp:  ts,
			CreatedAt:  time.Now(),
		}
	}

	if err := repo.AppendEvent(ctx, event()); err != nil {
		t.Fatalf("First check-in failed: %v", err)
	}
	if err := repo.AppendEvent(ctx, event()); !errors.Is(err, database.ErrDuplicateEvent) {
		t.Fatalf("Second check-in: err = %v, want ErrDuplicateEvent", err)
	}

	// Other kinds are not constrained.
	out := event()
	out.Kind = database.EventCheckOut
	out.Timestamp = ts.Add(9 * time.Hour)
	if err := repo.AppendEvent(ctx, out); err != nil {
		t.Fatalf("Check-out failed: %v", err)
	}

	// A different day is a fresh slate.
	next := event()
	next.Timestamp = ts.AddDate(0, 0, 1)
	if err := repo.AppendEvent(ctx, next); err != nil {
		t.Fatalf("Next-day check-in failed: %v", err)
	}

	events, err := repo.GetEventsForDay(ctx, "emp-1", ts)
	if err != nil {
		t.Fatalf("GetEventsForDay failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("Expected 2 events on the first day, got %d", len(events))
	}
}

func TestEventRepository_ConcurrentCheckIns(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewEventRepository(pool)
	ts := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.AppendEvent(ctx, &database.AttendanceEvent{
				ID:         uuid.NewString(),
				EmployeeID: "emp-race",
				Kind:       database.EventCheckIn,
				Timestamp:  ts,
				CreatedAt:  time.Now(),
			})
		}(i)
	}
	wg.Wait()

	var succeeded, duplicates int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, database.ErrDuplicateEvent):
			duplicates++
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if succeeded != 1 || duplicates != n-1 {
		t.Errorf("succeeded=%d duplicates=%d, want 1/%d", succeeded, duplicates, n-1)
	}
}

func TestPolicyRepository_EffectiveLookup(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewPolicyRepository(pool)

	none, err := repo.GetEffectivePolicy(ctx, "org-1", time.Now())
	if err != nil {
		t.Fatalf("GetEffectivePolicy failed: %v", err)
	}
	if none != nil {
		t.Fatal("Expected nil when no policy is configured")
	}

	jan := database.StoredPolicy{
		OrgID: "org-1", EffectiveFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ShiftStart: "08:00", ShiftEnd: "17:00",
		LateThresholdMin: 15, EarlyLeaveMin: 15, BreakTotalMin: 60, BreakPaidMin: 30,
	}
	apr := database.StoredPolicy{
		OrgID: "org-1", EffectiveFrom: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		ShiftStart: "09:00", ShiftEnd: "18:00",
		LateThresholdMin: 10, EarlyLeaveMin: 10, BreakTotalMin: 45, BreakPaidMin: 30,
	}
	if err := repo.SavePolicy(ctx, &jan); err != nil {
		t.Fatalf("SavePolicy failed: %v", err)
	}
	if err := repo.SavePolicy(ctx, &apr); err != nil {
		t.Fatalf("SavePolicy failed: %v", err)
	}

	got, err := repo.GetEffectivePolicy(ctx, "org-1", time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetEffectivePolicy failed: %v", err)
	}
	if got == nil || got.ShiftStart != "08:00" {
		t.Errorf("March policy = %+v, want the January version", got)
	}

	got, err = repo.GetEffectivePolicy(ctx, "org-1", time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetEffectivePolicy failed: %v", err)
	}
	if got == nil || got.ShiftStart != "09:00" {
		t.Errorf("April policy = %+v, want the April version", got)
	}
}

func TestDayRecordsAndLateRatio(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	records := NewDayRecordRepository(pool)
	events := NewEventRepository(pool)
	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

	ratio, err := events.OrgLateRatio(ctx, "org-1", day)
	if err != nil {
		t.Fatalf("OrgLateRatio failed: %v", err)
	}
	if ratio != 0 {
		t.Errorf("ratio = %v, want 0 with no records", ratio)
	}

	save := func(empID string, late bool) {
		clockIn := day.Add(8 * time.Hour)
		rec := &database.StoredDayRecord{
			EmployeeID: empID, OrgID: "org-1", Date: day,
			Status: "checked_in", ClockIn: &clockIn, Late: late,
			UpdatedAt: time.Now(),
		}
		if err := records.SaveDayRecord(ctx, rec); err != nil {
			t.Fatalf("SaveDayRecord failed: %v", err)
		}
	}
	save("emp-1", true)
	save("emp-2", false)
	save("emp-3", false)
	save("emp-4", true)

	ratio, err = events.OrgLateRatio(ctx, "org-1", day)
	if err != nil {
		t.Fatalf("OrgLateRatio failed: %v", err)
	}
	if ratio != 0.5 {
		t.Errorf("ratio = %v, want 0.5", ratio)
	}

	// Upsert: saving the same employee+day again replaces the row.
	save("emp-1", false)
	ratio, err = events.OrgLateRatio(ctx, "org-1", day)
	if err != nil {
		t.Fatalf("OrgLateRatio failed: %v", err)
	}
	if ratio != 0.25 {
		t.Errorf("ratio after upsert = %v, want 0.25", ratio)
	}
}

func TestExceptionRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewExceptionRepository(pool)

	exc := database.StoredException{
		ID:               uuid.NewString(),
		EmployeeID:       "emp-1",
		OrgID:            "org-1",
		Date:             time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		Type:             "late_personal",
		Reason:           "overslept",
		DeviationMinutes: 30,
		Status:           database.ExceptionPending,
		AffectSalary:     true,
		SalaryDeduction:  10,
		CreatedAt:        time.Now(),
	}
	if err := repo.CreateException(ctx, &exc); err != nil {
		t.Fatalf("CreateException failed: %v", err)
	}

	pending, err := repo.ListPending(ctx, "org-1")
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != exc.ID {
		t.Fatalf("ListPending = %+v, want the created request", pending)
	}

	now := time.Now()
	exc.Status = database.ExceptionApproved
	exc.DecidedBy = "manager-1"
	exc.DecidedAt = &now
	exc.AffectSalary = false
	exc.SalaryDeduction = 0
	if err := repo.UpdateDecision(ctx, &exc); err != nil {
		t.Fatalf("UpdateDecision failed: %v", err)
	}

	// Terminal rows cannot be decided again.
	if err := repo.UpdateDecision(ctx, &exc); err == nil {
		t.Error("Expected an error updating an already decided exception")
	}

	if err := repo.AppendAudit(ctx, &database.AuditEntry{
		ExceptionID: exc.ID,
		Actor:       "manager-1",
		Action:      "approve",
		Detail:      "ok",
		CreatedAt:   time.Now(),
	}); err != nil {
		t.Fatalf("AppendAudit failed: %v", err)
	}

	got, err := repo.GetException(ctx, exc.ID)
	if err != nil {
		t.Fatalf("GetException failed: %v", err)
	}
	if got == nil || got.Status != database.ExceptionApproved || got.DecidedBy != "manager-1" {
		t.Errorf("GetException = %+v, want the approved row", got)
	}
}
