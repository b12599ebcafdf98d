package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/faceclock/faceclock/internal/database"
	"github.com/faceclock/faceclock/internal/database/mock"
)

func newTestEngine(t *testing.T, store *mock.Store) *Engine {
	t.Helper()
	engine := NewEngine(store, store, store, store, nil, time.UTC, DefaultPolicy())
	engine.now = func() time.Time {
		return time.Date(2024, 3, 11, 8, 5, 0, 0, time.UTC)
	}
	return engine
}

func seedEmployee(store *mock.Store) {
	store.AddEmployee(database.Employee{
		ID: "emp-1", FullName: "Jana Dvorakova", OrgID: "org-1", Active: true, HourlyRate: 20,
	})
}

func assertCode(t *testing.T, err error, want Code) {
	t.Helper()
	if got := CodeOf(err); got != want {
		t.Fatalf("error code = %s, want %s (err: %v)", got, want, err)
	}
}

func TestEngine_Record_CheckIn(t *testing.T) {
	store := mock.NewStore()
	seedEmployee(store)
	engine := newTestEngine(t, store)

	conf := 0.91
	rec, err := engine.Record(context.Background(), RecordRequest{
		EmployeeID: "emp-1",
		Kind:       database.EventCheckIn,
		Confidence: &conf,
		Verified:   true,
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if rec.Status != StatusCheckedIn {
		t.Errorf("Status = %s, want checked_in", rec.Status)
	}

	events := store.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 stored event, got %d", len(events))
	}
	if events[0].ID == "" {
		t.Error("event should get a generated ID")
	}
	if events[0].Confidence == nil || *events[0].Confidence != conf {
		t.Error("confidence should be stored with the event")
	}

	// The derived summary is cached for same-day org queries.
	if store.DayRecord("emp-1", time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)) == nil {
		t.Error("expected day record to be cached after recording")
	}
}

func TestEngine_Record_Transitions(t *testing.T) {
	tests := []struct {
		name     string
		before   []database.EventKind
		kind     database.EventKind
		wantCode Code
	}{
		{"double check-in", []database.EventKind{database.EventCheckIn}, database.EventCheckIn, CodeAlreadyCheckedIn},
		{"check-out without check-in", nil, database.EventCheckOut, CodeNotCheckedIn},
		{"break without check-in", nil, database.EventBreakStart, CodeNotCheckedIn},
		{"double break", []database.EventKind{database.EventCheckIn, database.EventBreakStart}, database.EventBreakStart, CodeBreakInProgress},
		{"break end without break", []database.EventKind{database.EventCheckIn}, database.EventBreakEnd, CodeNoActiveBreak},
		{"check-in after check-out", []database.EventKind{database.EventCheckIn, database.EventCheckOut}, database.EventCheckIn, CodeAlreadyCheckedOut},
		{"double check-out", []database.EventKind{database.EventCheckIn, database.EventCheckOut}, database.EventCheckOut, CodeAlreadyCheckedOut},
		{"unknown kind", nil, database.EventKind("lunch"), CodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mock.NewStore()
			seedEmployee(store)
			engine := newTestEngine(t, store)

			base := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
			for i, kind := range tt.before {
				store.AddEvent(database.AttendanceEvent{
					ID:         string(kind),
					EmployeeID: "emp-1",
					Kind:       kind,
					Timestamp:  base.Add(time.Duration(i) * time.Hour),
					CreatedAt:  base.Add(time.Duration(i) * time.Hour),
				})
			}

			_, err := engine.Record(context.Background(), RecordRequest{
				EmployeeID: "emp-1",
				Kind:       tt.kind,
			})
			assertCode(t, err, tt.wantCode)
		})
	}
}

func TestEngine_Record_FullDay(t *testing.T) {
	store := mock.NewStore()
	seedEmployee(store)
	engine := newTestEngine(t, store)
	ctx := context.Background()

	steps := []struct {
		kind  database.EventKind
		clock string
		want  Status
	}{
		{database.EventCheckIn, "08:05", StatusCheckedIn},
		{database.EventBreakStart, "12:00", StatusOnBreak},
		{database.EventBreakEnd, "12:30", StatusCheckedIn},
		{database.EventCheckOut, "17:02", StatusCheckedOut},
	}

	for _, step := range steps {
		ts, _ := time.Parse("2006-01-02 15:04", "2024-03-11 "+step.clock)
		rec, err := engine.Record(ctx, RecordRequest{
			EmployeeID: "emp-1",
			Kind:       step.kind,
			Timestamp:  ts,
		})
		if err != nil {
			t.Fatalf("%s at %s failed: %v", step.kind, step.clock, err)
		}
		if rec.Status != step.want {
			t.Fatalf("after %s: status %s, want %s", step.kind, rec.Status, step.want)
		}
	}

	rec, err := engine.Status(ctx, "emp-1", time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if rec.BreakMinutes != 30 {
		t.Errorf("BreakMinutes = %d, want 30", rec.BreakMinutes)
	}
	if rec.WorkMinutes != (17*60+2)-(8*60+5)-30 {
		t.Errorf("WorkMinutes = %d, want %d", rec.WorkMinutes, (17*60+2)-(8*60+5)-30)
	}
}

func TestEngine_Record_ConcurrentCheckIns(t *testing.T) {
	store := mock.NewStore()
	seedEmployee(store)
	engine := newTestEngine(t, store)

	const n = 32
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Record(context.Background(), RecordRequest{
				EmployeeID: "emp-1",
				Kind:       database.EventCheckIn,
			})
		}(i)
	}
	wg.Wait()

	var succeeded, duplicates int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case CodeOf(err) == CodeAlreadyCheckedIn:
			duplicates++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d check-ins succeeded, want exactly 1", succeeded)
	}
	if duplicates != n-1 {
		t.Errorf("%d duplicates rejected, want %d", duplicates, n-1)
	}

	events := store.Events()
	if len(events) != 1 {
		t.Errorf("%d events stored, want 1", len(events))
	}
}

func TestEngine_Record_ForeignZoneTimestamps(t *testing.T) {
	store := mock.NewStore()
	seedEmployee(store)
	loc := time.FixedZone("UTC+7", 7*60*60)
	engine := NewEngine(store, store, store, store, nil, loc, DefaultPolicy())
	engine.now = func() time.Time {
		return time.Date(2024, 3, 12, 2, 0, 0, 0, loc)
	}
	ctx := context.Background()

	// 18:00 UTC is already 01:00 the next day in the business zone.
	_, err := engine.Record(ctx, RecordRequest{
		EmployeeID: "emp-1",
		Kind:       database.EventCheckIn,
		Timestamp:  time.Date(2024, 3, 11, 18, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("first check-in failed: %v", err)
	}

	// A second check-in on the same business day, stamped with the local
	// offset, must be refused no matter which zone the first one carried.
	_, err = engine.Record(ctx, RecordRequest{
		EmployeeID: "emp-1",
		Kind:       database.EventCheckIn,
		Timestamp:  time.Date(2024, 3, 12, 1, 30, 0, 0, loc),
	})
	assertCode(t, err, CodeAlreadyCheckedIn)

	if n := len(store.Events()); n != 1 {
		t.Fatalf("%d events stored, want 1", n)
	}

	rec, err := engine.Status(ctx, "emp-1", time.Date(2024, 3, 12, 9, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if rec.Status != StatusCheckedIn {
		t.Errorf("status for March 12 = %s, want checked_in", rec.Status)
	}

	// The previous business day never saw the event.
	rec, err = engine.Status(ctx, "emp-1", time.Date(2024, 3, 11, 9, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if rec.Status != StatusNotStarted {
		t.Errorf("status for March 11 = %s, want not_started", rec.Status)
	}
}

func TestEngine_Record_DuplicateFromStorage(t *testing.T) {
	// Even when the in-process fold saw a clean day, the storage layer's
	// conditional insert can reject a concurrent duplicate.
	store := mock.NewStore()
	seedEmployee(store)
	engine := newTestEngine(t, store)
	store.AppendEventError = database.ErrDuplicateEvent

	_, err := engine.Record(context.Background(), RecordRequest{
		EmployeeID: "emp-1",
		Kind:       database.EventCheckIn,
	})
	assertCode(t, err, CodeAlreadyCheckedIn)
}

func TestEngine_Record_DirectoryChecks(t *testing.T) {
	t.Run("unknown employee", func(t *testing.T) {
		store := mock.NewStore()
		engine := newTestEngine(t, store)
		_, err := engine.Record(context.Background(), RecordRequest{
			EmployeeID: "ghost",
			Kind:       database.EventCheckIn,
		})
		assertCode(t, err, CodeUserNotFound)
	})

	t.Run("deactivated employee", func(t *testing.T) {
		store := mock.NewStore()
		store.AddEmployee(database.Employee{ID: "emp-2", OrgID: "org-1", Active: false})
		engine := newTestEngine(t, store)
		_, err := engine.Record(context.Background(), RecordRequest{
			EmployeeID: "emp-2",
			Kind:       database.EventCheckIn,
		})
		assertCode(t, err, CodeUserInactive)
	})

	t.Run("missing employee id", func(t *testing.T) {
		store := mock.NewStore()
		engine := newTestEngine(t, store)
		_, err := engine.Record(context.Background(), RecordRequest{Kind: database.EventCheckIn})
		assertCode(t, err, CodeValidationFailed)
	})

	t.Run("directory failure is not a business code", func(t *testing.T) {
		store := mock.NewStore()
		store.DirectoryError = errors.New("connection refused")
		engine := newTestEngine(t, store)
		_, err := engine.Record(context.Background(), RecordRequest{
			EmployeeID: "emp-1",
			Kind:       database.EventCheckIn,
		})
		if err == nil || CodeOf(err) != CodeInternal {
			t.Fatalf("expected internal error, got %v", err)
		}
	})
}

func TestEngine_PolicyFallback(t *testing.T) {
	store := mock.NewStore()
	seedEmployee(store)
	engine := newTestEngine(t, store)

	// No policy configured: the fallback applies, recording still works.
	ts := time.Date(2024, 3, 11, 8, 20, 0, 0, time.UTC)
	rec, err := engine.Record(context.Background(), RecordRequest{
		EmployeeID: "emp-1",
		Kind:       database.EventCheckIn,
		Timestamp:  ts,
	})
	if err != nil {
		t.Fatalf("Record failed without a policy: %v", err)
	}
	if !rec.Late || rec.LateMinutes != 5 {
		t.Errorf("Late=%v LateMinutes=%d, want true/5 under the default 08:00+15 policy", rec.Late, rec.LateMinutes)
	}

	// A configured policy with a later shift overrides the fallback.
	store.AddPolicy(database.StoredPolicy{
		ID: 1, OrgID: "org-1",
		EffectiveFrom:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ShiftStart:       "09:00",
		ShiftEnd:         "18:00",
		LateThresholdMin: 15,
		EarlyLeaveMin:    15,
		BreakTotalMin:    60,
		BreakPaidMin:     30,
	})
	rec, err = engine.Status(context.Background(), "emp-1", ts)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if rec.Late {
		t.Error("08:20 should not be late under a 09:00 shift policy")
	}
}

func TestEngine_PolicyVersioning(t *testing.T) {
	store := mock.NewStore()
	seedEmployee(store)
	engine := newTestEngine(t, store)

	store.AddPolicy(database.StoredPolicy{
		ID: 1, OrgID: "org-1",
		EffectiveFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ShiftStart:    "08:00", ShiftEnd: "17:00",
		LateThresholdMin: 15, EarlyLeaveMin: 15, BreakTotalMin: 60, BreakPaidMin: 30,
	})
	store.AddPolicy(database.StoredPolicy{
		ID: 2, OrgID: "org-1",
		EffectiveFrom: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		ShiftStart:    "10:00", ShiftEnd: "19:00",
		LateThresholdMin: 15, EarlyLeaveMin: 15, BreakTotalMin: 60, BreakPaidMin: 30,
	})

	march := engine.EffectivePolicy(context.Background(), "org-1", time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
	if march.ShiftStartMin != 8*60 {
		t.Errorf("March shift start = %d, want 480 (old version applies)", march.ShiftStartMin)
	}
	april := engine.EffectivePolicy(context.Background(), "org-1", time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC))
	if april.ShiftStartMin != 10*60 {
		t.Errorf("April shift start = %d, want 600 (new version applies)", april.ShiftStartMin)
	}
}
