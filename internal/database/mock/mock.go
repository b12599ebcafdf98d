// Package mock provides in-memory implementations of the database
// interfaces for testing. The mock event store enforces the same
// conditional-insert guarantee as the PostgreSQL backend, so concurrency
// tests exercise the real invariant.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/faceclock/faceclock/internal/database"
)

// Store is an in-memory implementation of the repository interfaces.
type Store struct {
	mu         sync.RWMutex
	embeddings []database.StoredEmbedding
	nextEmbID  int64
	events     []database.AttendanceEvent
	policies   []database.StoredPolicy
	exceptions map[string]*database.StoredException
	audits     []database.AuditEntry
	records    map[string]*database.StoredDayRecord
	employees  map[string]*database.Employee

	// Error injection
	GetEmbeddingsError error
	SaveEmbeddingError error
	GetEventsError     error
	AppendEventError   error
	LateRatioError     error
	PolicyError        error
	ExceptionError     error
	DirectoryError     error
	DayRecordError     error

	// LateRatio overrides the computed org late ratio when set.
	LateRatio *float64
}

// NewStore creates an empty mock store.
func NewStore() *Store {
	return &Store{
		nextEmbID:  1,
		exceptions: make(map[string]*database.StoredException),
		records:    make(map[string]*database.StoredDayRecord),
		employees:  make(map[string]*database.Employee),
	}
}

// AddEmployee seeds an employee into the mock directory.
func (s *Store) AddEmployee(emp database.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[emp.ID] = &emp
}

// AddPolicy seeds a policy row.
func (s *Store) AddPolicy(p database.StoredPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies = append(s.policies, p)
}

// AddEvent seeds an event without the conditional-insert check.
func (s *Store) AddEvent(ev database.AttendanceEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a copy of all stored events.
func (s *Store) Events() []database.AttendanceEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]database.AttendanceEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Audits returns a copy of all audit entries.
func (s *Store) Audits() []database.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]database.AuditEntry, len(s.audits))
	copy(out, s.audits)
	return out
}

// DayRecord returns the cached day record for an employee and day, nil if absent.
func (s *Store) DayRecord(employeeID string, day time.Time) *database.StoredDayRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[employeeID+"|"+day.Format("2006-01-02")]
}

// --- EmbeddingWriter ---

func (s *Store) GetByEmployee(ctx context.Context, employeeID string) ([]database.StoredEmbedding, error) {
	if s.GetEmbeddingsError != nil {
		return nil, s.GetEmbeddingsError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []database.StoredEmbedding
	for _, e := range s.embeddings {
		if e.EmployeeID == employeeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) GetActive(ctx context.Context) ([]database.StoredEmbedding, error) {
	if s.GetEmbeddingsError != nil {
		return nil, s.GetEmbeddingsError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []database.StoredEmbedding
	for _, e := range s.embeddings {
		if e.Active() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	if s.GetEmbeddingsError != nil {
		return 0, s.GetEmbeddingsError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.embeddings {
		if e.Active() {
			n++
		}
	}
	return n, nil
}

func (s *Store) SaveEmbedding(ctx context.Context, emb *database.StoredEmbedding) error {
	if s.SaveEmbeddingError != nil {
		return s.SaveEmbeddingError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	emb.ID = s.nextEmbID
	s.nextEmbID++
	if emb.CreatedAt.IsZero() {
		emb.CreatedAt = time.Now()
	}
	s.embeddings = append(s.embeddings, *emb)
	return nil
}

func (s *Store) RevokeEmbedding(ctx context.Context, id int64) error {
	if s.SaveEmbeddingError != nil {
		return s.SaveEmbeddingError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.embeddings {
		if s.embeddings[i].ID == id {
			now := time.Now()
			s.embeddings[i].RevokedAt = &now
		}
	}
	return nil
}

// --- EventWriter ---

// sameDay reports whether a falls on b's calendar day, with b's
// location as the frame of reference. Callers pass the day marker (or
// a timestamp already normalized to the business zone) as b, so a
// timestamp carrying a different offset still lands on the right day.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.In(b.Location()).Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (s *Store) GetEventsForDay(ctx context.Context, employeeID string, day time.Time) ([]database.AttendanceEvent, error) {
	if s.GetEventsError != nil {
		return nil, s.GetEventsError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []database.AttendanceEvent
	for _, ev := range s.events {
		if ev.EmployeeID == employeeID && sameDay(ev.Timestamp, day) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *Store) OrgLateRatio(ctx context.Context, orgID string, day time.Time) (float64, error) {
	if s.LateRatioError != nil {
		return 0, s.LateRatioError
	}
	if s.LateRatio != nil {
		return *s.LateRatio, nil
	}
	return 0, nil
}

// AppendEvent inserts an event. Check-ins are conditional: the check and
// the append happen under one lock, mirroring the unique partial index in
// the PostgreSQL backend.
func (s *Store) AppendEvent(ctx context.Context, event *database.AttendanceEvent) error {
	if s.AppendEventError != nil {
		return s.AppendEventError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.Kind == database.EventCheckIn {
		for _, ev := range s.events {
			if ev.EmployeeID == event.EmployeeID && ev.Kind == database.EventCheckIn && sameDay(ev.Timestamp, event.Timestamp) {
				return database.ErrDuplicateEvent
			}
		}
	}
	s.events = append(s.events, *event)
	return nil
}

// --- PolicyWriter ---

func (s *Store) GetEffectivePolicy(ctx context.Context, orgID string, day time.Time) (*database.StoredPolicy, error) {
	if s.PolicyError != nil {
		return nil, s.PolicyError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *database.StoredPolicy
	for i := range s.policies {
		p := &s.policies[i]
		if p.OrgID != orgID || p.EffectiveFrom.After(day) {
			continue
		}
		if best == nil || p.EffectiveFrom.After(best.EffectiveFrom) {
			best = p
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (s *Store) SavePolicy(ctx context.Context, policy *database.StoredPolicy) error {
	if s.PolicyError != nil {
		return s.PolicyError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies = append(s.policies, *policy)
	return nil
}

// --- ExceptionStore ---

func (s *Store) CreateException(ctx context.Context, exc *database.StoredException) error {
	if s.ExceptionError != nil {
		return s.ExceptionError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *exc
	s.exceptions[exc.ID] = &cp
	return nil
}

func (s *Store) GetException(ctx context.Context, id string) (*database.StoredException, error) {
	if s.ExceptionError != nil {
		return nil, s.ExceptionError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	exc, ok := s.exceptions[id]
	if !ok {
		return nil, nil
	}
	cp := *exc
	return &cp, nil
}

func (s *Store) ListPending(ctx context.Context, orgID string) ([]database.StoredException, error) {
	if s.ExceptionError != nil {
		return nil, s.ExceptionError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []database.StoredException
	for _, exc := range s.exceptions {
		if exc.OrgID == orgID && exc.Status == database.ExceptionPending {
			out = append(out, *exc)
		}
	}
	return out, nil
}

func (s *Store) UpdateDecision(ctx context.Context, exc *database.StoredException) error {
	if s.ExceptionError != nil {
		return s.ExceptionError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.exceptions[exc.ID]
	if !ok {
		return fmt.Errorf("exception %s not found", exc.ID)
	}
	if stored.Status.Terminal() {
		return fmt.Errorf("exception %s already decided", exc.ID)
	}
	cp := *exc
	s.exceptions[exc.ID] = &cp
	return nil
}

func (s *Store) AppendAudit(ctx context.Context, entry *database.AuditEntry) error {
	if s.ExceptionError != nil {
		return s.ExceptionError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = int64(len(s.audits) + 1)
	s.audits = append(s.audits, *entry)
	return nil
}

// --- DayRecordWriter ---

func (s *Store) SaveDayRecord(ctx context.Context, rec *database.StoredDayRecord) error {
	if s.DayRecordError != nil {
		return s.DayRecordError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.EmployeeID+"|"+rec.Date.Format("2006-01-02")] = &cp
	return nil
}

// --- Directory ---

func (s *Store) GetEmployee(ctx context.Context, id string) (*database.Employee, error) {
	if s.DirectoryError != nil {
		return nil, s.DirectoryError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	emp, ok := s.employees[id]
	if !ok {
		return nil, nil
	}
	cp := *emp
	return &cp, nil
}

func (s *Store) FindByName(ctx context.Context, name string) (*database.Employee, error) {
	if s.DirectoryError != nil {
		return nil, s.DirectoryError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, emp := range s.employees {
		if emp.FullName == name {
			cp := *emp
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) ListByOrg(ctx context.Context, orgID string) ([]database.Employee, error) {
	if s.DirectoryError != nil {
		return nil, s.DirectoryError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []database.Employee
	for _, emp := range s.employees {
		if emp.OrgID == orgID {
			out = append(out, *emp)
		}
	}
	return out, nil
}
