package recognize

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/faceclock/faceclock/internal/database"
	"github.com/faceclock/faceclock/internal/database/mock"
)

const testDim = 4

// unitVec builds a unit vector in testDim dimensions with the given
// cosine similarity to the x axis.
func unitVec(similarity float64) []float32 {
	y := math.Sqrt(1 - similarity*similarity)
	return []float32{float32(similarity), float32(y), 0, 0}
}

var probeX = []float32{1, 0, 0, 0}

func enrolled(id int64, employeeID string, emb []float32, capturedAt time.Time) database.StoredEmbedding {
	return database.StoredEmbedding{
		ID:         id,
		EmployeeID: employeeID,
		Embedding:  emb,
		Dim:        len(emb),
		CapturedAt: capturedAt,
	}
}

func TestConfidenceFromDistance(t *testing.T) {
	tests := []struct {
		distance float64
		want     float64
	}{
		{0, 1},
		{1, 0.5},
		{2, 0},
		{0.7, 0.65},
		{-0.5, 1}, // clamped
		{2.5, 0},  // clamped
	}
	for _, tt := range tests {
		if got := ConfidenceFromDistance(tt.distance); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ConfidenceFromDistance(%v) = %v, want %v", tt.distance, got, tt.want)
		}
	}

	// Monotonicity: smaller distance never yields lower confidence.
	prev := 2.0
	for d := 0.0; d <= 2.0; d += 0.05 {
		c := ConfidenceFromDistance(d)
		if c > prev {
			t.Fatalf("confidence increased from %v to %v as distance grew to %v", prev, c, d)
		}
		prev = c
	}
}

func TestTierForConfidence(t *testing.T) {
	tests := []struct {
		confidence float64
		want       Tier
	}{
		{0.49, TierPoor},
		{0.5, TierFair},
		{0.65, TierFair},
		{0.8, TierFair},
		{0.81, TierGood},
		{1, TierGood},
	}
	for _, tt := range tests {
		if got := TierForConfidence(tt.confidence); got != tt.want {
			t.Errorf("TierForConfidence(%v) = %s, want %s", tt.confidence, got, tt.want)
		}
	}
}

func TestMatcher_BestCandidateWins(t *testing.T) {
	now := time.Now()
	candidates := []database.StoredEmbedding{
		enrolled(1, "emp-far", unitVec(0.5), now),
		enrolled(2, "emp-near", unitVec(0.95), now),
		enrolled(3, "emp-mid", unitVec(0.8), now),
	}

	m := NewMatcher(testDim, DefaultMatchThreshold, false)
	match, err := m.FindBestMatch(context.Background(), probeX, candidates)
	if err != nil {
		t.Fatalf("FindBestMatch failed: %v", err)
	}
	if match.EmployeeID != "emp-near" {
		t.Errorf("matched %s, want emp-near", match.EmployeeID)
	}
	if match.Tier != TierGood {
		t.Errorf("tier = %s, want good", match.Tier)
	}
}

func TestMatcher_BestPerIdentity(t *testing.T) {
	// One bad enrollment must not drag an employee down when a good
	// capture exists for the same identity.
	now := time.Now()
	candidates := []database.StoredEmbedding{
		enrolled(1, "emp-1", unitVec(0.1), now),
		enrolled(2, "emp-1", unitVec(0.99), now),
		enrolled(3, "emp-2", unitVec(0.9), now),
	}

	m := NewMatcher(testDim, DefaultMatchThreshold, false)
	match, err := m.FindBestMatch(context.Background(), probeX, candidates)
	if err != nil {
		t.Fatalf("FindBestMatch failed: %v", err)
	}
	if match.EmployeeID != "emp-1" || match.EmbeddingID != 2 {
		t.Errorf("matched %s/%d, want emp-1/2", match.EmployeeID, match.EmbeddingID)
	}
}

func TestMatcher_TiesGoToNewestEnrollment(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	same := unitVec(0.9)

	candidates := []database.StoredEmbedding{
		enrolled(1, "emp-old", same, older),
		enrolled(2, "emp-new", same, newer),
	}

	m := NewMatcher(testDim, DefaultMatchThreshold, false)
	match, err := m.FindBestMatch(context.Background(), probeX, candidates)
	if err != nil {
		t.Fatalf("FindBestMatch failed: %v", err)
	}
	if match.EmployeeID != "emp-new" {
		t.Errorf("matched %s, want emp-new (most recent enrollment wins ties)", match.EmployeeID)
	}
}

func TestMatcher_ThresholdBoundary(t *testing.T) {
	now := time.Now()
	cand := enrolled(1, "emp-1", unitVec(0.3), now)
	d := database.CosineDistance(probeX, cand.Embedding)
	conf := ConfidenceFromDistance(d)

	t.Run("exactly at threshold is accepted", func(t *testing.T) {
		m := NewMatcher(testDim, conf, false)
		match, err := m.FindBestMatch(context.Background(), probeX, []database.StoredEmbedding{cand})
		if err != nil {
			t.Fatalf("confidence equal to threshold must be accepted: %v", err)
		}
		if match.Confidence != conf {
			t.Errorf("confidence = %v, want %v", match.Confidence, conf)
		}
	})

	t.Run("just below threshold is rejected", func(t *testing.T) {
		m := NewMatcher(testDim, conf+1e-9, false)
		_, err := m.FindBestMatch(context.Background(), probeX, []database.StoredEmbedding{cand})
		if !errors.Is(err, ErrNotRecognized) {
			t.Fatalf("expected ErrNotRecognized, got %v", err)
		}
	})
}

func TestMatcher_StrictRejectsPoorTier(t *testing.T) {
	now := time.Now()
	// Similarity -0.2: distance 1.2, confidence 0.4 (poor tier).
	cand := enrolled(1, "emp-1", unitVec(-0.2), now)

	strict := NewMatcher(testDim, 0.3, true)
	_, err := strict.FindBestMatch(context.Background(), probeX, []database.StoredEmbedding{cand})
	if !errors.Is(err, ErrLowConfidence) {
		t.Fatalf("strict mode: expected ErrLowConfidence, got %v", err)
	}

	lenient := NewMatcher(testDim, 0.3, false)
	match, err := lenient.FindBestMatch(context.Background(), probeX, []database.StoredEmbedding{cand})
	if err != nil {
		t.Fatalf("lenient mode should accept a poor-tier match: %v", err)
	}
	if match.Tier != TierPoor {
		t.Errorf("tier = %s, want poor", match.Tier)
	}
}

func TestMatcher_EmptyAndFiltered(t *testing.T) {
	m := NewMatcher(testDim, DefaultMatchThreshold, false)
	ctx := context.Background()

	t.Run("no candidates", func(t *testing.T) {
		_, err := m.FindBestMatch(ctx, probeX, nil)
		if !errors.Is(err, ErrNoFacesEnrolled) {
			t.Fatalf("expected ErrNoFacesEnrolled, got %v", err)
		}
	})

	t.Run("only revoked candidates", func(t *testing.T) {
		revoked := time.Now()
		cand := enrolled(1, "emp-1", unitVec(0.99), time.Now())
		cand.RevokedAt = &revoked
		_, err := m.FindBestMatch(ctx, probeX, []database.StoredEmbedding{cand})
		if !errors.Is(err, ErrNoFacesEnrolled) {
			t.Fatalf("expected ErrNoFacesEnrolled when all candidates are revoked, got %v", err)
		}
	})

	t.Run("mismatched candidate is skipped", func(t *testing.T) {
		candidates := []database.StoredEmbedding{
			enrolled(1, "emp-bad", []float32{1, 0}, time.Now()),
			enrolled(2, "emp-good", unitVec(0.9), time.Now()),
		}
		match, err := m.FindBestMatch(ctx, probeX, candidates)
		if err != nil {
			t.Fatalf("FindBestMatch failed: %v", err)
		}
		if match.EmployeeID != "emp-good" {
			t.Errorf("matched %s, want emp-good", match.EmployeeID)
		}
	})

	t.Run("mismatched probe fails", func(t *testing.T) {
		_, err := m.FindBestMatch(ctx, []float32{1, 0}, []database.StoredEmbedding{
			enrolled(1, "emp-1", unitVec(0.9), time.Now()),
		})
		if !errors.Is(err, ErrDimensionMismatch) {
			t.Fatalf("expected ErrDimensionMismatch, got %v", err)
		}
	})
}

func TestMatcher_Timeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMatcher(testDim, DefaultMatchThreshold, false)
	_, err := m.FindBestMatch(ctx, probeX, []database.StoredEmbedding{
		enrolled(1, "emp-1", unitVec(0.9), time.Now()),
	})
	if !errors.Is(err, ErrMatchTimeout) {
		t.Fatalf("expected ErrMatchTimeout on a canceled context, got %v", err)
	}
}

func TestService_ReloadAndMatch(t *testing.T) {
	store := mock.NewStore()
	ctx := context.Background()

	for i, sim := range []float64{0.4, 0.95, 0.7} {
		emb := database.StoredEmbedding{
			EmployeeID: []string{"emp-a", "emp-b", "emp-c"}[i],
			Embedding:  unitVec(sim),
			Dim:        testDim,
			CapturedAt: time.Now(),
		}
		if err := store.SaveEmbedding(ctx, &emb); err != nil {
			t.Fatalf("seeding embedding: %v", err)
		}
	}

	svc := NewService(NewMatcher(testDim, DefaultMatchThreshold, false))
	if err := svc.Reload(ctx, store); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if svc.Count() != 3 {
		t.Fatalf("Count = %d, want 3", svc.Count())
	}

	match, err := svc.FindBestMatch(ctx, probeX)
	if err != nil {
		t.Fatalf("FindBestMatch failed: %v", err)
	}
	if match.EmployeeID != "emp-b" {
		t.Errorf("matched %s, want emp-b", match.EmployeeID)
	}
}

func TestService_AppendIsLive(t *testing.T) {
	svc := NewService(NewMatcher(testDim, DefaultMatchThreshold, false))
	ctx := context.Background()

	if _, err := svc.FindBestMatch(ctx, probeX); !errors.Is(err, ErrNoFacesEnrolled) {
		t.Fatalf("expected ErrNoFacesEnrolled before any enrollment, got %v", err)
	}

	svc.Append(enrolled(7, "emp-new", unitVec(0.92), time.Now()))

	match, err := svc.FindBestMatch(ctx, probeX)
	if err != nil {
		t.Fatalf("FindBestMatch after Append failed: %v", err)
	}
	if match.EmployeeID != "emp-new" || match.EmbeddingID != 7 {
		t.Errorf("matched %s/%d, want emp-new/7", match.EmployeeID, match.EmbeddingID)
	}
}

func TestService_ProbeDimensionChecked(t *testing.T) {
	svc := NewService(NewMatcher(testDim, DefaultMatchThreshold, false))
	svc.Append(enrolled(1, "emp-1", unitVec(0.9), time.Now()))

	_, err := svc.FindBestMatch(context.Background(), []float32{1, 0, 0})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}
