package recognize

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/faceclock/faceclock/internal/database"
)

// Matcher performs nearest-neighbor identity matching over candidate
// embeddings. It holds no mutable state; construct once and inject it
// where matching is needed.
type Matcher struct {
	Dim       int     // deployment-wide embedding dimension
	Threshold float64 // minimum accepted confidence (closed boundary)
	Strict    bool    // reject poor-tier matches with ErrLowConfidence
}

// NewMatcher creates a matcher with the given dimension and threshold.
func NewMatcher(dim int, threshold float64, strict bool) *Matcher {
	return &Matcher{Dim: dim, Threshold: threshold, Strict: strict}
}

// checkEvery controls how often the candidate loop polls ctx for
// cancellation. Distance computation is cheap; checking per candidate
// would dominate the loop on large stores.
const checkEvery = 256

// FindBestMatch matches the probe against the candidates and returns the
// best accepted match. Candidates with a mismatched vector length are
// logged and skipped (a corrupted enrollment must not fail the search);
// a mismatched probe fails immediately.
//
// Per identity only the best distance counts, so one bad enrollment
// capture cannot degrade recognition for an employee with good captures.
// Ties on distance go to the most recently enrolled embedding.
func (m *Matcher) FindBestMatch(ctx context.Context, probe []float32, candidates []database.StoredEmbedding) (*Match, error) {
	if len(probe) != m.Dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(probe), m.Dim)
	}
	if len(candidates) == 0 {
		return nil, ErrNoFacesEnrolled
	}

	// Best distance per identity.
	best := make(map[string]*database.StoredEmbedding)
	dist := make(map[string]float64)

	for i := range candidates {
		if i%checkEvery == 0 && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrMatchTimeout, ctx.Err())
		}

		cand := &candidates[i]
		if !cand.Active() {
			continue
		}
		if len(cand.Embedding) != m.Dim {
			log.Printf("WARNING: skipping embedding %d for %s: dimension %d, want %d",
				cand.ID, cand.EmployeeID, len(cand.Embedding), m.Dim)
			continue
		}

		d := database.CosineDistance(probe, cand.Embedding)
		prev, seen := dist[cand.EmployeeID]
		if !seen || d < prev || (d == prev && cand.CapturedAt.After(best[cand.EmployeeID].CapturedAt)) {
			dist[cand.EmployeeID] = d
			best[cand.EmployeeID] = cand
		}
	}

	if len(best) == 0 {
		return nil, ErrNoFacesEnrolled
	}

	var winner *database.StoredEmbedding
	winnerDist := 0.0
	for id, emb := range best {
		d := dist[id]
		switch {
		case winner == nil, d < winnerDist:
			winner, winnerDist = emb, d
		case d == winnerDist && emb.CapturedAt.After(winner.CapturedAt):
			winner = emb
		}
	}

	confidence := ConfidenceFromDistance(winnerDist)
	if confidence < m.Threshold {
		return nil, ErrNotRecognized
	}

	tier := TierForConfidence(confidence)
	if tier == TierPoor {
		if m.Strict {
			return nil, fmt.Errorf("%w: confidence %.3f", ErrLowConfidence, confidence)
		}
		// Accepted but flagged, to support later threshold tuning.
		log.Printf("WARNING: poor-tier match accepted for %s (confidence %.3f)", winner.EmployeeID, confidence)
	}

	return &Match{
		EmployeeID:  winner.EmployeeID,
		EmbeddingID: winner.ID,
		Distance:    winnerDist,
		Confidence:  confidence,
		Tier:        tier,
		CapturedAt:  winner.CapturedAt,
	}, nil
}

// Service couples a Matcher with an in-memory snapshot of the enrolled
// embeddings. Reload builds a fresh snapshot and swaps it in atomically,
// so an in-flight match never sees a partially loaded store.
type Service struct {
	matcher *Matcher

	mu       sync.RWMutex
	snapshot []database.StoredEmbedding
	index    *database.HNSWIndex
}

// NewService creates a matching service around the given matcher.
func NewService(matcher *Matcher) *Service {
	return &Service{matcher: matcher}
}

// Reload fetches all active embeddings and rebuilds the snapshot and the
// HNSW index. Safe to call while matches are in flight.
func (s *Service) Reload(ctx context.Context, reader database.EmbeddingReader) error {
	embeddings, err := reader.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("loading embeddings: %w", err)
	}

	index := database.NewHNSWIndex()
	if err := index.BuildFromEmbeddings(embeddings); err != nil {
		return fmt.Errorf("building HNSW index: %w", err)
	}

	s.mu.Lock()
	s.snapshot = embeddings
	s.index = index
	s.mu.Unlock()
	return nil
}

// Append adds a freshly enrolled embedding to the live snapshot.
func (s *Service) Append(emb database.StoredEmbedding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = append(s.snapshot, emb)
	if s.index != nil {
		s.index.Add(&s.snapshot[len(s.snapshot)-1])
	}
}

// Count returns the number of embeddings in the current snapshot.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshot)
}

// FindBestMatch matches the probe against the current snapshot. When the
// HNSW index is ready, the candidate set is narrowed to the approximate
// nearest neighbors first; the exact selection rules then run over that
// subset, so per-identity best-distance and tie-breaking behave the same
// as a full scan.
func (s *Service) FindBestMatch(ctx context.Context, probe []float32) (*Match, error) {
	s.mu.RLock()
	snapshot := s.snapshot
	index := s.index
	s.mu.RUnlock()

	if len(probe) != s.matcher.Dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(probe), s.matcher.Dim)
	}
	if len(snapshot) == 0 {
		return nil, ErrNoFacesEnrolled
	}

	if index != nil && index.Ready() {
		k := database.HNSWEfSearch * database.HNSWSearchMultiplier
		if k > len(snapshot) {
			k = len(snapshot)
		}
		ids, _, err := index.Search(probe, k)
		if err == nil && len(ids) > 0 {
			candidates := make([]database.StoredEmbedding, 0, len(ids))
			for _, id := range ids {
				if emb := index.Get(id); emb != nil {
					candidates = append(candidates, *emb)
				}
			}
			return s.matcher.FindBestMatch(ctx, probe, candidates)
		}
		log.Printf("WARNING: HNSW search failed, falling back to full scan: %v", err)
	}

	return s.matcher.FindBestMatch(ctx, probe, snapshot)
}
