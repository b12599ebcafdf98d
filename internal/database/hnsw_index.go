package database

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWIndex wraps an HNSW graph over enrolled face embeddings.
// It is safe for concurrent use; BuildFromEmbeddings replaces the whole
// graph under the write lock so in-flight searches never observe a
// partially built index.
type HNSWIndex struct {
	graph *hnsw.Graph[int64]
	idTo  map[int64]*StoredEmbedding
	mu    sync.RWMutex
}

// NewHNSWIndex creates a new empty HNSW index.
func NewHNSWIndex() *HNSWIndex {
	return &HNSWIndex{
		idTo: make(map[int64]*StoredEmbedding),
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance
	return g
}

// BuildFromEmbeddings builds the index from a slice of active embeddings.
func (h *HNSWIndex) BuildFromEmbeddings(embeddings []StoredEmbedding) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(embeddings) == 0 {
		h.graph = nil
		h.idTo = make(map[int64]*StoredEmbedding)
		return nil
	}

	g := newGraph()
	h.idTo = make(map[int64]*StoredEmbedding, len(embeddings))

	for i := range embeddings {
		emb := &embeddings[i]
		if len(emb.Embedding) == 0 || !emb.Active() {
			continue
		}
		g.Add(hnsw.MakeNode(emb.ID, emb.Embedding))
		h.idTo[emb.ID] = emb
	}

	h.graph = g
	return nil
}

// Search finds the k nearest neighbors to the query embedding.
// Returns embedding IDs and their cosine distances.
func (h *HNSWIndex) Search(query []float32, k int) ([]int64, []float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return nil, nil, errors.New("index not initialized")
	}

	neighbors := h.graph.Search(query, k)

	ids := make([]int64, len(neighbors))
	distances := make([]float64, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.Key
		// Compute the exact cosine distance from the node's own vector so
		// selection does not depend on HNSW's internal approximation.
		if len(n.Value) > 0 {
			distances[i] = CosineDistance(query, n.Value)
		}
	}

	return ids, distances, nil
}

// Get returns the embedding for a given ID, nil if absent.
func (h *HNSWIndex) Get(id int64) *StoredEmbedding {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.idTo[id]
}

// Add adds a single embedding to the index.
func (h *HNSWIndex) Add(emb *StoredEmbedding) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(emb.Embedding) == 0 || !emb.Active() {
		return
	}

	if h.graph == nil {
		h.graph = newGraph()
	}

	h.graph.Add(hnsw.MakeNode(emb.ID, emb.Embedding))
	h.idTo[emb.ID] = emb
}

// Count returns the number of embeddings in the index.
func (h *HNSWIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.idTo)
}

// Ready reports whether the index has been built.
func (h *HNSWIndex) Ready() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.graph != nil
}
