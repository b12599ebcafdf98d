package database

// DefaultEmbeddingDim is the embedding dimension used when EMBEDDING_DIM
// is not configured. All stored vectors must match the configured dimension.
const DefaultEmbeddingDim = 128

// HNSW index parameters for face embeddings
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	// Higher values improve recall but slow down search.
	HNSWEfSearch = 100

	// HNSWSearchMultiplier is the factor to request more candidates from HNSW
	// than identities needed, so identity deduplication still leaves enough.
	HNSWSearchMultiplier = 3
)
