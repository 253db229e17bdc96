package database

// FeatureDim is the fixed dimension for identity feature vectors
// (16x16 luminance grid produced by the feature extractor).
const FeatureDim = 256

// HNSW index parameters for the in-memory feature index
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	// Higher values improve recall but slow down search.
	HNSWEfSearch = 100
)
