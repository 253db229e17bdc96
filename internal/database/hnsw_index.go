package database

import (
	"sync"

	"github.com/coder/hnsw"
)

// FeatureIndex wraps an HNSW graph over enrolled identity features for
// fast nearest-neighbor candidate retrieval. It is an in-memory acceleration
// layer; the identity roster in the store remains the source of truth.
type FeatureIndex struct {
	graph        *hnsw.Graph[string]
	idToIdentity map[string]*Identity
	mu           sync.RWMutex
}

// NewFeatureIndex creates a new empty feature index.
func NewFeatureIndex() *FeatureIndex {
	return &FeatureIndex{
		idToIdentity: make(map[string]*Identity),
	}
}

// Build replaces the index contents with the given identities.
// Identities without a feature vector are skipped.
func (f *FeatureIndex) Build(identities []Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()

	g := hnsw.NewGraph[string]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance

	f.idToIdentity = make(map[string]*Identity, len(identities))
	for i := range identities {
		identity := &identities[i]
		if len(identity.Feature) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(identity.IdentityID, identity.Feature))
		f.idToIdentity[identity.IdentityID] = identity
	}

	f.graph = g
}

// Add inserts or replaces a single identity in the index.
func (f *FeatureIndex) Add(identity Identity) {
	if len(identity.Feature) == 0 {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.graph == nil {
		g := hnsw.NewGraph[string]()
		g.M = HNSWMaxNeighbors
		g.Ml = 1.0 / float64(HNSWMaxNeighbors)
		g.Distance = hnsw.CosineDistance
		f.graph = g
	}

	f.graph.Add(hnsw.MakeNode(identity.IdentityID, identity.Feature))
	f.idToIdentity[identity.IdentityID] = &identity
}

// Search returns up to k identities closest to the probe feature along with
// their exact cosine distances, ordered by ascending distance.
func (f *FeatureIndex) Search(probe []float32, k int) ([]Identity, []float64) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.graph == nil || len(f.idToIdentity) == 0 {
		return nil, nil
	}

	neighbors := f.graph.Search(probe, k)

	identities := make([]Identity, 0, len(neighbors))
	distances := make([]float64, 0, len(neighbors))
	for _, n := range neighbors {
		identity := f.idToIdentity[n.Key]
		if identity == nil {
			continue
		}
		identities = append(identities, *identity)
		// Recompute the exact distance from the probe; the graph's internal
		// ordering is approximate.
		distances = append(distances, CosineDistance(probe, identity.Feature))
	}

	return identities, distances
}

// Count returns the number of identities in the index.
func (f *FeatureIndex) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.idToIdentity)
}
