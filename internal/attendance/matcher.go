package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// Metric selects the similarity function used to compare feature vectors.
type Metric string

const (
	MetricCosine    Metric = "cosine"
	MetricEuclidean Metric = "euclidean"
)

// DefaultCandidateLimit is how many nearest candidates are retrieved for
// exact re-ranking when no limit is configured.
const DefaultCandidateLimit = 16

// MatcherConfig holds the acceptance threshold and similarity function.
type MatcherConfig struct {
	// Threshold is the minimum similarity in [0,1] for a candidate to match.
	Threshold float64
	// Metric is the similarity function; defaults to cosine.
	Metric Metric
	// CandidateLimit bounds how many nearest candidates are re-ranked.
	CandidateLimit int
}

// Match is a successful matcher outcome: the best candidate above threshold.
// A nil *Match from Matcher.Match means no enrolled identity matched.
type Match struct {
	Identity   database.Identity
	Confidence float64
}

// Matcher finds the best enrolled identity for a probe feature. Candidates
// come from the in-memory feature index when one is attached, otherwise from
// the store's nearest-neighbor query; either way the final decision is an
// exact similarity comparison with a deterministic tie-break.
type Matcher struct {
	store database.IdentityStore
	index *database.FeatureIndex
	cfg   MatcherConfig
}

// NewMatcher creates a matcher over the given identity store.
func NewMatcher(store database.IdentityStore, cfg MatcherConfig) (*Matcher, error) {
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %v outside [0,1]", ErrInvalidInput, cfg.Threshold)
	}
	switch cfg.Metric {
	case "":
		cfg.Metric = MetricCosine
	case MetricCosine, MetricEuclidean:
	default:
		return nil, fmt.Errorf("%w: unknown metric %q", ErrInvalidInput, cfg.Metric)
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = DefaultCandidateLimit
	}
	return &Matcher{store: store, cfg: cfg}, nil
}

// EnableIndex builds an in-memory HNSW index over the current roster and
// uses it for candidate retrieval from now on. Enrollments made afterwards
// must be registered with IndexIdentity to stay searchable.
func (m *Matcher) EnableIndex(ctx context.Context) error {
	identities, err := m.store.List(ctx)
	if err != nil {
		return fmt.Errorf("loading roster for feature index: %w", err)
	}

	index := database.NewFeatureIndex()
	index.Build(identities)
	m.index = index
	return nil
}

// IndexIdentity adds a newly enrolled identity to the feature index, if one
// is enabled.
func (m *Matcher) IndexIdentity(identity database.Identity) {
	if m.index != nil {
		m.index.Add(identity)
	}
}

// IndexCount returns the number of identities in the feature index (0 when disabled).
func (m *Matcher) IndexCount() int {
	if m.index == nil {
		return 0
	}
	return m.index.Count()
}

// Match compares the probe against the enrolled roster and returns the best
// candidate whose similarity reaches the configured threshold, or nil if no
// candidate qualifies. Ties on the best similarity resolve to the
// lexicographically lowest identity ID so results are reproducible.
func (m *Matcher) Match(ctx context.Context, probe []float32) (*Match, error) {
	if err := ValidateFeature(probe); err != nil {
		return nil, err
	}

	candidates, err := m.candidates(ctx, probe)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrMatcherTimeout, err)
		}
		return nil, err
	}

	var best *database.Identity
	var bestSim float64
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %v", ErrMatcherTimeout, err)
			}
			return nil, err
		}

		candidate := &candidates[i]
		sim := similarity(m.cfg.Metric, probe, candidate.Feature)
		switch {
		case best == nil || sim > bestSim:
			best = candidate
			bestSim = sim
		case sim == bestSim && candidate.IdentityID < best.IdentityID:
			best = candidate
		}
	}

	if best == nil || bestSim < m.cfg.Threshold {
		return nil, nil
	}
	return &Match{Identity: *best, Confidence: bestSim}, nil
}

// candidates retrieves the enrolled identities to re-rank against the probe.
// The index and the store's nearest-neighbor query both order by cosine
// distance, so under any other metric the true best candidate could fall
// outside their top-k; those metrics re-rank the whole roster instead.
func (m *Matcher) candidates(ctx context.Context, probe []float32) ([]database.Identity, error) {
	if m.cfg.Metric != MetricCosine {
		identities, err := m.store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("retrieving match candidates: %w", err)
		}
		return identities, nil
	}

	if m.index != nil {
		identities, _ := m.index.Search(probe, m.cfg.CandidateLimit)
		return identities, nil
	}

	identities, _, err := m.store.FindNearest(ctx, probe, m.cfg.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("retrieving match candidates: %w", err)
	}
	return identities, nil
}

// similarity maps a vector comparison onto [0,1], 1 meaning identical.
func similarity(metric Metric, a, b []float32) float64 {
	switch metric {
	case MetricEuclidean:
		return 1 / (1 + database.EuclideanDistance(a, b))
	default:
		sim := 1 - database.CosineDistance(a, b)
		if sim < 0 {
			return 0
		}
		return sim
	}
}
