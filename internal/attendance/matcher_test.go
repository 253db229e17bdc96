package attendance_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
)

func enroll(t *testing.T, store *mock.IdentityStore, id, name string, feature []float32) database.Identity {
	t.Helper()
	identity, err := store.Enroll(context.Background(), database.Identity{
		IdentityID:  id,
		DisplayName: name,
		Feature:     feature,
	})
	if err != nil {
		t.Fatalf("Failed to enroll %s: %v", id, err)
	}
	return identity
}

func newMatcher(t *testing.T, store *mock.IdentityStore, cfg attendance.MatcherConfig) *attendance.Matcher {
	t.Helper()
	matcher, err := attendance.NewMatcher(store, cfg)
	if err != nil {
		t.Fatalf("Failed to create matcher: %v", err)
	}
	return matcher
}

func TestMatcherIdenticalProbe(t *testing.T) {
	store := mock.NewIdentityStore()
	enroll(t, store, "emp001", "Alice", []float32{1, 0, 0, 0})
	enroll(t, store, "emp002", "Bob", []float32{0, 1, 0, 0})
	enroll(t, store, "emp003", "Carol", []float32{0, 0, 1, 0})

	matcher := newMatcher(t, store, attendance.MatcherConfig{Threshold: 0.85})

	match, err := matcher.Match(context.Background(), []float32{0, 1, 0, 0})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if match == nil {
		t.Fatal("Expected a match, got nil")
	}
	if match.Identity.IdentityID != "emp002" {
		t.Errorf("Expected emp002, got %s", match.Identity.IdentityID)
	}
	if match.Confidence < 0.999 {
		t.Errorf("Expected confidence ~1 for identical probe, got %v", match.Confidence)
	}
}

func TestMatcherBelowThreshold(t *testing.T) {
	store := mock.NewIdentityStore()
	enroll(t, store, "emp001", "Alice", []float32{1, 0, 0, 0})

	matcher := newMatcher(t, store, attendance.MatcherConfig{Threshold: 0.85})

	// Orthogonal probe, cosine similarity 0.
	match, err := matcher.Match(context.Background(), []float32{0, 1, 0, 0})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if match != nil {
		t.Errorf("Expected no match, got %s with confidence %v", match.Identity.IdentityID, match.Confidence)
	}
}

func TestMatcherEmptyRoster(t *testing.T) {
	store := mock.NewIdentityStore()
	matcher := newMatcher(t, store, attendance.MatcherConfig{Threshold: 0.85})

	match, err := matcher.Match(context.Background(), []float32{1, 0, 0, 0})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if match != nil {
		t.Errorf("Expected no match on empty roster, got %s", match.Identity.IdentityID)
	}
}

func TestMatcherTieBreak(t *testing.T) {
	store := mock.NewIdentityStore()
	// Two identities with the same feature; the lexicographically lowest
	// identity ID must win, regardless of enrollment order.
	enroll(t, store, "emp007", "Bob", []float32{1, 0, 0, 0})
	enroll(t, store, "emp002", "Alice", []float32{1, 0, 0, 0})

	matcher := newMatcher(t, store, attendance.MatcherConfig{Threshold: 0.85})

	for i := 0; i < 5; i++ {
		match, err := matcher.Match(context.Background(), []float32{1, 0, 0, 0})
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		if match == nil {
			t.Fatal("Expected a match, got nil")
		}
		if match.Identity.IdentityID != "emp002" {
			t.Errorf("Expected tie to resolve to emp002, got %s", match.Identity.IdentityID)
		}
	}
}

func TestMatcherInvalidProbe(t *testing.T) {
	store := mock.NewIdentityStore()
	enroll(t, store, "emp001", "Alice", []float32{1, 0, 0, 0})
	matcher := newMatcher(t, store, attendance.MatcherConfig{Threshold: 0.85})

	tests := []struct {
		name  string
		probe []float32
	}{
		{"empty", nil},
		{"nan", []float32{float32(math.NaN()), 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := matcher.Match(context.Background(), tt.probe)
			if !errors.Is(err, attendance.ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestMatcherInvalidConfig(t *testing.T) {
	store := mock.NewIdentityStore()

	if _, err := attendance.NewMatcher(store, attendance.MatcherConfig{Threshold: 1.5}); err == nil {
		t.Error("Expected error for threshold outside [0,1]")
	}
	if _, err := attendance.NewMatcher(store, attendance.MatcherConfig{Threshold: 0.5, Metric: "manhattan"}); err == nil {
		t.Error("Expected error for unknown metric")
	}
}

func TestMatcherTimeout(t *testing.T) {
	store := mock.NewIdentityStore()
	enroll(t, store, "emp001", "Alice", []float32{1, 0, 0, 0})
	matcher := newMatcher(t, store, attendance.MatcherConfig{Threshold: 0.85})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := matcher.Match(ctx, []float32{1, 0, 0, 0})
	if !errors.Is(err, attendance.ErrMatcherTimeout) {
		t.Errorf("Expected ErrMatcherTimeout, got %v", err)
	}
}

func TestMatcherEuclideanMetric(t *testing.T) {
	store := mock.NewIdentityStore()
	enroll(t, store, "emp001", "Alice", []float32{1, 0, 0, 0})

	matcher := newMatcher(t, store, attendance.MatcherConfig{
		Threshold: 0.9,
		Metric:    attendance.MetricEuclidean,
	})

	match, err := matcher.Match(context.Background(), []float32{1, 0, 0, 0})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if match == nil {
		t.Fatal("Expected a match, got nil")
	}
	if match.Confidence != 1 {
		t.Errorf("Expected confidence 1 for identical probe, got %v", match.Confidence)
	}
}

func TestMatcherEuclideanLargeRoster(t *testing.T) {
	store := mock.NewIdentityStore()
	// More identities than the candidate limit, all pointing in the probe's
	// direction but far away in euclidean terms. Cosine-ordered retrieval
	// would rank them ahead of the euclidean-nearest identity and truncate
	// it out of the candidate set.
	for i := 0; i < attendance.DefaultCandidateLimit+4; i++ {
		enroll(t, store, fmt.Sprintf("far%03d", i), "Distant", []float32{100, 0})
	}
	enroll(t, store, "near001", "Ada", []float32{1, 0.01})

	matcher := newMatcher(t, store, attendance.MatcherConfig{
		Threshold: 0.5,
		Metric:    attendance.MetricEuclidean,
	})

	match, err := matcher.Match(context.Background(), []float32{1, 0})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if match == nil {
		t.Fatal("Expected the euclidean-nearest identity to match, got nil")
	}
	if match.Identity.IdentityID != "near001" {
		t.Errorf("Expected near001, got %s", match.Identity.IdentityID)
	}
	if match.Confidence < 0.9 {
		t.Errorf("Expected confidence above 0.9, got %v", match.Confidence)
	}
}

func TestMatcherWithIndex(t *testing.T) {
	store := mock.NewIdentityStore()
	enroll(t, store, "emp001", "Alice", []float32{1, 0, 0, 0})
	enroll(t, store, "emp002", "Bob", []float32{0, 1, 0, 0})

	matcher := newMatcher(t, store, attendance.MatcherConfig{Threshold: 0.85})
	if err := matcher.EnableIndex(context.Background()); err != nil {
		t.Fatalf("EnableIndex failed: %v", err)
	}
	if matcher.IndexCount() != 2 {
		t.Errorf("Expected 2 indexed identities, got %d", matcher.IndexCount())
	}

	match, err := matcher.Match(context.Background(), []float32{0, 1, 0, 0})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if match == nil || match.Identity.IdentityID != "emp002" {
		t.Fatalf("Expected emp002 from indexed match, got %+v", match)
	}

	// A new enrollment becomes searchable once registered with the index.
	carol := enroll(t, store, "emp003", "Carol", []float32{0, 0, 1, 0})
	matcher.IndexIdentity(carol)

	match, err = matcher.Match(context.Background(), []float32{0, 0, 1, 0})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if match == nil || match.Identity.IdentityID != "emp003" {
		t.Fatalf("Expected emp003 after IndexIdentity, got %+v", match)
	}
}
