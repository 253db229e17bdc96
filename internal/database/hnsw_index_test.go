package database

import "testing"

func testIdentities() []Identity {
	return []Identity{
		{IdentityID: "emp001", DisplayName: "Alice", Feature: []float32{1, 0, 0}},
		{IdentityID: "emp002", DisplayName: "Bob", Feature: []float32{0, 1, 0}},
		{IdentityID: "emp003", DisplayName: "Carol", Feature: []float32{0, 0, 1}},
		{IdentityID: "emp004", DisplayName: "NoFeature"},
	}
}

func TestFeatureIndexBuildAndSearch(t *testing.T) {
	index := NewFeatureIndex()
	index.Build(testIdentities())

	// The identity without a feature is skipped.
	if got := index.Count(); got != 3 {
		t.Errorf("Expected 3 indexed identities, got %d", got)
	}

	identities, distances := index.Search([]float32{0, 1, 0}, 2)
	if len(identities) == 0 {
		t.Fatal("Expected search results, got none")
	}
	if identities[0].IdentityID != "emp002" {
		t.Errorf("Expected emp002 as nearest, got %s", identities[0].IdentityID)
	}
	if distances[0] > 1e-9 {
		t.Errorf("Expected zero distance for identical probe, got %v", distances[0])
	}
}

func TestFeatureIndexAdd(t *testing.T) {
	index := NewFeatureIndex()
	index.Build(testIdentities()[:2])

	index.Add(Identity{IdentityID: "emp005", DisplayName: "Dave", Feature: []float32{0, 0, 1}})
	if got := index.Count(); got != 3 {
		t.Errorf("Expected 3 indexed identities, got %d", got)
	}

	identities, _ := index.Search([]float32{0, 0, 1}, 1)
	if len(identities) != 1 || identities[0].IdentityID != "emp005" {
		t.Errorf("Expected emp005 as nearest, got %+v", identities)
	}

	// Featureless identities are ignored.
	index.Add(Identity{IdentityID: "emp006"})
	if got := index.Count(); got != 3 {
		t.Errorf("Expected count unchanged, got %d", got)
	}
}

func TestFeatureIndexEmpty(t *testing.T) {
	index := NewFeatureIndex()

	identities, distances := index.Search([]float32{1, 0, 0}, 5)
	if identities != nil || distances != nil {
		t.Errorf("Expected nil results from an empty index, got %v / %v", identities, distances)
	}
	if got := index.Count(); got != 0 {
		t.Errorf("Expected count 0, got %d", got)
	}
}
