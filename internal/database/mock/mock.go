// Package mock provides in-memory implementations of the database interfaces
// for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// IdentityStore is an in-memory implementation of database.IdentityStore.
type IdentityStore struct {
	mu         sync.RWMutex
	identities map[string]database.Identity
	order      []string // enrollment order, oldest first

	// Error injection
	EnrollError      error
	GetError         error
	ListError        error
	CountError       error
	FindNearestError error
}

// NewIdentityStore creates an empty in-memory identity store.
func NewIdentityStore() *IdentityStore {
	return &IdentityStore{identities: make(map[string]database.Identity)}
}

// Enroll persists a new identity, rejecting duplicates and invalid records.
func (s *IdentityStore) Enroll(ctx context.Context, identity database.Identity) (database.Identity, error) {
	if s.EnrollError != nil {
		return database.Identity{}, s.EnrollError
	}
	if err := attendance.ValidateEnrollment(identity); err != nil {
		return database.Identity{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.identities[identity.IdentityID]; ok {
		return database.Identity{}, attendance.ErrDuplicateIdentity
	}

	if identity.EnrolledAt.IsZero() {
		identity.EnrolledAt = time.Now()
	}
	identity.Feature = append([]float32(nil), identity.Feature...)

	s.identities[identity.IdentityID] = identity
	s.order = append(s.order, identity.IdentityID)
	return identity, nil
}

// Get retrieves an identity by ID, nil if not found.
func (s *IdentityStore) Get(ctx context.Context, identityID string) (*database.Identity, error) {
	if s.GetError != nil {
		return nil, s.GetError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.identities[identityID]
	if !ok {
		return nil, nil
	}
	return &identity, nil
}

// List returns all identities, most-recently-enrolled first.
func (s *IdentityStore) List(ctx context.Context) ([]database.Identity, error) {
	if s.ListError != nil {
		return nil, s.ListError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]database.Identity, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.identities[s.order[i]])
	}
	return out, nil
}

// Count returns the number of enrolled identities.
func (s *IdentityStore) Count(ctx context.Context) (int, error) {
	if s.CountError != nil {
		return 0, s.CountError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.identities), nil
}

// FindNearest scans all identities and returns the closest by cosine distance.
func (s *IdentityStore) FindNearest(ctx context.Context, feature []float32, limit int) ([]database.Identity, []float64, error) {
	if s.FindNearestError != nil {
		return nil, nil, s.FindNearestError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		identity database.Identity
		distance float64
	}
	results := make([]scored, 0, len(s.identities))
	for _, id := range s.order {
		identity := s.identities[id]
		results = append(results, scored{identity, database.CosineDistance(feature, identity.Feature)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].distance != results[j].distance {
			return results[i].distance < results[j].distance
		}
		return results[i].identity.IdentityID < results[j].identity.IdentityID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	identities := make([]database.Identity, len(results))
	distances := make([]float64, len(results))
	for i, r := range results {
		identities[i] = r.identity
		distances[i] = r.distance
	}
	return identities, distances, nil
}

// Remove deletes an identity. Not part of database.IdentityStore; used by
// tests to simulate a stale match.
func (s *IdentityStore) Remove(identityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.identities, identityID)
	for i, id := range s.order {
		if id == identityID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// SessionStore is an in-memory implementation of database.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions []database.Session
	nextID   int64

	// Error injection
	LatestError error
	CreateError error
	CloseError  error
	ListError   error
	CountError  error
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{nextID: 1}
}

// LatestForDay returns the most recent session for (identityID, day), nil if none.
func (s *SessionStore) LatestForDay(ctx context.Context, identityID, day string) (*database.Session, error) {
	if s.LatestError != nil {
		return nil, s.LatestError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.sessions) - 1; i >= 0; i-- {
		if s.sessions[i].IdentityID == identityID && s.sessions[i].Day == day {
			session := s.sessions[i]
			return &session, nil
		}
	}
	return nil, nil
}

// Create opens a new session and returns it with its assigned ID.
func (s *SessionStore) Create(ctx context.Context, identityID, day string, checkIn time.Time) (database.Session, error) {
	if s.CreateError != nil {
		return database.Session{}, s.CreateError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	session := database.Session{
		ID:         s.nextID,
		IdentityID: identityID,
		Day:        day,
		CheckIn:    checkIn,
	}
	s.nextID++
	s.sessions = append(s.sessions, session)
	return session, nil
}

// Close sets the check-out time on an open session.
func (s *SessionStore) Close(ctx context.Context, sessionID int64, checkOut time.Time) (database.Session, error) {
	if s.CloseError != nil {
		return database.Session{}, s.CloseError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.sessions {
		if s.sessions[i].ID != sessionID {
			continue
		}
		if s.sessions[i].CheckOut != nil {
			return database.Session{}, attendance.ErrInvalidTransition
		}
		out := checkOut
		s.sessions[i].CheckOut = &out
		return s.sessions[i], nil
	}
	return database.Session{}, attendance.ErrInvalidTransition
}

// ListByDay returns sessions for a day, most recent check-in first.
func (s *SessionStore) ListByDay(ctx context.Context, day string) ([]database.Session, error) {
	if s.ListError != nil {
		return nil, s.ListError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []database.Session
	for _, session := range s.sessions {
		if session.Day == day {
			out = append(out, session)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CheckIn.After(out[j].CheckIn)
	})
	return out, nil
}

// CountIdentitiesByDay returns the number of distinct identities seen on a day.
func (s *SessionStore) CountIdentitiesByDay(ctx context.Context, day string) (int, error) {
	if s.CountError != nil {
		return 0, s.CountError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, session := range s.sessions {
		if session.Day == day {
			seen[session.IdentityID] = struct{}{}
		}
	}
	return len(seen), nil
}

// OpenSessions returns the number of open sessions for (identityID, day).
// Test helper for the one-open-session invariant.
func (s *SessionStore) OpenSessions(identityID, day string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, session := range s.sessions {
		if session.IdentityID == identityID && session.Day == day && session.Open() {
			count++
		}
	}
	return count
}

// Verify interface compliance.
var _ database.IdentityStore = (*IdentityStore)(nil)
var _ database.SessionStore = (*SessionStore)(nil)
