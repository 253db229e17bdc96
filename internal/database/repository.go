package database

import (
	"context"
	"time"
)

// IdentityStore provides durable access to the enrolled identity roster.
type IdentityStore interface {
	// Enroll persists a new identity. Fails with attendance.ErrDuplicateIdentity
	// if the identity ID is already taken; the existing record is left untouched.
	Enroll(ctx context.Context, identity Identity) (Identity, error)
	// Get retrieves an identity by ID, returns nil if not found.
	Get(ctx context.Context, identityID string) (*Identity, error)
	// List returns all identities, most-recently-enrolled first.
	// Each call yields a fresh consistent snapshot of the roster.
	List(ctx context.Context) ([]Identity, error)
	// Count returns the total number of enrolled identities.
	Count(ctx context.Context) (int, error)
	// FindNearest returns up to limit identities ordered by ascending cosine
	// distance to the probe feature, with the distances.
	FindNearest(ctx context.Context, feature []float32, limit int) ([]Identity, []float64, error)
}

// SessionStore provides durable access to attendance sessions.
type SessionStore interface {
	// LatestForDay returns the most recent session for (identityID, day),
	// or nil if the identity has no session on that day.
	LatestForDay(ctx context.Context, identityID, day string) (*Session, error)
	// Create opens a new session with the given check-in time and returns it
	// with its assigned ID.
	Create(ctx context.Context, identityID, day string, checkIn time.Time) (Session, error)
	// Close sets the check-out time on an open session exactly once.
	// Fails with attendance.ErrInvalidTransition if the session is already closed.
	Close(ctx context.Context, sessionID int64, checkOut time.Time) (Session, error)
	// ListByDay returns all sessions for a day, most recent check-in first.
	ListByDay(ctx context.Context, day string) ([]Session, error)
	// CountIdentitiesByDay returns the number of distinct identities with at
	// least one session on the given day.
	CountIdentitiesByDay(ctx context.Context, day string) (int, error)
}
