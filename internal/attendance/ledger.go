package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// PresenceState is the outcome kind of a recorded presence event.
type PresenceState string

const (
	StateCheckedIn  PresenceState = "checked_in"
	StateCheckedOut PresenceState = "checked_out"
)

// PresenceOutcome is the result of a presence event: the transition taken
// and the session it created or closed.
type PresenceOutcome struct {
	State   PresenceState
	Session database.Session
}

// Ledger records daily attendance sessions per identity. Each (identity, day)
// lineage is a two-state machine: no open session means the next presence
// event checks in, an open session means it checks out. At most one session
// per (identity, day) is open at any time; closed sessions may accumulate
// through the day (re-entry).
type Ledger struct {
	identities database.IdentityStore
	sessions   database.SessionStore
	loc        *time.Location
	locks      *keyLocks
}

// NewLedger creates a ledger that partitions sessions by calendar day in loc.
func NewLedger(identities database.IdentityStore, sessions database.SessionStore, loc *time.Location) *Ledger {
	if loc == nil {
		loc = time.Local
	}
	return &Ledger{
		identities: identities,
		sessions:   sessions,
		loc:        loc,
		locks:      newKeyLocks(),
	}
}

// Day returns the calendar day key for a timestamp in the ledger's timezone.
func (l *Ledger) Day(at time.Time) string {
	return at.In(l.loc).Format(database.DayFormat)
}

// RecordPresence applies one presence event for an identity. Concurrent
// events for the same (identity, day) are strictly ordered: the first
// committed wins the transition and the second observes the resulting state.
func (l *Ledger) RecordPresence(ctx context.Context, identityID string, at time.Time) (*PresenceOutcome, error) {
	identity, err := l.identities.Get(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("looking up identity %q: %w", identityID, err)
	}
	if identity == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownIdentity, identityID)
	}

	day := l.Day(at)

	unlock := l.locks.lock(identityID + "/" + day)
	defer unlock()

	latest, err := l.sessions.LatestForDay(ctx, identityID, day)
	if err != nil {
		return nil, fmt.Errorf("looking up latest session for %q on %s: %w", identityID, day, err)
	}

	if latest == nil || !latest.Open() {
		session, err := l.sessions.Create(ctx, identityID, day, at)
		if err != nil {
			return nil, fmt.Errorf("opening session for %q on %s: %w", identityID, day, err)
		}
		return &PresenceOutcome{State: StateCheckedIn, Session: session}, nil
	}

	if at.Before(latest.CheckIn) {
		return nil, fmt.Errorf("%w: check-out at %s precedes check-in at %s",
			ErrInvalidTransition, at.Format(time.RFC3339), latest.CheckIn.Format(time.RFC3339))
	}

	session, err := l.sessions.Close(ctx, latest.ID, at)
	if err != nil {
		return nil, fmt.Errorf("closing session %d: %w", latest.ID, err)
	}
	return &PresenceOutcome{State: StateCheckedOut, Session: session}, nil
}

// ListByDay returns the sessions for a calendar day (most recent check-in
// first) together with the number of distinct identities seen that day.
func (l *Ledger) ListByDay(ctx context.Context, day string) ([]database.Session, int, error) {
	if _, err := time.Parse(database.DayFormat, day); err != nil {
		return nil, 0, fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", ErrInvalidInput, day)
	}

	sessions, err := l.sessions.ListByDay(ctx, day)
	if err != nil {
		return nil, 0, fmt.Errorf("listing sessions for %s: %w", day, err)
	}

	total, err := l.sessions.CountIdentitiesByDay(ctx, day)
	if err != nil {
		return nil, 0, fmt.Errorf("counting identities for %s: %w", day, err)
	}

	return sessions, total, nil
}

// Today returns the day key for the current time in the ledger's timezone.
func (l *Ledger) Today() string {
	return l.Day(time.Now())
}
