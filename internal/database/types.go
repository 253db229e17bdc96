package database

import (
	"time"
)

// DayFormat is the layout for calendar day keys (the attendance partition key).
const DayFormat = "2006-01-02"

// Identity represents an enrolled person with a matchable feature vector.
type Identity struct {
	IdentityID  string
	DisplayName string
	Department  string
	Feature     []float32
	PhotoPath   string // stored enrollment snapshot, empty if enrolled from a raw feature
	EnrolledAt  time.Time
}

// Session represents one check-in/check-out pair for one identity on one calendar day.
// A session with CheckOut unset is open; closed sessions are immutable log entries.
type Session struct {
	ID         int64
	IdentityID string
	Day        string // calendar day in the ledger timezone, formatted as DayFormat
	CheckIn    time.Time
	CheckOut   *time.Time
}

// Open reports whether the session is still awaiting a check-out.
func (s *Session) Open() bool {
	return s.CheckOut == nil
}
