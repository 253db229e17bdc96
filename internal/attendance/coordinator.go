package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// DefaultMatchTimeout bounds matcher cost for a single presence request.
const DefaultMatchTimeout = 3 * time.Second

// PresenceResult is the outcome of presenting one snapshot feature.
// When Recognized is false the ledger was not touched.
type PresenceResult struct {
	Recognized bool
	Identity   *database.Identity
	Confidence float64
	Outcome    *PresenceOutcome
}

// Coordinator orchestrates a single "present this snapshot" request:
// matcher lookup under a deadline, then the ledger transition.
type Coordinator struct {
	matcher *Matcher
	ledger  *Ledger
	timeout time.Duration
}

// NewCoordinator wires a matcher and a ledger together. A non-positive
// timeout falls back to DefaultMatchTimeout.
func NewCoordinator(matcher *Matcher, ledger *Ledger, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultMatchTimeout
	}
	return &Coordinator{matcher: matcher, ledger: ledger, timeout: timeout}
}

// Present matches the probe feature against the roster and, on a match,
// records the presence event. An unrecognized probe returns
// {Recognized: false} with no side effects. A match whose identity vanished
// before the ledger transition surfaces as ErrStaleMatch.
func (c *Coordinator) Present(ctx context.Context, probe []float32, at time.Time) (*PresenceResult, error) {
	matchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	match, err := c.matcher.Match(matchCtx, probe)
	if err != nil {
		return nil, fmt.Errorf("matching probe: %w", err)
	}
	if match == nil {
		return &PresenceResult{Recognized: false}, nil
	}

	outcome, err := c.ledger.RecordPresence(ctx, match.Identity.IdentityID, at)
	if err != nil {
		if errors.Is(err, ErrUnknownIdentity) {
			return nil, fmt.Errorf("%w: %q", ErrStaleMatch, match.Identity.IdentityID)
		}
		return nil, fmt.Errorf("recording presence for %q: %w", match.Identity.IdentityID, err)
	}

	return &PresenceResult{
		Recognized: true,
		Identity:   &match.Identity,
		Confidence: match.Confidence,
		Outcome:    outcome,
	}, nil
}
