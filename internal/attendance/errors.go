// Package attendance implements the attendance ledger and identity-matching
// engine: deciding whether a presence event opens a new session or closes an
// existing one, and matching probe features against the enrolled roster.
package attendance

import "errors"

// Error taxonomy for attendance operations. Storage and matching failures are
// wrapped around these sentinels so callers can classify outcomes with errors.Is.
var (
	// ErrInvalidInput marks malformed enrollment or request data (user-correctable).
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateIdentity marks an enrollment attempt with an already-taken identity ID.
	ErrDuplicateIdentity = errors.New("identity already enrolled")

	// ErrUnknownIdentity marks a presence event for an identity missing from the roster.
	ErrUnknownIdentity = errors.New("unknown identity")

	// ErrStaleMatch marks a match whose identity disappeared between matching
	// and recording; expected to be rare but not impossible.
	ErrStaleMatch = errors.New("matched identity no longer enrolled")

	// ErrInvalidTransition marks an out-of-order presence event, such as a
	// check-out earlier than the session's check-in (clock skew).
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrMatcherTimeout marks a match that exceeded its deadline; no ledger
	// mutation happens in that case.
	ErrMatcherTimeout = errors.New("matcher timed out")

	// ErrStorageFailure marks unavailable persistence. Fatal for the request,
	// not for the process.
	ErrStorageFailure = errors.New("storage failure")
)
