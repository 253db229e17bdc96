package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/lib/pq"
)

// SessionRepository provides PostgreSQL-backed attendance session storage.
// A partial unique index on (identity_id, session_date) WHERE check_out IS
// NULL backs the one-open-session invariant at the database level.
type SessionRepository struct {
	pool *Pool
}

// NewSessionRepository creates a new PostgreSQL session repository.
func NewSessionRepository(pool *Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// LatestForDay returns the most recent session for (identityID, day), nil if none.
func (r *SessionRepository) LatestForDay(ctx context.Context, identityID, day string) (*database.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, identity_id, session_date, check_in, check_out
		FROM attendance_sessions
		WHERE identity_id = $1 AND session_date = $2
		ORDER BY check_in DESC, id DESC
		LIMIT 1
	`, identityID, day)

	session, err := scanSessionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// Create opens a new session. A concurrent open for the same (identity, day)
// trips the partial unique index and is reported as an invalid transition.
func (r *SessionRepository) Create(
	ctx context.Context, identityID, day string, checkIn time.Time,
) (database.Session, error) {
	session := database.Session{
		IdentityID: identityID,
		Day:        day,
		CheckIn:    checkIn,
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO attendance_sessions (identity_id, session_date, check_in)
		VALUES ($1, $2, $3)
		RETURNING id
	`, identityID, day, checkIn).Scan(&session.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return database.Session{}, fmt.Errorf("%w: session already open for %q on %s",
				attendance.ErrInvalidTransition, identityID, day)
		}
		return database.Session{}, fmt.Errorf("%w: insert session: %v", attendance.ErrStorageFailure, err)
	}

	return session, nil
}

// Close sets the check-out time on an open session. The conditional update
// guarantees a session is closed at most once.
func (r *SessionRepository) Close(ctx context.Context, sessionID int64, checkOut time.Time) (database.Session, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE attendance_sessions
		SET check_out = $1
		WHERE id = $2 AND check_out IS NULL
		RETURNING id, identity_id, session_date, check_in, check_out
	`, checkOut, sessionID)

	session, err := scanSessionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.Session{}, fmt.Errorf("%w: session %d is not open", attendance.ErrInvalidTransition, sessionID)
		}
		return database.Session{}, err
	}
	return session, nil
}

// ListByDay returns all sessions for a day, most recent check-in first.
func (r *SessionRepository) ListByDay(ctx context.Context, day string) ([]database.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, identity_id, session_date, check_in, check_out
		FROM attendance_sessions
		WHERE session_date = $1
		ORDER BY check_in DESC, id DESC
	`, day)
	if err != nil {
		return nil, fmt.Errorf("%w: query sessions: %v", attendance.ErrStorageFailure, err)
	}
	defer rows.Close()

	var sessions []database.Session
	for rows.Next() {
		session, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate sessions: %v", attendance.ErrStorageFailure, err)
	}
	return sessions, nil
}

// CountIdentitiesByDay returns the number of distinct identities with at
// least one session on the given day.
func (r *SessionRepository) CountIdentitiesByDay(ctx context.Context, day string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(DISTINCT identity_id) FROM attendance_sessions WHERE session_date = $1", day,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count identities by day: %v", attendance.ErrStorageFailure, err)
	}
	return count, nil
}

// scanSessionRow scans a single session row.
func scanSessionRow(scanner interface{ Scan(...any) error }) (database.Session, error) {
	var session database.Session
	var day time.Time
	var checkOut sql.NullTime

	if err := scanner.Scan(&session.ID, &session.IdentityID, &day, &session.CheckIn, &checkOut); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session, err
		}
		return session, fmt.Errorf("%w: scan session: %v", attendance.ErrStorageFailure, err)
	}

	session.Day = day.Format(database.DayFormat)
	if checkOut.Valid {
		t := checkOut.Time
		session.CheckOut = &t
	}

	return session, nil
}

// Verify interface compliance.
var _ database.SessionStore = (*SessionRepository)(nil)
