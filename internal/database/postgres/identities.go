package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// pqUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pqUniqueViolation = "23505"

// IdentityRepository provides PostgreSQL-backed identity storage.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// Enroll persists a new identity. A colliding identity ID is rejected and
// leaves the existing record untouched.
func (r *IdentityRepository) Enroll(ctx context.Context, identity database.Identity) (database.Identity, error) {
	if err := attendance.ValidateEnrollment(identity); err != nil {
		return database.Identity{}, err
	}
	if len(identity.Feature) != database.FeatureDim {
		return database.Identity{}, fmt.Errorf("%w: feature has %d dimensions, want %d",
			attendance.ErrInvalidInput, len(identity.Feature), database.FeatureDim)
	}

	var photoPath sql.NullString
	if identity.PhotoPath != "" {
		photoPath = sql.NullString{String: identity.PhotoPath, Valid: true}
	}
	var department sql.NullString
	if identity.Department != "" {
		department = sql.NullString{String: identity.Department, Valid: true}
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO identities (identity_id, display_name, department, feature, photo_path)
		VALUES ($1, $2, $3, $4::vector, $5)
		RETURNING enrolled_at
	`,
		identity.IdentityID,
		identity.DisplayName,
		department,
		pgvector.NewVector(identity.Feature),
		photoPath,
	).Scan(&identity.EnrolledAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return database.Identity{}, fmt.Errorf("%w: %q", attendance.ErrDuplicateIdentity, identity.IdentityID)
		}
		return database.Identity{}, fmt.Errorf("%w: insert identity: %v", attendance.ErrStorageFailure, err)
	}

	return identity, nil
}

// Get retrieves an identity by ID, returns nil if not found.
func (r *IdentityRepository) Get(ctx context.Context, identityID string) (*database.Identity, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT identity_id, display_name, department, feature, photo_path, enrolled_at
		FROM identities
		WHERE identity_id = $1
	`, identityID)

	identity, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &identity, nil
}

// List returns all identities, most-recently-enrolled first.
func (r *IdentityRepository) List(ctx context.Context) ([]database.Identity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT identity_id, display_name, department, feature, photo_path, enrolled_at
		FROM identities
		ORDER BY enrolled_at DESC, identity_id
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: query identities: %v", attendance.ErrStorageFailure, err)
	}
	defer rows.Close()

	return scanIdentities(rows)
}

// Count returns the total number of enrolled identities.
func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count identities: %v", attendance.ErrStorageFailure, err)
	}
	return count, nil
}

// FindNearest returns up to limit identities by ascending cosine distance to
// the probe feature. Runs in a read-only transaction so ef_search can be
// raised for better recall on the HNSW index.
func (r *IdentityRepository) FindNearest(
	ctx context.Context, feature []float32, limit int,
) ([]database.Identity, []float64, error) {
	tx, err := r.pool.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: begin transaction: %v", attendance.ErrStorageFailure, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", database.HNSWEfSearch)); err != nil {
		return nil, nil, fmt.Errorf("%w: set ef_search: %v", attendance.ErrStorageFailure, err)
	}

	query := `
		SELECT identity_id, display_name, department, feature, photo_path, enrolled_at,
		       feature <=> $1::vector AS distance
		FROM identities
		ORDER BY distance, identity_id
		LIMIT $2
	`

	rows, err := tx.QueryContext(ctx, query, pgvector.NewVector(feature), limit)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: query nearest identities: %v", attendance.ErrStorageFailure, err)
	}
	defer rows.Close()

	var identities []database.Identity
	var distances []float64
	for rows.Next() {
		var dist float64
		identity, err := scanIdentityRow(rows, &dist)
		if err != nil {
			return nil, nil, err
		}
		identities = append(identities, identity)
		distances = append(distances, dist)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: iterate identities: %v", attendance.ErrStorageFailure, err)
	}

	return identities, distances, nil
}

// scanIdentityRow scans a single row into an Identity, with optional extra
// scan destinations appended after the standard columns (e.g. a distance).
func scanIdentityRow(scanner interface{ Scan(...any) error }, extraDest ...any) (database.Identity, error) {
	var identity database.Identity
	var vec pgvector.Vector
	var department, photoPath sql.NullString

	dest := make([]any, 0, 6+len(extraDest))
	dest = append(dest,
		&identity.IdentityID,
		&identity.DisplayName,
		&department,
		&vec,
		&photoPath,
		&identity.EnrolledAt,
	)
	dest = append(dest, extraDest...)

	if err := scanner.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity, err
		}
		return identity, fmt.Errorf("%w: scan identity: %v", attendance.ErrStorageFailure, err)
	}

	identity.Feature = vec.Slice()
	if department.Valid {
		identity.Department = department.String
	}
	if photoPath.Valid {
		identity.PhotoPath = photoPath.String
	}

	return identity, nil
}

func scanIdentity(row *sql.Row) (database.Identity, error) {
	return scanIdentityRow(row)
}

func scanIdentities(rows *sql.Rows) ([]database.Identity, error) {
	var identities []database.Identity
	for rows.Next() {
		identity, err := scanIdentityRow(rows)
		if err != nil {
			return nil, err
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate identities: %v", attendance.ErrStorageFailure, err)
	}
	return identities, nil
}

// Verify interface compliance.
var _ database.IdentityStore = (*IdentityRepository)(nil)
