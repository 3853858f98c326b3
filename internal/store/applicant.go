package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/contesthub/apiserver/types"
)

// ApplicantRepository handles persistence for host applications. Decided
// applications are kept with their final status rather than deleted.
type ApplicantRepository struct {
	db *sql.DB
}

func NewApplicantRepository(db *sql.DB) *ApplicantRepository {
	return &ApplicantRepository{db: db}
}

func scanApplicant(row rowScanner) (types.Applicant, error) {
	var applicant types.Applicant
	err := row.Scan(
		&applicant.ID,
		&applicant.UserID,
		&applicant.Username,
		&applicant.Email,
		&applicant.Reason,
		&applicant.Status,
		&applicant.CreatedAt,
		&applicant.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Applicant{}, ErrNotFound
		}
		return types.Applicant{}, err
	}
	return applicant, nil
}

func (r *ApplicantRepository) GetByID(ctx context.Context, id int) (types.Applicant, error) {
	const query = `
		SELECT id, user_id, username, email, reason, status, created_at, updated_at
		FROM applicants
		WHERE id = $1`
	return scanApplicant(r.db.QueryRowContext(ctx, query, id))
}

func (r *ApplicantRepository) ListByStatus(ctx context.Context, status string) ([]types.Applicant, error) {
	const query = `
		SELECT id, user_id, username, email, reason, status, created_at, updated_at
		FROM applicants
		WHERE status = $1
		ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var applicants []types.Applicant
	for rows.Next() {
		applicant, err := scanApplicant(rows)
		if err != nil {
			return nil, err
		}
		applicants = append(applicants, applicant)
	}
	return applicants, rows.Err()
}

// HasPending reports whether the user already has an undecided application.
func (r *ApplicantRepository) HasPending(ctx context.Context, userID int) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM applicants WHERE user_id = $1 AND status = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, types.ApplicantPending).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *ApplicantRepository) Create(ctx context.Context, applicant types.Applicant) (types.Applicant, error) {
	now := time.Now()
	applicant.CreatedAt = now
	applicant.UpdatedAt = now
	if applicant.Status == "" {
		applicant.Status = types.ApplicantPending
	}

	const query = `
		INSERT INTO applicants (user_id, username, email, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		applicant.UserID,
		applicant.Username,
		applicant.Email,
		applicant.Reason,
		applicant.Status,
		applicant.CreatedAt,
		applicant.UpdatedAt,
	).Scan(&applicant.ID); err != nil {
		return types.Applicant{}, err
	}
	return applicant, nil
}

// Decide transitions a pending application to the given final status.
// Returns ErrConflict when the application was already decided.
func (r *ApplicantRepository) Decide(ctx context.Context, id int, status string) (types.Applicant, error) {
	const query = `
		UPDATE applicants
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING id, user_id, username, email, reason, status, created_at, updated_at`
	applicant, err := scanApplicant(r.db.QueryRowContext(ctx, query, status, time.Now(), id, types.ApplicantPending))
	if err == nil {
		return applicant, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return types.Applicant{}, err
	}

	// Row either does not exist or was already decided.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return types.Applicant{}, getErr
	}
	return types.Applicant{}, ErrConflict
}
