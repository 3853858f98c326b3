package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/contesthub/apiserver/types"
)

// AdminRepository handles persistence for the parallel admin accounts.
type AdminRepository struct {
	db *sql.DB
}

func NewAdminRepository(db *sql.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func scanAdmin(row rowScanner) (types.Admin, error) {
	var admin types.Admin
	err := row.Scan(
		&admin.ID,
		&admin.Username,
		&admin.Email,
		&admin.PasswordHash,
		&admin.HostAuth,
		&admin.IsAdmin,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Admin{}, ErrNotFound
		}
		return types.Admin{}, err
	}
	return admin, nil
}

func (r *AdminRepository) GetByID(ctx context.Context, id int) (types.Admin, error) {
	const query = `
		SELECT id, username, email, password_hash, host_auth, is_admin, created_at, updated_at
		FROM admins
		WHERE id = $1`
	return scanAdmin(r.db.QueryRowContext(ctx, query, id))
}

func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (types.Admin, error) {
	const query = `
		SELECT id, username, email, password_hash, host_auth, is_admin, created_at, updated_at
		FROM admins
		WHERE email = $1`
	return scanAdmin(r.db.QueryRowContext(ctx, query, email))
}

func (r *AdminRepository) Create(ctx context.Context, admin types.Admin) (types.Admin, error) {
	now := time.Now()
	admin.CreatedAt = now
	admin.UpdatedAt = now
	admin.HostAuth = true
	admin.IsAdmin = true

	const query = `
		INSERT INTO admins (username, email, password_hash, host_auth, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		admin.Username,
		admin.Email,
		admin.PasswordHash,
		admin.HostAuth,
		admin.IsAdmin,
		admin.CreatedAt,
		admin.UpdatedAt,
	).Scan(&admin.ID); err != nil {
		return types.Admin{}, mapConstraintErr(err)
	}
	return admin, nil
}
