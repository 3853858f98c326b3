package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/contesthub/apiserver/types"
	"github.com/lib/pq"
)

const userColumns = `id, fullname, username, email, password_hash, dob, joining_date,
		host_auth, is_admin, security_question, security_answer,
		follows, followers, competitions, avg_rating, reviews, notifications,
		created_at, updated_at`

// UserRepository handles persistence for users. The embedded collections
// (follows, followers, competitions, reviews, notifications) round-trip
// through JSONB columns and are read and written with the row.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	var followsJSON, followersJSON, competitionsJSON, reviewsJSON, notificationsJSON []byte
	err := row.Scan(
		&user.ID,
		&user.Fullname,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.DOB,
		&user.JoiningDate,
		&user.HostAuth,
		&user.IsAdmin,
		&user.SecurityQuestion,
		&user.SecurityAnswer,
		&followsJSON,
		&followersJSON,
		&competitionsJSON,
		&user.AvgRating,
		&reviewsJSON,
		&notificationsJSON,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}

	_ = json.Unmarshal(followsJSON, &user.Follows)
	_ = json.Unmarshal(followersJSON, &user.Followers)
	_ = json.Unmarshal(competitionsJSON, &user.Competitions)
	_ = json.Unmarshal(reviewsJSON, &user.Reviews)
	_ = json.Unmarshal(notificationsJSON, &user.Notifications)
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

// GetByIDs fetches the given users in a single query. Missing ids are
// skipped rather than reported.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []int) ([]types.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1) ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]types.User, 0, len(ids))
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.JoiningDate.IsZero() {
		user.JoiningDate = now
	}

	followsJSON, _ := json.Marshal(emptyIfNilInts(user.Follows))
	followersJSON, _ := json.Marshal(emptyIfNilInts(user.Followers))
	competitionsJSON, _ := json.Marshal(emptyIfNilInts(user.Competitions))
	reviewsJSON, err := json.Marshal(emptyIfNilReviews(user.Reviews))
	if err != nil {
		return types.User{}, err
	}
	notificationsJSON, err := json.Marshal(emptyIfNilNotifications(user.Notifications))
	if err != nil {
		return types.User{}, err
	}

	const query = `
		INSERT INTO users (fullname, username, email, password_hash, dob, joining_date,
			host_auth, is_admin, security_question, security_answer,
			follows, followers, competitions, avg_rating, reviews, notifications,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Fullname,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.DOB,
		user.JoiningDate,
		user.HostAuth,
		user.IsAdmin,
		user.SecurityQuestion,
		user.SecurityAnswer,
		followsJSON,
		followersJSON,
		competitionsJSON,
		user.AvgRating,
		reviewsJSON,
		notificationsJSON,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, mapConstraintErr(err)
	}
	return user, nil
}

// Mutate loads the user under a row lock, applies fn, and writes the whole
// record back in one transaction. Concurrent mutations of the embedded
// collections serialize on the lock instead of overwriting each other.
func (r *UserRepository) Mutate(ctx context.Context, id int, fn func(*types.User) error) (types.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.User{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	user, err := lockUser(ctx, tx, id)
	if err != nil {
		return types.User{}, err
	}

	if err := fn(&user); err != nil {
		return types.User{}, err
	}

	if err := updateUserTx(ctx, tx, user); err != nil {
		return types.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// AppendNotification pushes an entry onto the user's inbox with a jsonb
// concatenation, so concurrent appends never drop each other.
func (r *UserRepository) AppendNotification(ctx context.Context, userID int, n types.Notification) error {
	entry, err := json.Marshal([]types.Notification{n})
	if err != nil {
		return err
	}
	const query = `
		UPDATE users
		SET notifications = notifications || $1::jsonb,
			updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, entry, time.Now(), userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetHostAuth flips the host authorization flag.
func (r *UserRepository) SetHostAuth(ctx context.Context, userID int, hostAuth bool) error {
	const query = `UPDATE users SET host_auth = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, hostAuth, time.Now(), userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFollow adds or removes the (follower, target) edge on both sides.
// Both rows are locked in ascending id order. Idempotent.
func (r *UserRepository) SetFollow(ctx context.Context, followerID, targetID int, follow bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	first, second := followerID, targetID
	if second < first {
		first, second = second, first
	}
	locked := map[int]types.User{}
	for _, id := range []int{first, second} {
		user, err := lockUser(ctx, tx, id)
		if err != nil {
			return err
		}
		locked[id] = user
	}

	follower := locked[followerID]
	target := locked[targetID]

	if follow {
		follower.Follows = addInt(follower.Follows, targetID)
		target.Followers = addInt(target.Followers, followerID)
	} else {
		follower.Follows = removeInt(follower.Follows, targetID)
		target.Followers = removeInt(target.Followers, followerID)
	}

	if err := updateUserTx(ctx, tx, follower); err != nil {
		return err
	}
	if err := updateUserTx(ctx, tx, target); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes the user and cascades in one transaction: competitions the
// user hosts are deleted, the id is stripped from other competitions'
// participant lists, the hosted competition ids are stripped from other
// users' competition lists, and follow edges pointing at the user go away.
func (r *UserRepository) Delete(ctx context.Context, id int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	hostedRows, err := tx.QueryContext(ctx, `SELECT id FROM competitions WHERE host_id = $1`, id)
	if err != nil {
		return err
	}
	var hosted []int
	for hostedRows.Next() {
		var compID int
		if err := hostedRows.Scan(&compID); err != nil {
			hostedRows.Close()
			return err
		}
		hosted = append(hosted, compID)
	}
	if err := hostedRows.Err(); err != nil {
		hostedRows.Close()
		return err
	}
	hostedRows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM competitions WHERE host_id = $1`, id); err != nil {
		return err
	}

	idJSON, _ := json.Marshal(id)
	if _, err := tx.ExecContext(ctx, `
		UPDATE competitions
		SET participants = (
			SELECT COALESCE(jsonb_agg(elem), '[]'::jsonb)
			FROM jsonb_array_elements(participants) elem
			WHERE elem <> $1::jsonb
		)
		WHERE participants @> jsonb_build_array($1::jsonb)`, idJSON); err != nil {
		return err
	}

	hostedJSON, _ := json.Marshal(emptyIfNilInts(hosted))
	if _, err := tx.ExecContext(ctx, `
		UPDATE users
		SET competitions = (
			SELECT COALESCE(jsonb_agg(elem), '[]'::jsonb)
			FROM jsonb_array_elements(competitions) elem
			WHERE NOT $1::jsonb @> jsonb_build_array(elem)
		)
		WHERE id <> $2`, hostedJSON, id); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users
		SET follows = (
			SELECT COALESCE(jsonb_agg(elem), '[]'::jsonb)
			FROM jsonb_array_elements(follows) elem
			WHERE elem <> $1::jsonb
		),
		followers = (
			SELECT COALESCE(jsonb_agg(elem), '[]'::jsonb)
			FROM jsonb_array_elements(followers) elem
			WHERE elem <> $1::jsonb
		)
		WHERE id <> $2`, idJSON, id); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func lockUser(ctx context.Context, tx *sql.Tx, id int) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	return scanUser(tx.QueryRowContext(ctx, query, id))
}

func updateUserTx(ctx context.Context, tx *sql.Tx, user types.User) error {
	user.UpdatedAt = time.Now()

	followsJSON, _ := json.Marshal(emptyIfNilInts(user.Follows))
	followersJSON, _ := json.Marshal(emptyIfNilInts(user.Followers))
	competitionsJSON, _ := json.Marshal(emptyIfNilInts(user.Competitions))
	reviewsJSON, err := json.Marshal(emptyIfNilReviews(user.Reviews))
	if err != nil {
		return err
	}
	notificationsJSON, err := json.Marshal(emptyIfNilNotifications(user.Notifications))
	if err != nil {
		return err
	}

	const query = `
		UPDATE users
		SET fullname = $1,
			username = $2,
			email = $3,
			password_hash = $4,
			dob = $5,
			host_auth = $6,
			is_admin = $7,
			security_question = $8,
			security_answer = $9,
			follows = $10,
			followers = $11,
			competitions = $12,
			avg_rating = $13,
			reviews = $14,
			notifications = $15,
			updated_at = $16
		WHERE id = $17`
	result, err := tx.ExecContext(
		ctx,
		query,
		user.Fullname,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.DOB,
		user.HostAuth,
		user.IsAdmin,
		user.SecurityQuestion,
		user.SecurityAnswer,
		followsJSON,
		followersJSON,
		competitionsJSON,
		user.AvgRating,
		reviewsJSON,
		notificationsJSON,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return mapConstraintErr(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func mapConstraintErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrConflict
	}
	return err
}

func addInt(list []int, value int) []int {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

func removeInt(list []int, value int) []int {
	out := list[:0]
	for _, v := range list {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}

func emptyIfNilInts(list []int) []int {
	if list == nil {
		return []int{}
	}
	return list
}

func emptyIfNilReviews(list []types.Review) []types.Review {
	if list == nil {
		return []types.Review{}
	}
	return list
}

func emptyIfNilNotifications(list []types.Notification) []types.Notification {
	if list == nil {
		return []types.Notification{}
	}
	return list
}
