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

const competitionColumns = `id, title, genre, about, finished, host_id, host_username,
		participants, judges, announcements, question_sets, created_at, updated_at`

// CompetitionRepository handles persistence for competitions. The embedded
// collections (participants, judges, announcements, question sets) live in
// JSONB columns and are persisted with the row as a whole document.
type CompetitionRepository struct {
	db *sql.DB
}

func NewCompetitionRepository(db *sql.DB) *CompetitionRepository {
	return &CompetitionRepository{db: db}
}

func scanCompetition(row rowScanner) (types.Competition, error) {
	var comp types.Competition
	var participantsJSON, judgesJSON, announcementsJSON, questionSetsJSON []byte
	err := row.Scan(
		&comp.ID,
		&comp.Title,
		&comp.Genre,
		&comp.About,
		&comp.Finished,
		&comp.HostID,
		&comp.HostUsername,
		&participantsJSON,
		&judgesJSON,
		&announcementsJSON,
		&questionSetsJSON,
		&comp.CreatedAt,
		&comp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Competition{}, ErrNotFound
		}
		return types.Competition{}, err
	}

	_ = json.Unmarshal(participantsJSON, &comp.Participants)
	_ = json.Unmarshal(judgesJSON, &comp.Judges)
	_ = json.Unmarshal(announcementsJSON, &comp.Announcements)
	_ = json.Unmarshal(questionSetsJSON, &comp.QuestionSets)
	return comp, nil
}

// List returns competitions newest-created first. A non-empty search term
// case-insensitively matches a substring of the title or genre.
func (r *CompetitionRepository) List(ctx context.Context, search string) ([]types.Competition, error) {
	query := `SELECT ` + competitionColumns + ` FROM competitions ORDER BY created_at DESC`
	args := []any{}
	if search != "" {
		query = `SELECT ` + competitionColumns + ` FROM competitions
			WHERE title ILIKE '%' || $1 || '%' OR genre ILIKE '%' || $1 || '%'
			ORDER BY created_at DESC`
		args = append(args, search)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comps []types.Competition
	for rows.Next() {
		comp, err := scanCompetition(rows)
		if err != nil {
			return nil, err
		}
		comps = append(comps, comp)
	}
	return comps, rows.Err()
}

func (r *CompetitionRepository) Get(ctx context.Context, id int) (types.Competition, error) {
	const query = `SELECT ` + competitionColumns + ` FROM competitions WHERE id = $1`
	return scanCompetition(r.db.QueryRowContext(ctx, query, id))
}

// GetByIDs fetches competitions newest-created first. Missing ids are
// skipped rather than reported.
func (r *CompetitionRepository) GetByIDs(ctx context.Context, ids []int) ([]types.Competition, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT ` + competitionColumns + ` FROM competitions
		WHERE id = ANY($1) ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comps := make([]types.Competition, 0, len(ids))
	for rows.Next() {
		comp, err := scanCompetition(rows)
		if err != nil {
			return nil, err
		}
		comps = append(comps, comp)
	}
	return comps, rows.Err()
}

// Create inserts the competition and appends its id to the host's
// competition list in the same transaction.
func (r *CompetitionRepository) Create(ctx context.Context, comp types.Competition) (types.Competition, error) {
	now := time.Now()
	comp.CreatedAt = now
	comp.UpdatedAt = now

	participantsJSON, _ := json.Marshal(emptyIfNilInts(comp.Participants))
	judgesJSON, err := json.Marshal(emptyIfNilJudges(comp.Judges))
	if err != nil {
		return types.Competition{}, err
	}
	announcementsJSON, err := json.Marshal(emptyIfNilAnnouncements(comp.Announcements))
	if err != nil {
		return types.Competition{}, err
	}
	questionSetsJSON, err := json.Marshal(emptyIfNilQuestionSets(comp.QuestionSets))
	if err != nil {
		return types.Competition{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Competition{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `
		INSERT INTO competitions (title, genre, about, finished, host_id, host_username,
			participants, judges, announcements, question_sets, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		query,
		comp.Title,
		comp.Genre,
		comp.About,
		comp.Finished,
		comp.HostID,
		comp.HostUsername,
		participantsJSON,
		judgesJSON,
		announcementsJSON,
		questionSetsJSON,
		comp.CreatedAt,
		comp.UpdatedAt,
	).Scan(&comp.ID); err != nil {
		return types.Competition{}, err
	}

	host, err := lockUser(ctx, tx, comp.HostID)
	if err != nil {
		return types.Competition{}, err
	}
	host.Competitions = addInt(host.Competitions, comp.ID)
	if err := updateUserTx(ctx, tx, host); err != nil {
		return types.Competition{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Competition{}, err
	}
	return comp, nil
}

// Mutate loads the competition under a row lock, applies fn, and writes the
// whole document back. Concurrent feed and judge mutations serialize on the
// lock instead of overwriting each other.
func (r *CompetitionRepository) Mutate(ctx context.Context, id int, fn func(*types.Competition) error) (types.Competition, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Competition{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	comp, err := lockCompetition(ctx, tx, id)
	if err != nil {
		return types.Competition{}, err
	}

	if err := fn(&comp); err != nil {
		return types.Competition{}, err
	}

	if err := updateCompetitionTx(ctx, tx, comp); err != nil {
		return types.Competition{}, err
	}
	if err := tx.Commit(); err != nil {
		return types.Competition{}, err
	}
	return comp, nil
}

// Join adds the user to the participant set and the competition to the
// user's list in one transaction. Joining twice is a no-op; the return
// value reports whether this call added the participant.
func (r *CompetitionRepository) Join(ctx context.Context, compID, userID int) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	comp, err := lockCompetition(ctx, tx, compID)
	if err != nil {
		return false, err
	}
	user, err := lockUser(ctx, tx, userID)
	if err != nil {
		return false, err
	}

	before := len(comp.Participants)
	comp.Participants = addInt(comp.Participants, userID)
	user.Competitions = addInt(user.Competitions, compID)
	joined := len(comp.Participants) > before

	if err := updateCompetitionTx(ctx, tx, comp); err != nil {
		return false, err
	}
	if err := updateUserTx(ctx, tx, user); err != nil {
		return false, err
	}
	return joined, tx.Commit()
}

// Delete removes the competition and strips its id from every user's
// competition list in one transaction.
func (r *CompetitionRepository) Delete(ctx context.Context, id int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	idJSON, _ := json.Marshal(id)
	if _, err := tx.ExecContext(ctx, `
		UPDATE users
		SET competitions = (
			SELECT COALESCE(jsonb_agg(elem), '[]'::jsonb)
			FROM jsonb_array_elements(competitions) elem
			WHERE elem <> $1::jsonb
		)
		WHERE competitions @> jsonb_build_array($1::jsonb)`, idJSON); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM competitions WHERE id = $1`, id)
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

func lockCompetition(ctx context.Context, tx *sql.Tx, id int) (types.Competition, error) {
	const query = `SELECT ` + competitionColumns + ` FROM competitions WHERE id = $1 FOR UPDATE`
	return scanCompetition(tx.QueryRowContext(ctx, query, id))
}

func updateCompetitionTx(ctx context.Context, tx *sql.Tx, comp types.Competition) error {
	comp.UpdatedAt = time.Now()

	participantsJSON, _ := json.Marshal(emptyIfNilInts(comp.Participants))
	judgesJSON, err := json.Marshal(emptyIfNilJudges(comp.Judges))
	if err != nil {
		return err
	}
	announcementsJSON, err := json.Marshal(emptyIfNilAnnouncements(comp.Announcements))
	if err != nil {
		return err
	}
	questionSetsJSON, err := json.Marshal(emptyIfNilQuestionSets(comp.QuestionSets))
	if err != nil {
		return err
	}

	const query = `
		UPDATE competitions
		SET title = $1,
			genre = $2,
			about = $3,
			finished = $4,
			host_username = $5,
			participants = $6,
			judges = $7,
			announcements = $8,
			question_sets = $9,
			updated_at = $10
		WHERE id = $11`
	result, err := tx.ExecContext(
		ctx,
		query,
		comp.Title,
		comp.Genre,
		comp.About,
		comp.Finished,
		comp.HostUsername,
		participantsJSON,
		judgesJSON,
		announcementsJSON,
		questionSetsJSON,
		comp.UpdatedAt,
		comp.ID,
	)
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

func emptyIfNilJudges(list []types.Judge) []types.Judge {
	if list == nil {
		return []types.Judge{}
	}
	return list
}

func emptyIfNilAnnouncements(list []types.Announcement) []types.Announcement {
	if list == nil {
		return []types.Announcement{}
	}
	return list
}

func emptyIfNilQuestionSets(list []types.QuestionSet) []types.QuestionSet {
	if list == nil {
		return []types.QuestionSet{}
	}
	return list
}
