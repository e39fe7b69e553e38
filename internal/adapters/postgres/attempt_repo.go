package postgres

import (
	"context"
	"database/sql"

	"github.com/asiergil/ctfgeo/internal/core/domain"
)

// AttemptRepo implements ports.AttemptRepository with pgx. The attempt
// log is append-only; there are no updates or deletes on this path.
type AttemptRepo struct {
	db *DB
}

// NewAttemptRepo creates a new AttemptRepo.
func NewAttemptRepo(db *DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// Insert appends one solve/fail row.
func (r *AttemptRepo) Insert(ctx context.Context, att *domain.Attempt) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO attempts (challenge_id, user_id, team_id, kind, ip, provided)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, att.ChallengeID, att.UserID, att.TeamID, att.Kind, att.IP, att.Provided,
	).Scan(&att.ID, &att.CreatedAt)
}

// ListByChallenge returns rows of one kind for a challenge, newest first.
func (r *AttemptRepo) ListByChallenge(ctx context.Context, challengeID, kind string, limit int) ([]domain.Attempt, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, challenge_id, user_id, team_id, kind, ip, provided, created_at
		FROM attempts
		WHERE challenge_id = $1 AND kind = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, challengeID, kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var atts []domain.Attempt
	for rows.Next() {
		var a domain.Attempt
		var team sql.NullString
		if err := rows.Scan(&a.ID, &a.ChallengeID, &a.UserID, &team, &a.Kind, &a.IP, &a.Provided, &a.CreatedAt); err != nil {
			return nil, err
		}
		if team.Valid {
			a.TeamID = &team.String
		}
		atts = append(atts, a)
	}
	return atts, rows.Err()
}

// CountByChallenge counts rows of one kind for a challenge.
func (r *AttemptRepo) CountByChallenge(ctx context.Context, challengeID, kind string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT count(*) FROM attempts WHERE challenge_id = $1 AND kind = $2
	`, challengeID, kind).Scan(&n)
	return n, err
}

// CountByUser counts all of a user's attempts on one challenge.
func (r *AttemptRepo) CountByUser(ctx context.Context, challengeID, userID string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT count(*) FROM attempts WHERE challenge_id = $1 AND user_id = $2
	`, challengeID, userID).Scan(&n)
	return n, err
}

// HasSolved reports whether the user, or anyone on their team, already
// has a solve row for the challenge.
func (r *AttemptRepo) HasSolved(ctx context.Context, challengeID, userID string, teamID *string) (bool, error) {
	var solved bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM attempts
			WHERE challenge_id = $1 AND kind = 'solve'
			  AND (user_id = $2 OR ($3::text IS NOT NULL AND team_id = $3))
		)
	`, challengeID, userID, teamID).Scan(&solved)
	return solved, err
}

// Scoreboard aggregates solve values per team (per user in solo play),
// ranked by score then earliest last solve.
func (r *AttemptRepo) Scoreboard(ctx context.Context, limit int) ([]domain.ScoreboardEntry, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT COALESCE(a.team_id, ''), CASE WHEN a.team_id IS NULL THEN a.user_id ELSE '' END,
		       SUM(c.value)::int, count(*)::int, max(a.created_at)
		FROM attempts a
		JOIN challenges c ON c.id = a.challenge_id
		WHERE a.kind = 'solve'
		GROUP BY a.team_id, CASE WHEN a.team_id IS NULL THEN a.user_id ELSE '' END
		ORDER BY SUM(c.value) DESC, max(a.created_at) ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.ScoreboardEntry
	rank := 0
	for rows.Next() {
		var e domain.ScoreboardEntry
		var last sql.NullTime
		if err := rows.Scan(&e.TeamID, &e.UserID, &e.Score, &e.Solves, &last); err != nil {
			return nil, err
		}
		if last.Valid {
			t := last.Time
			e.LastSolve = &t
		}
		rank++
		e.Rank = rank
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
