package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/asiergil/ctfgeo/internal/core/domain"
)

// ErrNotFound is returned when a challenge does not exist.
var ErrNotFound = errors.New("challenge not found")

// ChallengeRepo implements ports.ChallengeRepository with pgx. The geo
// extension row shares the base challenge's primary key and is removed
// by cascade when the base row goes.
type ChallengeRepo struct {
	db *DB
}

// NewChallengeRepo creates a new ChallengeRepo.
func NewChallengeRepo(db *DB) *ChallengeRepo {
	return &ChallengeRepo{db: db}
}

// CreateGeo inserts the base row and the geo row in one transaction.
func (r *ChallengeRepo) CreateGeo(ctx context.Context, ch *domain.GeoChallenge) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO challenges (name, category, description, kind, state, value, initial_value, min_value, decay_factor, max_attempts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`, ch.Name, ch.Category, ch.Description, ch.Kind, ch.State,
		ch.Value, ch.InitialValue, ch.MinValue, ch.DecayFactor, ch.MaxAttempts,
	).Scan(&ch.ID, &ch.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert challenge: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO geo_challenges (challenge_id, latitude, longitude, tolerance_radius)
		VALUES ($1, $2, $3, $4)
	`, ch.ID, ch.Latitude, ch.Longitude, ch.ToleranceRadius)
	if err != nil {
		return fmt.Errorf("insert geo extension: %w", err)
	}

	return tx.Commit(ctx)
}

// UpdateGeo updates both rows in one transaction.
func (r *ChallengeRepo) UpdateGeo(ctx context.Context, ch *domain.GeoChallenge) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE challenges
		SET name = $2, category = $3, description = $4, state = $5,
		    value = $6, initial_value = $7, min_value = $8, decay_factor = $9, max_attempts = $10
		WHERE id = $1
	`, ch.ID, ch.Name, ch.Category, ch.Description, ch.State,
		ch.Value, ch.InitialValue, ch.MinValue, ch.DecayFactor, ch.MaxAttempts)
	if err != nil {
		return fmt.Errorf("update challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = tx.Exec(ctx, `
		UPDATE geo_challenges
		SET latitude = $2, longitude = $3, tolerance_radius = $4
		WHERE challenge_id = $1
	`, ch.ID, ch.Latitude, ch.Longitude, ch.ToleranceRadius)
	if err != nil {
		return fmt.Errorf("update geo extension: %w", err)
	}

	return tx.Commit(ctx)
}

// GetGeoByID returns a challenge joined with its geo extension.
func (r *ChallengeRepo) GetGeoByID(ctx context.Context, id string) (*domain.GeoChallenge, error) {
	var ch domain.GeoChallenge
	err := r.db.Pool.QueryRow(ctx, `
		SELECT c.id, c.name, COALESCE(c.category, ''), c.description, c.kind, c.state,
		       c.value, c.initial_value, c.min_value, c.decay_factor, c.max_attempts, c.created_at,
		       g.latitude, g.longitude, g.tolerance_radius
		FROM challenges c
		JOIN geo_challenges g ON g.challenge_id = c.id
		WHERE c.id = $1
	`, id).Scan(
		&ch.ID, &ch.Name, &ch.Category, &ch.Description, &ch.Kind, &ch.State,
		&ch.Value, &ch.InitialValue, &ch.MinValue, &ch.DecayFactor, &ch.MaxAttempts, &ch.CreatedAt,
		&ch.Latitude, &ch.Longitude, &ch.ToleranceRadius,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// List returns challenges filtered by state ("" = all), newest first.
func (r *ChallengeRepo) List(ctx context.Context, state string) ([]domain.GeoChallenge, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT c.id, c.name, COALESCE(c.category, ''), c.description, c.kind, c.state,
		       c.value, c.initial_value, c.min_value, c.decay_factor, c.max_attempts, c.created_at,
		       g.latitude, g.longitude, g.tolerance_radius
		FROM challenges c
		JOIN geo_challenges g ON g.challenge_id = c.id
		WHERE ($1 = '' OR c.state = $1)
		ORDER BY c.created_at DESC
	`, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chs []domain.GeoChallenge
	for rows.Next() {
		var ch domain.GeoChallenge
		if err := rows.Scan(
			&ch.ID, &ch.Name, &ch.Category, &ch.Description, &ch.Kind, &ch.State,
			&ch.Value, &ch.InitialValue, &ch.MinValue, &ch.DecayFactor, &ch.MaxAttempts, &ch.CreatedAt,
			&ch.Latitude, &ch.Longitude, &ch.ToleranceRadius,
		); err != nil {
			return nil, err
		}
		chs = append(chs, ch)
	}
	return chs, rows.Err()
}

// Delete removes the base row; geo extension and attempt log cascade.
func (r *ChallengeRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM challenges WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateValue sets the current dynamic value.
func (r *ChallengeRepo) UpdateValue(ctx context.Context, id string, value int) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE challenges SET value = $2 WHERE id = $1`, id, value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
