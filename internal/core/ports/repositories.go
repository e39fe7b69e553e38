package ports

import (
	"context"

	"github.com/asiergil/ctfgeo/internal/core/domain"
)

// ChallengeRepository persists geo challenges (base row + geo extension
// row, one-to-one, cascade delete).
type ChallengeRepository interface {
	// CreateGeo inserts the base and geo rows in one transaction and
	// fills in the generated ID and timestamp.
	CreateGeo(ctx context.Context, ch *domain.GeoChallenge) error
	UpdateGeo(ctx context.Context, ch *domain.GeoChallenge) error
	GetGeoByID(ctx context.Context, id string) (*domain.GeoChallenge, error)
	// List returns challenges filtered by state ("" = all).
	List(ctx context.Context, state string) ([]domain.GeoChallenge, error)
	Delete(ctx context.Context, id string) error
	// UpdateValue sets the current dynamic value of a challenge.
	UpdateValue(ctx context.Context, id string, value int) error
}

// AttemptRepository persists the solve/fail log.
type AttemptRepository interface {
	Insert(ctx context.Context, att *domain.Attempt) error
	ListByChallenge(ctx context.Context, challengeID, kind string, limit int) ([]domain.Attempt, error)
	CountByChallenge(ctx context.Context, challengeID, kind string) (int, error)
	// CountByUser counts a user's recorded attempts (any kind) on one
	// challenge, for max-attempt enforcement.
	CountByUser(ctx context.Context, challengeID, userID string) (int, error)
	// HasSolved reports whether the user (or their team) already solved
	// the challenge.
	HasSolved(ctx context.Context, challengeID, userID string, teamID *string) (bool, error)
	Scoreboard(ctx context.Context, limit int) ([]domain.ScoreboardEntry, error)
}
