package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/asiergil/ctfgeo/internal/core/domain"
	"github.com/asiergil/ctfgeo/internal/core/ports"
	"github.com/asiergil/ctfgeo/internal/core/usecases"
)

// ScoringActivities holds the activity implementations for the score decay workflow.
type ScoringActivities struct {
	Scores *usecases.ScoreService
	Events ports.EventPublisher
}

// RecalculateScore recomputes and persists a challenge's dynamic value,
// returning the value in effect afterwards.
func (a *ScoringActivities) RecalculateScore(ctx context.Context, challengeID string) (int, error) {
	value, err := a.Scores.Recalculate(ctx, challengeID)
	if err != nil {
		return 0, fmt.Errorf("recalculate %s: %w", challengeID, err)
	}
	return value, nil
}

// AnnounceFirstBlood publishes a first-blood alert for a challenge.
func (a *ScoringActivities) AnnounceFirstBlood(ctx context.Context, challengeID, challengeName, userID string) error {
	if a.Events == nil {
		return nil
	}
	ev := &domain.SolveEvent{
		ChallengeID:   challengeID,
		ChallengeName: challengeName,
		UserID:        userID,
		Kind:          domain.AttemptSolve,
		FirstBlood:    true,
		At:            time.Now().UTC(),
	}
	if err := a.Events.PublishFirstBlood(ctx, ev); err != nil {
		return fmt.Errorf("announce first blood %s: %w", challengeID, err)
	}
	return nil
}
