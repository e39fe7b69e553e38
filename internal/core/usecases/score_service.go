package usecases

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"

	"github.com/asiergil/ctfgeo/internal/core/domain"
	"github.com/asiergil/ctfgeo/internal/core/ports"
)

// ScoreService recomputes the dynamic value of a challenge as solves
// accumulate. With decay factor d, the value after n solves is
// initial·(1-d)^n, floored at the configured minimum.
type ScoreService struct {
	challenges ports.ChallengeRepository
	attempts   ports.AttemptRepository
	events     ports.EventPublisher
}

// NewScoreService creates a new ScoreService. events may be nil.
func NewScoreService(challenges ports.ChallengeRepository, attempts ports.AttemptRepository, events ports.EventPublisher) *ScoreService {
	return &ScoreService{challenges: challenges, attempts: attempts, events: events}
}

// DecayedValue computes the challenge value after n solves.
func DecayedValue(initial, min int, decay float64, solves int) int {
	if decay <= 0 || solves <= 0 {
		return initial
	}
	v := int(math.Round(float64(initial) * math.Pow(1-decay, float64(solves))))
	if v < min {
		v = min
	}
	return v
}

// Recalculate refreshes one challenge's current value from its solve
// count and persists the change. Returns the value in effect.
func (s *ScoreService) Recalculate(ctx context.Context, challengeID string) (int, error) {
	ch, err := s.challenges.GetGeoByID(ctx, challengeID)
	if err != nil {
		return 0, err
	}

	solves, err := s.attempts.CountByChallenge(ctx, challengeID, domain.AttemptSolve)
	if err != nil {
		return 0, err
	}

	value := DecayedValue(ch.InitialValue, ch.MinValue, ch.DecayFactor, solves)
	if value == ch.Value {
		return value, nil
	}

	if err := s.challenges.UpdateValue(ctx, challengeID, value); err != nil {
		return 0, err
	}

	if s.events != nil {
		payload, _ := json.Marshal(map[string]any{
			"type":         "score_update",
			"challenge_id": challengeID,
			"value":        value,
		})
		if err := s.events.PublishBroadcast(ctx, payload); err != nil {
			slog.Warn("broadcast score update", "challenge_id", challengeID, "error", err)
		}
	}

	return value, nil
}
