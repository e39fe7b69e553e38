package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/asiergil/ctfgeo/internal/core/domain"
	"github.com/asiergil/ctfgeo/internal/core/ports"
)

// Submission policy errors. These are caller decisions, not evaluator
// verdicts: the evaluator itself never fails.
var (
	ErrChallengeHidden = errors.New("challenge is not open for submissions")
	ErrAlreadySolved   = errors.New("challenge already solved")
	ErrAttemptLimit    = errors.New("attempt limit reached")
)

// Identity is the authenticated submitter, as asserted by the host
// platform's gateway.
type Identity struct {
	UserID string
	TeamID *string // nil in solo mode
	IP     string
}

// AttemptService drives one submission through the full pipeline:
// load challenge, resolve its kind, evaluate, record the outcome, and
// broadcast the result.
type AttemptService struct {
	challenges ports.ChallengeRepository
	attempts   ports.AttemptRepository
	registry   *TypeRegistry
	events     ports.EventPublisher
	cache      ports.CacheService
}

// NewAttemptService creates a new AttemptService. events and cache may
// be nil when the broker or cache is unavailable.
func NewAttemptService(challenges ports.ChallengeRepository, attempts ports.AttemptRepository, registry *TypeRegistry, events ports.EventPublisher, cache ports.CacheService) *AttemptService {
	return &AttemptService{
		challenges: challenges,
		attempts:   attempts,
		registry:   registry,
		events:     events,
		cache:      cache,
	}
}

// Submit evaluates a submission and records the outcome. Malformed
// coordinates are recorded as a fail like any other wrong guess, so
// attempt limits see them. Persistence errors propagate; a returned
// verdict means the attempt row was committed.
func (s *AttemptService) Submit(ctx context.Context, challengeID string, id Identity, sub domain.Submission) (domain.Verdict, error) {
	var none domain.Verdict

	ch, err := s.challenges.GetGeoByID(ctx, challengeID)
	if err != nil {
		return none, err
	}
	if ch.State != domain.StateVisible {
		return none, ErrChallengeHidden
	}

	solved, err := s.attempts.HasSolved(ctx, challengeID, id.UserID, id.TeamID)
	if err != nil {
		return none, err
	}
	if solved {
		return none, ErrAlreadySolved
	}

	if ch.MaxAttempts > 0 {
		count, err := s.attempts.CountByUser(ctx, challengeID, id.UserID)
		if err != nil {
			return none, err
		}
		if count >= ch.MaxAttempts {
			return none, ErrAttemptLimit
		}
	}

	ctype, err := s.registry.Resolve(ch.Kind)
	if err != nil {
		return none, err
	}

	verdict := ctype.Attempt(ch, sub)

	att := &domain.Attempt{
		ChallengeID: ch.ID,
		UserID:      id.UserID,
		TeamID:      id.TeamID,
		IP:          id.IP,
		Provided:    ctype.EncodeSubmission(sub),
	}
	if verdict.Correct() {
		err = ctype.Solve(ctx, att)
	} else {
		err = ctype.Fail(ctx, att)
	}
	if err != nil {
		return none, err
	}

	s.invalidate(ctx, ch.ID)
	s.publish(ctx, ch, id, verdict)

	return verdict, nil
}

// FormatSubmission renders a stored submission string for display
// using the given challenge kind.
func (s *AttemptService) FormatSubmission(kind, raw string) (string, error) {
	ctype, err := s.registry.Resolve(kind)
	if err != nil {
		return "", err
	}
	return ctype.FormatSubmission(raw), nil
}

// Solves returns the public solve feed of a challenge with submissions
// rendered for display.
func (s *AttemptService) Solves(ctx context.Context, challengeID string, limit int) ([]domain.SolveView, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	ch, err := s.challenges.GetGeoByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	ctype, err := s.registry.Resolve(ch.Kind)
	if err != nil {
		return nil, err
	}

	atts, err := s.attempts.ListByChallenge(ctx, challengeID, domain.AttemptSolve, limit)
	if err != nil {
		return nil, err
	}

	views := make([]domain.SolveView, 0, len(atts))
	for _, a := range atts {
		v := domain.SolveView{
			UserID:     a.UserID,
			Submission: ctype.FormatSubmission(a.Provided),
			SolvedAt:   a.CreatedAt,
		}
		if a.TeamID != nil {
			v.TeamID = *a.TeamID
		}
		views = append(views, v)
	}
	return views, nil
}

// Scoreboard returns the aggregated standings, briefly cached.
func (s *AttemptService) Scoreboard(ctx context.Context, limit int) ([]domain.ScoreboardEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	cacheKey := "scoreboard"
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var entries []domain.ScoreboardEntry
			if err := json.Unmarshal(data, &entries); err == nil && len(entries) >= limit {
				return entries[:limit], nil
			}
		}
	}

	entries, err := s.attempts.Scoreboard(ctx, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(entries); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 15)
		}
	}
	return entries, nil
}

// publish broadcasts the outcome. Broker trouble never fails a
// submission that is already committed.
func (s *AttemptService) publish(ctx context.Context, ch *domain.GeoChallenge, id Identity, verdict domain.Verdict) {
	if s.events == nil {
		return
	}

	ev := &domain.SolveEvent{
		ChallengeID:   ch.ID,
		ChallengeName: ch.Name,
		UserID:        id.UserID,
		Kind:          domain.AttemptFail,
		Value:         ch.Value,
		At:            time.Now().UTC(),
	}
	if id.TeamID != nil {
		ev.TeamID = *id.TeamID
	}

	if verdict.Correct() {
		ev.Kind = domain.AttemptSolve
		if solves, err := s.attempts.CountByChallenge(ctx, ch.ID, domain.AttemptSolve); err == nil && solves == 1 {
			ev.FirstBlood = true
		}
	}

	if err := s.events.PublishSolveEvent(ctx, ev); err != nil {
		slog.Warn("publish solve event", "challenge_id", ch.ID, "error", err)
	}
	if ev.FirstBlood {
		if err := s.events.PublishFirstBlood(ctx, ev); err != nil {
			slog.Warn("publish first blood", "challenge_id", ch.ID, "error", err)
		}
	}
}

func (s *AttemptService) invalidate(ctx context.Context, challengeID string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, "challenges:view:"+challengeID)
	_ = s.cache.Delete(ctx, "scoreboard")
}
