package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/asiergil/ctfgeo/internal/core/domain"
	"github.com/asiergil/ctfgeo/internal/core/ports"
)

// ChallengeService handles challenge authoring and the redacted read
// path. Every read goes through domain.ChallengeView, which has no
// coordinate fields, so the target location cannot leak.
type ChallengeService struct {
	challenges ports.ChallengeRepository
	attempts   ports.AttemptRepository
	cache      ports.CacheService
}

// NewChallengeService creates a new ChallengeService.
func NewChallengeService(challenges ports.ChallengeRepository, attempts ports.AttemptRepository, cache ports.CacheService) *ChallengeService {
	return &ChallengeService{challenges: challenges, attempts: attempts, cache: cache}
}

// CreateGeo authors a new geo challenge from the strict input schema.
func (s *ChallengeService) CreateGeo(ctx context.Context, in domain.CreateGeoChallengeInput) (*domain.ChallengeView, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if in.Value <= 0 {
		return nil, fmt.Errorf("value must be positive")
	}
	if in.MinValue < 0 || in.MinValue > in.Value {
		return nil, fmt.Errorf("min_value must be within [0, value]")
	}
	if in.DecayFactor < 0 || in.DecayFactor >= 1 {
		return nil, fmt.Errorf("decay_factor must be within [0, 1)")
	}

	state := in.State
	if state == "" {
		state = domain.StateHidden
	}
	if state != domain.StateVisible && state != domain.StateHidden {
		return nil, fmt.Errorf("state must be %q or %q", domain.StateVisible, domain.StateHidden)
	}

	radius := domain.DefaultToleranceRadius
	if in.ToleranceRadius != nil {
		radius = *in.ToleranceRadius
	}

	ch := &domain.GeoChallenge{
		Challenge: domain.Challenge{
			Name:         in.Name,
			Category:     in.Category,
			Description:  in.Description,
			Kind:         domain.KindGeo,
			State:        state,
			Value:        in.Value,
			InitialValue: in.Value,
			MinValue:     in.MinValue,
			DecayFactor:  in.DecayFactor,
			MaxAttempts:  in.MaxAttempts,
		},
		Latitude:        in.Latitude,
		Longitude:       in.Longitude,
		ToleranceRadius: radius,
	}
	if err := ch.Validate(); err != nil {
		return nil, err
	}

	if err := s.challenges.CreateGeo(ctx, ch); err != nil {
		return nil, err
	}
	s.invalidateLists(ctx)

	return domain.NewChallengeView(ch, 0), nil
}

// UpdateGeo applies a partial update to an existing challenge.
func (s *ChallengeService) UpdateGeo(ctx context.Context, id string, in domain.UpdateGeoChallengeInput) (*domain.ChallengeView, error) {
	ch, err := s.challenges.GetGeoByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		ch.Name = *in.Name
	}
	if in.Category != nil {
		ch.Category = *in.Category
	}
	if in.Description != nil {
		ch.Description = *in.Description
	}
	if in.State != nil {
		if *in.State != domain.StateVisible && *in.State != domain.StateHidden {
			return nil, fmt.Errorf("state must be %q or %q", domain.StateVisible, domain.StateHidden)
		}
		ch.State = *in.State
	}
	if in.Value != nil {
		if *in.Value <= 0 {
			return nil, fmt.Errorf("value must be positive")
		}
		ch.Value = *in.Value
		ch.InitialValue = *in.Value
	}
	if in.MinValue != nil {
		ch.MinValue = *in.MinValue
	}
	if in.DecayFactor != nil {
		if *in.DecayFactor < 0 || *in.DecayFactor >= 1 {
			return nil, fmt.Errorf("decay_factor must be within [0, 1)")
		}
		ch.DecayFactor = *in.DecayFactor
	}
	if in.MaxAttempts != nil {
		ch.MaxAttempts = *in.MaxAttempts
	}
	if in.Latitude != nil {
		ch.Latitude = *in.Latitude
	}
	if in.Longitude != nil {
		ch.Longitude = *in.Longitude
	}
	if in.ToleranceRadius != nil {
		ch.ToleranceRadius = *in.ToleranceRadius
	}
	if err := ch.Validate(); err != nil {
		return nil, err
	}

	if err := s.challenges.UpdateGeo(ctx, ch); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)

	solves, _ := s.attempts.CountByChallenge(ctx, id, domain.AttemptSolve)
	return domain.NewChallengeView(ch, solves), nil
}

// GetView returns the redacted public projection of one challenge.
func (s *ChallengeService) GetView(ctx context.Context, id string) (*domain.ChallengeView, error) {
	cacheKey := "challenges:view:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var view domain.ChallengeView
			if err := json.Unmarshal(data, &view); err == nil {
				return &view, nil
			}
		}
	}

	ch, err := s.challenges.GetGeoByID(ctx, id)
	if err != nil {
		return nil, err
	}
	solves, err := s.attempts.CountByChallenge(ctx, id, domain.AttemptSolve)
	if err != nil {
		return nil, err
	}
	view := domain.NewChallengeView(ch, solves)

	if s.cache != nil {
		if data, err := json.Marshal(view); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 60)
		}
	}
	return view, nil
}

// List returns redacted views, filtered by state ("" = all).
func (s *ChallengeService) List(ctx context.Context, state string) ([]domain.ChallengeView, error) {
	cacheKey := "challenges:list:" + state
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var views []domain.ChallengeView
			if err := json.Unmarshal(data, &views); err == nil {
				return views, nil
			}
		}
	}

	chs, err := s.challenges.List(ctx, state)
	if err != nil {
		return nil, err
	}

	views := make([]domain.ChallengeView, 0, len(chs))
	for i := range chs {
		solves, err := s.attempts.CountByChallenge(ctx, chs[i].ID, domain.AttemptSolve)
		if err != nil {
			return nil, err
		}
		views = append(views, *domain.NewChallengeView(&chs[i], solves))
	}

	if s.cache != nil {
		if data, err := json.Marshal(views); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 30)
		}
	}
	return views, nil
}

// Delete removes a challenge; the geo row and attempt log go with it
// via cascade.
func (s *ChallengeService) Delete(ctx context.Context, id string) error {
	if err := s.challenges.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *ChallengeService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, "challenges:view:"+id)
	s.invalidateLists(ctx)
}

func (s *ChallengeService) invalidateLists(ctx context.Context) {
	if s.cache == nil {
		return
	}
	for _, state := range []string{"", domain.StateVisible, domain.StateHidden} {
		_ = s.cache.Delete(ctx, "challenges:list:"+state)
	}
}
