package domain

import (
	"fmt"
	"time"
)

// Challenge kind identifiers. Only "geo" ships today; the registry
// in usecases keeps the door open for more.
const (
	KindGeo = "geo"
)

// Challenge states.
const (
	StateVisible = "visible"
	StateHidden  = "hidden"
)

// Challenge is the base scorable task shared by every challenge kind.
type Challenge struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category,omitempty"`
	Description  string    `json:"description"`
	Kind         string    `json:"kind"`
	State        string    `json:"state"`
	Value        int       `json:"value"`
	InitialValue int       `json:"initial_value"`
	MinValue     int       `json:"min_value"`
	DecayFactor  float64   `json:"decay_factor"`
	MaxAttempts  int       `json:"max_attempts"` // 0 = unlimited
	CreatedAt    time.Time `json:"created_at"`
}

// GeoChallenge extends Challenge with a secret target location and an
// acceptance radius. The coordinates never serialize: they carry `json:"-"`
// here and the read path goes through ChallengeView, which does not have
// the fields at all.
type GeoChallenge struct {
	Challenge

	Latitude        float64 `json:"-"`
	Longitude       float64 `json:"-"`
	ToleranceRadius float64 `json:"tolerance_radius"` // meters
}

// Target returns the secret coordinate pair.
func (g *GeoChallenge) Target() GeoPoint {
	return GeoPoint{Lat: g.Latitude, Lon: g.Longitude}
}

// Validate checks the geo-specific invariants.
func (g *GeoChallenge) Validate() error {
	if g.Latitude < -90 || g.Latitude > 90 {
		return fmt.Errorf("latitude must be within [-90, 90], got %v", g.Latitude)
	}
	if g.Longitude < -180 || g.Longitude > 180 {
		return fmt.Errorf("longitude must be within [-180, 180], got %v", g.Longitude)
	}
	if g.ToleranceRadius < 0 {
		return fmt.Errorf("tolerance_radius must not be negative, got %v", g.ToleranceRadius)
	}
	return nil
}

// ChallengeView is the wire representation of a challenge as seen by
// players. It structurally lacks the target coordinates, so no read
// response can ever include them.
type ChallengeView struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Category        string    `json:"category,omitempty"`
	Description     string    `json:"description"`
	Kind            string    `json:"kind"`
	State           string    `json:"state"`
	Value           int       `json:"value"`
	MaxAttempts     int       `json:"max_attempts"`
	ToleranceRadius float64   `json:"tolerance_radius"`
	SolveCount      int       `json:"solve_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewChallengeView projects a stored geo challenge into its public shape.
func NewChallengeView(g *GeoChallenge, solveCount int) *ChallengeView {
	return &ChallengeView{
		ID:              g.ID,
		Name:            g.Name,
		Category:        g.Category,
		Description:     g.Description,
		Kind:            g.Kind,
		State:           g.State,
		Value:           g.Value,
		MaxAttempts:     g.MaxAttempts,
		ToleranceRadius: g.ToleranceRadius,
		SolveCount:      solveCount,
		CreatedAt:       g.CreatedAt,
	}
}

// CreateGeoChallengeInput is the strict authoring schema. Unknown body
// keys (map-widget UI state and the like) are dropped by the JSON
// decoder because they have no field here.
type CreateGeoChallengeInput struct {
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	Description     string   `json:"description"`
	State           string   `json:"state"`
	Value           int      `json:"value"`
	MinValue        int      `json:"min_value"`
	DecayFactor     float64  `json:"decay_factor"`
	MaxAttempts     int      `json:"max_attempts"`
	Latitude        float64  `json:"latitude"`
	Longitude       float64  `json:"longitude"`
	ToleranceRadius *float64 `json:"tolerance_radius"` // nil = default 10m
}

// UpdateGeoChallengeInput is the partial-update schema. Nil pointers
// leave the stored value untouched.
type UpdateGeoChallengeInput struct {
	Name            *string  `json:"name"`
	Category        *string  `json:"category"`
	Description     *string  `json:"description"`
	State           *string  `json:"state"`
	Value           *int     `json:"value"`
	MinValue        *int     `json:"min_value"`
	DecayFactor     *float64 `json:"decay_factor"`
	MaxAttempts     *int     `json:"max_attempts"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	ToleranceRadius *float64 `json:"tolerance_radius"`
}

// DefaultToleranceRadius is applied when a challenge is authored
// without an explicit radius.
const DefaultToleranceRadius = 10.0
