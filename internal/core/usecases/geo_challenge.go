package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/asiergil/ctfgeo/internal/core/domain"
	"github.com/asiergil/ctfgeo/internal/core/ports"
	"github.com/asiergil/ctfgeo/internal/pkg/geospatial"
)

// GeoChallengeType implements the "geo" challenge kind: a submission is
// correct when it lands within the challenge's tolerance radius of the
// secret target point.
type GeoChallengeType struct {
	attempts ports.AttemptRepository
}

var _ ports.ChallengeType = (*GeoChallengeType)(nil)

// NewGeoChallengeType creates the geo challenge kind.
func NewGeoChallengeType(attempts ports.AttemptRepository) *GeoChallengeType {
	return &GeoChallengeType{attempts: attempts}
}

// Kind returns the registry identifier.
func (t *GeoChallengeType) Kind() string { return domain.KindGeo }

// Attempt parses the submitted coordinates, computes the great-circle
// distance to the target and classifies the outcome. The boundary is
// inclusive: distance equal to the radius counts as correct. Parse
// failures are an incorrect verdict, never an error.
func (t *GeoChallengeType) Attempt(ch *domain.GeoChallenge, sub domain.Submission) domain.Verdict {
	lat, errLat := parseCoordinate(sub["latitude"])
	lon, errLon := parseCoordinate(sub["longitude"])
	if errLat != nil || errLon != nil {
		return domain.Verdict{Status: domain.StatusIncorrect, Message: domain.MsgInvalidCoordinates}
	}
	guess := domain.GeoPoint{Lat: lat, Lon: lon}

	target := ch.Target()
	distance := geospatial.Haversine(target.Lat, target.Lon, guess.Lat, guess.Lon)
	if distance <= ch.ToleranceRadius {
		return domain.Verdict{Status: domain.StatusCorrect, Message: domain.MsgCorrect}
	}
	return domain.Verdict{Status: domain.StatusIncorrect, Message: domain.MsgIncorrect}
}

// EncodeSubmission builds the durable "lat:X,lon:Y" string from the raw
// payload values, preserving them as the player sent them.
func (t *GeoChallengeType) EncodeSubmission(sub domain.Submission) string {
	return fmt.Sprintf("lat:%s,lon:%s", rawValue(sub["latitude"]), rawValue(sub["longitude"]))
}

// FormatSubmission renders a stored "lat:X,lon:Y" string as a display
// label. Anything that does not match the pattern comes back unchanged
// behind the pin marker.
func (t *GeoChallengeType) FormatSubmission(raw string) string {
	rest, ok := strings.CutPrefix(raw, "lat:")
	if !ok {
		return "📍 " + raw
	}
	latPart, lonPart, ok := strings.Cut(rest, ",lon:")
	if !ok {
		return "📍 " + raw
	}

	lat, errLat := strconv.ParseFloat(latPart, 64)
	lon, errLon := strconv.ParseFloat(lonPart, 64)
	if errLat != nil || errLon != nil {
		return "📍 " + raw
	}
	return fmt.Sprintf("📍 Latitude: %.6f, Longitude: %.6f", lat, lon)
}

// Solve appends a solve row to the attempt log.
func (t *GeoChallengeType) Solve(ctx context.Context, att *domain.Attempt) error {
	att.Kind = domain.AttemptSolve
	return t.attempts.Insert(ctx, att)
}

// Fail appends a fail row to the attempt log.
func (t *GeoChallengeType) Fail(ctx context.Context, att *domain.Attempt) error {
	att.Kind = domain.AttemptFail
	return t.attempts.Insert(ctx, att)
}

// parseCoordinate accepts JSON numbers, JSON strings, and form-encoded
// strings.
func parseCoordinate(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	case nil:
		return 0, fmt.Errorf("coordinate missing")
	default:
		return 0, fmt.Errorf("coordinate has unsupported type %T", v)
	}
}

// rawValue echoes a payload value the way the player sent it.
func rawValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", x)
	}
}
