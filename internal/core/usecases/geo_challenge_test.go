package usecases_test

import (
	"context"
	"strings"
	"testing"

	"github.com/asiergil/ctfgeo/internal/core/domain"
	"github.com/asiergil/ctfgeo/internal/core/usecases"
)

func geoChallenge(lat, lon, radius float64) *domain.GeoChallenge {
	return &domain.GeoChallenge{
		Challenge: domain.Challenge{
			ID:    "ch-1",
			Name:  "Find the lighthouse",
			Kind:  domain.KindGeo,
			State: domain.StateVisible,
			Value: 500,
		},
		Latitude:        lat,
		Longitude:       lon,
		ToleranceRadius: radius,
	}
}

func TestGeoAttempt_ExactMatch(t *testing.T) {
	ct := usecases.NewGeoChallengeType(nil)
	ch := geoChallenge(48.8566, 2.3522, 0)

	v := ct.Attempt(ch, domain.Submission{"latitude": 48.8566, "longitude": 2.3522})
	if v.Status != domain.StatusCorrect {
		t.Fatalf("expected correct for coincident points, got %s", v.Status)
	}
	if v.Message != "Correct! You found the location!" {
		t.Errorf("unexpected message: %q", v.Message)
	}
}

func TestGeoAttempt_OutsideRadius(t *testing.T) {
	ct := usecases.NewGeoChallengeType(nil)
	ch := geoChallenge(0, 0, 100000)

	// One degree of longitude at the equator is ~111195 m, outside 100 km.
	v := ct.Attempt(ch, domain.Submission{"latitude": 0.0, "longitude": 1.0})
	if v.Status != domain.StatusIncorrect {
		t.Fatalf("expected incorrect, got %s", v.Status)
	}
	if v.Message != "Incorrect location. Try again!" {
		t.Errorf("unexpected message: %q", v.Message)
	}
}

func TestGeoAttempt_InclusiveBoundary(t *testing.T) {
	ct := usecases.NewGeoChallengeType(nil)

	// Radius set to the exact computed distance: boundary counts as correct.
	ch := geoChallenge(0, 0, 111194.92664455874)
	v := ct.Attempt(ch, domain.Submission{"latitude": 0.0, "longitude": 1.0})
	if v.Status != domain.StatusCorrect {
		t.Fatalf("expected correct on inclusive boundary, got %s", v.Status)
	}
}

func TestGeoAttempt_WithinRadius(t *testing.T) {
	ct := usecases.NewGeoChallengeType(nil)
	ch := geoChallenge(43.263, -2.935, 50)

	// ~11 m north of the target.
	v := ct.Attempt(ch, domain.Submission{"latitude": "43.2631", "longitude": "-2.935"})
	if v.Status != domain.StatusCorrect {
		t.Fatalf("expected correct within 50 m, got %s", v.Status)
	}
}

func TestGeoAttempt_InvalidCoordinates(t *testing.T) {
	ct := usecases.NewGeoChallengeType(nil)
	ch := geoChallenge(0, 0, 10)

	cases := []domain.Submission{
		{"latitude": "abc", "longitude": "2.0"},
		{"latitude": "1.0"},
		{},
		{"latitude": nil, "longitude": nil},
		{"latitude": []any{1.0}, "longitude": "2.0"},
	}
	for _, sub := range cases {
		v := ct.Attempt(ch, sub)
		if v.Status != domain.StatusIncorrect {
			t.Errorf("submission %v: expected incorrect, got %s", sub, v.Status)
		}
		if v.Message != "Invalid coordinates submitted" {
			t.Errorf("submission %v: unexpected message %q", sub, v.Message)
		}
	}
}

func TestGeoAttempt_StringCoordinatesFromForm(t *testing.T) {
	ct := usecases.NewGeoChallengeType(nil)
	ch := geoChallenge(48.8566, 2.3522, 10)

	v := ct.Attempt(ch, domain.Submission{"latitude": "48.8566", "longitude": " 2.3522 "})
	if v.Status != domain.StatusCorrect {
		t.Fatalf("expected correct for form-encoded strings, got %s", v.Status)
	}
}

func TestEncodeSubmission(t *testing.T) {
	ct := usecases.NewGeoChallengeType(nil)

	got := ct.EncodeSubmission(domain.Submission{"latitude": "48.8566", "longitude": "2.3522"})
	if got != "lat:48.8566,lon:2.3522" {
		t.Errorf("unexpected encoding: %q", got)
	}

	got = ct.EncodeSubmission(domain.Submission{"latitude": 1.5, "longitude": -2.0})
	if got != "lat:1.5,lon:-2" {
		t.Errorf("unexpected encoding from numbers: %q", got)
	}
}

func TestFormatSubmission(t *testing.T) {
	ct := usecases.NewGeoChallengeType(nil)

	cases := []struct {
		in   string
		want string
	}{
		{"lat:48.8566,lon:2.3522", "📍 Latitude: 48.856600, Longitude: 2.352200"},
		{"lat:-33.8688,lon:151.2093", "📍 Latitude: -33.868800, Longitude: 151.209300"},
		{"not a coordinate", "📍 not a coordinate"},
		{"lat:abc,lon:2.0", "📍 lat:abc,lon:2.0"},
		{"lat:1.0", "📍 lat:1.0"},
		{"", "📍 "},
	}
	for _, tc := range cases {
		if got := ct.FormatSubmission(tc.in); got != tc.want {
			t.Errorf("FormatSubmission(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSolveAndFail_RecordKinds(t *testing.T) {
	var recorded []domain.Attempt
	repo := &mockAttemptRepo{
		insertFn: func(ctx context.Context, att *domain.Attempt) error {
			recorded = append(recorded, *att)
			return nil
		},
	}
	ct := usecases.NewGeoChallengeType(repo)

	team := "team-9"
	att := &domain.Attempt{ChallengeID: "ch-1", UserID: "u-1", TeamID: &team, IP: "10.0.0.1", Provided: "lat:1,lon:2"}
	if err := ct.Solve(context.Background(), att); err != nil {
		t.Fatalf("solve: %v", err)
	}
	if err := ct.Fail(context.Background(), att); err != nil {
		t.Fatalf("fail: %v", err)
	}

	if len(recorded) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(recorded))
	}
	if recorded[0].Kind != domain.AttemptSolve || recorded[1].Kind != domain.AttemptFail {
		t.Errorf("unexpected kinds: %s, %s", recorded[0].Kind, recorded[1].Kind)
	}
	if recorded[0].Provided != "lat:1,lon:2" {
		t.Errorf("submission string not preserved: %q", recorded[0].Provided)
	}
}

func TestChallengeView_NeverContainsCoordinates(t *testing.T) {
	ch := geoChallenge(48.8566, 2.3522, 25)
	view := domain.NewChallengeView(ch, 3)

	data := marshalJSON(t, view)
	for _, secret := range []string{"latitude", "longitude", "48.8566", "2.3522"} {
		if strings.Contains(data, secret) {
			t.Errorf("view payload leaks %q: %s", secret, data)
		}
	}
	if !strings.Contains(data, `"tolerance_radius":25`) {
		t.Errorf("view payload missing tolerance_radius: %s", data)
	}
}
