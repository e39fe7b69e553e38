package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/asiergil/ctfgeo/internal/adapters/http"
	"github.com/asiergil/ctfgeo/internal/adapters/postgres"
	"github.com/asiergil/ctfgeo/internal/core/domain"
	"github.com/asiergil/ctfgeo/internal/core/usecases"
)

// ---- Mock repositories ----

type mockChallengeRepo struct {
	createGeoFn   func(ctx context.Context, ch *domain.GeoChallenge) error
	updateGeoFn   func(ctx context.Context, ch *domain.GeoChallenge) error
	getGeoByIDFn  func(ctx context.Context, id string) (*domain.GeoChallenge, error)
	listFn        func(ctx context.Context, state string) ([]domain.GeoChallenge, error)
	deleteFn      func(ctx context.Context, id string) error
	updateValueFn func(ctx context.Context, id string, value int) error
}

func (m *mockChallengeRepo) CreateGeo(ctx context.Context, ch *domain.GeoChallenge) error {
	if m.createGeoFn != nil {
		return m.createGeoFn(ctx, ch)
	}
	ch.ID = "c1"
	ch.CreatedAt = time.Now()
	return nil
}
func (m *mockChallengeRepo) UpdateGeo(ctx context.Context, ch *domain.GeoChallenge) error {
	if m.updateGeoFn != nil {
		return m.updateGeoFn(ctx, ch)
	}
	return nil
}
func (m *mockChallengeRepo) GetGeoByID(ctx context.Context, id string) (*domain.GeoChallenge, error) {
	if m.getGeoByIDFn != nil {
		return m.getGeoByIDFn(ctx, id)
	}
	return nil, postgres.ErrNotFound
}
func (m *mockChallengeRepo) List(ctx context.Context, state string) ([]domain.GeoChallenge, error) {
	if m.listFn != nil {
		return m.listFn(ctx, state)
	}
	return nil, nil
}
func (m *mockChallengeRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}
func (m *mockChallengeRepo) UpdateValue(ctx context.Context, id string, value int) error {
	if m.updateValueFn != nil {
		return m.updateValueFn(ctx, id, value)
	}
	return nil
}

type mockAttemptRepo struct {
	insertFn           func(ctx context.Context, att *domain.Attempt) error
	listByChallengeFn  func(ctx context.Context, challengeID, kind string, limit int) ([]domain.Attempt, error)
	countByChallengeFn func(ctx context.Context, challengeID, kind string) (int, error)
	countByUserFn      func(ctx context.Context, challengeID, userID string) (int, error)
	hasSolvedFn        func(ctx context.Context, challengeID, userID string, teamID *string) (bool, error)
	scoreboardFn       func(ctx context.Context, limit int) ([]domain.ScoreboardEntry, error)
}

func (m *mockAttemptRepo) Insert(ctx context.Context, att *domain.Attempt) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, att)
	}
	att.ID = "att1"
	att.CreatedAt = time.Now()
	return nil
}
func (m *mockAttemptRepo) ListByChallenge(ctx context.Context, challengeID, kind string, limit int) ([]domain.Attempt, error) {
	if m.listByChallengeFn != nil {
		return m.listByChallengeFn(ctx, challengeID, kind, limit)
	}
	return nil, nil
}
func (m *mockAttemptRepo) CountByChallenge(ctx context.Context, challengeID, kind string) (int, error) {
	if m.countByChallengeFn != nil {
		return m.countByChallengeFn(ctx, challengeID, kind)
	}
	return 0, nil
}
func (m *mockAttemptRepo) CountByUser(ctx context.Context, challengeID, userID string) (int, error) {
	if m.countByUserFn != nil {
		return m.countByUserFn(ctx, challengeID, userID)
	}
	return 0, nil
}
func (m *mockAttemptRepo) HasSolved(ctx context.Context, challengeID, userID string, teamID *string) (bool, error) {
	if m.hasSolvedFn != nil {
		return m.hasSolvedFn(ctx, challengeID, userID, teamID)
	}
	return false, nil
}
func (m *mockAttemptRepo) Scoreboard(ctx context.Context, limit int) ([]domain.ScoreboardEntry, error) {
	if m.scoreboardFn != nil {
		return m.scoreboardFn(ctx, limit)
	}
	return nil, nil
}

// ---- Test helpers ----

func visibleGeoChallenge(lat, lon, radius float64) *domain.GeoChallenge {
	return &domain.GeoChallenge{
		Challenge: domain.Challenge{
			ID:           "c1",
			Name:         "Find the bridge",
			Kind:         domain.KindGeo,
			State:        domain.StateVisible,
			Value:        500,
			InitialValue: 500,
		},
		Latitude:        lat,
		Longitude:       lon,
		ToleranceRadius: radius,
	}
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(challenges *mockChallengeRepo, attempts *mockAttemptRepo) *handler.Dependencies {
	registry := usecases.NewTypeRegistry()
	_ = registry.Register(usecases.NewGeoChallengeType(attempts))

	return &handler.Dependencies{
		Challenges: usecases.NewChallengeService(challenges, attempts, nil),
		Attempts:   usecases.NewAttemptService(challenges, attempts, registry, nil, nil),
		Registry:   registry,
	}
}

// ---- Challenge handler tests ----

func TestListChallenges_Success(t *testing.T) {
	challenges := &mockChallengeRepo{
		listFn: func(ctx context.Context, state string) ([]domain.GeoChallenge, error) {
			return []domain.GeoChallenge{
				*visibleGeoChallenge(43.263, -2.935, 10),
			}, nil
		},
	}
	app := setupApp(makeDeps(challenges, &mockAttemptRepo{}))

	req := httptest.NewRequest("GET", "/v1/challenges", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.ChallengeView `json:"data"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 1 {
		t.Errorf("expected total 1, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 1 || result.Data[0].Name != "Find the bridge" {
		t.Errorf("unexpected data: %+v", result.Data)
	}
}

func TestListChallenges_NoCoordinateLeak(t *testing.T) {
	challenges := &mockChallengeRepo{
		listFn: func(ctx context.Context, state string) ([]domain.GeoChallenge, error) {
			return []domain.GeoChallenge{
				*visibleGeoChallenge(43.2630127, -2.9349852, 25),
			}, nil
		},
	}
	app := setupApp(makeDeps(challenges, &mockAttemptRepo{}))

	req := httptest.NewRequest("GET", "/v1/challenges", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	body := string(raw)
	for _, needle := range []string{"43.2630127", "-2.9349852", "latitude", "longitude"} {
		if strings.Contains(body, needle) {
			t.Errorf("response leaks %q: %s", needle, body)
		}
	}
}

func TestGetChallenge_NotFound(t *testing.T) {
	app := setupApp(makeDeps(&mockChallengeRepo{}, &mockAttemptRepo{}))

	req := httptest.NewRequest("GET", "/v1/challenges/missing", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCreateChallenge_Success(t *testing.T) {
	app := setupApp(makeDeps(&mockChallengeRepo{}, &mockAttemptRepo{}))

	body := `{"name":"Hidden plaza","value":300,"latitude":43.26,"longitude":-2.93}`
	req := httptest.NewRequest("POST", "/v1/challenges", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var view domain.ChallengeView
	json.NewDecoder(resp.Body).Decode(&view)
	if view.ToleranceRadius != domain.DefaultToleranceRadius {
		t.Errorf("expected default radius %v, got %v", domain.DefaultToleranceRadius, view.ToleranceRadius)
	}
	if view.State != domain.StateHidden {
		t.Errorf("expected default hidden state, got %s", view.State)
	}
}

func TestCreateChallenge_InvalidLatitude(t *testing.T) {
	app := setupApp(makeDeps(&mockChallengeRepo{}, &mockAttemptRepo{}))

	body := `{"name":"Bad","value":100,"latitude":95,"longitude":0}`
	req := httptest.NewRequest("POST", "/v1/challenges", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Code string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "bad_request" {
		t.Errorf("expected bad_request error, got %s", apiErr.Code)
	}
}

// ---- Attempt handler tests ----

func TestAttemptChallenge_Correct(t *testing.T) {
	challenges := &mockChallengeRepo{
		getGeoByIDFn: func(ctx context.Context, id string) (*domain.GeoChallenge, error) {
			return visibleGeoChallenge(48.8566, 2.3522, 10), nil
		},
	}
	app := setupApp(makeDeps(challenges, &mockAttemptRepo{}))

	body := `{"latitude":48.8566,"longitude":2.3522}`
	req := httptest.NewRequest("POST", "/v1/challenges/c1/attempt", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var verdict domain.Verdict
	json.NewDecoder(resp.Body).Decode(&verdict)
	if verdict.Status != domain.StatusCorrect {
		t.Errorf("expected correct, got %s", verdict.Status)
	}
	if verdict.Message != domain.MsgCorrect {
		t.Errorf("unexpected message %q", verdict.Message)
	}
}

func TestAttemptChallenge_Incorrect(t *testing.T) {
	challenges := &mockChallengeRepo{
		getGeoByIDFn: func(ctx context.Context, id string) (*domain.GeoChallenge, error) {
			return visibleGeoChallenge(48.8566, 2.3522, 10), nil
		},
	}
	app := setupApp(makeDeps(challenges, &mockAttemptRepo{}))

	body := `{"latitude":40.4168,"longitude":-3.7038}`
	req := httptest.NewRequest("POST", "/v1/challenges/c1/attempt", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var verdict domain.Verdict
	json.NewDecoder(resp.Body).Decode(&verdict)
	if verdict.Status != domain.StatusIncorrect {
		t.Errorf("expected incorrect, got %s", verdict.Status)
	}
	if verdict.Message != domain.MsgIncorrect {
		t.Errorf("unexpected message %q", verdict.Message)
	}
}

func TestAttemptChallenge_InvalidCoordinates(t *testing.T) {
	challenges := &mockChallengeRepo{
		getGeoByIDFn: func(ctx context.Context, id string) (*domain.GeoChallenge, error) {
			return visibleGeoChallenge(48.8566, 2.3522, 10), nil
		},
	}
	app := setupApp(makeDeps(challenges, &mockAttemptRepo{}))

	body := `{"latitude":"abc","longitude":"2.3522"}`
	req := httptest.NewRequest("POST", "/v1/challenges/c1/attempt", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var verdict domain.Verdict
	json.NewDecoder(resp.Body).Decode(&verdict)
	if verdict.Status != domain.StatusIncorrect {
		t.Errorf("expected incorrect, got %s", verdict.Status)
	}
	if verdict.Message != domain.MsgInvalidCoordinates {
		t.Errorf("unexpected message %q", verdict.Message)
	}
}

func TestAttemptChallenge_MissingIdentity(t *testing.T) {
	app := setupApp(makeDeps(&mockChallengeRepo{}, &mockAttemptRepo{}))

	body := `{"latitude":1,"longitude":2}`
	req := httptest.NewRequest("POST", "/v1/challenges/c1/attempt", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAttemptChallenge_HiddenChallenge(t *testing.T) {
	challenges := &mockChallengeRepo{
		getGeoByIDFn: func(ctx context.Context, id string) (*domain.GeoChallenge, error) {
			ch := visibleGeoChallenge(1, 2, 10)
			ch.State = domain.StateHidden
			return ch, nil
		},
	}
	app := setupApp(makeDeps(challenges, &mockAttemptRepo{}))

	body := `{"latitude":1,"longitude":2}`
	req := httptest.NewRequest("POST", "/v1/challenges/c1/attempt", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 403 {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestAttemptChallenge_AlreadySolved(t *testing.T) {
	challenges := &mockChallengeRepo{
		getGeoByIDFn: func(ctx context.Context, id string) (*domain.GeoChallenge, error) {
			return visibleGeoChallenge(1, 2, 10), nil
		},
	}
	attempts := &mockAttemptRepo{
		hasSolvedFn: func(ctx context.Context, challengeID, userID string, teamID *string) (bool, error) {
			return true, nil
		},
	}
	app := setupApp(makeDeps(challenges, attempts))

	body := `{"latitude":1,"longitude":2}`
	req := httptest.NewRequest("POST", "/v1/challenges/c1/attempt", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 409 {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

// ---- Format endpoint tests ----

func TestFormatSubmission_Coordinate(t *testing.T) {
	app := setupApp(makeDeps(&mockChallengeRepo{}, &mockAttemptRepo{}))

	body := `{"kind":"geo","submission":"lat:48.8566,lon:2.3522"}`
	req := httptest.NewRequest("POST", "/v1/submissions/format", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Success   bool   `json:"success"`
		Formatted string `json:"formatted"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if !result.Success {
		t.Error("expected success true")
	}
	want := "📍 Latitude: 48.856600, Longitude: 2.352200"
	if result.Formatted != want {
		t.Errorf("expected %q, got %q", want, result.Formatted)
	}
}

func TestFormatSubmission_Missing(t *testing.T) {
	app := setupApp(makeDeps(&mockChallengeRepo{}, &mockAttemptRepo{}))

	req := httptest.NewRequest("POST", "/v1/submissions/format", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var result struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Success {
		t.Error("expected success false")
	}
	if result.Error != "No submission provided" {
		t.Errorf("unexpected error message %q", result.Error)
	}
}

func TestFormatSubmission_UnknownKind(t *testing.T) {
	app := setupApp(makeDeps(&mockChallengeRepo{}, &mockAttemptRepo{}))

	body := `{"kind":"quiz","submission":"whatever"}`
	req := httptest.NewRequest("POST", "/v1/submissions/format", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Solves and scoreboard tests ----

func TestChallengeSolves_Success(t *testing.T) {
	challenges := &mockChallengeRepo{
		getGeoByIDFn: func(ctx context.Context, id string) (*domain.GeoChallenge, error) {
			return visibleGeoChallenge(1, 2, 10), nil
		},
	}
	attempts := &mockAttemptRepo{
		listByChallengeFn: func(ctx context.Context, challengeID, kind string, limit int) ([]domain.Attempt, error) {
			return []domain.Attempt{
				{UserID: "u1", Provided: "lat:1,lon:2", Kind: domain.AttemptSolve},
			}, nil
		},
	}
	app := setupApp(makeDeps(challenges, attempts))

	req := httptest.NewRequest("GET", "/v1/challenges/c1/solves", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Solves []domain.SolveView `json:"solves"`
		Count  int                `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Count != 1 {
		t.Fatalf("expected 1 solve, got %d", result.Count)
	}
	if !strings.HasPrefix(result.Solves[0].Submission, "📍 ") {
		t.Errorf("expected formatted submission, got %q", result.Solves[0].Submission)
	}
}

func TestScoreboard_Success(t *testing.T) {
	attempts := &mockAttemptRepo{
		scoreboardFn: func(ctx context.Context, limit int) ([]domain.ScoreboardEntry, error) {
			return []domain.ScoreboardEntry{
				{Rank: 1, UserID: "u1", Score: 900, Solves: 3},
				{Rank: 2, UserID: "u2", Score: 500, Solves: 1},
			}, nil
		},
	}
	app := setupApp(makeDeps(&mockChallengeRepo{}, attempts))

	req := httptest.NewRequest("GET", "/v1/scoreboard", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Standings []domain.ScoreboardEntry `json:"standings"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Standings) != 2 || result.Standings[0].Rank != 1 {
		t.Errorf("unexpected standings: %+v", result.Standings)
	}
}

func TestKinds(t *testing.T) {
	app := setupApp(makeDeps(&mockChallengeRepo{}, &mockAttemptRepo{}))

	req := httptest.NewRequest("GET", "/v1/kinds", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Kinds []string `json:"kinds"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Kinds) != 1 || result.Kinds[0] != domain.KindGeo {
		t.Errorf("expected [geo], got %v", result.Kinds)
	}
}

// ---- Health tests ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps(&mockChallengeRepo{}, &mockAttemptRepo{}))

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
