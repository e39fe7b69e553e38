package http

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/asiergil/ctfgeo/internal/adapters/postgres"
	"github.com/asiergil/ctfgeo/internal/core/domain"
	"github.com/asiergil/ctfgeo/internal/core/usecases"
	"github.com/asiergil/ctfgeo/internal/pkg/metrics"
)

// identityFromRequest reads the submitter identity asserted by the
// host platform's gateway. X-User-ID is mandatory for submissions;
// X-Team-ID is present only in team play.
func identityFromRequest(c *fiber.Ctx) (usecases.Identity, error) {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return usecases.Identity{}, errors.New("X-User-ID header is required")
	}
	id := usecases.Identity{UserID: userID, IP: c.IP()}
	if teamID := c.Get("X-Team-ID"); teamID != "" {
		id.TeamID = &teamID
	}
	return id, nil
}

// ListChallengesHandler returns redacted challenge views, optionally
// filtered by state.
func ListChallengesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Players see visible challenges only; admins pass state=all or
		// state=hidden explicitly.
		state := c.Query("state", domain.StateVisible)
		switch state {
		case "all":
			state = ""
		case domain.StateVisible, domain.StateHidden:
		default:
			return errBadRequest(c, "state must be visible, hidden, or all")
		}

		views, err := deps.Challenges.List(c.Context(), state)
		if err != nil {
			return errInternal(c, err.Error())
		}

		// Apply offset/limit pagination on the full list
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 100
		}

		total := len(views)
		if offset >= total {
			views = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			views = views[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: views, Pagination: pg})
	}
}

// GetChallengeHandler returns the redacted view of a single challenge.
func GetChallengeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "challenge id is required")
		}
		view, err := deps.Challenges.GetView(c.Context(), id)
		if err != nil {
			if errors.Is(err, postgres.ErrNotFound) {
				return errNotFound(c, "challenge not found")
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(view)
	}
}

// CreateChallengeHandler authors a new geo challenge. The input schema
// is strict: unknown body keys from map-widget UIs are dropped.
func CreateChallengeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in domain.CreateGeoChallengeInput
		if err := json.Unmarshal(c.Body(), &in); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		view, err := deps.Challenges.CreateGeo(c.Context(), in)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.Status(201).JSON(view)
	}
}

// UpdateChallengeHandler applies a partial update to a challenge.
func UpdateChallengeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "challenge id is required")
		}

		var in domain.UpdateGeoChallengeInput
		if err := json.Unmarshal(c.Body(), &in); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		view, err := deps.Challenges.UpdateGeo(c.Context(), id, in)
		if err != nil {
			if errors.Is(err, postgres.ErrNotFound) {
				return errNotFound(c, "challenge not found")
			}
			return errBadRequest(c, err.Error())
		}
		return c.JSON(view)
	}
}

// DeleteChallengeHandler removes a challenge and its attempt log.
func DeleteChallengeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "challenge id is required")
		}
		if err := deps.Challenges.Delete(c.Context(), id); err != nil {
			if errors.Is(err, postgres.ErrNotFound) {
				return errNotFound(c, "challenge not found")
			}
			return errInternal(c, err.Error())
		}
		return c.SendStatus(204)
	}
}

// AttemptChallengeHandler evaluates one submission against a challenge
// and records the outcome. The response carries only the verdict; the
// target coordinates never appear.
func AttemptChallengeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		challengeID := c.Params("id")
		if challengeID == "" {
			return errBadRequest(c, "challenge id is required")
		}

		id, err := identityFromRequest(c)
		if err != nil {
			return errUnauthorized(c, err.Error())
		}

		sub, err := parseSubmission(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		verdict, err := deps.Attempts.Submit(c.Context(), challengeID, id, sub)
		switch {
		case err == nil:
		case errors.Is(err, postgres.ErrNotFound):
			return errNotFound(c, "challenge not found")
		case errors.Is(err, usecases.ErrChallengeHidden):
			return errForbidden(c, err.Error())
		case errors.Is(err, usecases.ErrAlreadySolved):
			return errConflict(c, err.Error())
		case errors.Is(err, usecases.ErrAttemptLimit):
			return errForbidden(c, err.Error())
		default:
			return errInternal(c, err.Error())
		}

		metrics.AttemptsEvaluated.WithLabelValues(verdict.Status).Inc()
		if verdict.Message == domain.MsgInvalidCoordinates {
			metrics.InvalidSubmissions.Inc()
		}
		if verdict.Correct() {
			metrics.SolvesRecorded.Inc()
		}

		return c.JSON(verdict)
	}
}

// parseSubmission accepts a JSON object body or form-encoded fields and
// returns the raw key-value submission. Parsing of the values themselves
// is the evaluator's job.
func parseSubmission(c *fiber.Ctx) (domain.Submission, error) {
	ctype := string(c.Request().Header.ContentType())
	if ctype == "" || strings.HasPrefix(ctype, "application/json") {
		var sub domain.Submission
		if err := json.Unmarshal(c.Body(), &sub); err != nil {
			return nil, errors.New("invalid request body")
		}
		return sub, nil
	}

	// Form-encoded: every value arrives as a string
	sub := make(domain.Submission)
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		sub[string(key)] = string(value)
	})
	if len(sub) == 0 {
		return nil, errors.New("empty submission")
	}
	return sub, nil
}

// FormatSubmissionHandler renders a stored submission string for
// display. Used by admin panels listing the attempt log. The response
// shape follows the host platform's convention, not APIError.
func FormatSubmissionHandler(deps *Dependencies) fiber.Handler {
	type formatRequest struct {
		Kind       string  `json:"kind"`
		Submission *string `json:"submission"`
	}

	return func(c *fiber.Ctx) error {
		var req formatRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(400).JSON(fiber.Map{"success": false, "error": "invalid request body"})
		}
		if req.Submission == nil {
			return c.Status(400).JSON(fiber.Map{"success": false, "error": "No submission provided"})
		}
		if req.Kind == "" {
			req.Kind = domain.KindGeo
		}

		formatted, err := deps.Attempts.FormatSubmission(req.Kind, *req.Submission)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"success": false, "error": err.Error()})
		}
		return c.JSON(fiber.Map{
			"success":   true,
			"formatted": formatted,
		})
	}
}

// ChallengeSolvesHandler returns the public solve feed of a challenge.
func ChallengeSolvesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "challenge id is required")
		}
		limit := c.QueryInt("limit", 50)

		solves, err := deps.Attempts.Solves(c.Context(), id, limit)
		if err != nil {
			if errors.Is(err, postgres.ErrNotFound) {
				return errNotFound(c, "challenge not found")
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(fiber.Map{
			"challenge_id": id,
			"solves":       solves,
			"count":        len(solves),
		})
	}
}

// ScoreboardHandler returns aggregated standings.
func ScoreboardHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 50)

		entries, err := deps.Attempts.Scoreboard(c.Context(), limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(fiber.Map{
			"standings": entries,
			"count":     len(entries),
		})
	}
}

// ChallengeKindsHandler lists the registered challenge kinds.
func ChallengeKindsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"kinds": deps.Registry.Kinds(),
		})
	}
}
