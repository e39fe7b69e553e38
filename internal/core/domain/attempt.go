package domain

import "time"

// Verdict statuses. Malformed coordinates classify as incorrect, only
// the message differs.
const (
	StatusCorrect   = "correct"
	StatusIncorrect = "incorrect"
)

// Verdict messages.
const (
	MsgCorrect            = "Correct! You found the location!"
	MsgIncorrect          = "Incorrect location. Try again!"
	MsgInvalidCoordinates = "Invalid coordinates submitted"
)

// Verdict is the outcome of evaluating one submission.
type Verdict struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Correct reports whether the verdict is a solve.
func (v Verdict) Correct() bool { return v.Status == StatusCorrect }

// Submission is the raw key-value payload a player sent. Values may be
// JSON numbers, JSON strings, or form-encoded strings; the evaluator
// owns the parsing.
type Submission map[string]any

// Attempt kinds.
const (
	AttemptSolve = "solve"
	AttemptFail  = "fail"
)

// Attempt is one durable solve/fail row. Provided holds the encoded
// "lat:X,lon:Y" submission string; the raw numeric fields are not
// persisted separately.
type Attempt struct {
	ID          string    `json:"id"`
	ChallengeID string    `json:"challenge_id"`
	UserID      string    `json:"user_id"`
	TeamID      *string   `json:"team_id,omitempty"` // nil in solo mode
	Kind        string    `json:"kind"`
	IP          string    `json:"ip"`
	Provided    string    `json:"provided"`
	CreatedAt   time.Time `json:"created_at"`
}

// SolveEvent is broadcast on the message bus after a recorded outcome.
type SolveEvent struct {
	ChallengeID   string    `json:"challenge_id"`
	ChallengeName string    `json:"challenge_name"`
	UserID        string    `json:"user_id"`
	TeamID        string    `json:"team_id,omitempty"`
	Kind          string    `json:"kind"`
	Value         int       `json:"value"`
	FirstBlood    bool      `json:"first_blood"`
	At            time.Time `json:"at"`
}

// SolveView is one row of a challenge's public solve feed: the stored
// submission string rendered for display, never the raw coordinates of
// the target.
type SolveView struct {
	UserID     string    `json:"user_id"`
	TeamID     string    `json:"team_id,omitempty"`
	Submission string    `json:"submission"`
	SolvedAt   time.Time `json:"solved_at"`
}

// ScoreboardEntry is one aggregated row of the scoreboard, keyed by
// team when team play is on, otherwise by user.
type ScoreboardEntry struct {
	Rank      int        `json:"rank"`
	TeamID    string     `json:"team_id,omitempty"`
	UserID    string     `json:"user_id,omitempty"`
	Score     int        `json:"score"`
	Solves    int        `json:"solves"`
	LastSolve *time.Time `json:"last_solve,omitempty"`
}
