package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ScoreDecayInput is the input for the score decay workflow.
type ScoreDecayInput struct {
	ChallengeID   string
	ChallengeName string
	SolverUserID  string
	FirstBlood    bool
}

// ScoreDecayWorkflow recomputes a challenge's dynamic value after a solve
// and, for first bloods, publishes an alert. Recalculation is retried; the
// alert is best effort.
func ScoreDecayWorkflow(ctx workflow.Context, input ScoreDecayInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting score decay workflow", "challengeID", input.ChallengeID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Recalculate the challenge value from its solve count
	var newValue int
	err := workflow.ExecuteActivity(ctx, "RecalculateScore", input.ChallengeID).Get(ctx, &newValue)
	if err != nil {
		return err
	}

	// Step 2: First-blood alert, non-fatal if it fails
	if input.FirstBlood {
		err = workflow.ExecuteActivity(ctx, "AnnounceFirstBlood", input.ChallengeID, input.ChallengeName, input.SolverUserID).Get(ctx, nil)
		if err != nil {
			logger.Warn("first blood announcement failed", "error", err)
		}
	}

	logger.Info("Score decay workflow complete", "challengeID", input.ChallengeID, "value", newValue)
	return nil
}
