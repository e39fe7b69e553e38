package ports

import (
	"context"

	"github.com/asiergil/ctfgeo/internal/core/domain"
)

// ChallengeType is the capability set a registered challenge kind must
// provide: evaluate a submission, encode and display-format it, and
// record outcomes. Registration is compile-checked by this interface.
type ChallengeType interface {
	Kind() string
	// Attempt classifies a submission against a stored challenge. It
	// never fails: malformed input yields an incorrect verdict.
	Attempt(ch *domain.GeoChallenge, sub domain.Submission) domain.Verdict
	// EncodeSubmission builds the durable submission string from the
	// raw payload.
	EncodeSubmission(sub domain.Submission) string
	// FormatSubmission renders a stored submission string for display.
	// It never fails; unrecognized input is returned with a pin prefix.
	FormatSubmission(raw string) string
	// Solve and Fail append one row to the attempt log. Persistence
	// errors propagate to the caller.
	Solve(ctx context.Context, att *domain.Attempt) error
	Fail(ctx context.Context, att *domain.Attempt) error
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishSolveEvent(ctx context.Context, ev *domain.SolveEvent) error
	PublishFirstBlood(ctx context.Context, ev *domain.SolveEvent) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// EventSubscriber consumes domain events from a message broker.
type EventSubscriber interface {
	SubscribeSolveEvents(ctx context.Context, handler func(ctx context.Context, ev *domain.SolveEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
