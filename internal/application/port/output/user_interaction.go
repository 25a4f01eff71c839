package output

import (
	"context"

	"task-agent/internal/domain/entity"
)

// UserInteractionPort receives loop progress for display. Implementations
// must not block the loop.
type UserInteractionPort interface {
	ShowIteration(ctx context.Context, iteration, maxIterations int)
	ShowAction(ctx context.Context, action entity.Action)
	ShowOutcome(ctx context.Context, outcome entity.Outcome)
	ShowFeedback(ctx context.Context, feedback entity.Feedback)
	ShowThinking(ctx context.Context, message string) (done func())
}
