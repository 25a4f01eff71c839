package output

import (
	"context"

	"task-agent/internal/domain/entity"
)

type ChoiceRequest struct {
	Request       string
	Iteration     int
	MaxIterations int
	History       []entity.HistoryEntry
}

// ActionChooser picks the next action. Errors wrapping
// entity.ErrChoiceFailure end the run; fatal errors propagate.
type ActionChooser interface {
	Choose(ctx context.Context, req ChoiceRequest) (entity.Action, error)
}

// ToolDispatcher executes an action. Failures are reported through
// Outcome.Success, never as an error.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, action entity.Action) entity.Outcome
}

// ContinuationJudge decides whether the loop goes on after a successful
// feedback-eligible outcome. It always returns a verdict.
type ContinuationJudge interface {
	Judge(ctx context.Context, criteria entity.EvaluationCriteria) entity.Feedback
}
