package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"task-agent/internal/application/port/input"
	"task-agent/internal/application/port/output"
	"task-agent/internal/domain/entity"

	"github.com/google/uuid"
)

var _ input.TaskExecutor = (*UseCase)(nil)

const DefaultMaxIterations = 5

// DefaultFeedbackActions are the actions whose successful outcome is judged.
var DefaultFeedbackActions = []entity.ActionName{
	entity.ActionWriteFile,
	entity.ActionRunFile,
	entity.ActionRunTests,
}

// Config holds executor defaults. A MaxIterations of zero or less means
// DefaultMaxIterations.
type Config struct {
	MaxIterations   int
	FeedbackActions []entity.ActionName
}

type UseCase struct {
	chooser    output.ActionChooser
	dispatcher output.ToolDispatcher
	judge      output.ContinuationJudge
	observer   output.UserInteractionPort
	logger     output.LoggerPort

	maxIterations int
	feedback      map[entity.ActionName]bool
	now           func() time.Time
}

func New(
	chooser output.ActionChooser,
	dispatcher output.ToolDispatcher,
	judge output.ContinuationJudge,
	observer output.UserInteractionPort,
	logger output.LoggerPort,
	cfg Config,
) *UseCase {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.FeedbackActions == nil {
		cfg.FeedbackActions = DefaultFeedbackActions
	}
	if observer == nil {
		observer = nopObserver{}
	}

	feedback := make(map[entity.ActionName]bool, len(cfg.FeedbackActions))
	for _, name := range cfg.FeedbackActions {
		feedback[name] = true
	}

	return &UseCase{
		chooser:       chooser,
		dispatcher:    dispatcher,
		judge:         judge,
		observer:      observer,
		logger:        logger,
		maxIterations: cfg.MaxIterations,
		feedback:      feedback,
		now:           time.Now,
	}
}

// Execute drives choose, dispatch, record and judge until a terminal state.
// Only fatal errors and cancellation are returned as errors.
func (uc *UseCase) Execute(ctx context.Context, request string, opts input.ExecuteOptions) (*entity.RunResult, error) {
	maxIterations := opts.MaxIterations
	if maxIterations < 0 {
		maxIterations = uc.maxIterations
	}

	result := &entity.RunResult{
		ID:        uuid.NewString(),
		Request:   request,
		History:   []entity.HistoryEntry{},
		StartedAt: uc.now(),
	}
	log := uc.logger.WithFields(map[string]any{"run_id": result.ID})
	log.Info("Run started", "request", request, "maxIterations", maxIterations)

	finish := func(status entity.RunStatus, reason string) *entity.RunResult {
		result.Status = status
		result.Reason = reason
		result.Iterations = len(result.History)
		result.FinishedAt = uc.now()
		log.Info("Run finished",
			"status", status,
			"iterations", result.Iterations,
			"reason", reason,
			"durationMs", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		)
		return result
	}

	for {
		completed := len(result.History)
		if completed >= maxIterations {
			return finish(entity.RunStatusMaxIterationsReached, fmt.Sprintf("reached %d iteration(s)", maxIterations)), nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		iteration := completed + 1
		uc.observer.ShowIteration(ctx, iteration, maxIterations)

		done := uc.observer.ShowThinking(ctx, "Choosing next action")
		action, err := uc.chooser.Choose(ctx, output.ChoiceRequest{
			Request:       request,
			Iteration:     iteration,
			MaxIterations: maxIterations,
			History:       result.History,
		})
		done()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, entity.ErrChoiceFailure) && !entity.IsFatal(err) {
				log.Warn("Choice failed, ending run", "iteration", iteration, "error", err)
				return finish(entity.RunStatusStoppedByChoiceFailure, err.Error()), nil
			}
			log.Error("Fatal error while choosing", "iteration", iteration, "error", err)
			return nil, fmt.Errorf("iteration %d: %w", iteration, err)
		}

		uc.observer.ShowAction(ctx, action)
		if action.IsStop() {
			return finish(entity.RunStatusStoppedByAction, action.StopReason()), nil
		}

		outcome := uc.dispatcher.Dispatch(ctx, action)
		result.History = append(result.History, entity.HistoryEntry{
			Iteration: iteration,
			Action:    action,
			Outcome:   outcome,
		})
		uc.observer.ShowOutcome(ctx, outcome)
		log.Debug("Outcome recorded", "iteration", iteration, "action", action.Name, "success", outcome.Success)

		if !outcome.Success || !uc.feedback[action.Name] {
			continue
		}

		done = uc.observer.ShowThinking(ctx, "Evaluating result")
		verdict := uc.judge.Judge(ctx, entity.EvaluationCriteria{
			Request:   request,
			Iteration: iteration,
			Outcome:   outcome,
		})
		done()
		uc.observer.ShowFeedback(ctx, verdict)

		if !verdict.ShouldContinue {
			return finish(entity.RunStatusStoppedByJudge, verdict.Message), nil
		}
	}
}

type nopObserver struct{}

func (nopObserver) ShowIteration(context.Context, int, int) {}
func (nopObserver) ShowAction(context.Context, entity.Action) {}
func (nopObserver) ShowOutcome(context.Context, entity.Outcome) {}
func (nopObserver) ShowFeedback(context.Context, entity.Feedback) {}
func (nopObserver) ShowThinking(context.Context, string) (done func()) { return func() {} }
