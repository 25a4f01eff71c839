package evaluator

import (
	"context"
	"errors"
	"fmt"

	"task-agent/internal/application/port/output"
	"task-agent/internal/domain/entity"
	"task-agent/internal/infrastructure/prompts"
)

var _ output.ContinuationJudge = (*Evaluator)(nil)

// Evaluator asks the text oracle whether the latest outcome fulfilled the
// request.
type Evaluator struct {
	llm      output.TextOracle
	logger   output.LoggerPort
	template string
}

type verdict struct {
	ShouldContinue *bool   `json:"should_continue"`
	Message        string  `json:"message"`
	Confidence     float64 `json:"confidence"`
}

func New(llm output.TextOracle, logger output.LoggerPort, template string) *Evaluator {
	if template == "" {
		template = prompts.JudgePrompt
	}
	return &Evaluator{
		llm:      llm,
		logger:   logger,
		template: template,
	}
}

// Judge never fails: any oracle or decode problem ends the run with
// should_continue=false.
func (e *Evaluator) Judge(ctx context.Context, criteria entity.EvaluationCriteria) entity.Feedback {
	feedback, err := e.evaluate(ctx, criteria)
	if err != nil {
		e.logger.Warn("Evaluation failed, stopping", "iteration", criteria.Iteration, "error", err)
		return failed(err)
	}

	e.logger.Info("Evaluation completed",
		"iteration", criteria.Iteration,
		"should_continue", feedback.ShouldContinue,
		"confidence", feedback.Confidence,
	)
	return feedback
}

func (e *Evaluator) evaluate(ctx context.Context, criteria entity.EvaluationCriteria) (entity.Feedback, error) {
	prompt, err := prompts.GenerateJudgePrompt(e.template, criteria)
	if err != nil {
		return entity.Feedback{}, err
	}

	var v verdict
	if err := e.llm.GenerateJSON(ctx, prompt, &v); err != nil {
		return entity.Feedback{}, fmt.Errorf("evaluation llm request failed: %w", err)
	}
	if v.ShouldContinue == nil {
		return entity.Feedback{}, fmt.Errorf("%w: should_continue missing", entity.ErrMalformedResponse)
	}

	return entity.Feedback{
		ShouldContinue: *v.ShouldContinue,
		Message:        v.Message,
		Confidence:     v.Confidence,
	}.ClampConfidence(), nil
}

func failed(err error) entity.Feedback {
	if err == nil {
		err = errors.New("unknown error")
	}
	return entity.Feedback{
		ShouldContinue: false,
		Message:        "judge error: " + err.Error(),
		Confidence:     0,
	}
}
