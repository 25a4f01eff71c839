package evaluator

import (
	"context"
	"fmt"

	"task-agent/internal/application/port/output"
	"task-agent/internal/domain/entity"
)

var _ output.ContinuationJudge = (*Safe)(nil)

// Safe turns a panicking judge into a stop verdict and clamps confidence.
type Safe struct {
	inner  output.ContinuationJudge
	logger output.LoggerPort
}

func NewSafe(inner output.ContinuationJudge, logger output.LoggerPort) *Safe {
	return &Safe{inner: inner, logger: logger}
}

func (s *Safe) Judge(ctx context.Context, criteria entity.EvaluationCriteria) (feedback entity.Feedback) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Judge panicked", "iteration", criteria.Iteration, "panic", r)
			feedback = failed(fmt.Errorf("panic: %v", r))
		}
	}()
	return s.inner.Judge(ctx, criteria).ClampConfidence()
}
