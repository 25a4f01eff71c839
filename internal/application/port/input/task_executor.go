package input

import (
	"context"

	"task-agent/internal/domain/entity"
)

type ExecuteOptions struct {
	// MaxIterations bounds the run. Zero runs nothing and ends with
	// max_iterations_reached; a negative value uses the executor default.
	MaxIterations int
}

// TaskExecutor runs the iterative action loop for one request. A non-nil
// error is always a fatal condition; every other ending is a RunResult.
type TaskExecutor interface {
	Execute(ctx context.Context, request string, opts ExecuteOptions) (*entity.RunResult, error)
}
