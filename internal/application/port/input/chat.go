package input

import (
	"context"

	"task-agent/internal/domain/entity"
)

// ChatSession is the free-form conversation mode with optional memory.
type ChatSession interface {
	Send(ctx context.Context, text string) (string, error)
	SetMemory(enabled bool)
	MemoryEnabled() bool
	History() []entity.Exchange
	Clear()
}
