package output

import (
	"context"

	"task-agent/internal/domain/entity"
)

type GenerateRequest struct {
	Prompt     string
	System     string
	History    []entity.Message
	Structured bool
}

// TextOracle is the text-generation service. GenerateJSON returns only
// already-validated structured data: a decode problem surfaces as
// entity.ErrEmptyResponse or entity.ErrMalformedResponse, a transport or
// credential problem as *entity.FatalError.
type TextOracle interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	GenerateJSON(ctx context.Context, prompt string, v any) error
}

type VisionRequest struct {
	Image    []byte
	MIMEType string
	Prompt   string
}

type VisionOracle interface {
	Analyze(ctx context.Context, req VisionRequest) (string, error)
}
