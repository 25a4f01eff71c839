package output

import (
	"context"

	"task-agent/internal/domain/entity"
)

// PageRendererPort loads pages in a real browser so JavaScript-built
// content is present before extraction.
type PageRendererPort interface {
	RenderHTML(ctx context.Context, url string) (string, error)
	Screenshot(ctx context.Context, url string) (*entity.Screenshot, error)
	Close()
}
