package output

import (
	"context"

	"task-agent/internal/domain/entity"
)

type FileSystemPort interface {
	WriteFile(path, content string) error
	ReadFile(path string) (*entity.FileContent, error)
	ListFiles(path string) (*entity.DirListing, error)
	ReadBytes(path string) ([]byte, error)
}

type ProcessPort interface {
	RunFile(ctx context.Context, path string, args ...string) (entity.ExecResult, error)
	RunTests(ctx context.Context, target string) (entity.ExecResult, error)
}

type ScraperPort interface {
	Scrape(ctx context.Context, url, selector string) (*entity.PageContent, error)
}

// ImagePort loads and normalizes images before they reach the vision oracle.
type ImagePort interface {
	Prepare(data []byte) ([]byte, string, error)
}
