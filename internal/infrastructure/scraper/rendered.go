package scraper

import (
	"context"
	"fmt"

	"task-agent/internal/application/port/output"
	"task-agent/internal/domain/entity"
)

var _ output.ScraperPort = (*RenderedScraper)(nil)

// RenderedScraper extracts from the DOM after a browser has run the page's
// scripts.
type RenderedScraper struct {
	renderer output.PageRendererPort
}

func NewRenderedScraper(renderer output.PageRendererPort) *RenderedScraper {
	return &RenderedScraper{renderer: renderer}
}

func (s *RenderedScraper) Scrape(ctx context.Context, rawURL, selector string) (*entity.PageContent, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	doc, err := s.renderer.RenderHTML(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", rawURL, err)
	}
	page, err := Extract(doc, rawURL, selector)
	if err != nil {
		return nil, err
	}
	page.Status = 200
	return page, nil
}
