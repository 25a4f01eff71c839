package scraper

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"task-agent/internal/application/port/output"
	"task-agent/internal/domain/entity"
)

var _ output.ScraperPort = (*HTTPScraper)(nil)

const (
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxBodySize      = 5 << 20
)

// HTTPScraper fetches pages with a plain GET.
type HTTPScraper struct {
	client    *http.Client
	userAgent string
	logger    output.LoggerPort
}

type Config struct {
	UserAgent string
	Timeout   time.Duration
	Logger    output.LoggerPort
}

func NewHTTPScraper(cfg Config) *HTTPScraper {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &HTTPScraper{
		client:    &http.Client{Timeout: timeout},
		userAgent: ua,
		logger:    cfg.Logger,
	}
}

func (s *HTTPScraper) Scrape(ctx context.Context, rawURL, selector string) (*entity.PageContent, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if s.logger != nil {
		s.logger.Debug("Fetched page", "url", rawURL, "status", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if !isHTML(resp.Header.Get("Content-Type")) {
		if selector != "" {
			return nil, fmt.Errorf("selector %q needs an HTML page, got %s", selector, resp.Header.Get("Content-Type"))
		}
		return &entity.PageContent{
			URL:    finalURL,
			Status: resp.StatusCode,
			Text:   truncate(string(body), maxTextLen),
		}, nil
	}

	page, err := Extract(string(body), finalURL, selector)
	if err != nil {
		return nil, err
	}
	page.Status = resp.StatusCode
	return page, nil
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	media, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "html")
	}
	return media == "text/html" || media == "application/xhtml+xml"
}

func validateURL(rawURL string) error {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return fmt.Errorf("url %q must start with http:// or https://", rawURL)
	}
	return nil
}
