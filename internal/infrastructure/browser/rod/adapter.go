package rod

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"strings"
	"sync"
	"time"

	"task-agent/internal/application/port/output"
	"task-agent/internal/domain/entity"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

var _ output.PageRendererPort = (*Renderer)(nil)

var (
	ErrInvalidURL    = errors.New("invalid url")
	ErrBrowserClosed = errors.New("browser is closed")
)

const (
	defaultTimeout  = 20 * time.Second
	defaultIdleWait = 2 * time.Second
	screenQuality   = 80
)

// Renderer loads pages in a headless Chrome. The browser is launched on
// first use and shared by every call until Close.
type Renderer struct {
	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	cfg      Config
	closed   bool
	logger   output.LoggerPort
}

type Config struct {
	Headless  bool
	NoSandbox bool
	Timeout   time.Duration
	IdleWait  time.Duration
	Width     int
	Height    int
	Bin       string // empty lets rod find or download a browser
}

func DefaultConfig() Config {
	return Config{
		Headless: true,
		Timeout:  defaultTimeout,
		IdleWait: defaultIdleWait,
		Width:    1280,
		Height:   800,
	}
}

func NewRenderer(cfg Config, logger output.LoggerPort) *Renderer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.IdleWait <= 0 {
		cfg.IdleWait = defaultIdleWait
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 1280, 800
	}
	return &Renderer{cfg: cfg, logger: logger}
}

// RenderHTML returns the serialized DOM after the page settled.
func (r *Renderer) RenderHTML(ctx context.Context, rawURL string) (string, error) {
	var doc string
	err := r.withPage(ctx, rawURL, func(page *rod.Page) error {
		var err error
		doc, err = page.HTML()
		if err != nil {
			return fmt.Errorf("failed to get HTML: %w", err)
		}
		return nil
	})
	return doc, err
}

// Screenshot captures the viewport as JPEG.
func (r *Renderer) Screenshot(ctx context.Context, rawURL string) (*entity.Screenshot, error) {
	var shot *entity.Screenshot
	err := r.withPage(ctx, rawURL, func(page *rod.Page) error {
		data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
			Format:  proto.PageCaptureScreenshotFormatJpeg,
			Quality: gson.Int(screenQuality),
		})
		if err != nil {
			return fmt.Errorf("screenshot failed: %w", err)
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("image decode failed: %w", err)
		}
		shot = &entity.Screenshot{
			Data:   data,
			Format: "jpeg",
			Width:  cfg.Width,
			Height: cfg.Height,
		}
		return nil
	})
	return shot, err
}

func (r *Renderer) IsReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed
}

func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	if r.browser != nil {
		_ = r.browser.Close()
		r.browser = nil
	}
	if r.launcher != nil {
		r.launcher.Kill()
		r.launcher.Cleanup()
		r.launcher = nil
	}
}

func (r *Renderer) withPage(ctx context.Context, rawURL string, fn func(page *rod.Page) error) error {
	if err := ValidateURL(rawURL); err != nil {
		return err
	}
	browser, err := r.ensureBrowser()
	if err != nil {
		return err
	}

	tab, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	defer func() { _ = tab.Close() }()

	page := tab.Context(ctx).Timeout(r.cfg.Timeout)
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  r.cfg.Width,
		Height: r.cfg.Height,
	}); err != nil {
		return fmt.Errorf("failed to set viewport: %w", err)
	}
	if err := page.Navigate(rawURL); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("page load failed: %w", err)
	}
	// Pages that keep polling never go idle; what rendered so far is used.
	_ = page.WaitIdle(r.cfg.IdleWait)

	if r.logger != nil {
		r.logger.Debug("Rendered page", "url", rawURL)
	}
	return fn(page)
}

func (r *Renderer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrBrowserClosed
	}
	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New().
		Headless(r.cfg.Headless).
		NoSandbox(r.cfg.NoSandbox).
		Delete("use-mock-keychain")
	if r.cfg.Bin != "" {
		l = l.Bin(r.cfg.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	r.browser = browser
	r.launcher = l
	if r.logger != nil {
		r.logger.Info("Browser started", "headless", r.cfg.Headless)
	}
	return browser, nil
}

// ValidateURL accepts absolute http(s) URLs only.
func ValidateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q not allowed", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
