package rod

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Headless)
	assert.False(t, cfg.NoSandbox, "Should be secure by default")
	assert.Equal(t, defaultTimeout, cfg.Timeout)
	assert.Equal(t, defaultIdleWait, cfg.IdleWait)
}

func TestNewRenderer_FillsZeroValues(t *testing.T) {
	r := NewRenderer(Config{}, nil)

	assert.Equal(t, defaultTimeout, r.cfg.Timeout)
	assert.Equal(t, 1280, r.cfg.Width)
	assert.True(t, r.IsReady())
	assert.Nil(t, r.browser, "browser starts lazily")
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, ValidateURL("https://example.com/path"))
	assert.NoError(t, ValidateURL("http://127.0.0.1:8080"))

	tests := []struct {
		name string
		url  string
	}{
		{"Empty URL", ""},
		{"Invalid scheme", "ftp://example.com"},
		{"JavaScript URL", "javascript:alert(1)"},
		{"Relative", "/index.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateURL(tt.url), ErrInvalidURL)
		})
	}
}

func TestRenderer_ClosedRejectsCalls(t *testing.T) {
	r := NewRenderer(DefaultConfig(), nil)
	r.Close()

	assert.False(t, r.IsReady())
	_, err := r.RenderHTML(context.Background(), "https://example.com")
	assert.ErrorIs(t, err, ErrBrowserClosed)
}

func TestRenderer_InvalidURLDoesNotLaunch(t *testing.T) {
	r := NewRenderer(DefaultConfig(), nil)
	defer r.Close()

	_, err := r.Screenshot(context.Background(), "ftp://example.com")
	assert.ErrorIs(t, err, ErrInvalidURL)
	assert.Nil(t, r.browser)
}

func newPageServer(body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, body)
	}))
}

func TestRenderer_RenderHTML(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping browser test in short mode")
	}
	server := newPageServer(ScriptedHTML)
	defer server.Close()

	r := NewRenderer(DefaultConfig(), nil)
	defer r.Close()

	doc, err := r.RenderHTML(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, doc, "Rendered by script")
}

func TestRenderer_Screenshot(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping browser test in short mode")
	}
	server := newPageServer(BasicHTML)
	defer server.Close()

	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 800, 600
	r := NewRenderer(cfg, nil)
	defer r.Close()

	shot, err := r.Screenshot(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", shot.Format)
	assert.Equal(t, 800, shot.Width)
	assert.Equal(t, 600, shot.Height)
	assert.NotEmpty(t, shot.Data)
}
