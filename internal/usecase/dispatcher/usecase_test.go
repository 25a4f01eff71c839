package dispatcher

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"task-agent/internal/application/port/output"
	"task-agent/internal/domain/entity"
	"task-agent/internal/infrastructure/logger"
	"task-agent/internal/infrastructure/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProcess struct {
	result entity.ExecResult
	err    error
	paths  []string
	args   [][]string
}

func (p *stubProcess) RunFile(_ context.Context, path string, args ...string) (entity.ExecResult, error) {
	p.paths = append(p.paths, path)
	p.args = append(p.args, args)
	return p.result, p.err
}

func (p *stubProcess) RunTests(_ context.Context, target string) (entity.ExecResult, error) {
	p.paths = append(p.paths, target)
	return p.result, p.err
}

type stubScraper struct {
	page *entity.PageContent
	err  error
}

func (s *stubScraper) Scrape(context.Context, string, string) (*entity.PageContent, error) {
	return s.page, s.err
}

type stubVision struct {
	got output.VisionRequest
}

func (v *stubVision) Analyze(_ context.Context, req output.VisionRequest) (string, error) {
	v.got = req
	return "a red square", nil
}

type stubImages struct{}

func (stubImages) Prepare(data []byte) ([]byte, string, error) {
	return append([]byte("prepared:"), data...), "image/jpeg", nil
}

type stubRenderer struct{}

func (stubRenderer) RenderHTML(context.Context, string) (string, error) { return "", nil }
func (stubRenderer) Screenshot(context.Context, string) (*entity.Screenshot, error) {
	return &entity.Screenshot{Data: []byte("shot"), Format: "jpeg"}, nil
}
func (stubRenderer) Close() {}

type panickingFS struct{ output.FileSystemPort }

func (panickingFS) WriteFile(string, string) error { panic("disk on fire") }

func newDispatcher(t *testing.T, deps Dependencies) *UseCase {
	t.Helper()
	if deps.FS == nil {
		fs, err := workspace.NewFilesystem(t.TempDir())
		require.NoError(t, err)
		deps.FS = fs
	}
	if deps.Process == nil {
		deps.Process = &stubProcess{}
	}
	return New(deps, logger.NewNop(), 0)
}

func action(name entity.ActionName, args map[string]any) entity.Action {
	return entity.Action{Name: name, Arguments: entity.NewArguments(args)}
}

func TestDispatch_WriteThenRead(t *testing.T) {
	d := newDispatcher(t, Dependencies{})
	ctx := context.Background()
	content := "print('hi')\nprint('bye')"

	out := d.Dispatch(ctx, action(entity.ActionWriteFile, map[string]any{"path": "src/greet.py", "content": content}))
	require.True(t, out.Success, out.Details)
	assert.Equal(t, entity.ActionWriteFile, out.Action)

	out = d.Dispatch(ctx, action(entity.ActionReadFile, map[string]any{"path": "src/greet.py"}))
	require.True(t, out.Success, out.Details)
	assert.Equal(t, "src/greet.py (2 lines, 24 bytes):\n"+content, out.Details)
}

func TestDispatch_ListFilesIdempotent(t *testing.T) {
	d := newDispatcher(t, Dependencies{})
	ctx := context.Background()
	d.Dispatch(ctx, action(entity.ActionWriteFile, map[string]any{"path": "a.txt", "content": "abc"}))
	d.Dispatch(ctx, action(entity.ActionWriteFile, map[string]any{"path": "lib/b.py", "content": "x = 1"}))

	first := d.Dispatch(ctx, action(entity.ActionListFiles, nil))
	second := d.Dispatch(ctx, action(entity.ActionListFiles, map[string]any{"path": "."}))

	require.True(t, first.Success)
	assert.Equal(t, first, second)
	assert.Contains(t, first.Details, "1 file(s), 1 dir(s)")
	assert.Contains(t, first.Details, "a.txt (3 bytes)")
	assert.Contains(t, first.Details, "lib/")
}

func TestDispatch_ReadMissingFile(t *testing.T) {
	out := newDispatcher(t, Dependencies{}).Dispatch(context.Background(), action(entity.ActionReadFile, map[string]any{"path": "nope.txt"}))

	assert.False(t, out.Success)
	assert.True(t, strings.HasPrefix(out.Details, "Error: read nope.txt"))
}

func TestDispatch_RunFileExitCode(t *testing.T) {
	proc := &stubProcess{result: entity.ExecResult{Command: "python3 greet.py", Stdout: "hi\n", ExitCode: 0}}
	d := newDispatcher(t, Dependencies{Process: proc})

	out := d.Dispatch(context.Background(), action(entity.ActionRunFile, map[string]any{"path": "greet.py", "args": "--name bob"}))

	assert.True(t, out.Success)
	assert.Equal(t, "Exit code: 0\nstdout:\nhi", out.Details)
	assert.Equal(t, []string{"--name", "bob"}, proc.args[0])

	proc.result = entity.ExecResult{Command: "python3 greet.py", Stderr: "Traceback\n", ExitCode: 1}
	out = d.Dispatch(context.Background(), action(entity.ActionRunFile, map[string]any{"path": "greet.py"}))

	assert.False(t, out.Success)
	assert.Contains(t, out.Details, "stderr:\nTraceback")
}

func TestDispatch_RunFileSpawnError(t *testing.T) {
	proc := &stubProcess{err: errors.New("no such file")}
	out := newDispatcher(t, Dependencies{Process: proc}).Dispatch(context.Background(), action(entity.ActionRunFile, map[string]any{"path": "x.py"}))

	assert.False(t, out.Success)
	assert.Equal(t, "Error: run x.py: no such file", out.Details)
}

func TestDispatch_RunTests(t *testing.T) {
	proc := &stubProcess{result: entity.ExecResult{Command: "pytest", Stdout: "1 failed", ExitCode: 1}}
	d := newDispatcher(t, Dependencies{Process: proc})

	out := d.Dispatch(context.Background(), action(entity.ActionRunTests, map[string]any{"pattern": "test_*.py"}))

	assert.False(t, out.Success)
	assert.True(t, strings.HasPrefix(out.Details, "Tests failed"))
	assert.Equal(t, "test_*.py", proc.paths[0])
}

func TestDispatch_WebScrape(t *testing.T) {
	scraper := &stubScraper{page: &entity.PageContent{
		URL: "https://example.com", Status: 200, Title: "Example",
		Text:  "Hello",
		Links: []entity.Link{{Text: "More", Href: "https://example.com/more"}},
	}}
	d := newDispatcher(t, Dependencies{Scraper: scraper})

	out := d.Dispatch(context.Background(), action(entity.ActionWebScrape, map[string]any{"url": "https://example.com"}))

	assert.True(t, out.Success)
	assert.Contains(t, out.Details, "Title: Example")
	assert.Contains(t, out.Details, "Text:\nHello")
	assert.Contains(t, out.Details, "- More: https://example.com/more")

	scraper.page = &entity.PageContent{URL: "https://example.com", Status: 200, Selector: "a", Elements: []entity.PageElement{
		{Tag: "a", Text: "More", Attr: map[string]string{"href": "https://example.com/more"}},
	}}
	out = d.Dispatch(context.Background(), action(entity.ActionWebScrape, map[string]any{"url": "https://example.com", "selector": "a"}))
	assert.Contains(t, out.Details, `1 element(s) match "a"`)
	assert.Contains(t, out.Details, "1. <a> More [https://example.com/more]")

	scraper.err = errors.New("fetch https://example.com: status 404")
	out = d.Dispatch(context.Background(), action(entity.ActionWebScrape, map[string]any{"url": "https://example.com"}))
	assert.False(t, out.Success)
	assert.Contains(t, out.Details, "404")
}

func TestDispatch_AnalyzeImageFromFile(t *testing.T) {
	vision := &stubVision{}
	d := newDispatcher(t, Dependencies{Vision: vision, Images: stubImages{}})
	ctx := context.Background()
	d.Dispatch(ctx, action(entity.ActionWriteFile, map[string]any{"path": "img.png", "content": "PNG"}))

	out := d.Dispatch(ctx, action(entity.ActionAnalyzeImage, map[string]any{"path": "img.png"}))

	require.True(t, out.Success, out.Details)
	assert.Equal(t, "Analysis of img.png:\na red square", out.Details)
	assert.Equal(t, []byte("prepared:PNG"), vision.got.Image)
	assert.Equal(t, "image/jpeg", vision.got.MIMEType)
	assert.Equal(t, defaultImagePrompt, vision.got.Prompt)
}

func TestDispatch_AnalyzeImageFromURL(t *testing.T) {
	vision := &stubVision{}
	d := newDispatcher(t, Dependencies{Vision: vision, Renderer: stubRenderer{}})

	out := d.Dispatch(context.Background(), action(entity.ActionAnalyzeImage, map[string]any{"url": "https://example.com", "prompt": "what colour?"}))

	require.True(t, out.Success, out.Details)
	assert.Equal(t, []byte("shot"), vision.got.Image)
	assert.Equal(t, "what colour?", vision.got.Prompt)
}

func TestDispatch_AnalyzeImageNeedsSource(t *testing.T) {
	d := newDispatcher(t, Dependencies{Vision: &stubVision{}})

	out := d.Dispatch(context.Background(), action(entity.ActionAnalyzeImage, nil))
	assert.False(t, out.Success)

	out = d.Dispatch(context.Background(), action(entity.ActionAnalyzeImage, map[string]any{"url": "https://example.com"}))
	assert.False(t, out.Success)
	assert.Contains(t, out.Details, "browser backend")
}

func TestDispatch_ChooseToolAndStop(t *testing.T) {
	d := newDispatcher(t, Dependencies{})

	out := d.Dispatch(context.Background(), action(entity.ActionChooseTool, map[string]any{"context": "need to test"}))
	assert.True(t, out.Success)
	assert.Equal(t, "Tool selection context: need to test", out.Details)

	out = d.Dispatch(context.Background(), action(entity.ActionStop, nil))
	assert.True(t, out.Success)
}

func TestDispatch_NeverPanics(t *testing.T) {
	d := newDispatcher(t, Dependencies{FS: panickingFS{}})

	out := d.Dispatch(context.Background(), action(entity.ActionWriteFile, map[string]any{"path": "a", "content": "b"}))

	assert.False(t, out.Success)
	assert.Contains(t, out.Details, "disk on fire")
}

func TestDispatch_UnknownAction(t *testing.T) {
	out := newDispatcher(t, Dependencies{}).Dispatch(context.Background(), entity.Action{Name: "format_disk"})

	assert.False(t, out.Success)
	assert.Contains(t, out.Details, "unknown action")
}

func TestDispatch_TruncatesDetails(t *testing.T) {
	proc := &stubProcess{result: entity.ExecResult{Command: "x", Stdout: strings.Repeat("a", 500) + strings.Repeat("z", 500)}}
	d := New(Dependencies{Process: proc}, logger.NewNop(), 100)

	out := d.Dispatch(context.Background(), action(entity.ActionRunFile, map[string]any{"path": "x"}))

	assert.Contains(t, out.Details, "characters truncated")
	assert.True(t, strings.HasSuffix(out.Details, strings.Repeat("z", 50)))
}

func TestTruncateHeadTail(t *testing.T) {
	assert.Equal(t, "short", truncateHeadTail("short", 10))
	assert.Equal(t, "ab\n[... 6 characters truncated ...]\nij", truncateHeadTail("abcdefghij", 4))
	assert.Equal(t, "abc", truncateHeadTail("abc", 0))
}

func TestTruncateHeadTail_AccentedText(t *testing.T) {
	text := strings.Repeat("é", 200)
	for _, limit := range []int{4, 7, 101, 103} {
		got := truncateHeadTail(text, limit)
		assert.True(t, utf8.ValidString(got), "limit %d", limit)
		assert.True(t, strings.HasPrefix(got, "é"))
		assert.True(t, strings.HasSuffix(got, "é"))
	}
	assert.Equal(t, "é\n[... 396 characters truncated ...]\né", truncateHeadTail(text, 5))
}

func TestDispatch_ReadAccentedFileStaysValid(t *testing.T) {
	fs, err := workspace.NewFilesystem(t.TempDir())
	require.NoError(t, err)
	d := New(Dependencies{FS: fs, Process: &stubProcess{}}, logger.NewNop(), 103)
	ctx := context.Background()

	out := d.Dispatch(ctx, action(entity.ActionWriteFile, map[string]any{"path": "f.txt", "content": strings.Repeat("é", 200)}))
	require.True(t, out.Success, out.Details)

	out = d.Dispatch(ctx, action(entity.ActionReadFile, map[string]any{"path": "f.txt"}))
	require.True(t, out.Success)
	assert.True(t, utf8.ValidString(out.Details))
	assert.Contains(t, out.Details, "characters truncated")
}
