package dispatcher

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"task-agent/internal/application/port/output"
	"task-agent/internal/domain/entity"
)

var _ output.ToolDispatcher = (*UseCase)(nil)

const (
	DefaultMaxDetailsLen = 4000
	defaultImagePrompt   = "Describe this image in detail."
)

type Dependencies struct {
	FS      output.FileSystemPort
	Process output.ProcessPort
	Scraper output.ScraperPort
	Vision  output.VisionOracle
	Images  output.ImagePort
	// Renderer is optional; without it analyze_image only accepts files.
	Renderer output.PageRendererPort
}

type UseCase struct {
	deps       Dependencies
	logger     output.LoggerPort
	maxDetails int
}

func New(deps Dependencies, logger output.LoggerPort, maxDetails int) *UseCase {
	if maxDetails <= 0 {
		maxDetails = DefaultMaxDetailsLen
	}
	return &UseCase{
		deps:       deps,
		logger:     logger,
		maxDetails: maxDetails,
	}
}

// Dispatch runs the action synchronously. Every failure, panics included,
// comes back as an Outcome with Success=false.
func (uc *UseCase) Dispatch(ctx context.Context, action entity.Action) (outcome entity.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			uc.logger.Error("Tool panicked", "action", action.Name, "panic", r, "stack", string(debug.Stack()))
			outcome = uc.failed(action.Name, fmt.Errorf("internal error: %v", r))
		}
	}()

	uc.logger.Info("Executing tool", "action", action.Name, "args", action.Arguments.Keys())

	var (
		details string
		ok      bool
		err     error
	)
	switch action.Name {
	case entity.ActionWriteFile:
		details, err = uc.writeFile(action.Arguments)
		ok = err == nil
	case entity.ActionRunFile:
		details, ok, err = uc.runFile(ctx, action.Arguments)
	case entity.ActionListFiles:
		details, err = uc.listFiles(action.Arguments)
		ok = err == nil
	case entity.ActionReadFile:
		details, err = uc.readFile(action.Arguments)
		ok = err == nil
	case entity.ActionRunTests:
		details, ok, err = uc.runTests(ctx, action.Arguments)
	case entity.ActionWebScrape:
		details, err = uc.webScrape(ctx, action.Arguments)
		ok = err == nil
	case entity.ActionAnalyzeImage:
		details, err = uc.analyzeImage(ctx, action.Arguments)
		ok = err == nil
	case entity.ActionChooseTool:
		details = "Tool selection context: " + action.Arguments.StringOr("context", "(none)")
		ok = true
	case entity.ActionStop:
		details = "stop: " + action.StopReason()
		ok = true
	default:
		err = fmt.Errorf("unknown action %q", action.Name)
	}

	if err != nil {
		uc.logger.Warn("Tool failed", "action", action.Name, "error", err)
		if details != "" {
			err = fmt.Errorf("%w\n%s", err, details)
		}
		return uc.failed(action.Name, err)
	}

	uc.logger.Debug("Tool completed", "action", action.Name, "success", ok, "detailsLen", len(details))
	return entity.Outcome{
		Success: ok,
		Action:  action.Name,
		Details: truncateHeadTail(details, uc.maxDetails),
	}
}

func (uc *UseCase) failed(name entity.ActionName, err error) entity.Outcome {
	return entity.Outcome{
		Success: false,
		Action:  name,
		Details: "Error: " + truncateHeadTail(err.Error(), uc.maxDetails),
	}
}

func (uc *UseCase) writeFile(args entity.Arguments) (string, error) {
	path := args.String("path")
	content := args.String("content")
	if err := uc.deps.FS.WriteFile(path, content); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(content), path), nil
}

// runFile succeeds only when the program exits with code 0.
func (uc *UseCase) runFile(ctx context.Context, args entity.Arguments) (string, bool, error) {
	path := args.String("path")
	res, err := uc.deps.Process.RunFile(ctx, path, strings.Fields(args.String("args"))...)
	if err != nil {
		return partialExec(res), false, fmt.Errorf("run %s: %w", path, err)
	}
	return formatExec(res), res.Succeeded(), nil
}

func (uc *UseCase) runTests(ctx context.Context, args entity.Arguments) (string, bool, error) {
	target := args.StringOr("path", args.StringOr("pattern", "."))
	res, err := uc.deps.Process.RunTests(ctx, target)
	if err != nil {
		return partialExec(res), false, fmt.Errorf("run tests: %w", err)
	}
	verdict := "Tests passed"
	if !res.Succeeded() {
		verdict = "Tests failed"
	}
	return verdict + "\n" + formatExec(res), res.Succeeded(), nil
}

func (uc *UseCase) listFiles(args entity.Arguments) (string, error) {
	listing, err := uc.deps.FS.ListFiles(args.StringOr("path", "."))
	if err != nil {
		return "", fmt.Errorf("list %s: %w", args.StringOr("path", "."), err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d file(s), %d dir(s)\n", listing.Path, len(listing.Files), len(listing.Directories))
	for _, f := range listing.Files {
		fmt.Fprintf(&b, "  %s (%d bytes)\n", f.Name, f.Size)
	}
	for _, d := range listing.Directories {
		fmt.Fprintf(&b, "  %s/\n", d)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (uc *UseCase) readFile(args entity.Arguments) (string, error) {
	path := args.String("path")
	file, err := uc.deps.FS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return fmt.Sprintf("%s (%d lines, %d bytes):\n%s", file.Path, file.Lines, file.Size, file.Content), nil
}

func (uc *UseCase) webScrape(ctx context.Context, args entity.Arguments) (string, error) {
	url := args.String("url")
	page, err := uc.deps.Scraper.Scrape(ctx, url, args.String("selector"))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s (status %d)\n", page.URL, page.Status)
	if page.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", page.Title)
	}
	if page.Selector != "" {
		fmt.Fprintf(&b, "%d element(s) match %q\n", len(page.Elements), page.Selector)
		for i, el := range page.Elements {
			fmt.Fprintf(&b, "%d. <%s> %s", i+1, el.Tag, el.Text)
			if href, ok := el.Attr["href"]; ok {
				fmt.Fprintf(&b, " [%s]", href)
			}
			b.WriteByte('\n')
		}
		return strings.TrimRight(b.String(), "\n"), nil
	}

	if page.Text != "" {
		fmt.Fprintf(&b, "Text:\n%s\n", page.Text)
	}
	if len(page.Links) > 0 {
		fmt.Fprintf(&b, "Links (%d):\n", len(page.Links))
		for _, l := range page.Links {
			fmt.Fprintf(&b, "- %s: %s\n", l.Text, l.Href)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (uc *UseCase) analyzeImage(ctx context.Context, args entity.Arguments) (string, error) {
	if uc.deps.Vision == nil {
		return "", fmt.Errorf("no vision model configured")
	}

	var (
		data   []byte
		source string
		err    error
	)
	switch {
	case args.String("path") != "":
		source = args.String("path")
		data, err = uc.deps.FS.ReadBytes(source)
		if err != nil {
			return "", fmt.Errorf("read image %s: %w", source, err)
		}
	case args.String("url") != "":
		source = args.String("url")
		if uc.deps.Renderer == nil {
			return "", fmt.Errorf("screenshots need the browser backend")
		}
		shot, err := uc.deps.Renderer.Screenshot(ctx, source)
		if err != nil {
			return "", fmt.Errorf("screenshot %s: %w", source, err)
		}
		data = shot.Data
	default:
		return "", fmt.Errorf("analyze_image needs a path or a url")
	}

	mime := ""
	if uc.deps.Images != nil {
		data, mime, err = uc.deps.Images.Prepare(data)
		if err != nil {
			return "", fmt.Errorf("prepare image %s: %w", source, err)
		}
	}

	analysis, err := uc.deps.Vision.Analyze(ctx, output.VisionRequest{
		Image:    data,
		MIMEType: mime,
		Prompt:   args.StringOr("prompt", defaultImagePrompt),
	})
	if err != nil {
		return "", fmt.Errorf("vision analysis: %w", err)
	}
	return fmt.Sprintf("Analysis of %s:\n%s", source, analysis), nil
}

// partialExec keeps whatever a process printed before it failed.
func partialExec(res entity.ExecResult) string {
	if res.Command == "" {
		return ""
	}
	return formatExec(res)
}

func formatExec(res entity.ExecResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Exit code: %d", res.ExitCode)
	if res.Stdout != "" {
		fmt.Fprintf(&b, "\nstdout:\n%s", strings.TrimRight(res.Stdout, "\n"))
	}
	if res.Stderr != "" {
		fmt.Fprintf(&b, "\nstderr:\n%s", strings.TrimRight(res.Stderr, "\n"))
	}
	return b.String()
}
