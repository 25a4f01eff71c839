package userinteraction

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"task-agent/internal/application/port/output"
	"task-agent/internal/domain/entity"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
)

var _ output.UserInteractionPort = (*ConsoleUserInteraction)(nil)

var ErrInputClosed = errors.New("input closed")

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type Options struct {
	In       io.Reader
	Out      io.Writer
	Spinner  bool
	Markdown bool
	// DetailsLimit bounds outcome details printed per iteration; 0 prints all.
	DetailsLimit int
}

type ConsoleUserInteraction struct {
	mu       sync.Mutex
	reader   *bufio.Reader
	out      io.Writer
	spinner  bool
	renderer *glamour.TermRenderer
	limit    int
}

func NewConsoleUserInteraction(opts Options) *ConsoleUserInteraction {
	in := opts.In
	if in == nil {
		in = os.Stdin
	}
	out := opts.Out
	if out == nil {
		out = color.Output
	}

	var renderer *glamour.TermRenderer
	if opts.Markdown {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
	}

	return &ConsoleUserInteraction{
		reader:   bufio.NewReader(in),
		out:      out,
		spinner:  opts.Spinner,
		renderer: renderer,
		limit:    opts.DetailsLimit,
	}
}

// ReadLine prints the prompt and returns the next trimmed input line.
func (u *ConsoleUserInteraction) ReadLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	u.print(color.New(color.FgGreen, color.Bold), "%s", prompt)

	line, err := u.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrInputClosed
		}
		return "", fmt.Errorf("failed to read user input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (u *ConsoleUserInteraction) ShowIteration(ctx context.Context, iteration, maxIterations int) {
	u.print(color.New(color.FgCyan, color.Bold), "\n━━━ Iteration %d/%d ━━━\n", iteration, maxIterations)
}

func (u *ConsoleUserInteraction) ShowAction(ctx context.Context, action entity.Action) {
	u.print(color.New(color.FgYellow, color.Bold), "%s %s\n", actionIcon(action.Name), action.Name)
	if args := formatArguments(action.Arguments); args != "" {
		u.print(color.New(color.Faint), "   %s\n", args)
	}
	if action.Reasoning != "" {
		u.print(color.New(color.FgBlue), "   💭 %s\n", truncate(action.Reasoning, 300))
	}
}

func (u *ConsoleUserInteraction) ShowOutcome(ctx context.Context, outcome entity.Outcome) {
	details := outcome.Details
	if u.limit > 0 {
		details = truncate(details, u.limit)
	}
	if outcome.Success {
		u.print(color.New(color.FgGreen), "✓ %s\n", details)
		return
	}
	u.print(color.New(color.FgRed), "❌ %s\n", details)
}

func (u *ConsoleUserInteraction) ShowFeedback(ctx context.Context, feedback entity.Feedback) {
	verdict := "stop"
	if feedback.ShouldContinue {
		verdict = "continue"
	}
	u.print(color.New(color.FgMagenta), "⚖️  %s (confidence %.2f) %s\n", verdict, feedback.Confidence, feedback.Message)
}

// ShowThinking animates a spinner until done is called. done blocks until
// the spinner goroutine has exited and cleared its line.
func (u *ConsoleUserInteraction) ShowThinking(ctx context.Context, message string) func() {
	if !u.spinner {
		u.print(color.New(color.Faint), "… %s\n", message)
		return func() {}
	}

	stop := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		frame := 0
		for {
			u.print(color.New(color.FgCyan), "\r%s %s", spinnerFrames[frame%len(spinnerFrames)], message)
			frame++
			select {
			case <-stop:
				u.print(nil, "\r%s\r", strings.Repeat(" ", len(message)+4))
				return
			case <-ctx.Done():
				u.print(nil, "\r%s\r", strings.Repeat(" ", len(message)+4))
				return
			case <-ticker.C:
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-finished
		})
	}
}

func (u *ConsoleUserInteraction) ShowSummary(result *entity.RunResult) {
	u.print(color.New(color.FgCyan, color.Bold), "\n🏁 FINAL RESULT\n")
	u.print(nil, "📊 %d iteration(s)\n", result.Iterations)
	u.print(nil, "✅ Status: %s (%s)\n", result.FinalStatus(), result.Status)
	if result.Reason != "" {
		u.print(nil, "📝 %s\n", result.Reason)
	}
	for _, entry := range result.History {
		mark, c := "✓", color.New(color.FgGreen)
		if !entry.Outcome.Success {
			mark, c = "✗", color.New(color.FgRed)
		}
		u.print(c, "  %d. %s %s: %s\n", entry.Iteration, mark, entry.Action.Name, truncate(oneLine(entry.Outcome.Details), 120))
	}
}

// ShowMarkdown renders an assistant reply, falling back to plain text.
func (u *ConsoleUserInteraction) ShowMarkdown(text string) {
	if u.renderer != nil {
		if rendered, err := u.renderer.Render(text); err == nil {
			u.print(nil, "%s", rendered)
			return
		}
	}
	u.print(nil, "%s\n", text)
}

// ClearScreen moves the cursor home and erases the terminal.
func (u *ConsoleUserInteraction) ClearScreen() {
	u.print(nil, "\033[H\033[2J")
}

func (u *ConsoleUserInteraction) Info(format string, args ...any) {
	u.print(color.New(color.FgCyan), format+"\n", args...)
}

func (u *ConsoleUserInteraction) Success(format string, args ...any) {
	u.print(color.New(color.FgGreen), format+"\n", args...)
}

func (u *ConsoleUserInteraction) Error(format string, args ...any) {
	u.print(color.New(color.FgRed, color.Bold), format+"\n", args...)
}

func (u *ConsoleUserInteraction) Plain(format string, args ...any) {
	u.print(nil, format+"\n", args...)
}

func (u *ConsoleUserInteraction) print(c *color.Color, format string, args ...any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if c == nil {
		fmt.Fprintf(u.out, format, args...)
		return
	}
	c.Fprintf(u.out, format, args...)
}

func actionIcon(name entity.ActionName) string {
	switch name {
	case entity.ActionWriteFile:
		return "📝"
	case entity.ActionRunFile:
		return "▶️"
	case entity.ActionListFiles:
		return "📁"
	case entity.ActionReadFile:
		return "📖"
	case entity.ActionRunTests:
		return "🧪"
	case entity.ActionWebScrape:
		return "🌐"
	case entity.ActionAnalyzeImage:
		return "🖼️"
	case entity.ActionChooseTool:
		return "🔧"
	case entity.ActionStop:
		return "⏹️"
	default:
		return "•"
	}
}

func formatArguments(args entity.Arguments) string {
	parts := make([]string, 0, len(args))
	for _, key := range args.Keys() {
		val := oneLine(args.String(key))
		if key == "content" {
			val = fmt.Sprintf("<%d chars>", len(args.String(key)))
		}
		parts = append(parts, fmt.Sprintf("%s=%s", key, truncate(val, 60)))
	}
	return strings.Join(parts, " ")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen] + "..."
}
