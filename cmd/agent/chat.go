package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"task-agent/internal/application/port/input"
	"task-agent/internal/domain/entity"
	"task-agent/internal/infrastructure/userinteraction"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat with a function mode that runs the action loop",
	Long: `Starts the interactive chat. In normal mode text goes straight to the
language model; in function mode each message is a request for the action
loop. Type /help for the list of commands.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	container, err := newContainer(ctx, cfg, "chat", nil)
	if err != nil {
		return err
	}
	defer container.Close()

	r := &repl{
		console:       container.Console,
		executor:      container.TaskExecutor,
		chat:          container.Chat,
		maxIterations: cfg.ChatMaxIterations,
	}
	return r.run(ctx)
}

type repl struct {
	console       *userinteraction.ConsoleUserInteraction
	executor      input.TaskExecutor
	chat          input.ChatSession
	maxIterations int

	functionMode bool
}

type lineResult struct {
	text string
	err  error
}

func (r *repl) banner() {
	r.console.Success("✨ Welcome! Type /help for commands, /quit to leave.")
	r.console.Plain("💡 Tip: /memoire keeps the conversation context between messages.")
}

func (r *repl) run(ctx context.Context) error {
	r.banner()

	for {
		line, err := r.readLine(ctx)
		if err != nil {
			if errors.Is(err, userinteraction.ErrInputClosed) {
				r.console.Plain("\n👋 Goodbye!")
				return nil
			}
			return err
		}
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := r.command(line); quit {
				return nil
			}
			continue
		}

		if err := r.handle(ctx, line); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.console.Error("❌ %v", err)
			if entity.IsFatal(err) {
				r.console.Plain("Check LLM_API_KEY and LLM_BASE_URL, then try again.")
			}
		}
	}
}

// readLine returns early on cancellation; the pending read is abandoned.
func (r *repl) readLine(ctx context.Context) (string, error) {
	ch := make(chan lineResult, 1)
	prompt := r.prompt()
	go func() {
		text, err := r.console.ReadLine(ctx, prompt)
		ch <- lineResult{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.text, res.err
	}
}

func (r *repl) prompt() string {
	mode := "💬 CHAT"
	if r.functionMode {
		mode = "🔧 FUNCTION"
	}
	memory := "🧠 off"
	if r.chat.MemoryEnabled() {
		memory = "🧠 on"
	}
	return fmt.Sprintf("\n[%s | %s] You: ", mode, memory)
}

func (r *repl) command(line string) (quit bool) {
	switch strings.ToLower(strings.Fields(line)[0]) {
	case "/quit", "/exit", "/q":
		r.console.Plain("\n👋 Goodbye!")
		return true
	case "/aide", "/help", "/h":
		r.help()
	case "/function":
		r.functionMode = true
		r.console.Info("🔧 Function mode on: requests now run the action loop (%d iterations max).", r.maxIterations)
	case "/normal":
		r.functionMode = false
		r.console.Info("💬 Chat mode on.")
		if n := len(r.chat.History()); n > 0 {
			r.console.Plain("🧠 %d exchange(s) kept in memory", n)
		}
	case "/memoire", "/memory":
		r.chat.SetMemory(!r.chat.MemoryEnabled())
		if r.chat.MemoryEnabled() {
			r.console.Info("🧠 Memory enabled.")
		} else {
			r.console.Info("🧠 Memory disabled.")
		}
	case "/historique", "/history":
		r.history()
	case "/clear", "/cls":
		r.chat.Clear()
		r.console.ClearScreen()
		r.banner()
		r.console.Success("✨ Memory cleared. New conversation.")
	default:
		r.console.Error("Unknown command %s, type /help", line)
	}
	return false
}

func (r *repl) help() {
	r.console.Info("Commands:")
	for _, c := range [][2]string{
		{"/help", "show this help"},
		{"/function", "run requests through the action loop"},
		{"/normal", "back to plain chat"},
		{"/memoire", "toggle conversation memory"},
		{"/historique", "show the remembered conversation"},
		{"/clear", "clear the screen and forget the conversation"},
		{"/quit", "leave"},
	} {
		r.console.Plain("  %-12s %s", c[0], c[1])
	}
}

func (r *repl) history() {
	exchanges := r.chat.History()
	if len(exchanges) == 0 {
		r.console.Plain("No history yet.")
		return
	}
	for _, ex := range exchanges {
		r.console.Plain("👤 %s", clip(ex.User, 100))
		r.console.Plain("🤖 %s", clip(ex.Assistant, 100))
	}
	r.console.Plain("Total: %d exchange(s) in memory", len(exchanges))
}

func (r *repl) handle(ctx context.Context, line string) error {
	if r.functionMode {
		result, err := r.executor.Execute(ctx, line, input.ExecuteOptions{MaxIterations: r.maxIterations})
		if err != nil {
			return err
		}
		r.console.ShowSummary(result)
		return nil
	}

	done := r.console.ShowThinking(ctx, "Thinking")
	reply, err := r.chat.Send(ctx, line)
	done()
	if err != nil {
		return err
	}
	r.console.ShowMarkdown(reply)
	return nil
}

func clip(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
