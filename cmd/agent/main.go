package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"task-agent/internal/di"
	"task-agent/internal/infrastructure/env"
	"task-agent/internal/infrastructure/logger"

	"github.com/spf13/cobra"
)

var (
	verbose   bool
	workspace string
	judgeMode string
	provider  string
)

var rootCmd = &cobra.Command{
	Use:   "agent",
	Short: "Iterative task agent: choose an action, run it, judge, repeat",
	Long: `agent completes a request by repeatedly asking a language model for the
next tool call (write, run, read or list files, run tests, scrape a page,
analyze an image), executing it and deciding whether to continue.

Run without arguments to start the interactive chat.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory (default WORKSPACE_DIR or .)")
	rootCmd.PersistentFlags().StringVar(&judgeMode, "judge", "", "continuation judge: oracle or heuristic")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "llm provider: openai, langchain-mistral, langchain-ollama, gemini")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(runCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "\n👋 Interrupted. Goodbye!")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies command line overrides.
func loadConfig() (di.Config, error) {
	envService := env.NewEnvService()
	if provider != "" {
		if err := os.Setenv("LLM_PROVIDER", provider); err != nil {
			return di.Config{}, err
		}
	}
	cfg, err := di.LoadConfig(envService)
	if err != nil {
		return cfg, err
	}
	if workspace != "" {
		cfg.WorkspaceDir = workspace
	}
	if judgeMode != "" {
		if judgeMode != di.JudgeOracle && judgeMode != di.JudgeHeuristic {
			return cfg, fmt.Errorf("unknown judge %q", judgeMode)
		}
		cfg.JudgeMode = judgeMode
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// newContainer writes console output to out, stdout when nil. Unless
// --verbose is set, logs go to a per-run file so they do not mix with it.
func newContainer(ctx context.Context, cfg di.Config, name string, out io.Writer) (*di.Container, error) {
	if cfg.Log.File == "" && !verbose {
		cfg.Log.File = logger.TaskLogPath("logs", name)
	}
	container, err := di.NewContainer(ctx, cfg, os.Stdin, out)
	if err != nil {
		return nil, fmt.Errorf("initialization failed: %w", err)
	}
	return container, nil
}
