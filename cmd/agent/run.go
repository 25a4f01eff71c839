package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"task-agent/internal/application/port/input"
	"task-agent/internal/domain/entity"
	"task-agent/internal/infrastructure/userinteraction"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	maxIterations int
	outputFormat  string
)

var runCmd = &cobra.Command{
	Use:   "run [request]",
	Short: "Run the action loop once for a request and print the result",
	Long: `Runs the choose, execute, judge loop for one request. Progress goes to
stderr; the final result goes to stdout as text, json or yaml.

Example:
  agent run "create greet.py that prints hi, then run it" --max-iterations 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRequest,
}

func init() {
	runCmd.Flags().IntVarP(&maxIterations, "max-iterations", "n", -1, "iteration budget (default MAX_ITERATIONS)")
	runCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "result format: text, json or yaml")
}

// report is the printed form of a run.
type report struct {
	entity.RunResult `yaml:",inline"`
	FinalStatus      string `json:"final_status" yaml:"final_status"`
}

func runRequest(cmd *cobra.Command, args []string) error {
	request := strings.TrimSpace(strings.Join(args, " "))
	if request == "" {
		return fmt.Errorf("request is empty")
	}
	if outputFormat != "text" && outputFormat != "json" && outputFormat != "yaml" {
		return fmt.Errorf("unknown format %q", outputFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	budget := cfg.MaxIterations
	if maxIterations >= 0 {
		budget = maxIterations
	}

	ctx := cmd.Context()
	container, err := newContainer(ctx, cfg, request, os.Stderr)
	if err != nil {
		return err
	}
	defer container.Close()

	container.Logger.Info("Task started", "request", request, "maxIterations", budget)
	result, err := container.TaskExecutor.Execute(ctx, request, input.ExecuteOptions{MaxIterations: budget})
	if err != nil {
		container.Logger.Error("Task failed", "error", err)
		return err
	}
	container.Logger.Info("Task completed", "status", result.Status, "iterations", result.Iterations)

	return printResult(cmd.OutOrStdout(), result, outputFormat)
}

func printResult(w io.Writer, result *entity.RunResult, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report{RunResult: *result, FinalStatus: result.FinalStatus()})
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report{RunResult: *result, FinalStatus: result.FinalStatus()}); err != nil {
			return err
		}
		return enc.Close()
	default:
		userinteraction.NewConsoleUserInteraction(userinteraction.Options{Out: w}).ShowSummary(result)
		return nil
	}
}
