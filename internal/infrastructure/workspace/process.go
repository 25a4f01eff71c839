package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"task-agent/internal/application/port/output"
	"task-agent/internal/domain/entity"
)

var _ output.ProcessPort = (*Runner)(nil)

// Runner executes workspace programs and the test runner.
type Runner struct {
	guard       *PathGuard
	pythonBin   string
	testCommand []string
	timeout     time.Duration
}

type RunnerConfig struct {
	BaseDir     string
	PythonBin   string
	TestCommand string
	Timeout     time.Duration
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	guard, err := NewPathGuard(cfg.BaseDir)
	if err != nil {
		return nil, err
	}
	python := cfg.PythonBin
	if python == "" {
		python = "python3"
	}
	testCommand := strings.Fields(cfg.TestCommand)
	if len(testCommand) == 0 {
		testCommand = []string{python, "-m", "pytest"}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Runner{
		guard:       guard,
		pythonBin:   python,
		testCommand: testCommand,
		timeout:     timeout,
	}, nil
}

// RunFile executes path with the interpreter matching its extension. A
// non-zero exit code is reported in the result, not as an error.
func (r *Runner) RunFile(ctx context.Context, path string, args ...string) (entity.ExecResult, error) {
	resolved, err := r.guard.Resolve(path)
	if err != nil {
		return entity.ExecResult{}, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return entity.ExecResult{}, err
	}
	if info.IsDir() {
		return entity.ExecResult{}, fmt.Errorf("%s is a directory", path)
	}

	command, cmdArgs := r.interpreterFor(resolved)
	return r.exec(ctx, command, append(cmdArgs, args...)...)
}

func (r *Runner) RunTests(ctx context.Context, target string) (entity.ExecResult, error) {
	args := append([]string{}, r.testCommand[1:]...)
	if target != "" && target != "." {
		if _, err := r.guard.Resolve(target); err != nil {
			return entity.ExecResult{}, err
		}
		args = append(args, target)
	}
	return r.exec(ctx, r.testCommand[0], args...)
}

func (r *Runner) interpreterFor(path string) (string, []string) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return r.pythonBin, []string{path}
	case ".sh":
		return "sh", []string{path}
	case ".js":
		return "node", []string{path}
	case ".go":
		return "go", []string{"run", path}
	default:
		return path, nil
	}
}

func (r *Runner) exec(ctx context.Context, command string, args ...string) (entity.ExecResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = r.guard.BaseDir
	// Children that inherit the pipes must not hold Run open past the kill.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := entity.ExecResult{
		Command: strings.TrimSpace(command + " " + strings.Join(args, " ")),
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.ExitCode = -1
		return res, fmt.Errorf("%s timed out after %s", command, r.timeout)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		res.ExitCode = -1
		return res, err
	}
	return res, nil
}
