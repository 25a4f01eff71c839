package di

import (
	"context"
	"fmt"
	"io"
	"os"

	"task-agent/internal/application/port/input"
	"task-agent/internal/application/port/output"
	"task-agent/internal/application/service"
	"task-agent/internal/infrastructure/browser/rod"
	"task-agent/internal/infrastructure/imageprep"
	"task-agent/internal/infrastructure/llm"
	"task-agent/internal/infrastructure/llm/gemini"
	"task-agent/internal/infrastructure/llm/langchain"
	"task-agent/internal/infrastructure/llm/openaicompat"
	"task-agent/internal/infrastructure/logger"
	"task-agent/internal/infrastructure/scraper"
	"task-agent/internal/infrastructure/userinteraction"
	"task-agent/internal/infrastructure/workspace"
	"task-agent/internal/usecase/chat"
	"task-agent/internal/usecase/chooser"
	"task-agent/internal/usecase/dispatcher"
	"task-agent/internal/usecase/evaluator"
	"task-agent/internal/usecase/executor"
)

type oracle interface {
	output.TextOracle
	output.VisionOracle
}

type Container struct {
	Logger       output.LoggerPort
	Oracle       output.TextOracle
	Renderer     output.PageRendererPort
	Console      *userinteraction.ConsoleUserInteraction
	Chooser      output.ActionChooser
	Dispatcher   output.ToolDispatcher
	Judge        output.ContinuationJudge
	TaskExecutor input.TaskExecutor
	Chat         input.ChatSession
}

// NewContainer wires every adapter from cfg. in and out back the console;
// nil means stdin and stdout.
func NewContainer(ctx context.Context, cfg Config, in io.Reader, out io.Writer) (*Container, error) {
	log, err := logger.NewLoggerAdapter(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	oracle, err := newOracle(ctx, cfg, log)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}

	if info, err := os.Stat(cfg.WorkspaceDir); err != nil || !info.IsDir() {
		log.Close()
		return nil, fmt.Errorf("workspace %q is not a directory", cfg.WorkspaceDir)
	}
	fs, err := workspace.NewFilesystem(cfg.WorkspaceDir)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}
	runner, err := workspace.NewRunner(workspace.RunnerConfig{
		BaseDir:     cfg.WorkspaceDir,
		PythonBin:   cfg.PythonBin,
		TestCommand: cfg.TestCommand,
		Timeout:     cfg.ExecTimeout,
	})
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create process runner: %w", err)
	}

	browserCfg := rod.DefaultConfig()
	browserCfg.Headless = cfg.BrowserHeadless
	browserCfg.Bin = cfg.BrowserBin
	if cfg.HTTPTimeout > 0 {
		browserCfg.Timeout = cfg.HTTPTimeout
	}
	renderer := rod.NewRenderer(browserCfg, log.WithField("component", "browser"))

	var pageScraper output.ScraperPort
	if cfg.ScraperBackend == BackendBrowser {
		pageScraper = scraper.NewRenderedScraper(renderer)
	} else {
		pageScraper = scraper.NewHTTPScraper(scraper.Config{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.HTTPTimeout,
			Logger:    log.WithField("component", "scraper"),
		})
	}

	console := userinteraction.NewConsoleUserInteraction(userinteraction.Options{
		In:           in,
		Out:          out,
		Spinner:      cfg.Spinner,
		Markdown:     cfg.Markdown,
		DetailsLimit: cfg.MaxDetailsLen,
	})

	actionChooser := chooser.New(oracle, service.NewActionCatalog(), log.WithField("component", "chooser"), "")
	toolDispatcher := dispatcher.New(dispatcher.Dependencies{
		FS:       fs,
		Process:  runner,
		Scraper:  pageScraper,
		Vision:   oracle,
		Images:   imageprep.NewPreparer(cfg.ImageMaxSide),
		Renderer: renderer,
	}, log.WithField("component", "dispatcher"), cfg.MaxDetailsLen)

	var judge output.ContinuationJudge
	if cfg.JudgeMode == JudgeHeuristic {
		judge = evaluator.NewHeuristic(log.WithField("component", "judge"))
	} else {
		judge = evaluator.New(oracle, log.WithField("component", "judge"), "")
	}
	judge = evaluator.NewSafe(judge, log)

	taskExecutor := executor.New(actionChooser, toolDispatcher, judge, console, log, executor.Config{
		MaxIterations:   cfg.MaxIterations,
		FeedbackActions: cfg.FeedbackActions,
	})

	chatSession := chat.New(oracle, service.NewConversationMemory(cfg.ChatMemoryPairs), log.WithField("component", "chat"), "")
	chatSession.SetMemory(cfg.ChatMemory)

	log.Info("Container ready",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"judge", cfg.JudgeMode,
		"scraper", cfg.ScraperBackend,
		"workspace", fs.BaseDir(),
	)

	return &Container{
		Logger:       log,
		Oracle:       oracle,
		Renderer:     renderer,
		Console:      console,
		Chooser:      actionChooser,
		Dispatcher:   toolDispatcher,
		Judge:        judge,
		TaskExecutor: taskExecutor,
		Chat:         chatSession,
	}, nil
}

func (c *Container) Close() {
	if c.Renderer != nil {
		c.Renderer.Close()
	}
	if c.Logger != nil {
		c.Logger.Close()
	}
}

func newOracle(ctx context.Context, cfg Config, log output.LoggerPort) (oracle, error) {
	retry := llm.DefaultRetryPolicy()
	retry.MaxRetries = cfg.MaxRetries
	log = log.WithField("component", "llm")

	switch cfg.Provider {
	case ProviderLangchainMistral, ProviderLangchainOllama:
		lcCfg := langchain.Config{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.LLMTimeout,
			Retry:       retry,
			Logger:      log,
		}
		if cfg.Provider == ProviderLangchainOllama {
			return langchain.NewOllama(cfg.OllamaURL, cfg.Model, cfg.VisionModel, lcCfg)
		}
		return langchain.NewMistral(cfg.APIKey, cfg.Model, cfg.VisionModel, lcCfg)
	case ProviderGemini:
		return gemini.NewAdapter(ctx, gemini.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			VisionModel: cfg.VisionModel,
			Temperature: float32(cfg.Temperature),
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.LLMTimeout,
			Retry:       retry,
			Logger:      log,
		})
	default:
		return openaicompat.NewAdapter(openaicompat.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			VisionModel: cfg.VisionModel,
			Temperature: float32(cfg.Temperature),
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.LLMTimeout,
			Retry:       retry,
			Logger:      log,
		})
	}
}
