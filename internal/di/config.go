package di

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"task-agent/internal/application/port/output"
	"task-agent/internal/domain/entity"
	"task-agent/internal/infrastructure/llm/openaicompat"
	"task-agent/internal/infrastructure/logger"
	"task-agent/internal/infrastructure/scraper"
)

const (
	ProviderOpenAI           = "openai"
	ProviderLangchainMistral = "langchain-mistral"
	ProviderLangchainOllama  = "langchain-ollama"
	ProviderGemini           = "gemini"

	JudgeOracle    = "oracle"
	JudgeHeuristic = "heuristic"

	BackendHTTP    = "http"
	BackendBrowser = "browser"
)

// Config is built once by the driver and passed to NewContainer. Nothing
// below reads the environment on its own.
type Config struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
	Temperature float64
	MaxTokens   int
	LLMTimeout  time.Duration
	MaxRetries  int
	OllamaURL   string

	MaxIterations     int
	ChatMaxIterations int
	FeedbackActions   []entity.ActionName
	JudgeMode         string
	MaxDetailsLen     int

	WorkspaceDir string
	PythonBin    string
	TestCommand  string
	ExecTimeout  time.Duration

	ScraperBackend  string
	UserAgent       string
	HTTPTimeout     time.Duration
	BrowserHeadless bool
	BrowserBin      string
	ImageMaxSide    int

	ChatMemoryPairs int
	ChatMemory      bool
	Spinner         bool
	Markdown        bool

	Log logger.Config
}

func LoadConfig(env output.ConfigPort) (Config, error) {
	cfg := Config{
		Provider:    strings.ToLower(env.GetWithDefault("LLM_PROVIDER", ProviderOpenAI)),
		BaseURL:     env.Get("LLM_BASE_URL"),
		Model:       env.Get("LLM_MODEL"),
		VisionModel: env.Get("VISION_MODEL"),
		Temperature: env.GetFloat("LLM_TEMPERATURE", 0.7),
		MaxTokens:   env.GetInt("LLM_MAX_TOKENS", 8000),
		LLMTimeout:  env.GetDuration("LLM_TIMEOUT", 60*time.Second),
		MaxRetries:  env.GetInt("LLM_MAX_RETRIES", 2),
		OllamaURL:   env.Get("OLLAMA_URL"),

		MaxIterations:     env.GetInt("MAX_ITERATIONS", 5),
		ChatMaxIterations: env.GetInt("CHAT_MAX_ITERATIONS", 3),
		JudgeMode:         strings.ToLower(env.GetWithDefault("JUDGE_MODE", JudgeOracle)),
		MaxDetailsLen:     env.GetInt("MAX_DETAILS_LEN", 4000),

		WorkspaceDir: env.GetWithDefault("WORKSPACE_DIR", "."),
		PythonBin:    env.GetWithDefault("PYTHON_BIN", "python3"),
		TestCommand:  env.Get("TEST_COMMAND"),
		ExecTimeout:  env.GetDuration("EXEC_TIMEOUT", 60*time.Second),

		ScraperBackend:  strings.ToLower(env.GetWithDefault("SCRAPER_BACKEND", BackendHTTP)),
		UserAgent:       env.GetWithDefault("SCRAPER_USER_AGENT", scraper.DefaultUserAgent),
		HTTPTimeout:     env.GetDuration("HTTP_TIMEOUT", 30*time.Second),
		BrowserHeadless: env.GetBool("BROWSER_HEADLESS", true),
		BrowserBin:      env.Get("BROWSER_BIN"),
		ImageMaxSide:    env.GetInt("IMAGE_MAX_SIDE", 1024),

		ChatMemoryPairs: env.GetInt("CHAT_MEMORY_PAIRS", 5),
		ChatMemory:      env.GetBool("CHAT_MEMORY", false),
		Spinner:         env.GetBool("SPINNER", true),
		Markdown:        env.GetBool("MARKDOWN", true),

		Log: logger.Config{
			Level:  env.GetWithDefault("LOG_LEVEL", "info"),
			Format: env.GetWithDefault("LOG_FORMAT", "console"),
			File:   env.Get("LOG_FILE"),
		},
	}

	switch cfg.Provider {
	case ProviderOpenAI, ProviderLangchainMistral:
		cfg.APIKey = firstNonEmpty(env.Get("LLM_API_KEY"), env.Get("MISTRAL_API_KEY"))
		if cfg.Model == "" {
			cfg.Model = "mistral-small-latest"
		}
		if cfg.VisionModel == "" {
			cfg.VisionModel = "pixtral-12b-2409"
		}
		if cfg.Provider == ProviderOpenAI && cfg.BaseURL == "" {
			cfg.BaseURL = openaicompat.DefaultBaseURL
		}
	case ProviderGemini:
		cfg.APIKey = firstNonEmpty(env.Get("LLM_API_KEY"), env.Get("GEMINI_API_KEY"), env.Get("GOOGLE_API_KEY"))
		if cfg.Model == "" {
			cfg.Model = "gemini-2.0-flash"
		}
	case ProviderLangchainOllama:
		if cfg.Model == "" {
			cfg.Model = "llama3.2"
		}
	default:
		return cfg, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.Provider)
	}
	if cfg.APIKey == "" && cfg.Provider != ProviderLangchainOllama {
		return cfg, errors.New("LLM_API_KEY is missing")
	}

	actions, err := parseActions(env.GetList("FEEDBACK_ACTIONS", []string{"write_file", "run_file", "run_tests"}))
	if err != nil {
		return cfg, fmt.Errorf("FEEDBACK_ACTIONS: %w", err)
	}
	cfg.FeedbackActions = actions

	if cfg.JudgeMode != JudgeOracle && cfg.JudgeMode != JudgeHeuristic {
		return cfg, fmt.Errorf("unknown JUDGE_MODE %q", cfg.JudgeMode)
	}
	if cfg.ScraperBackend != BackendHTTP && cfg.ScraperBackend != BackendBrowser {
		return cfg, fmt.Errorf("unknown SCRAPER_BACKEND %q", cfg.ScraperBackend)
	}
	if cfg.MaxIterations < 0 || cfg.ChatMaxIterations < 0 {
		return cfg, errors.New("iteration limits must not be negative")
	}
	return cfg, nil
}

func parseActions(names []string) ([]entity.ActionName, error) {
	result := make([]entity.ActionName, 0, len(names))
	for _, raw := range names {
		name, err := entity.ParseActionName(raw)
		if err != nil {
			return nil, err
		}
		if name == entity.ActionStop {
			return nil, errors.New("stop is never dispatched and cannot be judged")
		}
		result = append(result, name)
	}
	return result, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
