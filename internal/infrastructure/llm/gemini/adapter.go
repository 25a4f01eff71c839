package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"task-agent/internal/application/port/output"
	"task-agent/internal/domain/entity"
	"task-agent/internal/infrastructure/llm"

	"google.golang.org/genai"
)

var (
	_ output.TextOracle   = (*Adapter)(nil)
	_ output.VisionOracle = (*Adapter)(nil)
)

// Adapter serves the oracle ports from Google's Gemini API.
type Adapter struct {
	client      *genai.Client
	model       string
	visionModel string
	temperature float32
	maxTokens   int32
	timeout     time.Duration
	retry       llm.RetryPolicy
	logger      output.LoggerPort
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	Retry       llm.RetryPolicy
	Logger      output.LoggerPort
}

func NewAdapter(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, entity.NewFatalError("llm config", errors.New("GenAI API key is required"))
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	visionModel := cfg.VisionModel
	if visionModel == "" {
		visionModel = model
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, entity.NewFatalError("genai client", err)
	}

	return &Adapter{
		client:      client,
		model:       model,
		visionModel: visionModel,
		temperature: cfg.Temperature,
		maxTokens:   int32(cfg.MaxTokens),
		timeout:     cfg.Timeout,
		retry:       cfg.Retry,
		logger:      cfg.Logger,
	}, nil
}

func (a *Adapter) Generate(ctx context.Context, req output.GenerateRequest) (string, error) {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, msg := range req.History {
		if msg.Role == entity.RoleSystem {
			continue
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, convertRole(msg.Role)))
	}
	contents = append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))

	config := a.config()
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Structured {
		config.ResponseMIMEType = "application/json"
	}
	return a.generate(ctx, "chat completion", a.model, contents, config)
}

func (a *Adapter) GenerateJSON(ctx context.Context, prompt string, v any) error {
	raw, err := a.Generate(ctx, output.GenerateRequest{Prompt: prompt, Structured: true})
	if err != nil {
		return err
	}
	return llm.DecodeStructured(raw, v)
}

func (a *Adapter) Analyze(ctx context.Context, req output.VisionRequest) (string, error) {
	if len(req.Image) == 0 {
		return "", errors.New("image is empty")
	}
	mime := req.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(req.Image, mime),
			genai.NewPartFromText(req.Prompt),
		}, genai.RoleUser),
	}
	return a.generate(ctx, "vision completion", a.visionModel, contents, a.config())
}

func (a *Adapter) config() *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(a.temperature),
	}
	if a.maxTokens > 0 {
		config.MaxOutputTokens = a.maxTokens
	}
	return config
}

func (a *Adapter) generate(ctx context.Context, op, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	policy := a.retry
	if policy.OnRetry == nil && a.logger != nil {
		policy.OnRetry = func(err error, attempt int, delay time.Duration) {
			a.logger.Warn("Retrying oracle call", "op", op, "attempt", attempt, "delay", delay, "error", err)
		}
	}

	return llm.Retry(ctx, policy, func(ctx context.Context) (string, error) {
		callCtx := ctx
		if a.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, a.timeout)
			defer cancel()
		}

		resp, err := a.client.Models.GenerateContent(callCtx, model, contents, config)
		if err != nil {
			return "", classify(ctx, op, err)
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return "", fmt.Errorf("%s: %w", op, entity.ErrEmptyResponse)
		}
		return text, nil
	})
}

func classify(ctx context.Context, op string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return llm.ClassifyStatus(op, apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return llm.ClassifyStatus(op, apiErrPtr.Code, err)
	}
	return llm.ClassifyTransport(ctx, op, err)
}

func convertRole(role entity.MessageRole) genai.Role {
	if role == entity.RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}
