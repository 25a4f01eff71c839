package langchain

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"task-agent/internal/application/port/output"
	"task-agent/internal/domain/entity"
	"task-agent/internal/infrastructure/llm"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/mistral"
	"github.com/tmc/langchaingo/llms/ollama"
)

var (
	_ output.TextOracle   = (*Adapter)(nil)
	_ output.VisionOracle = (*Adapter)(nil)
)

// Adapter serves the oracle ports from any langchaingo model.
type Adapter struct {
	model       llms.Model
	vision      llms.Model
	temperature float64
	maxTokens   int
	timeout     time.Duration
	retry       llm.RetryPolicy
	logger      output.LoggerPort
}

type Config struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Retry       llm.RetryPolicy
	Logger      output.LoggerPort
}

// NewAdapter wraps text and vision models. vision may be nil, in which case
// the text model handles image prompts.
func NewAdapter(model, vision llms.Model, cfg Config) *Adapter {
	if vision == nil {
		vision = model
	}
	return &Adapter{
		model:       model,
		vision:      vision,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		retry:       cfg.Retry,
		logger:      cfg.Logger,
	}
}

func NewMistral(apiKey, model, visionModel string, cfg Config) (*Adapter, error) {
	if apiKey == "" {
		return nil, entity.NewFatalError("llm config", errors.New("api key is empty"))
	}
	text, err := mistral.New(mistral.WithAPIKey(apiKey), mistral.WithModel(model))
	if err != nil {
		return nil, entity.NewFatalError("mistral client", err)
	}
	var vision llms.Model
	if visionModel != "" && visionModel != model {
		v, err := mistral.New(mistral.WithAPIKey(apiKey), mistral.WithModel(visionModel))
		if err != nil {
			return nil, entity.NewFatalError("mistral vision client", err)
		}
		vision = v
	}
	return NewAdapter(text, vision, cfg), nil
}

func NewOllama(serverURL, model, visionModel string, cfg Config) (*Adapter, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	text, err := ollama.New(opts...)
	if err != nil {
		return nil, entity.NewFatalError("ollama client", err)
	}
	var vision llms.Model
	if visionModel != "" && visionModel != model {
		visionOpts := []ollama.Option{ollama.WithModel(visionModel)}
		if serverURL != "" {
			visionOpts = append(visionOpts, ollama.WithServerURL(serverURL))
		}
		v, err := ollama.New(visionOpts...)
		if err != nil {
			return nil, entity.NewFatalError("ollama vision client", err)
		}
		vision = v
	}
	return NewAdapter(text, vision, cfg), nil
}

func (a *Adapter) Generate(ctx context.Context, req output.GenerateRequest) (string, error) {
	messages := make([]llms.MessageContent, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	for _, msg := range req.History {
		messages = append(messages, llms.TextParts(convertRole(msg.Role), msg.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	opts := a.callOptions()
	if req.Structured {
		opts = append(opts, llms.WithJSONMode())
	}
	return a.generate(ctx, "chat completion", a.model, messages, opts)
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
	messages := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart(mime, req.Image),
				llms.TextPart(req.Prompt),
			},
		},
	}
	return a.generate(ctx, "vision completion", a.vision, messages, a.callOptions())
}

func (a *Adapter) callOptions() []llms.CallOption {
	opts := []llms.CallOption{llms.WithTemperature(a.temperature)}
	if a.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(a.maxTokens))
	}
	return opts
}

func (a *Adapter) generate(ctx context.Context, op string, model llms.Model, messages []llms.MessageContent, opts []llms.CallOption) (string, error) {
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

		resp, err := model.GenerateContent(callCtx, messages, opts...)
		if err != nil {
			return "", classify(ctx, op, err)
		}
		if resp == nil || len(resp.Choices) == 0 {
			return "", fmt.Errorf("%s: %w", op, entity.ErrEmptyResponse)
		}
		return resp.Choices[0].Content, nil
	})
}

// langchaingo flattens provider errors into strings; status codes are
// recovered from the message when present.
// statusPattern finds an HTTP status in provider error text, e.g.
// "status code: 429" or "(HTTP Error 401)".
var statusPattern = regexp.MustCompile(`(?i)\b(?:status(?:\s+code)?|http(?:\s+error)?)\W{0,3}([1-5]\d\d)\b`)

func classify(ctx context.Context, op string, err error) error {
	msg := err.Error()
	if m := statusPattern.FindStringSubmatch(msg); m != nil {
		status, _ := strconv.Atoi(m[1])
		return llm.ClassifyStatus(op, status, err)
	}

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "unauthorized"), strings.Contains(lower, "forbidden"):
		return llm.ClassifyStatus(op, 401, err)
	case strings.Contains(lower, "rate limit"), strings.Contains(lower, "too many requests"):
		return llm.ClassifyStatus(op, 429, err)
	case strings.Contains(lower, "service unavailable"), strings.Contains(lower, "bad gateway"),
		strings.Contains(lower, "internal server error"):
		return llm.ClassifyStatus(op, 503, err)
	}
	return llm.ClassifyTransport(ctx, op, err)
}

func convertRole(role entity.MessageRole) llms.ChatMessageType {
	switch role {
	case entity.RoleSystem:
		return llms.ChatMessageTypeSystem
	case entity.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
