package openaicompat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"task-agent/internal/application/port/output"
	"task-agent/internal/domain/entity"
	"task-agent/internal/infrastructure/llm"

	"github.com/sashabaranov/go-openai"
)

var (
	_ output.TextOracle   = (*Adapter)(nil)
	_ output.VisionOracle = (*Adapter)(nil)
)

const DefaultBaseURL = "https://api.mistral.ai/v1"

// Adapter talks to any OpenAI-compatible chat completions endpoint
// (Mistral, OpenRouter, OpenAI, vLLM...).
type Adapter struct {
	client      *openai.Client
	model       string
	visionModel string
	temperature float32
	maxTokens   int
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

func DefaultConfig(apiKey, model string) Config {
	return Config{
		APIKey:      apiKey,
		BaseURL:     DefaultBaseURL,
		Model:       model,
		VisionModel: "pixtral-12b-2409",
		Temperature: 0.7,
		MaxTokens:   8000,
		Timeout:     60 * time.Second,
		Retry:       llm.DefaultRetryPolicy(),
	}
}

type loggingTransport struct {
	base   http.RoundTripper
	logger output.LoggerPort
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	t.logger.Debug("HTTP Request",
		"method", req.Method,
		"url", req.URL.String(),
		"contentLength", req.ContentLength,
	)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Warn("HTTP Request failed", "url", req.URL.String(), "error", err)
		return resp, err
	}

	t.logger.Debug("HTTP Response",
		"status", resp.Status,
		"statusCode", resp.StatusCode,
		"durationMs", time.Since(start).Milliseconds(),
	)
	return resp, err
}

func NewAdapter(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, entity.NewFatalError("llm config", errors.New("api key is empty"))
	}
	if cfg.Model == "" {
		return nil, entity.NewFatalError("llm config", errors.New("model is empty"))
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.Logger != nil {
		config.HTTPClient = &http.Client{
			Transport: &loggingTransport{base: http.DefaultTransport, logger: cfg.Logger},
		}
	}

	visionModel := cfg.VisionModel
	if visionModel == "" {
		visionModel = cfg.Model
	}

	return &Adapter{
		client:      openai.NewClientWithConfig(config),
		model:       cfg.Model,
		visionModel: visionModel,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		retry:       cfg.Retry,
		logger:      cfg.Logger,
	}, nil
}

func (a *Adapter) Generate(ctx context.Context, req output.GenerateRequest) (string, error) {
	request := openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    convertMessages(req),
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	}
	if req.Structured {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return a.complete(ctx, "chat completion", request)
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
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(req.Image))

	request := openai.ChatCompletionRequest{
		Model:       a.visionModel,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	}
	return a.complete(ctx, "vision completion", request)
}

func (a *Adapter) complete(ctx context.Context, op string, request openai.ChatCompletionRequest) (string, error) {
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

		resp, err := a.client.CreateChatCompletion(callCtx, request)
		if err != nil {
			return "", classify(ctx, op, err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("%s: %w", op, entity.ErrEmptyResponse)
		}
		return resp.Choices[0].Message.Content, nil
	})
}

func classify(ctx context.Context, op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return llm.ClassifyStatus(op, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return llm.ClassifyStatus(op, reqErr.HTTPStatusCode, err)
	}
	return llm.ClassifyTransport(ctx, op, err)
}

func convertMessages(req output.GenerateRequest) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.System != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, msg := range req.History {
		result = append(result, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	result = append(result, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})
	return result
}
