package langchain

import (
	"context"
	"errors"
	"testing"
	"time"

	"task-agent/internal/application/port/output"
	"task-agent/internal/domain/entity"
	"task-agent/internal/infrastructure/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type stubModel struct {
	replies  []string
	errs     []error
	calls    int
	messages []llms.MessageContent
	options  llms.CallOptions
}

func (m *stubModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	i := m.calls
	m.calls++
	m.messages = messages
	m.options = llms.CallOptions{}
	for _, opt := range options {
		opt(&m.options)
	}
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	reply := ""
	if i < len(m.replies) {
		reply = m.replies[i]
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (m *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func testConfig() Config {
	return Config{
		Temperature: 0.7,
		MaxTokens:   100,
		Timeout:     time.Second,
		Retry:       llm.RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 1},
	}
}

func TestAdapter_GenerateBuildsConversation(t *testing.T) {
	model := &stubModel{replies: []string{"answer"}}
	a := NewAdapter(model, nil, testConfig())

	out, err := a.Generate(context.Background(), output.GenerateRequest{
		System:  "sys",
		History: []entity.Message{{Role: entity.RoleUser, Content: "q1"}, {Role: entity.RoleAssistant, Content: "a1"}},
		Prompt:  "q2",
	})

	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	require.Len(t, model.messages, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, model.messages[2].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[3].Role)
	assert.False(t, model.options.JSONMode)
	assert.Equal(t, 100, model.options.MaxTokens)
}

func TestAdapter_GenerateJSONUsesJSONMode(t *testing.T) {
	model := &stubModel{replies: []string{"```json\n{\"action\":\"list_files\"}\n```"}}
	a := NewAdapter(model, nil, testConfig())

	var v struct {
		Action string `json:"action"`
	}
	require.NoError(t, a.GenerateJSON(context.Background(), "choose", &v))

	assert.Equal(t, "list_files", v.Action)
	assert.True(t, model.options.JSONMode)
}

func TestAdapter_RetriesRateLimit(t *testing.T) {
	model := &stubModel{
		errs:    []error{errors.New("API returned unexpected status code: 429"), nil},
		replies: []string{"", "ok"},
	}
	a := NewAdapter(model, nil, testConfig())

	out, err := a.Generate(context.Background(), output.GenerateRequest{Prompt: "hi"})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, model.calls)
}

func TestAdapter_UnauthorizedIsFatal(t *testing.T) {
	model := &stubModel{errs: []error{errors.New("status code: 401 Unauthorized")}}
	a := NewAdapter(model, nil, testConfig())

	_, err := a.Generate(context.Background(), output.GenerateRequest{Prompt: "hi"})

	require.Error(t, err)
	assert.True(t, entity.IsFatal(err))
	assert.Equal(t, 1, model.calls)
}

func TestAdapter_AnalyzeUsesVisionModel(t *testing.T) {
	text := &stubModel{}
	vision := &stubModel{replies: []string{"a cat"}}
	a := NewAdapter(text, vision, testConfig())

	out, err := a.Analyze(context.Background(), output.VisionRequest{Image: []byte{1, 2, 3}, Prompt: "describe"})

	require.NoError(t, err)
	assert.Equal(t, "a cat", out)
	assert.Equal(t, 0, text.calls)
	require.Len(t, vision.messages, 1)
	parts := vision.messages[0].Parts
	require.Len(t, parts, 2)
	bin, ok := parts[0].(llms.BinaryContent)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", bin.MIMEType)
}

func TestAdapter_AnalyzeRejectsEmptyImage(t *testing.T) {
	a := NewAdapter(&stubModel{}, nil, testConfig())
	_, err := a.Analyze(context.Background(), output.VisionRequest{Prompt: "describe"})
	assert.Error(t, err)
}

func TestNewMistral_RequiresKey(t *testing.T) {
	_, err := NewMistral("", "mistral-small-latest", "", testConfig())
	assert.True(t, entity.IsFatal(err))
}

func TestClassify_StatusInText(t *testing.T) {
	tests := []struct {
		msg       string
		fatal     bool
		status    int
		retryable bool
	}{
		{msg: "API returned unexpected status code: 429", status: 429, retryable: true},
		{msg: "(HTTP Error 401) invalid key", fatal: true},
		{msg: "status 503 Service Unavailable", status: 503, retryable: true},
		{msg: "status code: 400 bad request", status: 400},
		{msg: "generation took 1500ms and failed"},
		{msg: "prompt is 4010 tokens, over the 4000 limit"},
		{msg: "upstream said 502 once"},
		{msg: "rate limit exceeded", status: 429, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := classify(context.Background(), "chat completion", errors.New(tt.msg))

			assert.Equal(t, tt.fatal, entity.IsFatal(err))
			if tt.fatal {
				return
			}
			var oracleErr *llm.OracleError
			require.ErrorAs(t, err, &oracleErr)
			assert.Equal(t, tt.status, oracleErr.StatusCode)
			assert.Equal(t, tt.retryable, oracleErr.Retryable)
		})
	}
}
