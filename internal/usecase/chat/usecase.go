package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"task-agent/internal/application/port/input"
	"task-agent/internal/application/port/output"
	"task-agent/internal/application/service"
	"task-agent/internal/domain/entity"
	"task-agent/internal/infrastructure/prompts"
)

var _ input.ChatSession = (*UseCase)(nil)

// UseCase is the free-form conversation mode. Memory starts disabled; once
// enabled the retained exchanges are sent along with each prompt.
type UseCase struct {
	llm          output.TextOracle
	memory       *service.ConversationMemory
	logger       output.LoggerPort
	systemPrompt string

	mu            sync.Mutex
	memoryEnabled bool
}

func New(llm output.TextOracle, memory *service.ConversationMemory, logger output.LoggerPort, systemPrompt string) *UseCase {
	if systemPrompt == "" {
		systemPrompt = prompts.ChatSystemPrompt
	}
	return &UseCase{
		llm:          llm,
		memory:       memory,
		logger:       logger,
		systemPrompt: strings.TrimSpace(systemPrompt),
	}
}

func (uc *UseCase) Send(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("message is empty")
	}

	req := output.GenerateRequest{
		System: uc.systemPrompt,
		Prompt: text,
	}
	withMemory := uc.MemoryEnabled()
	if withMemory {
		req.History = uc.memory.Messages()
	}

	uc.logger.Debug("Chat request", "memory", withMemory, "historyMessages", len(req.History))

	reply, err := uc.llm.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("chat: %w", entity.ErrEmptyResponse)
	}

	if withMemory {
		uc.memory.Add(entity.Exchange{User: text, Assistant: reply})
	}
	return reply, nil
}

func (uc *UseCase) SetMemory(enabled bool) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.memoryEnabled = enabled
}

func (uc *UseCase) MemoryEnabled() bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.memoryEnabled
}

func (uc *UseCase) History() []entity.Exchange {
	return uc.memory.Exchanges()
}

func (uc *UseCase) Clear() {
	uc.memory.Clear()
}
