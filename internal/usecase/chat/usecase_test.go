package chat

import (
	"context"
	"errors"
	"testing"

	"task-agent/internal/application/port/output"
	"task-agent/internal/application/service"
	"task-agent/internal/domain/entity"
	"task-agent/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockOracle struct {
	replies  []string
	err      error
	requests []output.GenerateRequest
}

func (m *mockOracle) Generate(_ context.Context, req output.GenerateRequest) (string, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	reply := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return reply, nil
}

func (m *mockOracle) GenerateJSON(context.Context, string, any) error {
	return errors.New("not used")
}

func TestSend_WithMemory(t *testing.T) {
	oracle := &mockOracle{replies: []string{"Hello Ada.", " You are Ada. "}}
	uc := New(oracle, service.NewConversationMemory(5), logger.NewNop(), "")
	uc.SetMemory(true)

	_, err := uc.Send(context.Background(), "I am Ada")
	require.NoError(t, err)
	reply, err := uc.Send(context.Background(), "Who am I?")
	require.NoError(t, err)

	assert.Equal(t, "You are Ada.", reply)
	require.Len(t, oracle.requests, 2)
	assert.Empty(t, oracle.requests[0].History)
	assert.Equal(t, []entity.Message{
		{Role: entity.RoleUser, Content: "I am Ada"},
		{Role: entity.RoleAssistant, Content: "Hello Ada."},
	}, oracle.requests[1].History)
	assert.Contains(t, oracle.requests[1].System, "helpful")
	assert.False(t, oracle.requests[1].Structured)
	assert.Len(t, uc.History(), 2)
}

func TestSend_WithoutMemory(t *testing.T) {
	oracle := &mockOracle{replies: []string{"ok"}}
	uc := New(oracle, service.NewConversationMemory(5), logger.NewNop(), "be brief")

	_, err := uc.Send(context.Background(), "one")
	require.NoError(t, err)
	_, err = uc.Send(context.Background(), "two")
	require.NoError(t, err)

	assert.False(t, uc.MemoryEnabled())
	assert.Empty(t, oracle.requests[1].History)
	assert.Empty(t, uc.History())
	assert.Equal(t, "be brief", oracle.requests[0].System)
}

func TestSend_MemoryIsBounded(t *testing.T) {
	oracle := &mockOracle{replies: []string{"r"}}
	uc := New(oracle, service.NewConversationMemory(2), logger.NewNop(), "")
	uc.SetMemory(true)

	for _, q := range []string{"a", "b", "c"} {
		_, err := uc.Send(context.Background(), q)
		require.NoError(t, err)
	}

	history := uc.History()
	require.Len(t, history, 2)
	assert.Equal(t, "b", history[0].User)
	assert.Equal(t, "c", history[1].User)
}

func TestSend_Errors(t *testing.T) {
	uc := New(&mockOracle{err: entity.NewFatalError("chat completion", errors.New("401"))}, service.NewConversationMemory(2), logger.NewNop(), "")
	uc.SetMemory(true)

	_, err := uc.Send(context.Background(), "hi")
	assert.True(t, entity.IsFatal(err))
	assert.Empty(t, uc.History())

	_, err = uc.Send(context.Background(), "   ")
	assert.Error(t, err)

	uc = New(&mockOracle{replies: []string{"  "}}, service.NewConversationMemory(2), logger.NewNop(), "")
	_, err = uc.Send(context.Background(), "hi")
	assert.ErrorIs(t, err, entity.ErrEmptyResponse)
}

func TestClear(t *testing.T) {
	uc := New(&mockOracle{replies: []string{"r"}}, service.NewConversationMemory(2), logger.NewNop(), "")
	uc.SetMemory(true)
	_, err := uc.Send(context.Background(), "hi")
	require.NoError(t, err)

	uc.Clear()

	assert.Empty(t, uc.History())
}
