package service

import (
	"sync"

	"task-agent/internal/domain/entity"
)

// ConversationMemory keeps the last capacity exchanges. When full, adding an
// exchange evicts the oldest one.
type ConversationMemory struct {
	mu       sync.Mutex
	buf      []entity.Exchange
	start    int
	size     int
	capacity int
}

func NewConversationMemory(capacity int) *ConversationMemory {
	if capacity < 0 {
		capacity = 0
	}
	return &ConversationMemory{
		buf:      make([]entity.Exchange, capacity),
		capacity: capacity,
	}
}

func (m *ConversationMemory) Add(ex entity.Exchange) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.capacity == 0 {
		return
	}
	if m.size < m.capacity {
		m.buf[(m.start+m.size)%m.capacity] = ex
		m.size++
		return
	}
	m.buf[m.start] = ex
	m.start = (m.start + 1) % m.capacity
}

// Exchanges returns the retained exchanges, oldest first.
func (m *ConversationMemory) Exchanges() []entity.Exchange {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]entity.Exchange, 0, m.size)
	for i := 0; i < m.size; i++ {
		result = append(result, m.buf[(m.start+i)%m.capacity])
	}
	return result
}

func (m *ConversationMemory) Messages() []entity.Message {
	exchanges := m.Exchanges()
	result := make([]entity.Message, 0, len(exchanges)*2)
	for _, ex := range exchanges {
		result = append(result, ex.Messages()...)
	}
	return result
}

func (m *ConversationMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}

func (m *ConversationMemory) Capacity() int {
	return m.capacity
}

func (m *ConversationMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.start, m.size = 0, 0
	for i := range m.buf {
		m.buf[i] = entity.Exchange{}
	}
}
