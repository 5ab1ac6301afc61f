package publish

import (
	"context"
	"strconv"
	"sync"
)

// Memory records notifications in order. Intended for tests.
type Memory struct {
	mu       sync.Mutex
	messages []Notification
}

// NewMemory returns an empty recording publisher.
func NewMemory() *Memory {
	return &Memory{}
}

// Publish records the notification and returns a sequential message ID.
func (m *Memory) Publish(_ context.Context, n Notification) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, n)
	return strconv.Itoa(len(m.messages)), nil
}

// Messages returns a copy of everything published so far.
func (m *Memory) Messages() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, len(m.messages))
	copy(out, m.messages)
	return out
}

// Close for Memory does nothing.
func (m *Memory) Close() error { return nil }
