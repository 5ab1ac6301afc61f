package storage

import (
	"context"
	"sync"
)

// Memory keeps artifacts in a map. Intended for tests.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemory returns an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

// Put stores a copy of the data and returns a mem:// URI.
func (m *Memory) Put(_ context.Context, objectName, _ string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.objects[objectName] = buf
	return "mem://" + objectName, nil
}

// Get returns the stored object, if present.
func (m *Memory) Get(objectName string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[objectName]
	return data, ok
}

// Len reports the number of stored objects.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// Close for Memory does nothing.
func (m *Memory) Close() error { return nil }
