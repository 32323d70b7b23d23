package storage

import (
	"context"
	"io"
	"sync"
)

// Memory keeps blobs in a map. Used in tests.
type Memory struct {
	BaseURL string

	mu      sync.Mutex
	Objects map[string][]byte
}

func NewMemory(baseURL string) *Memory {
	return &Memory{BaseURL: baseURL, Objects: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.Objects[key] = b
	m.mu.Unlock()
	return m.BaseURL + "/" + key, nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.Objects, k)
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Objects[key]
	return ok
}
