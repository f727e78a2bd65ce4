package store

import (
	"context"
	"strconv"
	"sync"
)

// Memory is a process-local KV.
type Memory struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]string)}
}

func (m *Memory) Get(_ context.Context, ns, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[ns][key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, ns, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(ns, key, value)
	return nil
}

func (m *Memory) set(ns, key, value string) {
	bucket := m.data[ns]
	if bucket == nil {
		bucket = make(map[string]string)
		m.data[ns] = bucket
	}
	bucket[key] = value
}

func (m *Memory) Incr(_ context.Context, ns, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := parseCount(m.data[ns][key]) + 1
	m.set(ns, key, strconv.FormatInt(n, 10))
	return n, nil
}

func (m *Memory) Clear(_ context.Context, ns string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, ns)
	return nil
}

func (m *Memory) Close() error { return nil }
