package medium

import (
	"context"
	"sync"
)

// Memory is an in-process Medium intended for tests, examples and sessions
// that must not outlive the process. The zero value is an empty medium.
type Memory struct {
	mu      sync.RWMutex
	records map[string]string
	failing error
}

func NewMemory() *Memory {
	return &Memory{records: map[string]string{}}
}

// Seed writes value without going through Set. Tests use it to plant corrupt
// or legacy payloads.
func (m *Memory) Seed(key, value string) {
	m.mu.Lock()
	m.put(key, value)
	m.mu.Unlock()
}

// Fail makes every subsequent call return err wrapped as ErrUnavailable.
// Passing nil restores normal operation.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	m.failing = err
	m.mu.Unlock()
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	if err := ValidateKey(key); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failing != nil {
		return "", false, unavailable("get", key, m.failing)
	}
	value, ok := m.records[key]
	return value, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return unavailable("set", key, m.failing)
	}
	m.put(key, value)
	return nil
}

// put requires m.mu held for writing.
func (m *Memory) put(key, value string) {
	if m.records == nil {
		m.records = map[string]string{}
	}
	m.records[key] = value
}

func (m *Memory) Delete(_ context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return unavailable("delete", key, m.failing)
	}
	delete(m.records, key)
	return nil
}

// Len reports the number of stored slots.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
