package store

import (
	"context"
	"sync"

	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/table"
)

// Memory is an in-process Store. It backs demo mode and the test suites;
// tabs are copied on both read and write so callers never alias its state.
type Memory struct {
	mu   sync.Mutex
	tabs map[string]*table.Table
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{tabs: make(map[string]*table.Table)}
}

// Seed replaces one tab's contents, bypassing the Store contract. Intended
// for loading fixture data.
func (m *Memory) Seed(locator string, t *table.Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tabs[locator] = t.Clone()
}

func (m *Memory) Read(_ context.Context, locator string) (*table.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tabs[locator]
	if !ok {
		return table.New(), nil
	}
	return t.Clone(), nil
}

func (m *Memory) Write(_ context.Context, locator string, t *table.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tabs[locator] = t.Clone()
	return nil
}
