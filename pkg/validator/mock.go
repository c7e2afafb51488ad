package validator

import (
	"context"
	"sync"
)

// Mock is a test double for the naming-authority client. It records every
// call so tests can assert the one-call-per-document invariant.
type Mock struct {
	mu    sync.Mutex
	calls [][]NameQuery

	// ValidateFunc supplies the behavior; when nil every name is echoed back
	// as its own validated form.
	ValidateFunc func(ctx context.Context, queries []NameQuery) ([]Result, error)
}

var _ Client = (*Mock)(nil)

func (m *Mock) ValidateNames(ctx context.Context, queries []NameQuery) ([]Result, error) {
	m.mu.Lock()
	copied := make([]NameQuery, len(queries))
	copy(copied, queries)
	m.calls = append(m.calls, copied)
	m.mu.Unlock()

	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, queries)
	}

	results := make([]Result, 0, len(queries))
	for _, q := range queries {
		results = append(results, Result{Name: q.Name, ValidatedName: q.Name, Recognized: true})
	}
	return results, nil
}

// Calls returns the recorded call payloads.
func (m *Mock) Calls() [][]NameQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]NameQuery, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times ValidateNames was invoked.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
