package routing

import (
	"context"
	"sync"

	"github.com/vietddude/packup/internal/core/domain"
)

// step is one scripted reply of a mockAdapter.
type step struct {
	url string
	err error
}

// mockAdapter replays steps in order; after the script ends it repeats
// the last step.
type mockAdapter struct {
	name  string
	steps []step

	mu        sync.Mutex
	callCount int
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) Attempt(ctx context.Context, q string) (*domain.Candidate, error) {
	m.mu.Lock()
	i := m.callCount
	m.callCount++
	m.mu.Unlock()

	if len(m.steps) == 0 {
		return nil, nil
	}
	if i >= len(m.steps) {
		i = len(m.steps) - 1
	}
	s := m.steps[i]
	if s.err != nil {
		return nil, s.err
	}
	if s.url == "" {
		return nil, nil
	}
	return &domain.Candidate{Kind: domain.ResourceImage, Provider: m.name, URL: s.url, Width: 1200}, nil
}

func (m *mockAdapter) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

var fastRetry = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    0,
	MaxDelay:        0,
	BackoffMultiple: 2,
	NullRetries:     1,
}

func newTestRouter(t interface{ Fatalf(string, ...any) }, adapters ...*mockAdapter) *Router[string, domain.Candidate] {
	r := NewRouter[string, domain.Candidate]()
	for i, a := range adapters {
		if err := r.AddProvider(domain.ProviderSpec{Name: a.name, Priority: i + 1}, a); err != nil {
			t.Fatalf("add provider: %v", err)
		}
	}
	return r
}
