package scoring

import (
	"context"
	"sync"

	"github.com/kilianp07/evsession/core/model"
)

// Mock returns a fixed prediction or a fixed error and records the feature
// vectors it received.
type Mock struct {
	Value float64
	Err   error

	mu    sync.Mutex
	calls []model.FeatureVector
}

// Score implements Scorer.
func (m *Mock) Score(ctx context.Context, features model.FeatureVector) (float64, error) {
	m.mu.Lock()
	cp := make(model.FeatureVector, len(features))
	copy(cp, features)
	m.calls = append(m.calls, cp)
	m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, Wrap("mock", err)
	}
	if m.Err != nil {
		return 0, Wrap("mock", m.Err)
	}
	return m.Value, nil
}

// Calls returns a copy of the received feature vectors.
func (m *Mock) Calls() []model.FeatureVector {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.FeatureVector, len(m.calls))
	copy(out, m.calls)
	return out
}

// Name implements the optional naming interface used in metrics labels.
func (m *Mock) Name() string { return "mock" }
