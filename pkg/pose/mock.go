package pose

import "sync"

// Mock implements Estimator for testing.
type Mock struct {
	// EstimateFunc is called when Estimate is invoked.
	EstimateFunc func(jpeg []byte) ([]Detection, error)

	mu    sync.Mutex
	calls int
}

// NewMock creates a mock estimator that sees nobody by default.
func NewMock() *Mock {
	return &Mock{
		EstimateFunc: func(jpeg []byte) ([]Detection, error) {
			return nil, nil
		},
	}
}

// PersonAt returns a mock that always reports a single confident nose keypoint.
func PersonAt(x, y, score float64) *Mock {
	return &Mock{
		EstimateFunc: func(jpeg []byte) ([]Detection, error) {
			return []Detection{{Name: "nose", X: x, Y: y, Score: score}}, nil
		},
	}
}

// Estimate invokes EstimateFunc.
func (m *Mock) Estimate(jpeg []byte) ([]Detection, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.EstimateFunc(jpeg)
}

// Calls returns how many times Estimate was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close is a no-op.
func (m *Mock) Close() error { return nil }
