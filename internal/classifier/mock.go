package classifier

import "sync"

// Mock is a scripted Predictor for tests. It returns the configured
// probabilities in order, repeating the last one when the script runs out.
// When Err is set, every call fails with it.
type Mock struct {
	Script []float32
	Err    error

	mu    sync.Mutex
	calls int
}

// Predict returns the next scripted probability.
func (m *Mock) Predict(tensor []float32) (float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return 0, m.Err
	}
	if len(m.Script) == 0 {
		return 0, nil
	}
	idx := m.calls
	if idx >= len(m.Script) {
		idx = len(m.Script) - 1
	}
	m.calls++
	return m.Script[idx], nil
}

// Calls returns how many times Predict ran.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
