package classifier

import (
	"sync"

	"github.com/ayusman/handsignal/internal/preprocess"
)

// StaticModel returns fixed scores, one vector per call, repeating the last.
type StaticModel struct {
	mu     sync.Mutex
	scores [][]float32
	err    error
	calls  int
	closed bool
}

// NewStaticModel creates a StaticModel that plays back scores in order.
func NewStaticModel(scores ...[]float32) *StaticModel {
	return &StaticModel{scores: scores}
}

// OneHot returns a score vector of length n with index i set.
func OneHot(n, i int) []float32 {
	s := make([]float32, n)
	if i >= 0 && i < n {
		s[i] = 1
	}
	return s
}

// SetError makes Forward fail.
func (m *StaticModel) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *StaticModel) Forward(t *preprocess.Tensor) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.scores) == 0 {
		return nil, nil
	}
	i := m.calls - 1
	if i >= len(m.scores) {
		i = len(m.scores) - 1
	}
	return append([]float32(nil), m.scores[i]...), nil
}

func (m *StaticModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns how many times Forward ran.
func (m *StaticModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *StaticModel) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
