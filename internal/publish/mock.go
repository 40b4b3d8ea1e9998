package publish

import (
	"context"
	"sync"
)

// MockConn records everything sent to it.
type MockConn struct {
	mu   sync.Mutex
	open bool
	err  error
	sent [][]byte
}

// NewMockConn creates an open mock connection.
func NewMockConn() *MockConn {
	return &MockConn{open: true}
}

// SetOpen controls IsOpen.
func (m *MockConn) SetOpen(open bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = open
}

// SetError makes SendText fail.
func (m *MockConn) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockConn) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *MockConn) SendText(ctx context.Context, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, append([]byte(nil), payload...))
	return nil
}

// Sent returns a copy of every payload sent so far.
func (m *MockConn) Sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	copy(out, m.sent)
	return out
}

// Frames parses everything sent so far.
func (m *MockConn) Frames() ([]Frame, error) {
	var all []Frame
	for _, p := range m.Sent() {
		f, err := ParseFrames(p)
		if err != nil {
			return all, err
		}
		all = append(all, f...)
	}
	return all, nil
}
