package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/handsignal/internal/hand"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Calls returns how many times Detect ran.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// OpenPalmLandmarks returns an open palm with all fingers extended, shifted
// horizontally by dx.
func OpenPalmLandmarks(handedness string, dx float64) HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: handedness,
		Score:      0.95,
	}

	pts := [NumLandmarks]Point3D{
		Wrist: {X: 0.5, Y: 0.8, Z: 0.0},

		ThumbCMC: {X: 0.55, Y: 0.75, Z: 0.02},
		ThumbMCP: {X: 0.62, Y: 0.70, Z: 0.03},
		ThumbIP:  {X: 0.68, Y: 0.65, Z: 0.03},
		ThumbTip: {X: 0.73, Y: 0.60, Z: 0.03},

		IndexMCP: {X: 0.55, Y: 0.68, Z: 0.0},
		IndexPIP: {X: 0.57, Y: 0.55, Z: 0.0},
		IndexDIP: {X: 0.58, Y: 0.45, Z: 0.0},
		IndexTip: {X: 0.58, Y: 0.35, Z: 0.0},

		MiddleMCP: {X: 0.50, Y: 0.66, Z: 0.0},
		MiddlePIP: {X: 0.50, Y: 0.52, Z: 0.0},
		MiddleDIP: {X: 0.50, Y: 0.40, Z: 0.0},
		MiddleTip: {X: 0.50, Y: 0.28, Z: 0.0},

		RingMCP: {X: 0.45, Y: 0.68, Z: 0.0},
		RingPIP: {X: 0.43, Y: 0.55, Z: 0.0},
		RingDIP: {X: 0.42, Y: 0.45, Z: 0.0},
		RingTip: {X: 0.42, Y: 0.35, Z: 0.0},

		PinkyMCP: {X: 0.40, Y: 0.70, Z: 0.0},
		PinkyPIP: {X: 0.37, Y: 0.60, Z: 0.0},
		PinkyDIP: {X: 0.35, Y: 0.50, Z: 0.0},
		PinkyTip: {X: 0.34, Y: 0.42, Z: 0.0},
	}
	for i := range pts {
		pts[i].X += dx
	}
	landmarks.Points = pts

	return landmarks
}

// MockSource is a pose source whose hands are set by the test.
type MockSource struct {
	mu          sync.Mutex
	left, right hand.State
	calls       int
}

// NewMockSource creates a MockSource with both hands untracked.
func NewMockSource() *MockSource {
	return &MockSource{left: hand.Untracked, right: hand.Untracked}
}

// SetHands replaces both hand states.
func (m *MockSource) SetHands(left, right hand.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.left, m.right = left, right
}

// PalmsAt tracks both hands with only their palms resolved, at the given
// positions. It is the minimal input the clap detector needs.
func (m *MockSource) PalmsAt(left, right hand.Vec3) {
	m.SetHands(palmState(left), palmState(right))
}

// Untrack marks both hands untracked.
func (m *MockSource) Untrack() {
	m.SetHands(hand.Untracked, hand.Untracked)
}

func (m *MockSource) Hands() (left, right hand.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.left, m.right
}

// Calls returns how many times Hands was read.
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func palmState(p hand.Vec3) hand.State {
	return hand.State{
		Tracked: true,
		Poses: map[hand.JointID]hand.Pose{
			hand.Palm:  {Position: p},
			hand.Wrist: {Position: hand.Vec3{X: p.X, Y: p.Y - 0.05, Z: p.Z}},
		},
	}
}
