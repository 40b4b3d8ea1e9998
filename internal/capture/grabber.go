package capture

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Grabber captures single frames at a requested resolution.
type Grabber struct {
	camera Camera
}

// NewGrabber wraps camera.
func NewGrabber(camera Camera) *Grabber {
	return &Grabber{camera: camera}
}

// CaptureFrame reads one frame and resizes it to width x height. The
// returned Mat is BGR and owned by the caller.
func (g *Grabber) CaptureFrame(width, height int) (gocv.Mat, error) {
	if width <= 0 || height <= 0 {
		return gocv.NewMat(), fmt.Errorf("invalid capture size %dx%d", width, height)
	}

	frame, err := g.camera.ReadFrame()
	if err != nil {
		return gocv.NewMat(), err
	}
	return fit(*frame, width, height), nil
}

// fit resizes src to the target size, taking ownership of src.
func fit(src gocv.Mat, width, height int) gocv.Mat {
	if src.Cols() == width && src.Rows() == height {
		return src
	}
	dst := gocv.NewMat()
	gocv.Resize(src, &dst, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
	src.Close()
	return dst
}

// MockGrabber returns uniform frames of a fixed color.
type MockGrabber struct {
	mu    sync.Mutex
	color gocv.Scalar
	err   error
	calls int
}

// NewMockGrabber creates a MockGrabber producing mid-grey frames.
func NewMockGrabber() *MockGrabber {
	return &MockGrabber{color: gocv.NewScalar(128, 128, 128, 0)}
}

// SetColor sets the BGR color of produced frames.
func (m *MockGrabber) SetColor(b, g, r float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.color = gocv.NewScalar(b, g, r, 0)
}

// SetError makes CaptureFrame fail.
func (m *MockGrabber) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockGrabber) CaptureFrame(width, height int) (gocv.Mat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return gocv.NewMat(), m.err
	}
	return gocv.NewMatWithSizeFromScalar(m.color, height, width, gocv.MatTypeCV8UC3), nil
}

// Calls returns how many frames were requested.
func (m *MockGrabber) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
