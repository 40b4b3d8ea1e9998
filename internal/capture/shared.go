package capture

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// SharedCamera hands every consumer the same device frame for one frame
// period. The pose tracker, the classifier grabber and the preview stream all
// read the camera on their own schedules; without sharing, each read would
// consume a frame the others never see.
type SharedCamera struct {
	Camera

	mu     sync.Mutex
	latest *gocv.Mat
	at     time.Time
	reads  int
	now    func() time.Time
}

// NewSharedCamera wraps cam.
func NewSharedCamera(cam Camera) *SharedCamera {
	return &SharedCamera{Camera: cam, now: time.Now}
}

// ReadFrame returns a copy of the latest frame, reading the device only when
// that frame is older than one frame period. The caller owns the Mat.
func (s *SharedCamera) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.latest == nil || now.Sub(s.at) >= s.period() {
		frame, err := s.Camera.ReadFrame()
		if err != nil {
			return nil, err
		}
		s.release()
		s.latest = frame
		s.at = now
		s.reads++
	}

	out := s.latest.Clone()
	return &out, nil
}

// Reads returns how many frames were taken from the device.
func (s *SharedCamera) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Close drops the cached frame and closes the device.
func (s *SharedCamera) Close() error {
	s.mu.Lock()
	s.release()
	s.mu.Unlock()
	return s.Camera.Close()
}

func (s *SharedCamera) period() time.Duration {
	fps := s.Camera.FPS()
	if fps <= 0 {
		fps = DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

func (s *SharedCamera) release() {
	if s.latest != nil {
		s.latest.Close()
		s.latest = nil
	}
}
