package detector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/handsignal/internal/capture"
	"github.com/ayusman/handsignal/internal/hand"
	"github.com/ayusman/handsignal/internal/logging"
)

// Source is a pose source fed by a camera and a Detector. Update runs one
// detection; Hands returns the latest result without blocking on the camera.
type Source struct {
	camera   capture.Camera
	detector Detector
	minScore float64
	log      logging.Logger

	mu          sync.RWMutex
	left, right hand.State
	updated     time.Time
}

// NewSource creates a Source. Both hands start untracked.
func NewSource(camera capture.Camera, d Detector, minScore float64, log logging.Logger) *Source {
	return &Source{
		camera:   camera,
		detector: d,
		minScore: minScore,
		log:      logging.Component(log, "pose"),
		left:     hand.Untracked,
		right:    hand.Untracked,
	}
}

// Hands returns the most recent left and right hand states.
func (s *Source) Hands() (left, right hand.State) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.left, s.right
}

// Updated returns when the hands were last refreshed.
func (s *Source) Updated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}

// Update reads one frame and refreshes the hand states. On error both hands
// become untracked, so stale poses are never reported.
func (s *Source) Update() error {
	left, right, err := s.detect()

	s.mu.Lock()
	s.left, s.right = left, right
	s.updated = time.Now()
	s.mu.Unlock()

	return err
}

func (s *Source) detect() (hand.State, hand.State, error) {
	frame, err := s.camera.ReadFrame()
	if err != nil {
		return hand.Untracked, hand.Untracked, fmt.Errorf("read frame: %w", err)
	}
	defer frame.Close()

	hands, err := s.detector.Detect(frame)
	if err != nil {
		return hand.Untracked, hand.Untracked, fmt.Errorf("detect: %w", err)
	}

	left, right := Split(hands, s.minScore)
	return left, right, nil
}

// Run calls Update every interval until ctx is cancelled.
func (s *Source) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr string
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := s.Update()
			switch {
			case err == nil:
				lastErr = ""
			case errors.Is(err, capture.ErrCameraNotOpen):
				return err
			case err.Error() != lastErr:
				// Log each distinct failure once instead of every frame.
				lastErr = err.Error()
				s.log.WithError(err).Warn("Pose update failed")
			}
		}
	}
}
