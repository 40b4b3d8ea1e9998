package capture

import (
	"errors"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestSharedCamera_SameFrameWithinPeriod(t *testing.T) {
	dark := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 10, 10, 0), 48, 64, gocv.MatTypeCV8UC3)
	defer dark.Close()
	bright := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 200, 200, 0), 48, 64, gocv.MatTypeCV8UC3)
	defer bright.Close()

	cam := NewMockCamera([]*gocv.Mat{&dark, &bright}, true)
	cam.Open()

	shared := NewSharedCamera(cam)
	defer shared.Close()
	clock := time.Unix(0, 0)
	shared.now = func() time.Time { return clock }

	read := func() uint8 {
		t.Helper()
		f, err := shared.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() error = %v", err)
		}
		defer f.Close()
		return f.GetUCharAt(0, 0)
	}

	// Pose tracker, grabber and stream in the same frame period.
	for i := 0; i < 3; i++ {
		if got := read(); got != 10 {
			t.Fatalf("read %d = %d, want the first frame", i, got)
		}
	}
	if shared.Reads() != 1 {
		t.Errorf("Reads() = %d, want 1", shared.Reads())
	}

	clock = clock.Add(time.Second / DefaultFPS)
	if got := read(); got != 200 {
		t.Errorf("next period = %d, want the second frame", got)
	}
	if shared.Reads() != 2 {
		t.Errorf("Reads() = %d, want 2", shared.Reads())
	}
}

func TestSharedCamera_ReturnsCopies(t *testing.T) {
	src := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer src.Close()

	cam := NewMockCamera([]*gocv.Mat{&src}, true)
	cam.Open()
	shared := NewSharedCamera(cam)
	defer shared.Close()

	a, err := shared.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	a.Close()

	b, err := shared.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() after closing a copy: %v", err)
	}
	defer b.Close()
	if b.Empty() {
		t.Error("closing one consumer's frame emptied the shared frame")
	}
}

func TestSharedCamera_Errors(t *testing.T) {
	cam := NewMockCamera(nil, false)
	shared := NewSharedCamera(cam)

	if _, err := shared.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("closed camera: err = %v, want ErrCameraNotOpen", err)
	}

	cam.Open()
	if _, err := shared.ReadFrame(); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("no frames: err = %v, want ErrEmptyFrame", err)
	}
	if err := shared.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if shared.IsOpen() {
		t.Error("IsOpen() after Close")
	}
}
