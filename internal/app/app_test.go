package app

import (
	"context"
	"testing"
	"time"

	"github.com/ayusman/handsignal/internal/config"
	"github.com/ayusman/handsignal/internal/detector"
	"github.com/ayusman/handsignal/internal/display"
	"github.com/ayusman/handsignal/internal/hand"
	"github.com/ayusman/handsignal/internal/logging"
)

func TestApp_RunDrivesOrchestrator(t *testing.T) {
	poses := detector.NewMockSource()
	poses.PalmsAt(hand.Vec3{}, hand.Vec3{})
	rec := display.NewRecorder()

	orch := NewOrchestrator(Deps{Poses: poses, Display: rec}, testConfig(config.ModeCollect))
	a := New(orch, 100, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for rec.Current().Countdown == "" {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("host loop never reported the clap")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !a.IsRunning() {
		t.Error("IsRunning() = false while running")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if a.IsRunning() {
		t.Error("IsRunning() = true after Run returned")
	}
	if st := orch.Status(); st.Busy || st.State != "idle" {
		t.Errorf("Status() after shutdown = %+v", st)
	}
}

func TestApp_SetEnabled(t *testing.T) {
	orch := NewOrchestrator(Deps{Poses: detector.NewMockSource()}, testConfig(config.ModeLive))
	a := New(orch, 0, nil)

	if !a.IsEnabled() {
		t.Fatal("new app should be enabled")
	}
	a.SetEnabled(false)
	if a.IsEnabled() || !orch.Paused() || !orch.Status().Paused {
		t.Error("SetEnabled(false) should pause the orchestrator")
	}
	a.SetEnabled(true)
	if !a.IsEnabled() {
		t.Error("SetEnabled(true) should resume")
	}
	if a.fps != DefaultFPS {
		t.Errorf("fps = %d, want %d", a.fps, DefaultFPS)
	}
	if a.Orchestrator() != orch {
		t.Error("Orchestrator() should return the driven orchestrator")
	}
}
