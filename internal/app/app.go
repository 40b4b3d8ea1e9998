package app

import (
	"context"
	"sync"
	"time"

	"github.com/ayusman/handsignal/internal/logging"
)

// DefaultFPS is the tick rate used when none is configured.
const DefaultFPS = 30

// App is the per-frame host: it drives an Orchestrator from a ticker.
type App struct {
	orch *Orchestrator
	fps  int
	log  logging.Logger

	mu      sync.Mutex
	running bool
}

// New creates an App ticking orch fps times per second.
func New(orch *Orchestrator, fps int, log logging.Logger) *App {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if log == nil {
		log = logging.Discard()
	}
	return &App{
		orch: orch,
		fps:  fps,
		log:  logging.Component(log, "host"),
	}
}

// Run ticks the orchestrator until ctx is cancelled, then cancels its
// routines. Tick times are measured from the start of Run.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	a.running = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	interval := time.Second / time.Duration(a.fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer a.orch.Close()

	start := time.Now()
	a.log.WithField("fps", a.fps).Info("Host loop started")

	for {
		select {
		case <-ctx.Done():
			a.log.Info("Host loop stopped")
			return nil
		case t := <-ticker.C:
			a.orch.Tick(t.Sub(start))
		}
	}
}

// IsRunning reports whether Run is active.
func (a *App) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// SetEnabled resumes or pauses clap detection.
func (a *App) SetEnabled(enabled bool) {
	a.orch.SetPaused(!enabled)
	a.log.WithField("enabled", enabled).Info("Clap detection toggled")
}

// IsEnabled reports whether claps are being acted on.
func (a *App) IsEnabled() bool {
	return !a.orch.Paused()
}

// Orchestrator returns the driven orchestrator.
func (a *App) Orchestrator() *Orchestrator {
	return a.orch
}
