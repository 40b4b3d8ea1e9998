// Package clap detects the two-palm clap used to trigger capture workflows.
package clap

import (
	"math"
	"time"

	"github.com/ayusman/handsignal/internal/hand"
)

// Event marks an accepted clap.
type Event struct {
	At       time.Duration
	Distance float64
}

// Detector fires an Event when both palms come within the distance threshold
// and more than the cooldown has elapsed since the last accepted event.
// There is exactly one last-trigger timestamp; Reset overwrites it.
type Detector struct {
	threshold float64
	cooldown  time.Duration
	last      time.Duration
	fired     bool
}

// New creates a Detector. The first qualifying tick always fires.
func New(threshold float64, cooldown time.Duration) *Detector {
	return &Detector{
		threshold: threshold,
		cooldown:  cooldown,
	}
}

// Check evaluates one tick. Untracked hands or unresolved palms produce no
// decision.
func (d *Detector) Check(left, right hand.State, now time.Duration) (Event, bool) {
	lp, ok := left.Pose(hand.Palm)
	if !ok {
		return Event{}, false
	}
	rp, ok := right.Pose(hand.Palm)
	if !ok {
		return Event{}, false
	}

	dist := hand.Distance(lp.Position, rp.Position)
	if math.IsNaN(dist) || dist > d.threshold {
		return Event{}, false
	}
	if d.fired && now-d.last <= d.cooldown {
		return Event{}, false
	}

	d.last = now
	d.fired = true
	return Event{At: now, Distance: dist}, true
}

// Reset moves the cooldown baseline to now.
func (d *Detector) Reset(now time.Duration) {
	d.last = now
	d.fired = true
}

// Last returns the last trigger or reset time, and false if there was none.
func (d *Detector) Last() (time.Duration, bool) {
	return d.last, d.fired
}

// Threshold returns the configured palm distance threshold.
func (d *Detector) Threshold() float64 {
	return d.threshold
}

// Cooldown returns the configured cooldown.
func (d *Detector) Cooldown() time.Duration {
	return d.cooldown
}
