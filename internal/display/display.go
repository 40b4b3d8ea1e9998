// Package display carries the operator-facing status and countdown text.
package display

import (
	"sync"

	"github.com/ayusman/handsignal/internal/logging"
)

// Status texts shown by the capture workflows.
const (
	WaitingForClap     = "Waiting for Clap..."
	ClapDetected       = "Clap Detected!"
	StartedPredicting  = "Started Predicting..."
	StoppedPredicting  = "Stopped Predicting"
	CollectionComplete = "Collection complete"
	HandNotTracked     = "Hand not tracked, run aborted"
	PredictingGestures = "Predicting hand gestures..."
	PausedPrediction   = "Paused prediction"
)

// Predicted is the status line for a classified frame.
func Predicted(label string) string {
	return "Predicted Gesture: " + label
}

// Gesture is the status line naming the gesture to perform during a run.
func Gesture(label string) string {
	return "Gesture: " + label
}

// Failed is the status line for an iteration that errored.
func Failed(err error) string {
	return "Prediction failed: " + err.Error()
}

// Display shows two lines of text to the operator.
type Display interface {
	SetStatus(text string)
	SetCountdown(text string)
}

// Multi fans every update out to several displays.
type Multi []Display

func (m Multi) SetStatus(text string) {
	for _, d := range m {
		d.SetStatus(text)
	}
}

func (m Multi) SetCountdown(text string) {
	for _, d := range m {
		d.SetCountdown(text)
	}
}

// Log writes display updates to a logger at info level. Repeated texts are
// logged once.
type Log struct {
	log logging.Logger

	mu        sync.Mutex
	status    string
	countdown string
}

// NewLog creates a Log display.
func NewLog(log logging.Logger) *Log {
	return &Log{log: logging.Component(log, "display")}
}

func (l *Log) SetStatus(text string) {
	l.mu.Lock()
	changed := text != l.status
	l.status = text
	l.mu.Unlock()

	if changed && text != "" {
		l.log.WithField("status", text).Info("Status")
	}
}

func (l *Log) SetCountdown(text string) {
	l.mu.Lock()
	changed := text != l.countdown
	l.countdown = text
	l.mu.Unlock()

	if changed && text != "" {
		l.log.WithField("countdown", text).Info("Countdown")
	}
}

// Snapshot is the text currently on a display.
type Snapshot struct {
	Status    string `json:"status"`
	Countdown string `json:"countdown"`
}

// Event is one recorded display update.
type Event struct {
	Field string // "status" or "countdown"
	Text  string
}

// Recorder keeps every update, for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	cur    Snapshot
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) SetStatus(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cur.Status = text
	r.events = append(r.events, Event{Field: "status", Text: text})
}

func (r *Recorder) SetCountdown(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cur.Countdown = text
	r.events = append(r.events, Event{Field: "countdown", Text: text})
}

// Current returns the latest status and countdown.
func (r *Recorder) Current() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cur
}

// Events returns a copy of every update.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Statuses returns every status text in order.
func (r *Recorder) Statuses() []string {
	return r.texts("status")
}

// Countdowns returns every non-empty countdown text in order.
func (r *Recorder) Countdowns() []string {
	var out []string
	for _, t := range r.texts("countdown") {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (r *Recorder) texts(field string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.Field == field {
			out = append(out, e.Text)
		}
	}
	return out
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
