// Package app drives the clap-triggered capture workflows.
package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/handsignal/internal/clap"
	"github.com/ayusman/handsignal/internal/classifier"
	"github.com/ayusman/handsignal/internal/config"
	"github.com/ayusman/handsignal/internal/display"
	"github.com/ayusman/handsignal/internal/hand"
	"github.com/ayusman/handsignal/internal/logging"
	"github.com/ayusman/handsignal/internal/metrics"
	"github.com/ayusman/handsignal/internal/preprocess"
	"github.com/ayusman/handsignal/internal/sample"
	"github.com/ayusman/handsignal/internal/sched"
)

var errNoClassifier = errors.New("no classifier configured")

// PoseSource supplies the current left and right hand states.
type PoseSource interface {
	Hands() (left, right hand.State)
}

// FrameCapture returns a BGR frame of the requested size. The caller owns
// the Mat.
type FrameCapture interface {
	CaptureFrame(width, height int) (gocv.Mat, error)
}

// Classifier maps a tensor to a decoded label.
type Classifier interface {
	Classify(t *preprocess.Tensor) (classifier.Result, error)
}

// Publisher sends samples and labels to the remote subscriber.
type Publisher interface {
	PublishSample(ctx context.Context, s sample.Sample) bool
	PublishLabel(ctx context.Context, label string) bool
}

// State is the workflow state of the orchestrator.
type State int

const (
	StateIdle State = iota
	StateTriggered
	StateLiveClassifying
	StateCollecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTriggered:
		return "triggered"
	case StateLiveClassifying:
		return "live_classifying"
	case StateCollecting:
		return "collecting"
	default:
		return "unknown"
	}
}

// Deps are the collaborators of an Orchestrator. Poses is required; the
// others fall back to no-ops when nil.
type Deps struct {
	Poses      PoseSource
	Frames     FrameCapture
	Classifier Classifier
	Display    display.Display
	Publisher  Publisher
	Sinks      []sample.Sink
	Log        logging.Logger
	Metrics    *metrics.Metrics
	// Clock stamps samples. Defaults to time.Now.
	Clock func() time.Time
}

// Status is a point-in-time view of the orchestrator, safe to read from any
// goroutine.
type Status struct {
	Mode        config.Mode `json:"mode"`
	State       string      `json:"state"`
	Busy        bool        `json:"busy"`
	Predicting  bool        `json:"predicting"`
	Paused      bool        `json:"paused"`
	Runs        int         `json:"runs"`
	Predictions int         `json:"predictions"`
	LastLabel   string      `json:"last_label,omitempty"`
	Gesture     string      `json:"gesture,omitempty"`
}

// Orchestrator is the clap-triggered state machine. Tick must be called from
// a single goroutine; every routine it starts runs in that same scheduling
// context, so the fields below the scheduler need no locking.
type Orchestrator struct {
	deps  Deps
	cfg   config.Config
	log   logging.Logger
	sched *sched.Scheduler
	clap  *clap.Detector

	ctx    context.Context
	cancel context.CancelFunc

	state       State
	busy        bool
	predicting  bool
	session     int
	run         int
	predictions int
	lastLabel   string
	gesture     string
	open        []sample.Sink

	paused atomic.Bool

	mu     sync.Mutex
	status Status
}

// NewOrchestrator creates an idle Orchestrator and shows the waiting status.
func NewOrchestrator(deps Deps, cfg config.Config) *Orchestrator {
	if deps.Log == nil {
		deps.Log = logging.Discard()
	}
	if deps.Display == nil {
		deps.Display = display.Multi{}
	}
	if deps.Publisher == nil {
		deps.Publisher = nopPublisher{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		deps:   deps,
		cfg:    cfg,
		log:    logging.Component(deps.Log, "orchestrator"),
		sched:  sched.New(),
		clap:   clap.New(cfg.Clap.DistanceThreshold, cfg.Clap.Cooldown),
		ctx:    ctx,
		cancel: cancel,
	}
	o.sched.OnError(func(name string, err error) {
		o.log.WithError(err).WithField("routine", name).Error("Routine failed")
	})

	o.deps.Display.SetStatus(display.WaitingForClap)
	o.sync()
	return o
}

// Tick advances the workflows to now and, when no workflow is running,
// feeds the current hands to the clap detector.
func (o *Orchestrator) Tick(now time.Duration) {
	o.sched.Tick(now)
	if !o.busy {
		o.checkClap(now)
	}
	o.sync()
}

func (o *Orchestrator) checkClap(now time.Duration) {
	left, right := o.deps.Poses.Hands()
	ev, ok := o.clap.Check(left, right, now)
	if !ok {
		return
	}

	if o.paused.Load() {
		o.deps.Metrics.ClapIgnored()
		o.log.WithField("at", ev.At).Debug("Clap ignored while paused")
		return
	}

	o.deps.Metrics.Clap()
	o.log.WithField("at", ev.At).Info("Clap detected")
	o.busy = true
	o.state = StateTriggered
	o.deps.Display.SetCountdown(display.ClapDetected)

	switch o.cfg.Mode {
	case config.ModeCollect:
		o.sched.Start("collect", o.collect)
	default:
		o.sched.Start("toggle", o.toggle)
	}
}

// toggle flips live classification on or off.
func (o *Orchestrator) toggle(co *sched.Co) error {
	if err := co.Wait(o.cfg.Live.TriggerDelay); err != nil {
		return err
	}

	o.predicting = !o.predicting
	o.deps.Metrics.SetPredicting(o.predicting)
	if o.predicting {
		o.session++
		o.deps.Display.SetCountdown(display.StartedPredicting)
		o.deps.Display.SetStatus(display.PredictingGestures)
		o.log.WithField("session", o.session).Info("Started predicting")
		session := o.session
		co.Start("predict", func(co *sched.Co) error {
			return o.predict(co, session)
		})
	} else {
		o.deps.Display.SetCountdown(display.StoppedPredicting)
		o.deps.Display.SetStatus(display.PausedPrediction)
		o.log.Info("Stopped predicting")
	}

	if err := co.Wait(o.cfg.Live.ToggleHold); err != nil {
		return err
	}
	return o.settle(co)
}

// live reports whether the prediction loop of session should keep going.
func (o *Orchestrator) live(session int) bool {
	return o.predicting && o.session == session
}

// predict is the continuous classify-and-publish loop. The flag is checked
// after every suspension and after inference so a stale iteration is never
// published.
func (o *Orchestrator) predict(co *sched.Co, session int) error {
	for o.live(session) {
		if err := co.Yield(); err != nil {
			return err
		}
		if !o.live(session) {
			return nil
		}

		res, err := o.classifyFrame()
		if !o.live(session) {
			return nil
		}

		if err != nil {
			o.deps.Metrics.InferenceError()
			o.log.WithError(err).Warn("Prediction failed")
			o.deps.Display.SetStatus(display.Failed(err))
		} else {
			o.predictions++
			o.lastLabel = res.Label
			o.log.WithField("gesture", res.Label).Info("Predicted gesture")
			o.deps.Display.SetStatus(display.Predicted(res.Label))
			o.publishPrediction(session, res.Label)
		}

		if err := co.Wait(o.cfg.Live.Interval); err != nil {
			return err
		}
	}
	return nil
}

// classifyFrame captures, preprocesses and classifies one frame.
func (o *Orchestrator) classifyFrame() (classifier.Result, error) {
	if o.deps.Frames == nil || o.deps.Classifier == nil {
		return classifier.Result{Index: -1, Label: classifier.UnknownLabel}, errNoClassifier
	}

	start := time.Now()
	frame, err := o.deps.Frames.CaptureFrame(o.cfg.Host.FrameWidth, o.cfg.Host.FrameHeight)
	if err != nil {
		frame.Close()
		return classifier.Result{Index: -1, Label: classifier.UnknownLabel}, fmt.Errorf("capture frame: %w", err)
	}
	t, err := preprocess.Tensorize(frame, preprocess.BGR)
	frame.Close()
	if err != nil {
		return classifier.Result{Index: -1, Label: classifier.UnknownLabel}, fmt.Errorf("preprocess: %w", err)
	}

	res, err := o.deps.Classifier.Classify(t)
	if err != nil {
		return res, fmt.Errorf("classify: %w", err)
	}

	o.deps.Metrics.Prediction(res.Label, time.Since(start))
	o.log.WithFields(logging.Fields{
		"index":  res.Index,
		"label":  res.Label,
		"scores": res.Scores,
	}).Debug("Model raw output")
	return res, nil
}

func (o *Orchestrator) publishPrediction(session int, label string) {
	left, right := o.deps.Poses.Hands()
	s := sample.New(session, o.predictions, label, o.deps.Clock(), o.cfg.Live.Hand.Pick(left, right))
	o.deps.Publisher.PublishSample(o.ctx, s)
	o.deps.Publisher.PublishLabel(o.ctx, label)
}

// collect runs one labelled sampling run.
func (o *Orchestrator) collect(co *sched.Co) error {
	defer o.abortOpen()

	o.run++
	run := o.run
	gesture := o.gestureFor(run)
	total := o.cfg.Collect.Samples

	o.state = StateCollecting
	o.gesture = gesture
	o.deps.Display.SetStatus(display.Gesture(gesture))
	log := o.log.WithField("run", run).WithField("gesture", gesture)
	log.Info("Collection run starting")

	for remaining := wholeSeconds(o.cfg.Collect.Wait); remaining > 0; remaining-- {
		o.deps.Display.SetCountdown(strconv.Itoa(remaining))
		if err := co.Wait(time.Second); err != nil {
			o.run--
			return err
		}
	}
	o.deps.Display.SetCountdown("")

	left, right := o.deps.Poses.Hands()
	if !o.cfg.Collect.Hand.Pick(left, right).Tracked {
		o.run--
		o.deps.Metrics.Run(metrics.RunAborted)
		log.WithField("hand", o.cfg.Collect.Hand).Warn("Hand not tracked, run aborted")
		o.deps.Display.SetStatus(display.HandNotTracked)
		return o.settle(co)
	}

	o.begin(sample.RunInfo{
		ID:      uuid.NewString(),
		Index:   run,
		Gesture: gesture,
		Started: o.deps.Clock(),
		Samples: total,
	})

	for n := 1; n <= total; n++ {
		if n > 1 {
			if err := co.Wait(o.cfg.Collect.Interval); err != nil {
				return err
			}
		}

		left, right := o.deps.Poses.Hands()
		s := sample.New(run, n, gesture, o.deps.Clock(), o.cfg.Collect.Hand.Pick(left, right))
		o.write(s)
		o.deps.Publisher.PublishSample(o.ctx, s)
		o.deps.Metrics.Sample()
		o.deps.Display.SetCountdown(fmt.Sprintf("%d/%d", n, total))
	}

	o.end()
	o.deps.Metrics.Run(metrics.RunCompleted)
	log.WithField("samples", total).Info("Collection run complete")
	o.deps.Display.SetCountdown("")
	o.deps.Display.SetStatus(display.CollectionComplete)
	return o.settle(co)
}

// gestureFor returns the label of a 1-based run.
func (o *Orchestrator) gestureFor(run int) string {
	gestures := o.cfg.Collect.Gestures
	if len(gestures) == 0 || run < 1 {
		return classifier.UnknownLabel
	}
	return gestures[(run-1)%len(gestures)]
}

// settle keeps the workflow busy for the settle period so the hands that
// clapped cannot retrigger, then moves the cooldown baseline to now.
func (o *Orchestrator) settle(co *sched.Co) error {
	if err := co.Wait(o.cfg.Settle); err != nil {
		return err
	}

	o.clap.Reset(co.Now())
	o.busy = false
	if o.predicting {
		o.state = StateLiveClassifying
		return nil
	}
	o.state = StateIdle
	if o.cfg.Mode == config.ModeCollect {
		o.gesture = ""
		o.deps.Display.SetStatus(display.WaitingForClap)
	}
	return nil
}

func (o *Orchestrator) begin(info sample.RunInfo) {
	o.open = o.open[:0]
	for _, sink := range o.deps.Sinks {
		if err := sink.Begin(info); err != nil {
			o.log.WithError(err).WithField("run", info.Index).Error("Sink failed to start run")
			continue
		}
		o.open = append(o.open, sink)
	}
}

func (o *Orchestrator) write(s sample.Sample) {
	for _, sink := range o.open {
		if err := sink.Write(s); err != nil {
			o.log.WithError(err).WithField("sample", s.Number).Error("Sink write failed")
		}
	}
}

func (o *Orchestrator) end() {
	for _, sink := range o.open {
		if err := sink.End(); err != nil {
			o.log.WithError(err).Error("Sink failed to end run")
		}
	}
	o.open = nil
}

// abortOpen ends sinks left open by an interrupted run.
func (o *Orchestrator) abortOpen() {
	if len(o.open) == 0 {
		return
	}
	o.deps.Metrics.Run(metrics.RunAborted)
	for _, sink := range o.open {
		if err := sample.Abort(sink); err != nil {
			o.log.WithError(err).Error("Sink failed to abort run")
		}
	}
	o.open = nil
}

// SetPaused stops or resumes reacting to claps. It is safe to call from any
// goroutine.
func (o *Orchestrator) SetPaused(paused bool) {
	o.paused.Store(paused)
	o.mu.Lock()
	o.status.Paused = paused
	o.mu.Unlock()
}

// Paused reports whether claps are being ignored.
func (o *Orchestrator) Paused() bool {
	return o.paused.Load()
}

// Status returns the latest state snapshot.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

func (o *Orchestrator) sync() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = Status{
		Mode:        o.cfg.Mode,
		State:       o.state.String(),
		Busy:        o.busy,
		Predicting:  o.predicting,
		Paused:      o.paused.Load(),
		Runs:        o.run,
		Predictions: o.predictions,
		LastLabel:   o.lastLabel,
		Gesture:     o.gesture,
	}
}

// Close cancels every routine. It must be called from the goroutine that
// calls Tick.
func (o *Orchestrator) Close() {
	o.cancel()
	o.sched.Stop()
	if o.predicting {
		o.predicting = false
		o.deps.Metrics.SetPredicting(false)
	}
	o.busy = false
	o.state = StateIdle
	o.sync()
}

func wholeSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

type nopPublisher struct{}

func (nopPublisher) PublishSample(context.Context, sample.Sample) bool { return false }
func (nopPublisher) PublishLabel(context.Context, string) bool         { return false }
