package store

import (
	"errors"
	"fmt"

	"github.com/ayusman/handsignal/internal/sample"
)

// SampleSink archives a run through the sample.Sink interface.
type SampleSink struct {
	store *Store
	runID string
}

// NewSampleSink creates a sink writing to s.
func NewSampleSink(s *Store) *SampleSink {
	return &SampleSink{store: s}
}

// Begin creates the run row.
func (k *SampleSink) Begin(info sample.RunInfo) error {
	if k.runID != "" {
		return errors.New("archive run already open")
	}

	run := &Run{
		ID:        info.ID,
		Index:     info.Index,
		Gesture:   info.Gesture,
		Planned:   info.Samples,
		StartedAt: info.Started,
	}
	if err := k.store.Runs().Create(run); err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	k.runID = run.ID
	return nil
}

// Write archives one sample.
func (k *SampleSink) Write(s sample.Sample) error {
	if k.runID == "" {
		return errors.New("archive run not open")
	}
	return k.store.Samples().Add(k.runID, s)
}

// End marks the run completed.
func (k *SampleSink) End() error {
	if k.runID == "" {
		return nil
	}
	id := k.runID
	k.runID = ""
	return k.store.Runs().Finish(id, RunCompleted)
}

// Abort marks the open run aborted.
func (k *SampleSink) Abort() error {
	if k.runID == "" {
		return nil
	}
	id := k.runID
	k.runID = ""
	return k.store.Runs().Finish(id, RunAborted)
}
