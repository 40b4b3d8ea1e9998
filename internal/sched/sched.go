// Package sched provides a single-context cooperative scheduler.
//
// A routine is a plain function that suspends itself with Wait or Yield. Each
// routine runs on its own goroutine but control is handed over through a
// channel handshake, so at most one routine (or the scheduler caller) runs at
// any moment and routines may share state without locks.
package sched

import (
	"errors"
	"time"
)

// ErrCancelled is returned from Wait and Yield once the routine was cancelled.
var ErrCancelled = errors.New("routine cancelled")

// Routine is the body of a cooperative task.
type Routine func(co *Co) error

// Scheduler owns the logical clock and the set of suspended routines.
// It must only be driven from one goroutine.
type Scheduler struct {
	now   time.Duration
	tick  uint64
	tasks []*task
	errs  func(name string, err error)
}

type task struct {
	name      string
	wake      time.Duration
	readyTick uint64
	resume    chan struct{}
	yield     chan struct{}
	done      bool
	cancelled bool
	err       error
}

// Co is the handle a routine uses to suspend itself.
type Co struct {
	s *Scheduler
	t *task
}

// New creates an empty scheduler at time zero.
func New() *Scheduler {
	return &Scheduler{}
}

// OnError registers a callback for routines that return a non-nil error other
// than ErrCancelled.
func (s *Scheduler) OnError(fn func(name string, err error)) {
	s.errs = fn
}

// Now returns the scheduler time of the current tick.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// Pending returns the number of live routines.
func (s *Scheduler) Pending() int {
	n := 0
	for _, t := range s.tasks {
		if !t.done {
			n++
		}
	}
	return n
}

// Start launches a routine and runs it synchronously until its first
// suspension point. It may be called from inside another routine.
func (s *Scheduler) Start(name string, fn Routine) {
	t := &task{
		name:   name,
		resume: make(chan struct{}),
		yield:  make(chan struct{}),
	}
	co := &Co{s: s, t: t}

	go func() {
		<-t.resume
		err := fn(co)
		t.err = err
		t.done = true
		t.yield <- struct{}{}
	}()

	s.tasks = append(s.tasks, t)
	s.step(t)
}

// Tick advances the clock to now and resumes, in start order, every routine
// whose wait has elapsed. A routine resumes at most once per tick.
func (s *Scheduler) Tick(now time.Duration) {
	if now > s.now {
		s.now = now
	}
	s.tick++

	snapshot := make([]*task, len(s.tasks))
	copy(snapshot, s.tasks)
	for _, t := range snapshot {
		if t.done || t.readyTick > s.tick || t.wake > s.now {
			continue
		}
		s.step(t)
	}
	s.compact()
}

// Stop cancels every routine and waits for each to unwind.
func (s *Scheduler) Stop() {
	for len(s.tasks) > 0 {
		snapshot := make([]*task, len(s.tasks))
		copy(snapshot, s.tasks)
		for _, t := range snapshot {
			if t.done {
				continue
			}
			t.cancelled = true
			s.step(t)
		}
		s.compact()
	}
}

func (s *Scheduler) step(t *task) {
	t.resume <- struct{}{}
	<-t.yield
	if t.done && t.err != nil && !errors.Is(t.err, ErrCancelled) && s.errs != nil {
		s.errs(t.name, t.err)
	}
}

func (s *Scheduler) compact() {
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.done {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = live
}

// Wait suspends the routine until at least d of scheduler time has passed
// and at least one tick has happened.
func (c *Co) Wait(d time.Duration) error {
	if c.t.cancelled {
		return ErrCancelled
	}
	if d < 0 {
		d = 0
	}
	c.t.wake = c.s.now + d
	c.t.readyTick = c.s.tick + 1
	c.t.yield <- struct{}{}
	<-c.t.resume
	if c.t.cancelled {
		return ErrCancelled
	}
	return nil
}

// Yield suspends the routine until the next tick.
func (c *Co) Yield() error {
	return c.Wait(0)
}

// Now returns the scheduler time seen by the routine.
func (c *Co) Now() time.Duration {
	return c.s.now
}

// Start launches a child routine from inside a routine.
func (c *Co) Start(name string, fn Routine) {
	c.s.Start(name, fn)
}
