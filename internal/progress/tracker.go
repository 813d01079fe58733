// Package progress counts completed pipeline steps against a known total.
//
// A Tracker starts Running and ends in exactly one of Done or Aborted.
// Only the orchestrator writes to it; renderers read snapshots or subscribe
// as listeners.
package progress

import (
	"errors"
	"sync"
)

// Status is the lifecycle position of a tracker
type Status int

const (
	StatusRunning Status = iota
	StatusDone
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

var (
	// ErrTerminal is returned by any transition after Done or Aborted.
	ErrTerminal = errors.New("progress: tracker already finished")
	// ErrOverflow is returned by Advance once every step is accounted for.
	ErrOverflow = errors.New("progress: completed count would exceed total")
	// ErrIncomplete is returned by Complete before every step has advanced.
	ErrIncomplete = errors.New("progress: completed count below total")
)

// Snapshot is a point-in-time copy of tracker state
type Snapshot struct {
	Completed int
	Total     int
	Status    Status
}

// Fraction returns Completed/Total in [0, 1]. An empty run counts as finished.
func (s Snapshot) Fraction() float64 {
	if s.Total <= 0 {
		return 1
	}
	return float64(s.Completed) / float64(s.Total)
}

// Listener receives a snapshot after every transition
type Listener interface {
	ProgressChanged(Snapshot)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(Snapshot)

// ProgressChanged calls f(s)
func (f ListenerFunc) ProgressChanged(s Snapshot) { f(s) }

// Tracker implements progress accounting for one run
type Tracker struct {
	mu        sync.RWMutex
	snap      Snapshot
	listeners []Listener
}

// New creates a Running tracker. A negative total is treated as zero.
func New(total int, listeners ...Listener) *Tracker {
	if total < 0 {
		total = 0
	}
	return &Tracker{
		snap:      Snapshot{Total: total, Status: StatusRunning},
		listeners: listeners,
	}
}

// Advance records one more completed step
func (t *Tracker) Advance() error {
	return t.transition(func(s *Snapshot) error {
		if s.Completed >= s.Total {
			return ErrOverflow
		}
		s.Completed++
		return nil
	})
}

// Complete moves the tracker to Done. Every step must have advanced.
func (t *Tracker) Complete() error {
	return t.transition(func(s *Snapshot) error {
		if s.Completed != s.Total {
			return ErrIncomplete
		}
		s.Status = StatusDone
		return nil
	})
}

// Abort moves the tracker to Aborted, regardless of how many steps remain
func (t *Tracker) Abort() error {
	return t.transition(func(s *Snapshot) error {
		s.Status = StatusAborted
		return nil
	})
}

// Snapshot returns the current state; safe to call from any goroutine
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

func (t *Tracker) transition(apply func(*Snapshot) error) error {
	t.mu.Lock()
	if t.snap.Status != StatusRunning {
		t.mu.Unlock()
		return ErrTerminal
	}
	next := t.snap
	if err := apply(&next); err != nil {
		t.mu.Unlock()
		return err
	}
	t.snap = next
	t.mu.Unlock()

	for _, l := range t.listeners {
		l.ProgressChanged(next)
	}
	return nil
}
