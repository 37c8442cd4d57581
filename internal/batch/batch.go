// Package batch buffers candidate entries until a size or age threshold is reached.
package batch

import (
	"sync"
	"time"

	"regwatch/internal/model"
)

// Accumulator is a bounded, time-boxed buffer of candidate entries.
type Accumulator struct {
	mu        sync.Mutex
	pending   []model.CandidateEntry
	maxSize   int
	timeout   time.Duration
	lastFlush time.Time
}

// New creates an Accumulator whose timer starts at now.
func New(maxSize int, timeout time.Duration, now time.Time) *Accumulator {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Accumulator{
		maxSize:   maxSize,
		timeout:   timeout,
		lastFlush: now,
	}
}

// Offer appends an entry to the pending batch.
func (a *Accumulator) Offer(e model.CandidateEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = append(a.pending, e)
}

// DueForFlush reports whether the batch is full, or non-empty and older
// than the timeout.
func (a *Accumulator) DueForFlush(now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.pending) >= a.maxSize {
		return true
	}
	return len(a.pending) > 0 && now.Sub(a.lastFlush) >= a.timeout
}

// Flush drains the batch and restarts the timer at now. Callers flush
// before classifying so a failing classifier cannot wedge the pipeline.
func (a *Accumulator) Flush(now time.Time) []model.CandidateEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.pending
	a.pending = nil
	a.lastFlush = now
	return out
}

// Len returns the number of pending entries.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// LastFlush returns the time of the last flush.
func (a *Accumulator) LastFlush() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastFlush
}
