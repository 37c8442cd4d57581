// Package monitor drives the polling cycle: refresh the feed list, check
// every feed, then classify and dispatch the pending batch.
package monitor

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"regwatch/internal/batch"
	"regwatch/internal/model"
)

// FeedRegistry provides the current feed list.
type FeedRegistry interface {
	RefreshIfDue(ctx context.Context, now time.Time) []model.FeedEndpoint
	Snapshot() ([]model.FeedEndpoint, time.Time)
}

// Checker reports the new head entry of a feed, if any.
type Checker interface {
	Check(ctx context.Context, feed model.FeedEndpoint) (*model.CandidateEntry, error)
	Tracked() int
}

// Classifier labels a batch of entries.
type Classifier interface {
	Classify(ctx context.Context, entries []model.CandidateEntry) ([]model.Category, error)
}

// Notifier dispatches a classified entry.
type Notifier interface {
	Notify(ctx context.Context, e model.CandidateEntry, c model.Category) error
}

// Settings are the timing parameters of the loop.
type Settings struct {
	RequestDelay time.Duration
	Sleep        time.Duration
}

// Status is a point-in-time view of the monitor.
type Status struct {
	Feeds        int
	LastRefresh  time.Time
	TrackedFeeds int
	Pending      int
	LastFlush    time.Time
	LastCycle    time.Time
}

// Monitor runs the polling loop.
type Monitor struct {
	registry   FeedRegistry
	checker    Checker
	batch      *batch.Accumulator
	classifier Classifier
	notifier   Notifier
	settings   Settings
	log        *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	lastCycle time.Time
}

// New creates a Monitor.
func New(reg FeedRegistry, checker Checker, acc *batch.Accumulator, cls Classifier, ntf Notifier, s Settings, log *slog.Logger) *Monitor {
	return &Monitor{
		registry:   reg,
		checker:    checker,
		batch:      acc,
		classifier: cls,
		notifier:   ntf,
		settings:   s,
		log:        log,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// Run executes cycles until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info("monitor started", "sleep", m.settings.Sleep, "request_delay", m.settings.RequestDelay)
	for {
		m.runCycle(ctx)
		if err := m.sleep(ctx, m.settings.Sleep); err != nil {
			m.log.Info("monitor stopped")
			return nil
		}
	}
}

// Status reports the current state of the loop.
func (m *Monitor) Status() Status {
	feeds, lastRefresh := m.registry.Snapshot()
	m.mu.Lock()
	lastCycle := m.lastCycle
	m.mu.Unlock()
	return Status{
		Feeds:        len(feeds),
		LastRefresh:  lastRefresh,
		TrackedFeeds: m.checker.Tracked(),
		Pending:      m.batch.Len(),
		LastFlush:    m.batch.LastFlush(),
		LastCycle:    lastCycle,
	}
}

func (m *Monitor) runCycle(ctx context.Context) {
	log := m.log.With("cycle", uuid.NewString())
	defer func() {
		if r := recover(); r != nil {
			log.Error("cycle panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	feeds := m.registry.RefreshIfDue(ctx, m.now())
	log.Debug("cycle started", "count", len(feeds))

	m.pollAll(ctx, log, feeds)
	if ctx.Err() != nil {
		return
	}
	m.checkBatch(ctx, log)

	m.mu.Lock()
	m.lastCycle = m.now()
	m.mu.Unlock()
}

func (m *Monitor) pollAll(ctx context.Context, log *slog.Logger, feeds []model.FeedEndpoint) {
	for i, feed := range feeds {
		if i > 0 {
			if err := m.sleep(ctx, m.settings.RequestDelay); err != nil {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}

		entry, err := m.checker.Check(ctx, feed)
		if err != nil {
			log.Warn("check feed", "feed", feed, "error", err)
			continue
		}
		if entry != nil {
			m.batch.Offer(*entry)
		}
	}
}

func (m *Monitor) checkBatch(ctx context.Context, log *slog.Logger) {
	now := m.now()
	if !m.batch.DueForFlush(now) {
		return
	}
	entries := m.batch.Flush(now)

	labels, err := m.classifier.Classify(ctx, entries)
	if err != nil {
		log.Error("classify batch", "count", len(entries), "error", err)
		return
	}

	for i, e := range entries {
		c := labels[i]
		if c == model.CategoryNone {
			log.Debug("entry not relevant", "feed", e.Feed, "title", e.Title)
			continue
		}
		if err := m.notifier.Notify(ctx, e, c); err != nil {
			log.Error("notify", "feed", e.Feed, "title", e.Title, "error", err)
			continue
		}
		log.Info("new entry dispatched", "feed", e.Feed, "title", e.Title, "category", c)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
