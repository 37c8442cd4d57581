// Package registry keeps the list of monitored feeds and refreshes it from
// its provider on a fixed interval.
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"regwatch/internal/model"
)

// Provider lists the feeds to monitor.
type Provider interface {
	List(ctx context.Context) ([]model.FeedEndpoint, error)
}

// Registry caches the provider's feed list between refreshes.
type Registry struct {
	provider Provider
	interval time.Duration
	log      *slog.Logger

	mu          sync.Mutex
	feeds       []model.FeedEndpoint
	lastRefresh time.Time
}

// New creates a Registry that re-lists feeds at most once per interval.
func New(p Provider, interval time.Duration, log *slog.Logger) *Registry {
	return &Registry{
		provider: p,
		interval: interval,
		log:      log,
	}
}

// RefreshIfDue re-lists the feeds when the registry was never refreshed or
// the interval has elapsed, and returns the current list. On provider
// failure the previous list is kept and the refresh is retried on the next
// call.
func (r *Registry) RefreshIfDue(ctx context.Context, now time.Time) []model.FeedEndpoint {
	r.mu.Lock()
	due := r.lastRefresh.IsZero() || now.Sub(r.lastRefresh) >= r.interval
	r.mu.Unlock()

	if due {
		feeds, err := r.provider.List(ctx)
		if err != nil {
			r.log.Error("refresh feed list", "error", err)
		} else {
			r.mu.Lock()
			r.feeds = feeds
			r.lastRefresh = now
			r.mu.Unlock()
			r.log.Info("feed list refreshed", "count", len(feeds))
		}
	}

	feeds, _ := r.Snapshot()
	return feeds
}

// Snapshot returns a copy of the current list and the time it was fetched.
func (r *Registry) Snapshot() ([]model.FeedEndpoint, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.FeedEndpoint, len(r.feeds))
	copy(out, r.feeds)
	return out, r.lastRefresh
}

// StaticProvider serves a fixed list of feeds.
type StaticProvider []model.FeedEndpoint

// NewStaticProvider builds a StaticProvider from URLs.
func NewStaticProvider(urls []string) StaticProvider {
	out := make(StaticProvider, 0, len(urls))
	for _, u := range urls {
		out = append(out, model.FeedEndpoint(u))
	}
	return out
}

// List implements Provider.
func (p StaticProvider) List(_ context.Context) ([]model.FeedEndpoint, error) {
	out := make([]model.FeedEndpoint, len(p))
	copy(out, p)
	return out, nil
}
