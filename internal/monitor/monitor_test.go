package monitor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"regwatch/internal/batch"
	"regwatch/internal/detector"
	"regwatch/internal/fetcher"
	"regwatch/internal/model"
)

var t0 = time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)

type fakeRegistry struct {
	feeds []model.FeedEndpoint
}

func (f *fakeRegistry) RefreshIfDue(_ context.Context, _ time.Time) []model.FeedEndpoint {
	return f.feeds
}

func (f *fakeRegistry) Snapshot() ([]model.FeedEndpoint, time.Time) {
	return f.feeds, t0
}

type fakeChecker struct {
	entries map[model.FeedEndpoint]*model.CandidateEntry
	errs    map[model.FeedEndpoint]error
	panicOn model.FeedEndpoint
	checked []model.FeedEndpoint
}

func (f *fakeChecker) Check(_ context.Context, feed model.FeedEndpoint) (*model.CandidateEntry, error) {
	f.checked = append(f.checked, feed)
	if feed == f.panicOn {
		panic("unexpected document shape")
	}
	if err := f.errs[feed]; err != nil {
		return nil, err
	}
	e := f.entries[feed]
	delete(f.entries, feed)
	return e, nil
}

func (f *fakeChecker) Tracked() int { return len(f.checked) }

type fakeClassifier struct {
	labels []model.Category
	err    error
	got    [][]model.CandidateEntry
}

func (f *fakeClassifier) Classify(_ context.Context, entries []model.CandidateEntry) ([]model.Category, error) {
	f.got = append(f.got, entries)
	if f.err != nil {
		return nil, f.err
	}
	return f.labels, nil
}

type notification struct {
	Title    string
	Category model.Category
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (f *fakeNotifier) Notify(_ context.Context, e model.CandidateEntry, c model.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, notification{Title: e.Title, Category: c})
	return nil
}

type harness struct {
	m      *Monitor
	acc    *batch.Accumulator
	cls    *fakeClassifier
	ntf    *fakeNotifier
	clock  time.Time
	sleeps []time.Duration
}

func newHarness(reg FeedRegistry, checker Checker, cls *fakeClassifier, maxBatch int) *harness {
	h := &harness{cls: cls, ntf: &fakeNotifier{}, clock: t0}
	h.acc = batch.New(maxBatch, time.Minute, t0)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.m = New(reg, checker, h.acc, cls, h.ntf, Settings{RequestDelay: time.Second, Sleep: 10 * time.Minute}, log)
	h.m.now = func() time.Time { return h.clock }
	h.m.sleep = func(ctx context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		h.clock = h.clock.Add(d)
		return ctx.Err()
	}
	return h
}

func TestCycleClassifiesAndDispatchesRelevantEntries(t *testing.T) {
	reg := &fakeRegistry{feeds: []model.FeedEndpoint{"https://a.example.com/rss", "https://b.example.com/rss"}}
	checker := &fakeChecker{entries: map[model.FeedEndpoint]*model.CandidateEntry{
		"https://a.example.com/rss": {Title: "Exchange X granted license", Feed: "https://a.example.com/rss"},
		"https://b.example.com/rss": {Title: "Weather report", Feed: "https://b.example.com/rss"},
	}}
	cls := &fakeClassifier{labels: []model.Category{"License", model.CategoryNone}}
	h := newHarness(reg, checker, cls, 2)

	h.m.runCycle(context.Background())

	want := []notification{{Title: "Exchange X granted license", Category: "License"}}
	if diff := cmp.Diff(want, h.ntf.sent); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(0, h.acc.Len()); diff != "" {
		t.Errorf("batch should be drained (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]time.Duration{time.Second}, h.sleeps); diff != "" {
		t.Errorf("request delays mismatch (-want +got):\n%s", diff)
	}
}

func TestCycleHoldsPartialBatchUntilTimeout(t *testing.T) {
	reg := &fakeRegistry{feeds: []model.FeedEndpoint{"https://a.example.com/rss"}}
	checker := &fakeChecker{entries: map[model.FeedEndpoint]*model.CandidateEntry{
		"https://a.example.com/rss": {Title: "Sanctions update"},
	}}
	cls := &fakeClassifier{labels: []model.Category{"Sanction"}}
	h := newHarness(reg, checker, cls, 5)

	h.m.runCycle(context.Background())
	if len(cls.got) != 0 {
		t.Fatalf("batch classified before timeout: %v", cls.got)
	}

	h.clock = h.clock.Add(61 * time.Second)
	h.m.runCycle(context.Background())
	if diff := cmp.Diff(1, len(cls.got)); diff != "" {
		t.Fatalf("classify calls (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]notification{{Title: "Sanctions update", Category: "Sanction"}}, h.ntf.sent); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestCycleDropsBatchOnClassifierFailure(t *testing.T) {
	reg := &fakeRegistry{feeds: []model.FeedEndpoint{"https://a.example.com/rss"}}
	checker := &fakeChecker{entries: map[model.FeedEndpoint]*model.CandidateEntry{
		"https://a.example.com/rss": {Title: "Exchange X granted license"},
	}}
	cls := &fakeClassifier{err: errors.New("rate limited")}
	h := newHarness(reg, checker, cls, 1)

	h.m.runCycle(context.Background())

	if len(h.ntf.sent) != 0 {
		t.Errorf("expected no notifications, got %v", h.ntf.sent)
	}
	if diff := cmp.Diff(0, h.acc.Len()); diff != "" {
		t.Errorf("failed batch should still be drained (-want +got):\n%s", diff)
	}
}

func TestCycleRecoversFromPanic(t *testing.T) {
	reg := &fakeRegistry{feeds: []model.FeedEndpoint{"https://a.example.com/rss"}}
	checker := &fakeChecker{panicOn: "https://a.example.com/rss"}
	h := newHarness(reg, checker, &fakeClassifier{}, 5)

	h.m.runCycle(context.Background())
	h.m.runCycle(context.Background())

	if diff := cmp.Diff(2, len(checker.checked)); diff != "" {
		t.Errorf("checks after panic (-want +got):\n%s", diff)
	}
}

type mockHTTP struct {
	bodies map[string]string
	errs   map[string]error
}

func (m *mockHTTP) Do(req *http.Request) (*http.Response, error) {
	if err := m.errs[req.URL.String()]; err != nil {
		return nil, err
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewBufferString(m.bodies[req.URL.String()])),
	}, nil
}

func TestCycleIsolatesFeedFailures(t *testing.T) {
	sample, err := os.ReadFile("../../testdata/sample.xml")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	const (
		down = "https://down.example.com/rss"
		up   = "https://regulator.example.com/rss"
	)
	client := &mockHTTP{
		bodies: map[string]string{up: string(sample)},
		errs:   map[string]error{down: errors.New("dial tcp: connection refused")},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	det := detector.New(fetcher.New(client, 0), detector.NewLastSeenIndex(), false, log)

	reg := &fakeRegistry{feeds: []model.FeedEndpoint{down, up}}
	h := newHarness(reg, det, &fakeClassifier{labels: []model.Category{"License"}}, 1)

	h.m.runCycle(context.Background())

	if _, ok := det.Index().Get(down); ok {
		t.Error("failed feed must not be recorded")
	}
	if id, _ := det.Index().Get(up); id != "123" {
		t.Errorf("expected healthy feed recorded with 123, got %q", id)
	}
	if diff := cmp.Diff(1, len(h.ntf.sent)); diff != "" {
		t.Errorf("notifications (-want +got):\n%s", diff)
	}

	delete(client.errs, down)
	client.bodies[down] = string(sample)
	h.m.runCycle(context.Background())
	if id, _ := det.Index().Get(down); id != "123" {
		t.Errorf("expected recovered feed recorded on next cycle, got %q", id)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	reg := &fakeRegistry{feeds: []model.FeedEndpoint{"https://a.example.com/rss"}}
	h := newHarness(reg, &fakeChecker{}, &fakeClassifier{}, 5)
	h.m.sleep = sleepContext
	h.m.settings.Sleep = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.m.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestStatus(t *testing.T) {
	reg := &fakeRegistry{feeds: []model.FeedEndpoint{"https://a.example.com/rss", "https://b.example.com/rss"}}
	h := newHarness(reg, &fakeChecker{}, &fakeClassifier{}, 5)
	h.acc.Offer(model.CandidateEntry{Title: "pending"})

	h.m.runCycle(context.Background())

	want := Status{
		Feeds:        2,
		LastRefresh:  t0,
		TrackedFeeds: 2,
		Pending:      1,
		LastFlush:    t0,
		LastCycle:    t0.Add(time.Second),
	}
	if diff := cmp.Diff(want, h.m.Status()); diff != "" {
		t.Errorf("Status mismatch (-want +got):\n%s", diff)
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}
