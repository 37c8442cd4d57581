// Package detector finds the newest entry of a feed and reports it when it
// differs from the last one observed.
package detector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmcdole/gofeed"

	"regwatch/internal/fetcher"
	"regwatch/internal/model"
	"regwatch/internal/scrape"
)

const channelTitleLen = 100

// Detector checks feeds for a new head entry.
type Detector struct {
	fetcher *fetcher.Fetcher
	index   *LastSeenIndex
	log     *slog.Logger
	seed    bool
}

// New creates a Detector. When seedOnFirst is set, the first entry observed
// for a feed only seeds the index and is not reported.
func New(f *fetcher.Fetcher, index *LastSeenIndex, seedOnFirst bool, log *slog.Logger) *Detector {
	return &Detector{
		fetcher: f,
		index:   index,
		log:     log,
		seed:    seedOnFirst,
	}
}

// Index returns the detector's last-seen index.
func (d *Detector) Index() *LastSeenIndex {
	return d.index
}

// Tracked returns the number of feeds with a recorded head entry.
func (d *Detector) Tracked() int {
	return d.index.Len()
}

// Check fetches feed and returns its head entry if it is new. A nil entry
// with a nil error means nothing changed. Errors leave the index untouched.
func (d *Detector) Check(ctx context.Context, feed model.FeedEndpoint) (*model.CandidateEntry, error) {
	page, err := d.fetcher.Fetch(ctx, string(feed))
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	d.log.Debug("fetched feed", "feed", feed, "content_type", page.ContentType, "len", len(page.Body))

	parsed, err := gofeed.NewParser().ParseString(string(page.Body))
	if err != nil {
		if scrape.IsChannelURL(string(feed)) {
			return d.parseChannel(page.Body, feed)
		}
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	if len(parsed.Items) == 0 {
		d.log.Debug("feed has no entries", "feed", feed)
		return nil, nil
	}

	head := parsed.Items[0]
	entry := model.CandidateEntry{
		Title:   head.Title,
		Content: firstNonEmpty(head.Description, head.Content),
		Link:    head.Link,
		Feed:    feed,
		Origin:  model.OriginFeed,
	}
	return d.observe(feed, EntryID(head), entry), nil
}

func (d *Detector) parseChannel(html []byte, feed model.FeedEndpoint) (*model.CandidateEntry, error) {
	msg, err := scrape.LatestMessage(html)
	if err != nil {
		return nil, fmt.Errorf("scrape channel: %w", err)
	}
	entry := model.CandidateEntry{
		Title:   scrape.Truncate(msg.Text, channelTitleLen),
		Content: msg.Text,
		Link:    msg.Permalink,
		Feed:    feed,
		Origin:  model.OriginChannel,
	}
	return d.observe(feed, msg.Permalink, entry), nil
}

func (d *Detector) observe(feed model.FeedEndpoint, id string, entry model.CandidateEntry) *model.CandidateEntry {
	switch d.index.Observe(feed, id) {
	case Unchanged:
		return nil
	case First:
		if d.seed {
			d.log.Info("seeded feed", "feed", feed, "id", id)
			return nil
		}
	}
	d.log.Info("new entry", "feed", feed, "id", id, "origin", entry.Origin, "title", entry.Title)
	return &entry
}

// EntryID returns the identity of a feed item: its GUID, else its link.
func EntryID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	return item.Link
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
