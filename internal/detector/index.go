package detector

import (
	"sync"

	"regwatch/internal/model"
)

// Observation is the outcome of recording an identity in the index.
type Observation int

// Observation values.
const (
	Unchanged Observation = iota
	Changed
	First
)

// LastSeenIndex maps each feed to the identity of its latest observed entry.
// Entries are only ever overwritten, never removed.
type LastSeenIndex struct {
	mu   sync.Mutex
	seen map[model.FeedEndpoint]string
}

// NewLastSeenIndex creates an empty index.
func NewLastSeenIndex() *LastSeenIndex {
	return &LastSeenIndex{seen: make(map[model.FeedEndpoint]string)}
}

// Observe records id as the latest identity of feed and reports whether it
// is the first identity seen for the feed, a new one, or the stored one.
func (x *LastSeenIndex) Observe(feed model.FeedEndpoint, id string) Observation {
	x.mu.Lock()
	defer x.mu.Unlock()

	prev, ok := x.seen[feed]
	switch {
	case !ok:
		x.seen[feed] = id
		return First
	case prev != id:
		x.seen[feed] = id
		return Changed
	default:
		return Unchanged
	}
}

// Get returns the stored identity for feed.
func (x *LastSeenIndex) Get(feed model.FeedEndpoint) (string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	id, ok := x.seen[feed]
	return id, ok
}

// Len returns the number of tracked feeds.
func (x *LastSeenIndex) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.seen)
}
