// Package model defines the domain types used across the application.
package model

import (
	"strings"
	"time"
)

// FeedEndpoint is the URL of a syndication feed or a scrapeable channel page.
type FeedEndpoint string

// Origin tells where a candidate entry was extracted from.
type Origin string

// Supported entry origins.
const (
	OriginFeed    Origin = "feed"
	OriginChannel Origin = "channel"
)

// CandidateEntry is a newly detected feed entry awaiting classification.
type CandidateEntry struct {
	Title   string
	Content string
	Link    string
	Feed    FeedEndpoint
	Origin  Origin
}

// Category is a classification label.
type Category string

// CategoryNone means the entry matched no category.
const CategoryNone Category = "None"

// DefaultCategories is the vocabulary used when none is configured.
var DefaultCategories = []string{
	"License",
	"Sanction",
	"AML/CFT",
	"Regulatory",
	"Benchmark Exchange License Update",
	"Legal structure",
}

// Vocabulary is the closed set of categories an entry may be assigned.
type Vocabulary struct {
	names []string
	set   map[string]struct{}
}

// NewVocabulary builds a vocabulary from category names. Blank names and
// the None sentinel are dropped.
func NewVocabulary(names []string) Vocabulary {
	v := Vocabulary{set: make(map[string]struct{}, len(names))}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || n == string(CategoryNone) {
			continue
		}
		if _, ok := v.set[n]; ok {
			continue
		}
		v.set[n] = struct{}{}
		v.names = append(v.names, n)
	}
	return v
}

// Names returns the category names in configuration order.
func (v Vocabulary) Names() []string {
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

// Normalize maps a raw label to a category of the vocabulary.
// Anything outside the vocabulary becomes CategoryNone.
func (v Vocabulary) Normalize(label string) Category {
	label = strings.TrimSpace(label)
	if _, ok := v.set[label]; ok {
		return Category(label)
	}
	return CategoryNone
}

// Destination is a chat that receives notifications.
type Destination struct {
	ChatID    int64
	ChatType  string
	Title     string
	CreatedAt time.Time
}
