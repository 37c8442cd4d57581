// Package scrape extracts posts from Telegram public channel pages (t.me/s/<channel>).
package scrape

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ChannelPattern marks a feed URL as a Telegram channel preview page.
const ChannelPattern = "t.me/s/"

var (
	// ErrNoMessages is returned when the page has no message blocks.
	ErrNoMessages = errors.New("no messages found")
	// ErrIncompleteMessage is returned when the first message lacks a permalink or a body.
	ErrIncompleteMessage = errors.New("message has no permalink or text")
)

// ChannelMessage is a single post of a channel page.
type ChannelMessage struct {
	Permalink string
	Text      string
}

// IsChannelURL reports whether url points at a channel preview page.
func IsChannelURL(url string) bool {
	return strings.Contains(url, ChannelPattern)
}

// LatestMessage returns the first message block of a channel page.
func LatestMessage(html []byte) (ChannelMessage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ChannelMessage{}, fmt.Errorf("parse html: %w", err)
	}

	msg := doc.Find("div.tgme_widget_message").First()
	if msg.Length() == 0 {
		return ChannelMessage{}, ErrNoMessages
	}

	link, _ := msg.Find("a.tgme_widget_message_date").First().Attr("href")
	text := msg.Find("div.tgme_widget_message_text").First()
	if link == "" || text.Length() == 0 {
		return ChannelMessage{}, ErrIncompleteMessage
	}

	return ChannelMessage{
		Permalink: link,
		Text:      strings.TrimSpace(text.Text()),
	}, nil
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
