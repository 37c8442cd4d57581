// Package notifier formats classified entries and delivers them to every
// registered destination.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"regwatch/internal/model"
)

const publishedLayout = "2006-01-02 15:04:05"

// ~20 messages/sec max for Telegram.
const defaultRate = rate.Limit(20)

// Sender delivers a text message to a chat.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// DestinationSource lists the chats that receive notifications.
type DestinationSource interface {
	ListDestinations(ctx context.Context) ([]model.Destination, error)
}

// Notifier fans out notifications to all destinations.
type Notifier struct {
	dests   DestinationSource
	sender  Sender
	limiter *rate.Limiter
	now     func() time.Time
	log     *slog.Logger
}

// New creates a Notifier paced at the default Telegram rate.
func New(dests DestinationSource, sender Sender, log *slog.Logger) *Notifier {
	return &Notifier{
		dests:   dests,
		sender:  sender,
		limiter: rate.NewLimiter(defaultRate, 1),
		now:     time.Now,
		log:     log,
	}
}

// SetRate overrides the send rate.
func (n *Notifier) SetRate(r rate.Limit) {
	n.limiter.SetLimit(r)
}

// Format renders the notification text for an entry.
func Format(e model.CandidateEntry, c model.Category, at time.Time) string {
	return fmt.Sprintf("🔔 New Update\n\n📂 Category: %s\n📰 Title: %s\n🔗 Link: %s\n🕒 Published: %s",
		c, e.Title, e.Link, at.Format(publishedLayout))
}

// Notify sends the entry to every destination. Entries without a category
// are not sent. A failing destination does not stop delivery to the
// others; all failures are returned together.
func (n *Notifier) Notify(ctx context.Context, e model.CandidateEntry, c model.Category) error {
	if c == model.CategoryNone || c == "" {
		return nil
	}

	dests, err := n.dests.ListDestinations(ctx)
	if err != nil {
		return fmt.Errorf("list destinations: %w", err)
	}
	if len(dests) == 0 {
		n.log.Warn("no destinations registered", "title", e.Title)
		return nil
	}

	text := Format(e, c, n.now())

	var errs []error
	sent := 0
	for _, d := range dests {
		if err := n.limiter.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("wait rate limit: %w", err))
			break
		}
		if err := n.sender.SendMessage(d.ChatID, text); err != nil {
			n.log.Error("send notification", "chat_id", d.ChatID, "error", err)
			errs = append(errs, fmt.Errorf("send to %d: %w", d.ChatID, err))
			continue
		}
		sent++
	}

	n.log.Info("notification dispatched", "category", c, "title", e.Title, "count", sent)
	return errors.Join(errs...)
}
