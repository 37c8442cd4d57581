package bot

import (
	"context"
	"fmt"
	"strings"
	"time"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Regwatch!

I watch regulator feeds and Telegram channels, classify new publications and post the relevant ones to every group I am added to.

Add me to a group to start receiving updates there.

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Commands:
/status — monitored feeds, pending batch and destinations
/categories — categories that trigger a notification
/classify <text> — classify a headline or short text

Groups are registered automatically on the first message the bot sees there.`)
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64) {
	if b.status == nil {
		b.reply(chatID, "Monitor is not running.")
		return
	}
	dests, err := b.store.ListDestinations(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatStatus(b.status.Status(), len(dests), time.Now()))
}

func (b *Bot) handleCategories(chatID int64) {
	b.reply(chatID, FormatCategories(b.classifier.Vocabulary().Names()))
}

func (b *Bot) handleClassify(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /classify <text>")
		return
	}
	title, _, _ := strings.Cut(args, "\n")
	category := b.classifier.ClassifyOne(ctx, strings.TrimSpace(title), args)
	b.reply(chatID, fmt.Sprintf("Category: %s", category))
}
