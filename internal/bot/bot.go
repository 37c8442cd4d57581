package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/patrickmn/go-cache"

	"regwatch/internal/config"
	"regwatch/internal/model"
	"regwatch/internal/monitor"
	"regwatch/internal/storage"
)

const (
	pollTimeout = 30

	timeoutBackoff    = 5 * time.Second
	connectionBackoff = 30 * time.Second
	defaultBackoff    = 10 * time.Second

	knownChatTTL = 24 * time.Hour
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// Classifier labels free text on demand.
type Classifier interface {
	ClassifyOne(ctx context.Context, title, content string) model.Category
	Vocabulary() model.Vocabulary
}

// StatusSource reports the state of the monitor loop.
type StatusSource interface {
	Status() monitor.Status
}

// Bot is the Telegram bot that registers destination chats, answers
// commands and sends notifications.
type Bot struct {
	api        telegramAPI
	store      storage.Storage
	cfg        *config.Config
	classifier Classifier
	status     StatusSource
	known      *cache.Cache
	log        *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Bot with the given Telegram token, storage, and config.
func New(token string, store storage.Storage, cfg *config.Config, cls Classifier, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Info("authorized on telegram", "account", api.Self.UserName)
	return newBot(api, store, cfg, cls, log), nil
}

func newBot(api telegramAPI, store storage.Storage, cfg *config.Config, cls Classifier, log *slog.Logger) *Bot {
	return &Bot{
		api:        api,
		store:      store,
		cfg:        cfg,
		classifier: cls,
		known:      cache.New(knownChatTTL, time.Hour),
		log:        log,
		sleep:      sleepContext,
	}
}

// SetStatusSource attaches the monitor whose state /status reports.
func (b *Bot) SetStatusSource(s StatusSource) {
	b.status = s
}

// Run long-polls for updates until ctx is cancelled. Polling errors are
// logged and retried after a backoff that depends on the error class.
func (b *Bot) Run(ctx context.Context) error {
	offset := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = pollTimeout

		updates, err := b.api.GetUpdates(u)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			d := backoffFor(err)
			b.log.Warn("get updates", "error", err, "retry_in", d)
			if err := b.sleep(ctx, d); err != nil {
				return nil
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return nil
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.SendMessage(chatID, text); err != nil {
		b.log.Error("send reply", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	b.registerChat(ctx, msg)

	if !msg.IsCommand() {
		return
	}
	if msg.From == nil || !b.cfg.IsUserAllowed(msg.From.ID) {
		b.reply(msg.Chat.ID, "Access denied.")
		return
	}
	b.handleCommand(ctx, msg)
}

// registerChat records group chats as notification destinations. Only the
// first message of a new group gets a confirmation reply.
func (b *Bot) registerChat(ctx context.Context, msg *tgbotapi.Message) {
	chat := msg.Chat
	if !chat.IsGroup() && !chat.IsSuperGroup() {
		b.log.Debug("ignored non-group chat", "chat_id", chat.ID, "type", chat.Type)
		return
	}

	key := strconv.FormatInt(chat.ID, 10)
	if _, ok := b.known.Get(key); ok {
		return
	}

	created, err := b.store.AddDestination(ctx, &model.Destination{
		ChatID:    chat.ID,
		ChatType:  chat.Type,
		Title:     chat.Title,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		b.log.Error("add destination", "chat_id", chat.ID, "error", err)
		return
	}
	b.known.Set(key, struct{}{}, cache.DefaultExpiration)

	if !created {
		b.log.Debug("group chat already registered", "chat_id", chat.ID)
		return
	}
	b.log.Info("registered group chat", "chat_id", chat.ID, "type", chat.Type, "title", chat.Title)

	reply := tgbotapi.NewMessage(chat.ID, "Bot has been added to this group successfully!")
	reply.ReplyToMessageID = msg.MessageID
	if _, err := b.api.Send(reply); err != nil {
		b.log.Error("send registration reply", "chat_id", chat.ID, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "status":
		b.handleStatus(ctx, chatID)
	case "categories":
		b.handleCategories(chatID)
	case "classify":
		b.handleClassify(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}

// backoffFor picks the retry delay for a polling error.
func backoffFor(err error) time.Duration {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return timeoutBackoff
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return connectionBackoff
	}
	return defaultBackoff
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
