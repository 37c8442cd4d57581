package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"regwatch/internal/batch"
	"regwatch/internal/bot"
	"regwatch/internal/classifier"
	"regwatch/internal/config"
	"regwatch/internal/detector"
	"regwatch/internal/fetcher"
	"regwatch/internal/monitor"
	"regwatch/internal/notifier"
	"regwatch/internal/registry"
	"regwatch/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		log.Error("create feed provider", "error", err)
		os.Exit(1)
	}

	cls := classifier.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.Vocabulary(), log)

	b, err := bot.New(cfg.TelegramBotToken, store, cfg, cls, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	det := detector.New(
		fetcher.New(http.DefaultClient, cfg.FetchTimeout),
		detector.NewLastSeenIndex(),
		cfg.SeedOnStart,
		log,
	)
	mon := monitor.New(
		registry.New(provider, cfg.RegistryRefreshInterval, log),
		det,
		batch.New(cfg.MaxBatchSize, cfg.BatchTimeout, time.Now()),
		cls,
		notifier.New(store, b, log),
		monitor.Settings{RequestDelay: cfg.RequestDelay, Sleep: cfg.SleepInterval()},
		log,
	)
	b.SetStatusSource(mon)

	log.Info("starting bot", "model", cfg.OpenAIModel, "categories", len(cfg.Categories))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mon.Run(gctx) })
	g.Go(func() error { return b.Run(gctx) })
	if err := g.Wait(); err != nil {
		log.Error("run", "error", err)
		os.Exit(1)
	}

	log.Info("bot stopped")
}

func newProvider(ctx context.Context, cfg *config.Config) (registry.Provider, error) {
	if cfg.SpreadsheetID == "" {
		return registry.NewStaticProvider(cfg.FeedURLs), nil
	}
	return registry.NewSheetsProvider(ctx, cfg.SpreadsheetID, cfg.GoogleAPIKey, cfg.SheetRange)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
