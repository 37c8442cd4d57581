// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"regwatch/internal/model"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	OpenAIAPIKey     string
	OpenAIModel      string
	DatabasePath     string
	LogLevel         string
	AllowedUsers     []int64

	SpreadsheetID string
	GoogleAPIKey  string
	SheetRange    string
	FeedURLs      []string

	PollInterval            time.Duration
	RegistryRefreshInterval time.Duration
	RequestDelay            time.Duration
	FetchTimeout            time.Duration
	MaxBatchSize            int
	BatchTimeout            time.Duration
	SeedOnStart             bool
	Categories              []string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	cfg := &Config{
		TelegramBotToken: token,
		OpenAIAPIKey:     apiKey,
		OpenAIModel:      envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		DatabasePath:     envOrDefault("DATABASE_PATH", "./data/bot.db"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		SpreadsheetID:    os.Getenv("SPREADSHEET_ID"),
		GoogleAPIKey:     os.Getenv("GOOGLE_API_KEY"),
		SheetRange:       envOrDefault("SHEET_RANGE", "monitor_list!B:B"),
		FeedURLs:         splitList(os.Getenv("FEED_URLS")),
		Categories:       splitList(os.Getenv("CATEGORIES")),
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = append([]string(nil), model.DefaultCategories...)
	}

	if cfg.SpreadsheetID != "" && cfg.GoogleAPIKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY is required when SPREADSHEET_ID is set")
	}
	if cfg.SpreadsheetID == "" && len(cfg.FeedURLs) == 0 {
		return nil, fmt.Errorf("either SPREADSHEET_ID or FEED_URLS is required")
	}

	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			cfg.AllowedUsers = append(cfg.AllowedUsers, uid)
		}
	}

	var err error
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"POLL_INTERVAL", 10 * time.Minute, &cfg.PollInterval},
		{"REGISTRY_REFRESH_INTERVAL", 10 * time.Minute, &cfg.RegistryRefreshInterval},
		{"REQUEST_DELAY", time.Second, &cfg.RequestDelay},
		{"FETCH_TIMEOUT", 30 * time.Second, &cfg.FetchTimeout},
		{"BATCH_TIMEOUT", time.Minute, &cfg.BatchTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = durationEnv(d.key, d.def); err != nil {
			return nil, err
		}
	}
	if cfg.PollInterval <= 0 || cfg.RegistryRefreshInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL and REGISTRY_REFRESH_INTERVAL must be positive")
	}

	cfg.MaxBatchSize = 5
	if raw := os.Getenv("BATCH_SIZE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("BATCH_SIZE must be a positive integer, got %q", raw)
		}
		cfg.MaxBatchSize = n
	}

	if raw := os.Getenv("SEED_ON_START"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SEED_ON_START %q: %w", raw, err)
		}
		cfg.SeedOnStart = v
	}

	return cfg, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// Vocabulary returns the configured category vocabulary.
func (c *Config) Vocabulary() model.Vocabulary {
	return model.NewVocabulary(c.Categories)
}

// SleepInterval is the pause between two monitor cycles.
func (c *Config) SleepInterval() time.Duration {
	return min(c.PollInterval, c.RegistryRefreshInterval)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
