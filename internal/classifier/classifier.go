// Package classifier assigns regulatory categories to feed entries using an
// OpenAI chat model.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"regwatch/internal/model"
)

const maxContentLen = 500

var (
	// ErrEmptyResponse is returned when the model answers with no content.
	ErrEmptyResponse = errors.New("empty completion")
	// ErrLengthMismatch is returned when the model returns a different
	// number of labels than entries submitted.
	ErrLengthMismatch = errors.New("label count does not match entry count")
)

// Completer is the subset of the OpenAI client used by the classifier.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Classifier labels entries with categories of a fixed vocabulary.
type Classifier struct {
	client Completer
	model  string
	vocab  model.Vocabulary
	log    *slog.Logger
}

// New creates a Classifier.
func New(client Completer, modelName string, vocab model.Vocabulary, log *slog.Logger) *Classifier {
	return &Classifier{
		client: client,
		model:  modelName,
		vocab:  vocab,
		log:    log,
	}
}

// NewOpenAI creates a Classifier backed by the OpenAI API.
func NewOpenAI(apiKey, modelName string, vocab model.Vocabulary, log *slog.Logger) *Classifier {
	return New(goopenai.NewClient(apiKey), modelName, vocab, log)
}

// Vocabulary returns the categories the classifier assigns.
func (c *Classifier) Vocabulary() model.Vocabulary {
	return c.vocab
}

// Classify labels every entry with a single request. The result is aligned
// with entries. Any failure fails the whole batch.
func (c *Classifier) Classify(ctx context.Context, entries []model.CandidateEntry) ([]model.Category, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	content, err := c.complete(ctx, c.batchPrompt(entries))
	if err != nil {
		return nil, err
	}

	var labels []string
	if err := json.Unmarshal([]byte(stripFence(content)), &labels); err != nil {
		return nil, fmt.Errorf("decode labels %q: %w", content, err)
	}
	if len(labels) != len(entries) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrLengthMismatch, len(labels), len(entries))
	}

	out := make([]model.Category, len(labels))
	for i, l := range labels {
		out[i] = c.vocab.Normalize(l)
	}
	return out, nil
}

// ClassifyOne labels a single entry. Errors are logged and reported as
// CategoryNone.
func (c *Classifier) ClassifyOne(ctx context.Context, title, content string) model.Category {
	answer, err := c.complete(ctx, c.singlePrompt(title, content))
	if err != nil {
		c.log.Error("classify entry", "title", title, "error", err)
		return model.CategoryNone
	}
	return c.vocab.Normalize(strings.Trim(stripFence(answer), `"'. `))
}

func (c *Classifier) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

func (c *Classifier) batchPrompt(entries []model.CandidateEntry) string {
	var b strings.Builder
	b.WriteString("Categorize each of the following news entries into one of these categories:\n")
	b.WriteString(strings.Join(c.vocab.Names(), ", "))
	b.WriteString("\n\nIf an entry is not related to any category, respond with 'None'.\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "\nEntry %d:\nTitle: %s\nContent: %s...\n", i+1, e.Title, truncate(e.Content, maxContentLen))
	}
	b.WriteString("\nRespond with a JSON array where each element is the category name or 'None' for each entry in order.\n")
	b.WriteString(`Example response: ["License", "None", "AML/CFT"]`)
	return b.String()
}

func (c *Classifier) singlePrompt(title, content string) string {
	var b strings.Builder
	b.WriteString("Given the following news title and content, categorize it into one of these categories:\n")
	b.WriteString(strings.Join(c.vocab.Names(), ", "))
	b.WriteString("\n\nIf the content is not related to any of these categories, respond with 'None'.\n\n")
	fmt.Fprintf(&b, "Title: %s\nContent: %s\n\n", title, content)
	b.WriteString("Respond with only the category name or 'None'.")
	return b.String()
}

// stripFence removes a Markdown code fence around a model answer.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
