// Package service holds the thread, article and slide workflows. Handlers and
// the Telegram bot call into it; it talks to storage, the LLM gateway and the
// publishing client.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/threadpress/internal/models"
	"github.com/xaenox/threadpress/internal/publish"
)

const (
	DefaultThreadTitle  = "新規チャット"
	DefaultSlideTitle   = "新規スライド"
	DefaultArticleTitle = "新規記事"

	maxTitleRunes = 255
)

// Generator is the part of the LLM gateway the services depend on.
type Generator interface {
	GenerateResponse(ctx context.Context, history []models.ChatTurn) (string, error)
	GenerateTitle(ctx context.Context, content string) (string, error)
	GenerateArticle(ctx context.Context, transcript string) (string, error)
	GenerateSlide(ctx context.Context, transcript string) (string, error)
	Summarize(ctx context.Context, transcript string) (string, error)
}

// Publisher pushes an item to the blogging platform and returns its URL.
type Publisher interface {
	CreateItem(ctx context.Context, token string, item publish.Item) (string, error)
}

// roleTranscript renders messages as "{role}: {content}" blocks.
func roleTranscript(messages []models.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return strings.Join(parts, "\n\n")
}

// contentTranscript joins the message bodies only.
func contentTranscript(messages []models.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func errNoMessages(threadID string) error {
	return fmt.Errorf("%w: thread %s has no messages", models.ErrValidation, threadID)
}
