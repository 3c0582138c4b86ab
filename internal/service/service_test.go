package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/xaenox/threadpress/internal/models"
	"github.com/xaenox/threadpress/internal/publish"
	"github.com/xaenox/threadpress/internal/storage"
)

type fakeGenerator struct {
	mu sync.Mutex

	reply    string
	replyErr error
	title    string
	titleErr error
	article  string
	slide    string
	summary  string
	genErr   error

	history    []models.ChatTurn
	transcript string
	calls      map[string]int
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		reply:   "Hi there",
		title:   "Generated title",
		article: "# Go入門\n\n本文",
		slide:   "---\nmarp: true\n---\n\n# Slide",
		summary: "要点",
		calls:   map[string]int{},
	}
}

func (f *fakeGenerator) record(task, transcript string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[task]++
	f.transcript = transcript
}

func (f *fakeGenerator) count(task string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[task]
}

func (f *fakeGenerator) GenerateResponse(_ context.Context, history []models.ChatTurn) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["response"]++
	f.history = append([]models.ChatTurn(nil), history...)
	return f.reply, f.replyErr
}

func (f *fakeGenerator) GenerateTitle(_ context.Context, content string) (string, error) {
	f.record("title", content)
	return f.title, f.titleErr
}

func (f *fakeGenerator) GenerateArticle(_ context.Context, transcript string) (string, error) {
	f.record("article", transcript)
	return f.article, f.genErr
}

func (f *fakeGenerator) GenerateSlide(_ context.Context, transcript string) (string, error) {
	f.record("slide", transcript)
	return f.slide, f.genErr
}

func (f *fakeGenerator) Summarize(_ context.Context, transcript string) (string, error) {
	f.record("summary", transcript)
	return f.summary, f.genErr
}

type fakePublisher struct {
	url   string
	err   error
	calls int
	items []publish.Item
	token string
}

func (p *fakePublisher) CreateItem(_ context.Context, token string, item publish.Item) (string, error) {
	p.calls++
	p.token = token
	p.items = append(p.items, item)
	return p.url, p.err
}

func newTestStore(t *testing.T) storage.Storage {
	t.Helper()
	store, err := storage.Open(storage.DatabaseConfig{Driver: storage.DriverSQLite, LogLevel: gormlogger.Silent}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func strPtr(s string) *string { return &s }

func seedThread(t *testing.T, store storage.Storage, title *string, turns ...models.ChatTurn) *models.Thread {
	t.Helper()
	ctx := context.Background()
	thread := &models.Thread{Title: title}
	require.NoError(t, store.CreateThread(ctx, thread))
	for _, turn := range turns {
		msg := &models.Message{ThreadID: thread.ID, Role: turn.Role, Content: turn.Content}
		require.NoError(t, store.CreateMessage(ctx, msg))
	}
	return thread
}
