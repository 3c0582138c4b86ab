package storage

import (
	"context"

	"github.com/xaenox/threadpress/internal/models"
)

type Storage interface {
	ThreadStorage
	MessageStorage
	SummaryStorage
	ArticleStorage
	SlideStorage
	BindingStorage
	Close() error
}

type ThreadStorage interface {
	CreateThread(ctx context.Context, thread *models.Thread) error
	GetThread(ctx context.Context, id string) (*models.Thread, error)
	// GetThreadDetail loads the thread with messages (oldest first) and summaries (newest first).
	GetThreadDetail(ctx context.Context, id string) (*models.Thread, error)
	ListThreads(ctx context.Context) ([]models.ThreadListItem, error)
	UpdateThreadTitle(ctx context.Context, id string, title *string) (*models.Thread, error)
	// DeleteThread removes the thread with its messages, summaries and bindings,
	// and detaches articles and slides that were generated from it.
	DeleteThread(ctx context.Context, id string) error
}

type MessageStorage interface {
	// CreateMessage stores the message and bumps the owning thread's updated_at.
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, threadID string) ([]models.Message, error)
	GetMessage(ctx context.Context, threadID, messageID string) (*models.Message, error)
}

type SummaryStorage interface {
	CreateSummary(ctx context.Context, summary *models.Summary) error
	ListSummaries(ctx context.Context, threadID string) ([]models.Summary, error)
	UpdateSummary(ctx context.Context, threadID, summaryID string, patch SummaryPatch) (*models.Summary, error)
}

type ArticleStorage interface {
	CreateArticle(ctx context.Context, article *models.Article) error
	GetArticle(ctx context.Context, id string) (*models.Article, error)
	ListArticles(ctx context.Context) ([]models.Article, error)
	ListArticlesByThread(ctx context.Context, threadID string) ([]models.Article, error)
	UpdateArticle(ctx context.Context, id string, patch ArticlePatch) (*models.Article, error)
	DeleteArticle(ctx context.Context, id string) error
	// UpsertDraftArticle rewrites the thread's draft article in place, or
	// inserts one when the thread has none. created reports which happened.
	UpsertDraftArticle(ctx context.Context, threadID, title, content string) (article *models.Article, created bool, err error)
	// MarkArticlePublished sets status and qiita_url in a single update.
	MarkArticlePublished(ctx context.Context, id, url string) (*models.Article, error)
}

type SlideStorage interface {
	CreateSlide(ctx context.Context, slide *models.Slide) error
	GetSlide(ctx context.Context, id string) (*models.SlideDetail, error)
	ListSlides(ctx context.Context) ([]models.Slide, error)
	ListSlidesByThread(ctx context.Context, threadID string) ([]models.Slide, error)
	UpdateSlide(ctx context.Context, id string, patch SlidePatch) (*models.Slide, error)
	DeleteSlide(ctx context.Context, id string) error
}

// BindingStorage maps Telegram chats to the thread they write into.
type BindingStorage interface {
	// GetBinding returns "" when the chat has no thread yet.
	GetBinding(ctx context.Context, chatID int64) (string, error)
	SaveBinding(ctx context.Context, chatID int64, threadID string) error
	DeleteBinding(ctx context.Context, chatID int64) error
}

// Patch types carry optional updates; nil fields are left untouched.

type SummaryPatch struct {
	Title     *string
	Content   *string
	Status    *models.SummaryStatus
	NotionURL *string
}

// ArticlePatch edits an article's text. Status and URL change only through
// MarkArticlePublished.
type ArticlePatch struct {
	Title   *string
	Content *string
}

type SlidePatch struct {
	Title   *string
	Content *string
}
