package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/threadpress/internal/metrics"
	"github.com/xaenox/threadpress/internal/models"
	"github.com/xaenox/threadpress/internal/publish"
	"github.com/xaenox/threadpress/internal/storage"
)

// ArticleInput is the payload for a manually created article.
type ArticleInput struct {
	Title    string
	Content  string
	Status   models.ArticleStatus
	ThreadID *string
}

// PublishResult describes the outcome of PostToQiita.
type PublishResult struct {
	Article          *models.Article `json:"article"`
	URL              string          `json:"url"`
	AlreadyPublished bool            `json:"alreadyPublished"`
}

type ArticleService struct {
	store      storage.Storage
	llm        Generator
	publisher  Publisher
	qiitaToken string
	logger     *zap.Logger
}

func NewArticleService(store storage.Storage, llm Generator, publisher Publisher, qiitaToken string, logger *zap.Logger) *ArticleService {
	return &ArticleService{
		store:      store,
		llm:        llm,
		publisher:  publisher,
		qiitaToken: qiitaToken,
		logger:     logger,
	}
}

// GenerateArticle writes an article from the thread's messages. A thread has
// at most one draft: regenerating rewrites it instead of adding another.
func (s *ArticleService) GenerateArticle(ctx context.Context, threadID string) (*models.Article, error) {
	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, errNoMessages(threadID)
	}

	content, err := s.llm.GenerateArticle(ctx, contentTranscript(messages))
	if err != nil {
		return nil, err
	}

	title := articleTitle(content, thread)
	article, created, err := s.store.UpsertDraftArticle(ctx, threadID, title, content)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Article draft generated",
		zap.String("thread_id", threadID),
		zap.String("article_id", article.ID),
		zap.Bool("created", created))
	return article, nil
}

// articleTitle picks the first level-one heading of the generated text,
// falling back to the thread title.
func articleTitle(content string, thread *models.Thread) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			if title := strings.TrimSpace(strings.TrimPrefix(line, "# ")); title != "" {
				return truncateRunes(title, maxTitleRunes)
			}
		}
	}
	return truncateRunes(thread.DisplayTitle(DefaultArticleTitle), maxTitleRunes)
}

func (s *ArticleService) CreateArticle(ctx context.Context, input ArticleInput) (*models.Article, error) {
	status := input.Status
	if status == "" {
		status = models.ArticleDraft
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid article status %q", models.ErrValidation, status)
	}
	if input.ThreadID != nil {
		if _, err := s.store.GetThread(ctx, *input.ThreadID); err != nil {
			return nil, err
		}
	}

	article := &models.Article{
		Title:    truncateRunes(strings.TrimSpace(input.Title), maxTitleRunes),
		Content:  input.Content,
		Status:   status,
		ThreadID: input.ThreadID,
	}
	if err := s.store.CreateArticle(ctx, article); err != nil {
		return nil, err
	}
	s.logger.Info("Article created", zap.String("article_id", article.ID))
	return article, nil
}

func (s *ArticleService) ListArticles(ctx context.Context) ([]models.Article, error) {
	return s.store.ListArticles(ctx)
}

func (s *ArticleService) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	return s.store.GetArticle(ctx, id)
}

func (s *ArticleService) ListByThread(ctx context.Context, threadID string) ([]models.Article, error) {
	if _, err := s.store.GetThread(ctx, threadID); err != nil {
		return nil, err
	}
	return s.store.ListArticlesByThread(ctx, threadID)
}

func (s *ArticleService) UpdateArticle(ctx context.Context, id string, patch storage.ArticlePatch) (*models.Article, error) {
	return s.store.UpdateArticle(ctx, id, patch)
}

func (s *ArticleService) DeleteArticle(ctx context.Context, id string) error {
	if err := s.store.DeleteArticle(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Article deleted", zap.String("article_id", id))
	return nil
}

// PostToQiita publishes the article. An article that already carries a Qiita
// URL is returned as is, without contacting Qiita again. Without explicit
// tags, tags are suggested from the content.
func (s *ArticleService) PostToQiita(ctx context.Context, id string, tags []string) (*PublishResult, error) {
	article, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.Published() {
		metrics.RecordPublish("qiita", "skipped")
		return &PublishResult{Article: article, URL: *article.QiitaURL, AlreadyPublished: true}, nil
	}
	if s.qiitaToken == "" {
		return nil, fmt.Errorf("%w: Qiita access token is not set", models.ErrConfiguration)
	}

	tags = publish.NormalizeTags(tags)
	if len(tags) == 0 {
		tags = publish.SuggestTags(article.Content)
	}

	url, err := s.publisher.CreateItem(ctx, s.qiitaToken, publish.Item{
		Title: article.Title,
		Body:  article.Content,
		Tags:  tags,
	})
	if err != nil {
		metrics.RecordPublish("qiita", "error")
		s.logger.Error("Failed to post article to Qiita",
			zap.String("article_id", id),
			zap.Error(err))
		if !errors.Is(err, models.ErrPublish) {
			err = fmt.Errorf("%w: %v", models.ErrPublish, err)
		}
		return nil, err
	}

	published, err := s.store.MarkArticlePublished(ctx, id, url)
	if err != nil {
		return nil, err
	}
	metrics.RecordPublish("qiita", "ok")
	s.logger.Info("Article published to Qiita",
		zap.String("article_id", id),
		zap.String("url", url),
		zap.Strings("tags", tags))
	return &PublishResult{Article: published, URL: url}, nil
}
