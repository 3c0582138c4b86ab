package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xaenox/threadpress/internal/models"
)

func (s *GormStorage) CreateArticle(ctx context.Context, article *models.Article) error {
	if err := s.db.WithContext(ctx).Omit("Thread").Create(article).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("draft article for thread: %w", models.ErrConflict)
		}
		return fmt.Errorf("error creating article: %w", err)
	}
	return nil
}

func (s *GormStorage) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	if err := checkID("Article", id); err != nil {
		return nil, err
	}
	var article models.Article
	if err := s.db.WithContext(ctx).First(&article, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Article", id)
	}
	return &article, nil
}

func (s *GormStorage) ListArticles(ctx context.Context) ([]models.Article, error) {
	articles := []models.Article{}
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&articles).Error; err != nil {
		return nil, fmt.Errorf("error querying articles: %w", err)
	}
	return articles, nil
}

func (s *GormStorage) ListArticlesByThread(ctx context.Context, threadID string) ([]models.Article, error) {
	articles := []models.Article{}
	if checkID("Thread", threadID) != nil {
		return articles, nil
	}
	err := s.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at DESC").
		Find(&articles).Error
	if err != nil {
		return nil, fmt.Errorf("error querying articles: %w", err)
	}
	return articles, nil
}

func (s *GormStorage) UpdateArticle(ctx context.Context, id string, patch ArticlePatch) (*models.Article, error) {
	if err := checkID("Article", id); err != nil {
		return nil, err
	}
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Content != nil {
		updates["content"] = *patch.Content
	}

	result := s.db.WithContext(ctx).Model(&models.Article{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("error updating article: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, models.NotFound("Article", id)
	}
	return s.GetArticle(ctx, id)
}

func (s *GormStorage) DeleteArticle(ctx context.Context, id string) error {
	if err := checkID("Article", id); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Delete(&models.Article{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("error deleting article: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NotFound("Article", id)
	}
	return nil
}

func (s *GormStorage) UpsertDraftArticle(ctx context.Context, threadID, title, content string) (*models.Article, bool, error) {
	article, created, err := s.upsertDraft(ctx, threadID, title, content)
	if isDuplicateKey(err) {
		// A concurrent generation inserted the draft first; update that one.
		s.logger.Info("Draft article inserted concurrently, retrying as update",
			zap.String("thread_id", threadID))
		article, created, err = s.upsertDraft(ctx, threadID, title, content)
	}
	if err != nil {
		return nil, false, fmt.Errorf("error saving draft article: %w", err)
	}
	return article, created, nil
}

func (s *GormStorage) upsertDraft(ctx context.Context, threadID, title, content string) (*models.Article, bool, error) {
	var (
		article models.Article
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("thread_id = ? AND status = ?", threadID, models.ArticleDraft).
			Order("created_at ASC").
			First(&article).Error
		switch {
		case err == nil:
			now := time.Now().UTC()
			if err := tx.Model(&models.Article{}).Where("id = ?", article.ID).Updates(map[string]any{
				"title":      title,
				"content":    content,
				"updated_at": now,
			}).Error; err != nil {
				return err
			}
			article.Title = title
			article.Content = content
			article.UpdatedAt = now
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			tid := threadID
			article = models.Article{
				Title:    title,
				Content:  content,
				Status:   models.ArticleDraft,
				ThreadID: &tid,
			}
			created = true
			return tx.Omit("Thread").Create(&article).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, false, err
	}
	return &article, created, nil
}

func (s *GormStorage) MarkArticlePublished(ctx context.Context, id, url string) (*models.Article, error) {
	if err := checkID("Article", id); err != nil {
		return nil, err
	}
	result := s.db.WithContext(ctx).Model(&models.Article{}).Where("id = ?", id).Updates(map[string]any{
		"status":     models.ArticlePublished,
		"qiita_url":  url,
		"updated_at": time.Now().UTC(),
	})
	if result.Error != nil {
		return nil, fmt.Errorf("error marking article published: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, models.NotFound("Article", id)
	}
	return s.GetArticle(ctx, id)
}
