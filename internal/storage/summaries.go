package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/xaenox/threadpress/internal/models"
)

func (s *GormStorage) CreateSummary(ctx context.Context, summary *models.Summary) error {
	if err := s.db.WithContext(ctx).Create(summary).Error; err != nil {
		return fmt.Errorf("error creating summary: %w", err)
	}
	return nil
}

func (s *GormStorage) ListSummaries(ctx context.Context, threadID string) ([]models.Summary, error) {
	summaries := []models.Summary{}
	if checkID("Thread", threadID) != nil {
		return summaries, nil
	}
	err := s.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at DESC").
		Find(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("error querying summaries: %w", err)
	}
	return summaries, nil
}

func (s *GormStorage) UpdateSummary(ctx context.Context, threadID, summaryID string, patch SummaryPatch) (*models.Summary, error) {
	if checkID("Summary", summaryID) != nil || checkID("Thread", threadID) != nil {
		return nil, models.NotFound("Summary", summaryID)
	}
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Content != nil {
		updates["content"] = *patch.Content
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.NotionURL != nil {
		updates["notion_url"] = *patch.NotionURL
	}

	db := s.db.WithContext(ctx)
	result := db.Model(&models.Summary{}).
		Where("id = ? AND thread_id = ?", summaryID, threadID).
		Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("error updating summary: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, models.NotFound("Summary", summaryID)
	}

	var summary models.Summary
	if err := db.First(&summary, "id = ?", summaryID).Error; err != nil {
		return nil, notFoundOr(err, "Summary", summaryID)
	}
	return &summary, nil
}
