package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xaenox/threadpress/internal/models"
)

func (s *GormStorage) GetBinding(ctx context.Context, chatID int64) (string, error) {
	var binding models.TelegramBinding
	err := s.db.WithContext(ctx).First(&binding, "chat_id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("error querying binding: %w", err)
	}
	return binding.ThreadID, nil
}

func (s *GormStorage) SaveBinding(ctx context.Context, chatID int64, threadID string) error {
	now := time.Now().UTC()
	binding := models.TelegramBinding{
		ChatID:    chatID,
		ThreadID:  threadID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.db.WithContext(ctx).Omit("Thread").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"thread_id", "updated_at"}),
	}).Create(&binding).Error
	if err != nil {
		return fmt.Errorf("error saving binding: %w", err)
	}
	return nil
}

func (s *GormStorage) DeleteBinding(ctx context.Context, chatID int64) error {
	if err := s.db.WithContext(ctx).Delete(&models.TelegramBinding{}, "chat_id = ?", chatID).Error; err != nil {
		return fmt.Errorf("error deleting binding: %w", err)
	}
	return nil
}
