package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/xaenox/threadpress/internal/models"
)

func (s *GormStorage) CreateMessage(ctx context.Context, msg *models.Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("error creating message: %w", err)
		}
		result := tx.Model(&models.Thread{}).Where("id = ?", msg.ThreadID).Update("updated_at", msg.CreatedAt)
		if result.Error != nil {
			return fmt.Errorf("error touching thread: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return models.NotFound("Thread", msg.ThreadID)
		}
		return nil
	})
}

func (s *GormStorage) ListMessages(ctx context.Context, threadID string) ([]models.Message, error) {
	messages := []models.Message{}
	if checkID("Thread", threadID) != nil {
		return messages, nil
	}
	err := s.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	return messages, nil
}

func (s *GormStorage) GetMessage(ctx context.Context, threadID, messageID string) (*models.Message, error) {
	if err := checkID("Message", messageID); err != nil {
		return nil, err
	}
	if checkID("Thread", threadID) != nil {
		return nil, models.NotFound("Message", messageID)
	}
	var msg models.Message
	err := s.db.WithContext(ctx).
		First(&msg, "id = ? AND thread_id = ?", messageID, threadID).Error
	if err != nil {
		return nil, notFoundOr(err, "Message", messageID)
	}
	return &msg, nil
}
