package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/xaenox/threadpress/internal/models"
)

func (s *GormStorage) CreateThread(ctx context.Context, thread *models.Thread) error {
	if err := s.db.WithContext(ctx).Omit("Messages", "Summaries").Create(thread).Error; err != nil {
		return fmt.Errorf("error creating thread: %w", err)
	}
	return nil
}

func (s *GormStorage) GetThread(ctx context.Context, id string) (*models.Thread, error) {
	if err := checkID("Thread", id); err != nil {
		return nil, err
	}
	var thread models.Thread
	if err := s.db.WithContext(ctx).First(&thread, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Thread", id)
	}
	return &thread, nil
}

func (s *GormStorage) GetThreadDetail(ctx context.Context, id string) (*models.Thread, error) {
	if err := checkID("Thread", id); err != nil {
		return nil, err
	}
	var thread models.Thread
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Summaries", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		First(&thread, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "Thread", id)
	}
	if thread.Messages == nil {
		thread.Messages = []models.Message{}
	}
	if thread.Summaries == nil {
		thread.Summaries = []models.Summary{}
	}
	return &thread, nil
}

type threadCount struct {
	ThreadID string
	N        int64
}

func (s *GormStorage) ListThreads(ctx context.Context) ([]models.ThreadListItem, error) {
	db := s.db.WithContext(ctx)

	var threads []models.Thread
	if err := db.Order("updated_at DESC").Find(&threads).Error; err != nil {
		return nil, fmt.Errorf("error querying threads: %w", err)
	}

	messageCounts, err := s.countByThread(db, &models.Message{})
	if err != nil {
		return nil, err
	}
	summaryCounts, err := s.countByThread(db, &models.Summary{})
	if err != nil {
		return nil, err
	}

	items := make([]models.ThreadListItem, 0, len(threads))
	for _, t := range threads {
		items = append(items, models.ThreadListItem{
			Thread:       t,
			MessageCount: messageCounts[t.ID],
			SummaryCount: summaryCounts[t.ID],
		})
	}
	return items, nil
}

func (s *GormStorage) countByThread(db *gorm.DB, model any) (map[string]int64, error) {
	var rows []threadCount
	err := db.Model(model).
		Select("thread_id, COUNT(*) AS n").
		Group("thread_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error counting thread children: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.ThreadID] = r.N
	}
	return counts, nil
}

func (s *GormStorage) UpdateThreadTitle(ctx context.Context, id string, title *string) (*models.Thread, error) {
	if err := checkID("Thread", id); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	result := db.Model(&models.Thread{}).
		Where("id = ?", id).
		Updates(map[string]any{"title": title, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return nil, fmt.Errorf("error updating thread: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, models.NotFound("Thread", id)
	}
	return s.GetThread(ctx, id)
}

func (s *GormStorage) DeleteThread(ctx context.Context, id string) error {
	if err := checkID("Thread", id); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var thread models.Thread
		if err := tx.Select("id").First(&thread, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "Thread", id)
		}

		if err := tx.Model(&models.Article{}).Where("thread_id = ?", id).Update("thread_id", nil).Error; err != nil {
			return fmt.Errorf("error detaching articles: %w", err)
		}
		if err := tx.Model(&models.Slide{}).Where("thread_id = ?", id).Update("thread_id", nil).Error; err != nil {
			return fmt.Errorf("error detaching slides: %w", err)
		}
		for _, child := range []any{&models.Message{}, &models.Summary{}, &models.TelegramBinding{}} {
			if err := tx.Where("thread_id = ?", id).Delete(child).Error; err != nil {
				return fmt.Errorf("error deleting thread children: %w", err)
			}
		}
		if err := tx.Delete(&models.Thread{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("error deleting thread: %w", err)
		}
		return nil
	})
}
