package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/xaenox/threadpress/internal/models"
)

func (s *GormStorage) CreateSlide(ctx context.Context, slide *models.Slide) error {
	if err := s.db.WithContext(ctx).Omit("Thread").Create(slide).Error; err != nil {
		return fmt.Errorf("error creating slide: %w", err)
	}
	return nil
}

func (s *GormStorage) GetSlide(ctx context.Context, id string) (*models.SlideDetail, error) {
	if err := checkID("Slide", id); err != nil {
		return nil, err
	}
	var slide models.Slide
	err := s.db.WithContext(ctx).
		Preload("Thread", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "title")
		}).
		First(&slide, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "Slide", id)
	}

	detail := &models.SlideDetail{Slide: slide}
	if slide.Thread != nil {
		detail.Thread = &models.ThreadRef{ID: slide.Thread.ID, Title: slide.Thread.Title}
	}
	detail.Slide.Thread = nil
	return detail, nil
}

func (s *GormStorage) ListSlides(ctx context.Context) ([]models.Slide, error) {
	slides := []models.Slide{}
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&slides).Error; err != nil {
		return nil, fmt.Errorf("error querying slides: %w", err)
	}
	return slides, nil
}

func (s *GormStorage) ListSlidesByThread(ctx context.Context, threadID string) ([]models.Slide, error) {
	slides := []models.Slide{}
	if checkID("Thread", threadID) != nil {
		return slides, nil
	}
	err := s.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at DESC").
		Find(&slides).Error
	if err != nil {
		return nil, fmt.Errorf("error querying slides: %w", err)
	}
	return slides, nil
}

func (s *GormStorage) UpdateSlide(ctx context.Context, id string, patch SlidePatch) (*models.Slide, error) {
	if err := checkID("Slide", id); err != nil {
		return nil, err
	}
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Content != nil {
		updates["content"] = *patch.Content
	}

	db := s.db.WithContext(ctx)
	result := db.Model(&models.Slide{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("error updating slide: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, models.NotFound("Slide", id)
	}

	var slide models.Slide
	if err := db.First(&slide, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Slide", id)
	}
	return &slide, nil
}

func (s *GormStorage) DeleteSlide(ctx context.Context, id string) error {
	if err := checkID("Slide", id); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Delete(&models.Slide{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("error deleting slide: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NotFound("Slide", id)
	}
	return nil
}
