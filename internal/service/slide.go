package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/threadpress/internal/models"
	"github.com/xaenox/threadpress/internal/storage"
)

type SlideInput struct {
	Title    string
	Content  string
	ThreadID *string
}

type SlideService struct {
	store  storage.Storage
	llm    Generator
	logger *zap.Logger
}

func NewSlideService(store storage.Storage, llm Generator, logger *zap.Logger) *SlideService {
	return &SlideService{store: store, llm: llm, logger: logger}
}

// GenerateFromThread renders the thread as a Marp deck. Every call stores a
// new slide.
func (s *SlideService) GenerateFromThread(ctx context.Context, threadID string) (*models.Slide, error) {
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

	content, err := s.llm.GenerateSlide(ctx, roleTranscript(messages))
	if err != nil {
		return nil, err
	}

	slide := &models.Slide{
		Title:    truncateRunes(thread.DisplayTitle(DefaultSlideTitle), maxTitleRunes),
		Content:  content,
		ThreadID: &thread.ID,
	}
	if err := s.store.CreateSlide(ctx, slide); err != nil {
		return nil, err
	}
	s.logger.Info("Slide generated",
		zap.String("thread_id", threadID),
		zap.String("slide_id", slide.ID))
	return slide, nil
}

func (s *SlideService) CreateSlide(ctx context.Context, input SlideInput) (*models.Slide, error) {
	if input.ThreadID != nil {
		if _, err := s.store.GetThread(ctx, *input.ThreadID); err != nil {
			return nil, err
		}
	}
	slide := &models.Slide{
		Title:    truncateRunes(strings.TrimSpace(input.Title), maxTitleRunes),
		Content:  input.Content,
		ThreadID: input.ThreadID,
	}
	if err := s.store.CreateSlide(ctx, slide); err != nil {
		return nil, err
	}
	s.logger.Info("Slide created", zap.String("slide_id", slide.ID))
	return slide, nil
}

func (s *SlideService) ListSlides(ctx context.Context) ([]models.Slide, error) {
	return s.store.ListSlides(ctx)
}

// GetSlide returns the slide with a projection of its source thread.
func (s *SlideService) GetSlide(ctx context.Context, id string) (*models.SlideDetail, error) {
	return s.store.GetSlide(ctx, id)
}

func (s *SlideService) ListByThread(ctx context.Context, threadID string) ([]models.Slide, error) {
	if _, err := s.store.GetThread(ctx, threadID); err != nil {
		return nil, err
	}
	return s.store.ListSlidesByThread(ctx, threadID)
}

func (s *SlideService) UpdateSlide(ctx context.Context, id string, patch storage.SlidePatch) (*models.Slide, error) {
	return s.store.UpdateSlide(ctx, id, patch)
}

func (s *SlideService) DeleteSlide(ctx context.Context, id string) error {
	if err := s.store.DeleteSlide(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Slide deleted", zap.String("slide_id", id))
	return nil
}
