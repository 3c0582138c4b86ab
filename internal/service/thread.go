package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/threadpress/internal/metrics"
	"github.com/xaenox/threadpress/internal/models"
	"github.com/xaenox/threadpress/internal/storage"
)

const defaultReplyTimeout = 2 * time.Minute

// ThreadService owns the chat-thread lifecycle.
type ThreadService struct {
	store        storage.Storage
	llm          Generator
	logger       *zap.Logger
	replyTimeout time.Duration

	replies sync.WaitGroup
}

func NewThreadService(store storage.Storage, llm Generator, replyTimeout time.Duration, logger *zap.Logger) *ThreadService {
	if replyTimeout <= 0 {
		replyTimeout = defaultReplyTimeout
	}
	return &ThreadService{
		store:        store,
		llm:          llm,
		logger:       logger,
		replyTimeout: replyTimeout,
	}
}

func normalizeTitle(title *string) *string {
	if title == nil {
		return nil
	}
	t := strings.TrimSpace(*title)
	if t == "" {
		return nil
	}
	t = truncateRunes(t, maxTitleRunes)
	return &t
}

func (s *ThreadService) CreateThread(ctx context.Context, title *string) (*models.Thread, error) {
	thread := &models.Thread{Title: normalizeTitle(title)}
	if err := s.store.CreateThread(ctx, thread); err != nil {
		return nil, err
	}
	s.logger.Info("Thread created", zap.String("thread_id", thread.ID))
	return thread, nil
}

func (s *ThreadService) ListThreads(ctx context.Context) ([]models.ThreadListItem, error) {
	return s.store.ListThreads(ctx)
}

// GetThread returns the thread with its messages and summaries.
func (s *ThreadService) GetThread(ctx context.Context, id string) (*models.Thread, error) {
	return s.store.GetThreadDetail(ctx, id)
}

func (s *ThreadService) UpdateThread(ctx context.Context, id string, title *string) (*models.Thread, error) {
	thread, err := s.store.UpdateThreadTitle(ctx, id, normalizeTitle(title))
	if err != nil {
		return nil, err
	}
	s.logger.Info("Thread updated", zap.String("thread_id", id))
	return thread, nil
}

func (s *ThreadService) DeleteThread(ctx context.Context, id string) error {
	if err := s.store.DeleteThread(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Thread deleted", zap.String("thread_id", id))
	return nil
}

// AppendMessage stores a message. A user message also schedules an assistant
// reply in the background: the reply is not there yet when this returns, and
// a failed reply never affects the stored user message.
func (s *ThreadService) AppendMessage(ctx context.Context, threadID string, role models.Role, content string) (*models.Message, error) {
	msg, err := s.SaveMessage(ctx, threadID, role, content)
	if err != nil {
		return nil, err
	}
	if role == models.RoleUser {
		s.scheduleReply(ctx, threadID)
	}
	return msg, nil
}

// SaveMessage stores a message without triggering a reply.
func (s *ThreadService) SaveMessage(ctx context.Context, threadID string, role models.Role, content string) (*models.Message, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role must be user or assistant", models.ErrValidation)
	}
	if _, err := s.store.GetThread(ctx, threadID); err != nil {
		return nil, err
	}

	msg := &models.Message{ThreadID: threadID, Role: role, Content: content}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.logger.Debug("Message saved",
		zap.String("thread_id", threadID),
		zap.String("message_id", msg.ID),
		zap.String("role", string(role)))
	return msg, nil
}

func (s *ThreadService) scheduleReply(ctx context.Context, threadID string) {
	replyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.replyTimeout)
	s.replies.Add(1)
	go func() {
		defer s.replies.Done()
		defer cancel()

		if _, err := s.GenerateAIResponse(replyCtx, threadID); err != nil {
			metrics.RecordReply("error")
			s.logger.Error("Failed to generate AI response",
				zap.String("thread_id", threadID),
				zap.Error(err))
			return
		}
		metrics.RecordReply("ok")
	}()
}

// Wait blocks until every scheduled reply has finished.
func (s *ThreadService) Wait() {
	s.replies.Wait()
}

// GenerateAIResponse answers the thread's conversation and stores the reply
// as an assistant message.
func (s *ThreadService) GenerateAIResponse(ctx context.Context, threadID string) (*models.Message, error) {
	messages, err := s.threadMessages(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, errNoMessages(threadID)
	}

	history := make([]models.ChatTurn, 0, len(messages))
	for _, m := range messages {
		history = append(history, models.ChatTurn{Role: m.Role, Content: m.Content})
	}

	reply, err := s.llm.GenerateResponse(ctx, history)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{ThreadID: threadID, Role: models.RoleAssistant, Content: reply}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.logger.Info("AI response stored",
		zap.String("thread_id", threadID),
		zap.String("message_id", msg.ID))
	return msg, nil
}

func (s *ThreadService) ListMessages(ctx context.Context, threadID string) ([]models.Message, error) {
	return s.threadMessages(ctx, threadID)
}

func (s *ThreadService) GetMessage(ctx context.Context, threadID, messageID string) (*models.Message, error) {
	if _, err := s.store.GetThread(ctx, threadID); err != nil {
		return nil, err
	}
	return s.store.GetMessage(ctx, threadID, messageID)
}

func (s *ThreadService) threadMessages(ctx context.Context, threadID string) ([]models.Message, error) {
	if _, err := s.store.GetThread(ctx, threadID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, threadID)
}

// GenerateTitle proposes a title for content. It never fails: any problem
// yields DefaultThreadTitle.
func (s *ThreadService) GenerateTitle(ctx context.Context, content string) string {
	title, err := s.llm.GenerateTitle(ctx, content)
	if err != nil {
		s.logger.Warn("Falling back to default title", zap.Error(err))
		return DefaultThreadTitle
	}
	title = strings.NewReplacer("\r", "", "\n", "").Replace(title)
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultThreadTitle
	}
	return truncateRunes(title, maxTitleRunes)
}

func (s *ThreadService) CreateSummary(ctx context.Context, threadID, title, content string, status models.SummaryStatus) (*models.Summary, error) {
	if status == "" {
		status = models.SummaryPending
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid summary status %q", models.ErrValidation, status)
	}
	if _, err := s.store.GetThread(ctx, threadID); err != nil {
		return nil, err
	}

	summary := &models.Summary{
		ThreadID: threadID,
		Title:    truncateRunes(strings.TrimSpace(title), maxTitleRunes),
		Content:  content,
		Status:   status,
	}
	if err := s.store.CreateSummary(ctx, summary); err != nil {
		return nil, err
	}
	s.logger.Info("Summary created",
		zap.String("thread_id", threadID),
		zap.String("summary_id", summary.ID))
	return summary, nil
}

func (s *ThreadService) ListSummaries(ctx context.Context, threadID string) ([]models.Summary, error) {
	if _, err := s.store.GetThread(ctx, threadID); err != nil {
		return nil, err
	}
	return s.store.ListSummaries(ctx, threadID)
}

func (s *ThreadService) UpdateSummary(ctx context.Context, threadID, summaryID string, patch storage.SummaryPatch) (*models.Summary, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid summary status %q", models.ErrValidation, *patch.Status)
	}
	return s.store.UpdateSummary(ctx, threadID, summaryID, patch)
}

// GenerateSummary summarises the thread and stores it as a pending summary.
func (s *ThreadService) GenerateSummary(ctx context.Context, threadID string) (*models.Summary, error) {
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

	content, err := s.llm.Summarize(ctx, roleTranscript(messages))
	if err != nil {
		return nil, err
	}
	return s.CreateSummary(ctx, threadID, thread.DisplayTitle(DefaultThreadTitle)+" のまとめ", content, models.SummaryPending)
}
