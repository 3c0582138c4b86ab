package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/xaenox/threadpress/internal/models"
	"github.com/xaenox/threadpress/internal/publish"
	"github.com/xaenox/threadpress/internal/service"
	"github.com/xaenox/threadpress/internal/storage"
)

type stubGenerator struct {
	err error
}

func (s *stubGenerator) GenerateResponse(context.Context, []models.ChatTurn) (string, error) {
	return "assistant reply", s.err
}

func (s *stubGenerator) GenerateTitle(context.Context, string) (string, error) {
	return "生成タイトル", s.err
}

func (s *stubGenerator) GenerateArticle(context.Context, string) (string, error) {
	return "# 記事タイトル\n\n本文", s.err
}

func (s *stubGenerator) GenerateSlide(context.Context, string) (string, error) {
	return "---\nmarp: true\n---", s.err
}

func (s *stubGenerator) Summarize(context.Context, string) (string, error) {
	return "まとめ", s.err
}

type stubPublisher struct {
	calls int
}

func (p *stubPublisher) CreateItem(context.Context, string, publish.Item) (string, error) {
	p.calls++
	return "https://qiita.com/u/items/1", nil
}

type testServer struct {
	router    *gin.Engine
	threads   *service.ThreadService
	gen       *stubGenerator
	publisher *stubPublisher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.Open(storage.DatabaseConfig{Driver: storage.DriverSQLite, LogLevel: gormlogger.Silent}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := zap.NewNop()
	gen := &stubGenerator{}
	pub := &stubPublisher{}
	threads := service.NewThreadService(store, gen, 5*time.Second, logger)
	t.Cleanup(threads.Wait)

	router := NewRouter(RouterConfig{
		Threads:     threads,
		Articles:    service.NewArticleService(store, gen, pub, "token", logger),
		Slides:      service.NewSlideService(store, gen, logger),
		CORSOrigins: []string{"http://localhost:3000"},
		Logger:      logger,
	})
	return &testServer{router: router, threads: threads, gen: gen, publisher: pub}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) createThread(t *testing.T, title string) models.Thread {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/threads", map[string]any{"title": title})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Thread](t, rec)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestThreadLifecycle(t *testing.T) {
	s := newTestServer(t)
	thread := s.createThread(t, "Go")

	rec := s.do(t, http.MethodPost, "/threads/"+thread.ID+"/messages", map[string]any{"content": "Hello", "role": "user"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	msg := decode[models.Message](t, rec)
	assert.Equal(t, models.RoleUser, msg.Role)
	assert.Equal(t, thread.ID, msg.ThreadID)

	s.threads.Wait()

	rec = s.do(t, http.MethodGet, "/threads/"+thread.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		ID        string           `json:"id"`
		Messages  []models.Message `json:"messages"`
		Summaries []models.Summary `json:"summaries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, "assistant reply", detail.Messages[1].Content)
	assert.NotNil(t, detail.Summaries)

	rec = s.do(t, http.MethodGet, "/threads", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]models.ThreadListItem](t, rec)
	require.Len(t, list, 1)
	assert.EqualValues(t, 2, list[0].MessageCount)

	rec = s.do(t, http.MethodPatch, "/threads/"+thread.ID, map[string]any{"title": "Renamed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Renamed", *decode[models.Thread](t, rec).Title)

	rec = s.do(t, http.MethodDelete, "/threads/"+thread.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/threads/"+thread.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFailedReplyKeepsUserMessage(t *testing.T) {
	s := newTestServer(t)
	s.gen.err = models.ErrGeneration
	thread := s.createThread(t, "Go")

	rec := s.do(t, http.MethodPost, "/threads/"+thread.ID+"/messages", map[string]any{"content": "Hello", "role": "user"})
	require.Equal(t, http.StatusCreated, rec.Code)
	s.threads.Wait()

	rec = s.do(t, http.MethodGet, "/threads/"+thread.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Message](t, rec), 1)

	rec = s.do(t, http.MethodPost, "/threads/"+thread.ID+"/ai-response", map[string]any{})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decode[ErrorEnvelope](t, rec)
	assert.Equal(t, "AIによる生成に失敗しました", env.Error.Message)
	assert.Equal(t, codeGeneration, env.Error.Code)
}

func TestValidationErrors(t *testing.T) {
	s := newTestServer(t)
	thread := s.createThread(t, "Go")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"bad role", http.MethodPost, "/threads/" + thread.ID + "/messages", map[string]any{"content": "x", "role": "system"}},
		{"missing content", http.MethodPost, "/threads/" + thread.ID + "/messages", map[string]any{"role": "user"}},
		{"long title", http.MethodPost, "/threads", map[string]any{"title": strings.Repeat("あ", 256)}},
		{"bad summary status", http.MethodPost, "/threads/" + thread.ID + "/summaries", map[string]any{"title": "t", "content": "c", "status": "done"}},
		{"empty title request", http.MethodPost, "/threads/generate-title", map[string]any{}},
		{"bad article status", http.MethodPost, "/articles", map[string]any{"title": "t", "content": "c", "status": "archived"}},
		{"empty article patch", http.MethodPatch, "/articles/" + uuid.NewString(), map[string]any{}},
		{"empty thread patch", http.MethodPatch, "/threads/" + thread.ID, map[string]any{}},
		{"long thread patch", http.MethodPatch, "/threads/" + thread.ID, map[string]any{"title": strings.Repeat("あ", 256)}},
		{"bad thread id", http.MethodPost, "/slides", map[string]any{"title": "t", "content": "c", "threadId": "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, codeValidation, decode[ErrorEnvelope](t, rec).Error.Code)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/threads", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotFoundNamesResource(t *testing.T) {
	s := newTestServer(t)
	id := uuid.NewString()

	rec := s.do(t, http.MethodPost, "/threads/"+id+"/messages", map[string]any{"content": "x", "role": "user"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	env := decode[ErrorEnvelope](t, rec)
	assert.Equal(t, "Thread with ID "+id+" not found", env.Error.Message)
	assert.Equal(t, codeNotFound, env.Error.Code)

	for _, path := range []string{"/articles/" + id, "/slides/" + id, "/threads/" + id + "/summaries"} {
		rec = s.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestListByUnknownThread(t *testing.T) {
	s := newTestServer(t)
	id := uuid.NewString()

	for _, path := range []string{"/articles/thread/" + id, "/slides/thread/" + id} {
		rec := s.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusNotFound, rec.Code, path)
		env := decode[ErrorEnvelope](t, rec)
		assert.Equal(t, "Thread with ID "+id+" not found", env.Error.Message, path)
		assert.Equal(t, codeNotFound, env.Error.Code, path)
	}
}

func TestThreadPatchTitle(t *testing.T) {
	s := newTestServer(t)
	thread := s.createThread(t, "Go")

	rec := s.do(t, http.MethodPatch, "/threads/"+thread.ID, map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodGet, "/threads/"+thread.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[models.Thread](t, rec)
	require.NotNil(t, got.Title)
	assert.Equal(t, "Go", *got.Title)

	rec = s.do(t, http.MethodPatch, "/threads/"+thread.ID, map[string]any{"title": nil})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, decode[models.Thread](t, rec).Title)
}

func TestGenerateTitle(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/threads/generate-title", map[string]any{"content": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"title":"生成タイトル"}`, rec.Body.String())

	s.gen.err = models.ErrGeneration
	rec = s.do(t, http.MethodPost, "/threads/generate-title", map[string]any{"content": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"title":"新規チャット"}`, rec.Body.String())
}

func TestArticleGenerateAndPublish(t *testing.T) {
	s := newTestServer(t)
	thread := s.createThread(t, "Go")
	rec := s.do(t, http.MethodPost, "/threads/"+thread.ID+"/messages", map[string]any{"content": "Hello", "role": "assistant"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/threads/"+thread.ID+"/generate-article", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	article := decode[models.Article](t, rec)
	assert.Equal(t, "記事タイトル", article.Title)
	assert.Equal(t, models.ArticleDraft, article.Status)

	rec = s.do(t, http.MethodPost, "/articles/"+article.ID+"/qiita", map[string]any{"tags": []string{"Go"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[service.PublishResult](t, rec)
	assert.False(t, result.AlreadyPublished)
	assert.Equal(t, "https://qiita.com/u/items/1", result.URL)

	rec = s.do(t, http.MethodPost, "/articles/"+article.ID+"/qiita", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[service.PublishResult](t, rec).AlreadyPublished)
	assert.Equal(t, 1, s.publisher.calls)

	rec = s.do(t, http.MethodGet, "/articles/thread/"+thread.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Article](t, rec), 1)
}

func TestPublishedArticleStaysPublished(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/articles", map[string]any{"title": "t", "content": "c"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	article := decode[models.Article](t, rec)

	rec = s.do(t, http.MethodPost, "/articles/"+article.ID+"/qiita", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, body := range []map[string]any{
		{"status": "draft"},
		{"title": "new", "status": "draft"},
		{"qiitaUrl": "https://qiita.com/u/items/2"},
	} {
		rec = s.do(t, http.MethodPatch, "/articles/"+article.ID, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPatch, "/articles/"+article.ID, map[string]any{"title": "new"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.Article](t, rec)
	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, models.ArticlePublished, updated.Status)
	require.NotNil(t, updated.QiitaURL)
	assert.Equal(t, "https://qiita.com/u/items/1", *updated.QiitaURL)

	rec = s.do(t, http.MethodPost, "/articles/"+article.ID+"/qiita", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[service.PublishResult](t, rec).AlreadyPublished)
	assert.Equal(t, 1, s.publisher.calls)
}

func TestSlideRoutes(t *testing.T) {
	s := newTestServer(t)
	thread := s.createThread(t, "勉強会")
	rec := s.do(t, http.MethodPost, "/threads/"+thread.ID+"/messages", map[string]any{"content": "Hello", "role": "assistant"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/slides/generate-from-thread/"+thread.ID, map[string]any{})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/threads/"+thread.ID+"/generate-slide", map[string]any{})
	require.Equal(t, http.StatusCreated, rec.Code)
	slide := decode[models.Slide](t, rec)
	assert.Equal(t, "勉強会", slide.Title)

	rec = s.do(t, http.MethodGet, "/slides/thread/"+thread.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Slide](t, rec), 2)

	rec = s.do(t, http.MethodGet, "/slides/"+slide.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[models.SlideDetail](t, rec)
	require.NotNil(t, detail.Thread)
	assert.Equal(t, thread.ID, detail.Thread.ID)

	rec = s.do(t, http.MethodDelete, "/threads/"+thread.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/slides/"+slide.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail = decode[models.SlideDetail](t, rec)
	assert.Nil(t, detail.ThreadID)
	assert.Nil(t, detail.Thread)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/threads", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
