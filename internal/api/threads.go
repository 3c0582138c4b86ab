package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xaenox/threadpress/internal/models"
	"github.com/xaenox/threadpress/internal/service"
)

type ThreadHandler struct {
	threads *service.ThreadService
	logger  *zap.Logger
}

func NewThreadHandler(threads *service.ThreadService, logger *zap.Logger) *ThreadHandler {
	return &ThreadHandler{threads: threads, logger: logger}
}

// threadDetail always serialises both collections, even when empty.
type threadDetail struct {
	*models.Thread
	Messages  []models.Message `json:"messages"`
	Summaries []models.Summary `json:"summaries"`
}

func newThreadDetail(t *models.Thread) threadDetail {
	d := threadDetail{Thread: t, Messages: t.Messages, Summaries: t.Summaries}
	if d.Messages == nil {
		d.Messages = []models.Message{}
	}
	if d.Summaries == nil {
		d.Summaries = []models.Summary{}
	}
	return d
}

func (h *ThreadHandler) Create(c *gin.Context) {
	var req threadRequest
	if err := bindRequest(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	thread, err := h.threads.CreateThread(c.Request.Context(), req.Title)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, thread)
}

func (h *ThreadHandler) List(c *gin.Context) {
	threads, err := h.threads.ListThreads(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, threads)
}

func (h *ThreadHandler) Get(c *gin.Context) {
	thread, err := h.threads.GetThread(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newThreadDetail(thread))
}

func (h *ThreadHandler) Update(c *gin.Context) {
	var req updateThreadRequest
	if err := bindRequest(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	thread, err := h.threads.UpdateThread(c.Request.Context(), c.Param("id"), req.Title.Value)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

func (h *ThreadHandler) Delete(c *gin.Context) {
	if err := h.threads.DeleteThread(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateMessage stores the message and returns it right away. For user
// messages the assistant reply shows up later in the message list.
func (h *ThreadHandler) CreateMessage(c *gin.Context) {
	var req messageRequest
	if err := bindRequest(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	msg, err := h.threads.AppendMessage(c.Request.Context(), c.Param("id"), req.Role, req.Content)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *ThreadHandler) ListMessages(c *gin.Context) {
	messages, err := h.threads.ListMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *ThreadHandler) GetMessage(c *gin.Context) {
	msg, err := h.threads.GetMessage(c.Request.Context(), c.Param("id"), c.Param("messageId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *ThreadHandler) CreateSummary(c *gin.Context) {
	var req createSummaryRequest
	if err := bindRequest(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	summary, err := h.threads.CreateSummary(c.Request.Context(), c.Param("id"), req.Title, req.Content, req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, summary)
}

func (h *ThreadHandler) ListSummaries(c *gin.Context) {
	summaries, err := h.threads.ListSummaries(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (h *ThreadHandler) UpdateSummary(c *gin.Context) {
	var req updateSummaryRequest
	if err := bindRequest(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	summary, err := h.threads.UpdateSummary(c.Request.Context(), c.Param("id"), c.Param("summaryId"), req.patch())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ThreadHandler) GenerateSummary(c *gin.Context) {
	summary, err := h.threads.GenerateSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, summary)
}

func (h *ThreadHandler) GenerateAIResponse(c *gin.Context) {
	msg, err := h.threads.GenerateAIResponse(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *ThreadHandler) GenerateTitle(c *gin.Context) {
	var req generateTitleRequest
	if err := bindRequest(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"title": h.threads.GenerateTitle(c.Request.Context(), req.Content)})
}
