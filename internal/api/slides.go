package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xaenox/threadpress/internal/service"
)

type SlideHandler struct {
	slides *service.SlideService
	logger *zap.Logger
}

func NewSlideHandler(slides *service.SlideService, logger *zap.Logger) *SlideHandler {
	return &SlideHandler{slides: slides, logger: logger}
}

// Generate serves both POST /threads/:id/generate-slide and
// POST /slides/generate-from-thread/:threadId.
func (h *SlideHandler) Generate(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		slide, err := h.slides.GenerateFromThread(c.Request.Context(), c.Param(param))
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusCreated, slide)
	}
}

func (h *SlideHandler) Create(c *gin.Context) {
	var req createSlideRequest
	if err := bindRequest(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	slide, err := h.slides.CreateSlide(c.Request.Context(), service.SlideInput{
		Title:    req.Title,
		Content:  req.Content,
		ThreadID: req.ThreadID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, slide)
}

func (h *SlideHandler) List(c *gin.Context) {
	slides, err := h.slides.ListSlides(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, slides)
}

func (h *SlideHandler) Get(c *gin.Context) {
	slide, err := h.slides.GetSlide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, slide)
}

func (h *SlideHandler) ListByThread(c *gin.Context) {
	slides, err := h.slides.ListByThread(c.Request.Context(), c.Param("threadId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, slides)
}

func (h *SlideHandler) Update(c *gin.Context) {
	var req updateSlideRequest
	if err := bindRequest(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	slide, err := h.slides.UpdateSlide(c.Request.Context(), c.Param("id"), req.patch())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, slide)
}

func (h *SlideHandler) Delete(c *gin.Context) {
	if err := h.slides.DeleteSlide(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
