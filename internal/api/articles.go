package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xaenox/threadpress/internal/service"
)

type ArticleHandler struct {
	articles *service.ArticleService
	logger   *zap.Logger
}

func NewArticleHandler(articles *service.ArticleService, logger *zap.Logger) *ArticleHandler {
	return &ArticleHandler{articles: articles, logger: logger}
}

// Generate serves POST /threads/:id/generate-article.
func (h *ArticleHandler) Generate(c *gin.Context) {
	article, err := h.articles.GenerateArticle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

func (h *ArticleHandler) Create(c *gin.Context) {
	var req createArticleRequest
	if err := bindRequest(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	article, err := h.articles.CreateArticle(c.Request.Context(), service.ArticleInput{
		Title:    req.Title,
		Content:  req.Content,
		Status:   req.Status,
		ThreadID: req.ThreadID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, article)
}

func (h *ArticleHandler) List(c *gin.Context) {
	articles, err := h.articles.ListArticles(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, articles)
}

func (h *ArticleHandler) Get(c *gin.Context) {
	article, err := h.articles.GetArticle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

func (h *ArticleHandler) ListByThread(c *gin.Context) {
	articles, err := h.articles.ListByThread(c.Request.Context(), c.Param("threadId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, articles)
}

func (h *ArticleHandler) Update(c *gin.Context) {
	var req updateArticleRequest
	if err := bindRequest(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	article, err := h.articles.UpdateArticle(c.Request.Context(), c.Param("id"), req.patch())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

func (h *ArticleHandler) Delete(c *gin.Context) {
	if err := h.articles.DeleteArticle(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ArticleHandler) PostToQiita(c *gin.Context) {
	var req publishRequest
	if err := bindRequest(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	result, err := h.articles.PostToQiita(c.Request.Context(), c.Param("id"), req.Tags)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
