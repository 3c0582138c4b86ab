package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xaenox/threadpress/internal/service"
)

type RouterConfig struct {
	Threads     *service.ThreadService
	Articles    *service.ArticleService
	Slides      *service.SlideService
	CORSOrigins []string
	Logger      *zap.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(Recovery(cfg.Logger), RequestLogger(cfg.Logger), Metrics())

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	threads := NewThreadHandler(cfg.Threads, cfg.Logger)
	articles := NewArticleHandler(cfg.Articles, cfg.Logger)
	slides := NewSlideHandler(cfg.Slides, cfg.Logger)

	router.GET("/health", HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	t := router.Group("/threads")
	{
		t.POST("", threads.Create)
		t.GET("", threads.List)
		t.POST("/generate-title", threads.GenerateTitle)
		t.GET("/:id", threads.Get)
		t.PATCH("/:id", threads.Update)
		t.DELETE("/:id", threads.Delete)

		t.POST("/:id/messages", threads.CreateMessage)
		t.GET("/:id/messages", threads.ListMessages)
		t.GET("/:id/messages/:messageId", threads.GetMessage)

		t.POST("/:id/summaries", threads.CreateSummary)
		t.GET("/:id/summaries", threads.ListSummaries)
		t.POST("/:id/summaries/generate", threads.GenerateSummary)
		t.PATCH("/:id/summaries/:summaryId", threads.UpdateSummary)

		t.POST("/:id/ai-response", threads.GenerateAIResponse)
		t.POST("/:id/generate-slide", slides.Generate("id"))
		t.POST("/:id/generate-article", articles.Generate)
	}

	a := router.Group("/articles")
	{
		a.POST("", articles.Create)
		a.GET("", articles.List)
		a.GET("/thread/:threadId", articles.ListByThread)
		a.GET("/:id", articles.Get)
		a.PATCH("/:id", articles.Update)
		a.DELETE("/:id", articles.Delete)
		a.POST("/:id/qiita", articles.PostToQiita)
	}

	s := router.Group("/slides")
	{
		s.POST("", slides.Create)
		s.GET("", slides.List)
		s.POST("/generate-from-thread/:threadId", slides.Generate("threadId"))
		s.GET("/thread/:threadId", slides.ListByThread)
		s.GET("/:id", slides.Get)
		s.PATCH("/:id", slides.Update)
		s.DELETE("/:id", slides.Delete)
	}

	return router
}
