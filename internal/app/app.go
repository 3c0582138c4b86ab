// Package app wires configuration into storage, the LLM gateway, the
// publishing client and the services shared by both entrypoints.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xaenox/threadpress/internal/llm"
	"github.com/xaenox/threadpress/internal/publish"
	"github.com/xaenox/threadpress/internal/service"
	"github.com/xaenox/threadpress/internal/storage"
	"github.com/xaenox/threadpress/pkg/config"
)

type App struct {
	Cfg      *config.Config
	Log      *zap.Logger
	Store    *storage.GormStorage
	Threads  *service.ThreadService
	Articles *service.ArticleService
	Slides   *service.SlideService
}

// NewLogger returns a production logger for the production environment and a
// development logger otherwise.
func NewLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	store, err := storage.Open(databaseConfig(cfg.Database), log)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	if cfg.OpenAI.APIKey == "" {
		log.Warn("OpenAI API key is not set; generation requests will fail")
	}
	gateway := llm.NewGateway(gatewayConfig(cfg.OpenAI), log)

	qiitaBaseURL := cfg.Qiita.BaseURL
	if qiitaBaseURL == "" {
		qiitaBaseURL = publish.DefaultQiitaBaseURL
	}
	qiita := publish.NewQiitaClient(qiitaBaseURL, cfg.Qiita.Timeout, log)

	return &App{
		Cfg:      cfg,
		Log:      log,
		Store:    store,
		Threads:  service.NewThreadService(store, gateway, cfg.Server.ReplyTimeout, log),
		Articles: service.NewArticleService(store, gateway, qiita, cfg.Qiita.Token, log),
		Slides:   service.NewSlideService(store, gateway, log),
	}, nil
}

// Close waits for background replies and then closes the database.
func (a *App) Close() error {
	a.Threads.Wait()
	return a.Store.Close()
}

func databaseConfig(c config.DatabaseConfig) storage.DatabaseConfig {
	return storage.DatabaseConfig{
		Driver:     c.Driver,
		Host:       c.Host,
		Port:       c.Port,
		User:       c.User,
		Password:   c.Password,
		DBName:     c.DBName,
		SSLMode:    c.SSLMode,
		SQLitePath: c.SQLitePath,
	}
}

func gatewayConfig(c config.OpenAIConfig) llm.Config {
	tasks := make(map[llm.Task]llm.TaskOverride, len(c.Tasks))
	for name, tc := range c.Tasks {
		tasks[llm.Task(name)] = llm.TaskOverride{
			Model:       tc.Model,
			MaxTokens:   tc.MaxTokens,
			Temperature: tc.Temperature,
		}
	}
	return llm.Config{
		APIKey:  c.APIKey,
		BaseURL: c.BaseURL,
		Timeout: c.Timeout,
		Tasks:   tasks,
	}
}
