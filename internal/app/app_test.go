package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/threadpress/internal/llm"
	"github.com/xaenox/threadpress/pkg/config"
)

func TestNewWithSQLite(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: "sqlite"}}
	a, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, a.Threads)
	assert.NotNil(t, a.Articles)
	assert.NotNil(t, a.Slides)
	require.NoError(t, a.Close())
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(&config.Config{Database: config.DatabaseConfig{Driver: "mysql"}}, zap.NewNop())
	assert.Error(t, err)
}

func TestGatewayConfigMapsTasks(t *testing.T) {
	zero := 0.0
	got := gatewayConfig(config.OpenAIConfig{
		APIKey: "k",
		Tasks: map[string]config.TaskConfig{
			"article": {Model: "gpt-4.1", MaxTokens: 6000},
			"title":   {Temperature: &zero},
		},
	})
	assert.Equal(t, "k", got.APIKey)
	assert.Equal(t, llm.TaskOverride{Model: "gpt-4.1", MaxTokens: 6000}, got.Tasks[llm.TaskArticle])
	require.NotNil(t, got.Tasks[llm.TaskTitle].Temperature)
	assert.Zero(t, *got.Tasks[llm.TaskTitle].Temperature)
}
