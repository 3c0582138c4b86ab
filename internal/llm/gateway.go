package llm

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/threadpress/internal/metrics"
	"github.com/xaenox/threadpress/internal/models"
)

type Task string

const (
	TaskResponse Task = "response"
	TaskTitle    Task = "title"
	TaskArticle  Task = "article"
	TaskSlide    Task = "slide"
	TaskSummary  Task = "summary"
)

// TaskConfig fixes the model parameters used for one task.
type TaskConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// DefaultTasks are used for any task missing from the gateway configuration.
var DefaultTasks = map[Task]TaskConfig{
	TaskResponse: {Model: openai.GPT4oMini, MaxTokens: 2000, Temperature: 0.7},
	TaskTitle:    {Model: openai.GPT4oMini, MaxTokens: 30, Temperature: 0.5},
	TaskArticle:  {Model: openai.GPT4o, MaxTokens: 4000, Temperature: 0.7},
	TaskSlide:    {Model: openai.GPT4o, MaxTokens: 4000, Temperature: 0.5},
	TaskSummary:  {Model: openai.GPT4oMini, MaxTokens: 1000, Temperature: 0.3},
}

// TaskOverride replaces the default fields it sets. A nil Temperature keeps
// the default; zero is a valid setting.
type TaskOverride struct {
	Model       string
	MaxTokens   int
	Temperature *float64
}

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Tasks   map[Task]TaskOverride
}

// Gateway wraps chat completions for every generation task. Failures are
// logged and returned as models.ErrGeneration; nothing is retried.
type Gateway struct {
	client *openai.Client
	tasks  map[Task]TaskConfig
	logger *zap.Logger
}

func NewGateway(cfg Config, logger *zap.Logger) *Gateway {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	tasks := make(map[Task]TaskConfig, len(DefaultTasks))
	for task, tc := range DefaultTasks {
		tasks[task] = tc
	}
	// Configured tasks only override the fields they set.
	for task, tc := range cfg.Tasks {
		base := tasks[task]
		if tc.Model != "" {
			base.Model = tc.Model
		}
		if tc.MaxTokens > 0 {
			base.MaxTokens = tc.MaxTokens
		}
		if tc.Temperature != nil {
			base.Temperature = *tc.Temperature
		}
		tasks[task] = base
	}

	return &Gateway{
		client: openai.NewClientWithConfig(clientConfig),
		tasks:  tasks,
		logger: logger,
	}
}

// GenerateResponse answers the conversation so far.
func (g *Gateway) GenerateResponse(ctx context.Context, history []models.ChatTurn) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, systemMessage(responseSystemPrompt))
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	return g.complete(ctx, TaskResponse, messages)
}

// GenerateTitle proposes a short title for content.
func (g *Gateway) GenerateTitle(ctx context.Context, content string) (string, error) {
	return g.complete(ctx, TaskTitle, []openai.ChatCompletionMessage{
		userMessage(fmt.Sprintf(titlePromptTemplate, content)),
	})
}

// GenerateArticle turns a transcript into a Markdown article.
func (g *Gateway) GenerateArticle(ctx context.Context, transcript string) (string, error) {
	return g.complete(ctx, TaskArticle, []openai.ChatCompletionMessage{
		systemMessage(articleSystemPrompt),
		userMessage(transcript),
	})
}

// GenerateSlide turns a transcript into a Marp deck.
func (g *Gateway) GenerateSlide(ctx context.Context, transcript string) (string, error) {
	return g.complete(ctx, TaskSlide, []openai.ChatCompletionMessage{
		systemMessage(slideSystemPrompt),
		userMessage(transcript),
	})
}

// Summarize condenses a transcript.
func (g *Gateway) Summarize(ctx context.Context, transcript string) (string, error) {
	return g.complete(ctx, TaskSummary, []openai.ChatCompletionMessage{
		systemMessage(summarySystemPrompt),
		userMessage(transcript),
	})
}

func (g *Gateway) complete(ctx context.Context, task Task, messages []openai.ChatCompletionMessage) (string, error) {
	tc := g.tasks[task]
	temperature := float32(tc.Temperature)
	if temperature == 0 {
		// go-openai omits a zero temperature and the API then defaults to 1.
		temperature = math.SmallestNonzeroFloat32
	}
	start := time.Now()

	resp, err := g.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       tc.Model,
			Messages:    messages,
			MaxTokens:   tc.MaxTokens,
			Temperature: temperature,
		},
	)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		metrics.RecordLLMRequest(string(task), "error", elapsed)
		g.logger.Error("Failed to get GPT response",
			zap.String("task", string(task)),
			zap.String("model", tc.Model),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", models.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		metrics.RecordLLMRequest(string(task), "empty", elapsed)
		g.logger.Error("GPT response has no choices",
			zap.String("task", string(task)),
			zap.String("model", tc.Model))
		return "", fmt.Errorf("%w: empty completion", models.ErrGeneration)
	}

	metrics.RecordLLMRequest(string(task), "ok", elapsed)
	g.logger.Debug("GPT response received",
		zap.String("task", string(task)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func systemMessage(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: content}
}

func userMessage(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: content}
}
