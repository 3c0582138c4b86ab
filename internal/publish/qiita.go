package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xaenox/threadpress/internal/models"
)

const DefaultQiitaBaseURL = "https://qiita.com"

// Qiita allows 1000 authenticated requests per hour.
const qiitaRequestInterval = 4 * time.Second

// Item is what gets posted to Qiita.
type Item struct {
	Title string
	Body  string
	Tags  []string
}

type qiitaTag struct {
	Name     string   `json:"name"`
	Versions []string `json:"versions"`
}

type qiitaItemRequest struct {
	Title   string     `json:"title"`
	Body    string     `json:"body"`
	Tags    []qiitaTag `json:"tags"`
	Private bool       `json:"private"`
}

type qiitaItemResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// QiitaClient talks to the Qiita v2 items API.
type QiitaClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

func NewQiitaClient(baseURL string, timeout time.Duration, logger *zap.Logger) *QiitaClient {
	if baseURL == "" {
		baseURL = DefaultQiitaBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &QiitaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(qiitaRequestInterval), 1),
		logger:     logger,
	}
}

// CreateItem publishes item publicly and returns its canonical URL.
func (c *QiitaClient) CreateItem(ctx context.Context, token string, item Item) (string, error) {
	tags := make([]qiitaTag, 0, len(item.Tags))
	for _, name := range item.Tags {
		tags = append(tags, qiitaTag{Name: name, Versions: []string{}})
	}
	payload, err := json.Marshal(qiitaItemRequest{
		Title:   item.Title,
		Body:    item.Body,
		Tags:    tags,
		Private: false,
	})
	if err != nil {
		return "", fmt.Errorf("encode qiita item: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limit wait: %v", models.ErrPublish, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v2/items", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build qiita request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to reach Qiita", zap.Error(err))
		return "", fmt.Errorf("%w: %v", models.ErrPublish, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", models.ErrPublish, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("Qiita rejected item",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), 500)))
		return "", fmt.Errorf("%w: qiita returned %d: %s", models.ErrPublish, resp.StatusCode, truncate(string(body), 200))
	}

	var created qiitaItemResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", models.ErrPublish, err)
	}
	if created.URL == "" {
		return "", fmt.Errorf("%w: response has no url", models.ErrPublish)
	}

	c.logger.Info("Qiita item created", zap.String("item_id", created.ID), zap.String("url", created.URL))
	return created.URL, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
