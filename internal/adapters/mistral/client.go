package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Alexey777abakan/bothi/internal/domain"
	"github.com/Alexey777abakan/bothi/internal/infra/metrics"
)

const defaultBaseURL = "https://api.mistral.ai/v1"

// Client выполняет Chat Completions запросы к Mistral.
type Client struct {
	http         *http.Client
	baseURL      string
	apiKey       string
	model        string
	systemPrompt string
}

// NewClient создаёт клиента Mistral.
func NewClient(httpClient *http.Client, apiKey, baseURL, model, systemPrompt string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 65 * time.Second}
	}
	return &Client{http: httpClient, baseURL: baseURL, apiKey: apiKey, model: model, systemPrompt: systemPrompt}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

// Name возвращает имя провайдера для логов и метрик.
func (c *Client) Name() string {
	return "mistral/" + c.model
}

// Attempt выполняет один сетевой вызов к chat/completions.
func (c *Client) Attempt(ctx context.Context, prompt string, maxTokens int) domain.GenerationResult {
	messages := make([]chatMessage, 0, 2)
	if c.systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: c.systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return domain.FailResult(fmt.Errorf("mistral: marshal request: %w", err))
	}
	callCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.FailResult(fmt.Errorf("mistral: build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.ObserveNetworkRequest("mistral", "chat_completions", c.model, start, err)
		return domain.FailResult(fmt.Errorf("mistral: do request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("mistral", "chat_completions", c.model, start, err)
		return domain.FailResult(fmt.Errorf("mistral: read response: %w", err))
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		metrics.ObserveNetworkRequest("mistral", "chat_completions", c.model, start, fmt.Errorf("status 429"))
		return domain.QuotaResult()
	}
	if resp.StatusCode >= 400 {
		err = fmt.Errorf("mistral: unexpected status %d", resp.StatusCode)
		metrics.ObserveNetworkRequest("mistral", "chat_completions", c.model, start, err)
		return domain.FailResult(err)
	}
	var completion chatResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		metrics.ObserveNetworkRequest("mistral", "chat_completions", c.model, start, err)
		return domain.FailResult(fmt.Errorf("mistral: decode response: %w", err))
	}
	metrics.ObserveNetworkRequest("mistral", "chat_completions", c.model, start, nil)
	if completion.Usage != nil {
		metrics.ObserveLLMGeneration(c.model, time.Since(start), completion.Usage.PromptTokens, completion.Usage.CompletionTokens, completion.Usage.TotalTokens)
	}
	if len(completion.Choices) == 0 {
		return domain.FailResult(fmt.Errorf("mistral: пустой список choices"))
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return domain.FailResult(fmt.Errorf("mistral: модель вернула пустой текст"))
	}
	return domain.TextResult(text)
}
