package openrouter

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

const defaultBaseURL = "https://openrouter.ai/api/v1"

// Client выполняет Chat Completions запросы к OpenRouter.
type Client struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	referer  string
	appTitle string
}

// NewClient создаёт клиента OpenRouter. Общий http.Client передаётся
// снаружи, чтобы соединения переиспользовались всеми провайдерами.
func NewClient(httpClient *http.Client, apiKey, baseURL, referer, appTitle string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 65 * time.Second}
	}
	return &Client{http: httpClient, baseURL: baseURL, apiKey: apiKey, referer: referer, appTitle: appTitle}
}

// ChatCompletionRequest описывает тело запроса.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatMessage представляет сообщение в диалоге.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	// RoleSystem системная инструкция.
	RoleSystem = "system"
	// RoleUser сообщение пользователя.
	RoleUser = "user"
)

// ChatCompletionResponse описывает ответ модели.
type ChatCompletionResponse struct {
	Choices []ChatCompletionChoice `json:"choices"`
	Usage   *ChatCompletionUsage   `json:"usage,omitempty"`
	Error   *apiError              `json:"error,omitempty"`
}

// ChatCompletionChoice содержит сообщение модели.
type ChatCompletionChoice struct {
	Message ChatMessage `json:"message"`
}

// ChatCompletionUsage описывает статистику использования токенов.
type ChatCompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OpenRouter может вернуть ошибку как в статусе, так и внутри тела 200 OK.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ModelProvider выполняет одну попытку генерации через конкретную модель.
type ModelProvider struct {
	client *Client
	model  string
}

// NewModelProvider создаёт провайдера для модели model.
func NewModelProvider(client *Client, model string) *ModelProvider {
	return &ModelProvider{client: client, model: model}
}

// Name возвращает имя провайдера для логов и метрик.
func (p *ModelProvider) Name() string {
	return "openrouter/" + p.model
}

// Attempt выполняет один сетевой вызов. Код 429 — и статусом, и внутри
// тела ответа — трактуется как исчерпание квоты.
func (p *ModelProvider) Attempt(ctx context.Context, prompt string, maxTokens int) domain.GenerationResult {
	req := ChatCompletionRequest{
		Model:       p.model,
		Messages:    []ChatMessage{{Role: RoleUser, Content: prompt}},
		Temperature: 0.7,
		MaxTokens:   maxTokens,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return domain.FailResult(fmt.Errorf("openrouter: marshal request: %w", err))
	}
	callCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	endpoint := p.client.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.FailResult(fmt.Errorf("openrouter: build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.client.apiKey)
	if p.client.referer != "" {
		httpReq.Header.Set("HTTP-Referer", p.client.referer)
	}
	if p.client.appTitle != "" {
		httpReq.Header.Set("X-Title", p.client.appTitle)
	}

	start := time.Now()
	resp, err := p.client.http.Do(httpReq)
	if err != nil {
		metrics.ObserveNetworkRequest("openrouter", "chat_completions", p.model, start, err)
		return domain.FailResult(fmt.Errorf("openrouter: do request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("openrouter", "chat_completions", p.model, start, err)
		return domain.FailResult(fmt.Errorf("openrouter: read response: %w", err))
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		metrics.ObserveNetworkRequest("openrouter", "chat_completions", p.model, start, fmt.Errorf("status 429"))
		return domain.QuotaResult()
	}
	if resp.StatusCode >= 400 {
		err = fmt.Errorf("openrouter: unexpected status %d", resp.StatusCode)
		var apiResp ChatCompletionResponse
		if jsonErr := json.Unmarshal(respBody, &apiResp); jsonErr == nil && apiResp.Error != nil && apiResp.Error.Message != "" {
			err = fmt.Errorf("openrouter: %s", apiResp.Error.Message)
		}
		metrics.ObserveNetworkRequest("openrouter", "chat_completions", p.model, start, err)
		return domain.FailResult(err)
	}
	var completion ChatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		metrics.ObserveNetworkRequest("openrouter", "chat_completions", p.model, start, err)
		return domain.FailResult(fmt.Errorf("openrouter: decode response: %w", err))
	}
	if completion.Error != nil {
		if completion.Error.Code == http.StatusTooManyRequests {
			metrics.ObserveNetworkRequest("openrouter", "chat_completions", p.model, start, fmt.Errorf("embedded 429"))
			return domain.QuotaResult()
		}
		err = fmt.Errorf("openrouter: %s", completion.Error.Message)
		metrics.ObserveNetworkRequest("openrouter", "chat_completions", p.model, start, err)
		return domain.FailResult(err)
	}
	metrics.ObserveNetworkRequest("openrouter", "chat_completions", p.model, start, nil)
	if completion.Usage != nil {
		metrics.ObserveLLMGeneration(p.model, time.Since(start), completion.Usage.PromptTokens, completion.Usage.CompletionTokens, completion.Usage.TotalTokens)
	}
	if len(completion.Choices) == 0 {
		return domain.FailResult(fmt.Errorf("openrouter: пустой список choices"))
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return domain.FailResult(fmt.Errorf("openrouter: модель вернула пустой текст"))
	}
	return domain.TextResult(text)
}
