package flux

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alexey777abakan/bothi/internal/domain"
	"github.com/Alexey777abakan/bothi/internal/infra/metrics"
)

// Client генерирует изображения через FLUX на fal.ai.
// Основной и зеркальный эндпоинты пробуются в рамках одной попытки.
type Client struct {
	http      *http.Client
	apiKey    string
	endpoints []string
	log       zerolog.Logger
}

// NewClient создаёт клиента FLUX. Пустые URL эндпоинтов отбрасываются.
func NewClient(httpClient *http.Client, apiKey, primaryURL, mirrorURL string, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 35 * time.Second}
	}
	endpoints := make([]string, 0, 2)
	for _, u := range []string{primaryURL, mirrorURL} {
		if u != "" {
			endpoints = append(endpoints, u)
		}
	}
	return &Client{http: httpClient, apiKey: apiKey, endpoints: endpoints, log: logger.With().Str("component", "flux").Logger()}
}

type generateRequest struct {
	Prompt              string `json:"prompt"`
	NumImages           int    `json:"num_images"`
	AspectRatio         string `json:"aspect_ratio"`
	OutputFormat        string `json:"output_format"`
	EnableSafetyChecker bool   `json:"enable_safety_checker"`
}

type generateResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

// Name возвращает имя провайдера для логов и метрик.
func (c *Client) Name() string {
	return "flux"
}

// Attempt выполняет одну попытку генерации: запрос к каждому эндпоинту
// по очереди, затем скачивание первого изображения из ответа.
func (c *Client) Attempt(ctx context.Context, prompt string) domain.GenerationResult {
	if len(c.endpoints) == 0 {
		return domain.FailResult(fmt.Errorf("flux: не задан ни один эндпоинт"))
	}
	body, err := json.Marshal(generateRequest{
		Prompt:              prompt,
		NumImages:           1,
		AspectRatio:         "4:3",
		OutputFormat:        "jpeg",
		EnableSafetyChecker: true,
	})
	if err != nil {
		return domain.FailResult(fmt.Errorf("flux: marshal request: %w", err))
	}

	var lastErr error
	for _, endpoint := range c.endpoints {
		imageURL, err := c.requestImage(ctx, endpoint, body)
		if err != nil {
			c.log.Warn().Err(err).Str("endpoint", endpoint).Msg("эндпоинт FLUX недоступен")
			lastErr = err
			continue
		}
		data, err := c.download(ctx, imageURL)
		if err != nil {
			lastErr = err
			continue
		}
		return domain.ImageResult(data)
	}
	return domain.FailResult(fmt.Errorf("flux: все эндпоинты недоступны: %w", lastErr))
}

func (c *Client) requestImage(ctx context.Context, endpoint string, body []byte) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("flux: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("flux", "generate", endpoint, start, err)
		return "", fmt.Errorf("flux: do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("flux", "generate", endpoint, start, err)
		return "", fmt.Errorf("flux: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		err = fmt.Errorf("flux: unexpected status %d", resp.StatusCode)
		metrics.ObserveNetworkRequest("flux", "generate", endpoint, start, err)
		return "", err
	}
	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		metrics.ObserveNetworkRequest("flux", "generate", endpoint, start, err)
		return "", fmt.Errorf("flux: decode response: %w", err)
	}
	metrics.ObserveNetworkRequest("flux", "generate", endpoint, start, nil)
	if len(genResp.Images) == 0 || genResp.Images[0].URL == "" {
		return "", fmt.Errorf("flux: ответ без изображений")
	}
	return genResp.Images[0].URL, nil
}

func (c *Client) download(ctx context.Context, imageURL string) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("flux: build download request: %w", err)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("flux", "download", "image", start, err)
		return nil, fmt.Errorf("flux: download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		err = fmt.Errorf("flux: download status %d", resp.StatusCode)
		metrics.ObserveNetworkRequest("flux", "download", "image", start, err)
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("flux", "download", "image", start, err)
		return nil, fmt.Errorf("flux: read image: %w", err)
	}
	metrics.ObserveNetworkRequest("flux", "download", "image", start, nil)
	if len(data) == 0 {
		return nil, fmt.Errorf("flux: пустое изображение")
	}
	return data, nil
}
