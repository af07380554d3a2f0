package imgur

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alexey777abakan/bothi/internal/infra/metrics"
)

const uploadURL = "https://api.imgur.com/3/image"

// Параметры повторов: 503 у Imgur означает троттлинг, пауза длиннее.
const (
	maxAttempts     = 5
	throttleBackoff = 10 * time.Second
)

// Client загружает изображения на Imgur и возвращает публичный URL.
// Используется как фолбэк, когда прямая отправка байтов не прошла.
type Client struct {
	http     *http.Client
	clientID string
	log      zerolog.Logger
}

// NewClient создаёт клиента Imgur.
func NewClient(httpClient *http.Client, clientID string, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{http: httpClient, clientID: clientID, log: logger.With().Str("component", "imgur").Logger()}
}

type uploadResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

// Upload загружает изображение с повторами. Код 503 трактуется как
// троттлинг и ждёт 10s×attempt перед следующей попыткой.
func (c *Client) Upload(ctx context.Context, image []byte) (string, error) {
	if c.clientID == "" {
		return "", fmt.Errorf("imgur: client id не задан")
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		link, throttled, err := c.uploadOnce(ctx, image)
		if err == nil {
			return link, nil
		}
		lastErr = err
		c.log.Warn().Err(err).Int("attempt", attempt).Msg("загрузка на imgur не удалась")
		if attempt == maxAttempts {
			break
		}
		wait := time.Duration(attempt) * time.Second
		if throttled {
			wait = time.Duration(attempt) * throttleBackoff
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", fmt.Errorf("imgur: загрузка не удалась после %d попыток: %w", maxAttempts, lastErr)
}

func (c *Client) uploadOnce(ctx context.Context, image []byte) (string, bool, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", "post.jpg")
	if err != nil {
		return "", false, fmt.Errorf("imgur: build form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", false, fmt.Errorf("imgur: write form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", false, fmt.Errorf("imgur: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &buf)
	if err != nil {
		return "", false, fmt.Errorf("imgur: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Client-ID "+c.clientID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("imgur", "upload", "image", start, err)
		return "", false, fmt.Errorf("imgur: do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("imgur", "upload", "image", start, err)
		return "", false, fmt.Errorf("imgur: read response: %w", err)
	}
	if resp.StatusCode == http.StatusServiceUnavailable {
		err = fmt.Errorf("imgur: сервис перегружен (503)")
		metrics.ObserveNetworkRequest("imgur", "upload", "image", start, err)
		return "", true, err
	}
	if resp.StatusCode >= 400 {
		err = fmt.Errorf("imgur: unexpected status %d", resp.StatusCode)
		metrics.ObserveNetworkRequest("imgur", "upload", "image", start, err)
		return "", false, err
	}
	var upload uploadResponse
	if err := json.Unmarshal(respBody, &upload); err != nil {
		metrics.ObserveNetworkRequest("imgur", "upload", "image", start, err)
		return "", false, fmt.Errorf("imgur: decode response: %w", err)
	}
	metrics.ObserveNetworkRequest("imgur", "upload", "image", start, nil)
	if !upload.Success || upload.Data.Link == "" {
		return "", false, fmt.Errorf("imgur: ответ без ссылки")
	}
	return upload.Data.Link, false, nil
}
