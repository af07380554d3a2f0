package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/Alexey777abakan/bothi/internal/infra/metrics"
)

// Параметры повторов доставки.
const (
	maxSendAttempts = 5
	sendBackoffStep = 5 * time.Second
)

// Sender доставляет посты в Telegram через Bot API.
type Sender struct {
	bot        *tgbotapi.BotAPI
	log        zerolog.Logger
	maxCaption int
}

// NewSender создаёт доставщика.
func NewSender(bot *tgbotapi.BotAPI, logger zerolog.Logger, maxCaption int) *Sender {
	if maxCaption <= 0 {
		maxCaption = 1024
	}
	return &Sender{bot: bot, log: logger.With().Str("component", "telegram").Logger(), maxCaption: maxCaption}
}

// BuildCaption собирает подпись поста: жирный заголовок, текст и
// хэштеги, всё экранировано для MarkdownV2 и обрезано по лимиту.
func (s *Sender) BuildCaption(title, content, hashtags string) string {
	parts := make([]string, 0, 3)
	if title != "" {
		parts = append(parts, "*"+EscapeMarkdownV2(title)+"*")
	}
	if content != "" {
		parts = append(parts, EscapeMarkdownV2(content))
	}
	if hashtags != "" {
		parts = append(parts, EscapeMarkdownV2(hashtags))
	}
	return TruncateCaption(strings.Join(parts, "\n\n"), s.maxCaption)
}

// применяет destination к BaseChat: @username канала или числовой chat id.
func applyDestination(base *tgbotapi.BaseChat, destination string) error {
	if strings.HasPrefix(destination, "@") {
		base.ChannelUsername = destination
		return nil
	}
	chatID, err := strconv.ParseInt(destination, 10, 64)
	if err != nil {
		return fmt.Errorf("некорректный адрес доставки %q: %w", destination, err)
	}
	base.ChatID = chatID
	return nil
}

// SendPostBytes отправляет пост с изображением напрямую (multipart).
func (s *Sender) SendPostBytes(ctx context.Context, destination, title, content, hashtags string, image []byte) (int, string, error) {
	caption := s.BuildCaption(title, content, hashtags)
	msg, err := s.sendPhoto(ctx, destination, caption, tgbotapi.FileBytes{Name: "post.jpg", Bytes: image})
	if err != nil {
		return 0, "", fmt.Errorf("отправка фото байтами: %w", err)
	}
	return msg.MessageID, photoFileID(msg), nil
}

// SendPostURL отправляет пост с изображением по внешней ссылке.
func (s *Sender) SendPostURL(ctx context.Context, destination, title, content, hashtags, imageURL string) (int, string, error) {
	caption := s.BuildCaption(title, content, hashtags)
	msg, err := s.sendPhoto(ctx, destination, caption, tgbotapi.FileURL(imageURL))
	if err != nil {
		return 0, "", fmt.Errorf("отправка фото по URL: %w", err)
	}
	return msg.MessageID, photoFileID(msg), nil
}

// SendPostText отправляет пост без изображения.
func (s *Sender) SendPostText(ctx context.Context, destination, title, content, hashtags string) (int, error) {
	msg, err := s.sendText(ctx, destination, s.BuildCaption(title, content, hashtags))
	if err != nil {
		return 0, fmt.Errorf("отправка текстового поста: %w", err)
	}
	return msg.MessageID, nil
}

func (s *Sender) sendPhoto(ctx context.Context, destination, caption string, file tgbotapi.RequestFileData) (tgbotapi.Message, error) {
	cfg := tgbotapi.PhotoConfig{
		BaseFile: tgbotapi.BaseFile{File: file},
		Caption:  caption,
	}
	cfg.ParseMode = tgbotapi.ModeMarkdownV2
	if err := applyDestination(&cfg.BaseChat, destination); err != nil {
		return tgbotapi.Message{}, err
	}
	return s.sendWithRetry(ctx, "send_photo", func() (tgbotapi.Message, error) {
		return s.bot.Send(cfg)
	})
}

func (s *Sender) sendText(ctx context.Context, destination, text string) (tgbotapi.Message, error) {
	cfg := tgbotapi.MessageConfig{Text: text}
	cfg.ParseMode = tgbotapi.ModeMarkdownV2
	if err := applyDestination(&cfg.BaseChat, destination); err != nil {
		return tgbotapi.Message{}, err
	}
	return s.sendWithRetry(ctx, "send_message", func() (tgbotapi.Message, error) {
		return s.bot.Send(cfg)
	})
}

// SendStatus отправляет служебное сообщение в чат клиента без повторов.
func (s *Sender) SendStatus(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	start := time.Now()
	_, err := s.bot.Send(msg)
	metrics.ObserveNetworkRequest("telegram", "send_status", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		metrics.BotSendErrors.Inc()
		return fmt.Errorf("отправка статуса: %w", err)
	}
	return nil
}

// Forward пересылает уже доставленное сообщение без переформатирования.
// Источник — адрес исходной доставки: @username канала или chat id.
func (s *Sender) Forward(ctx context.Context, fromDestination string, messageID int, toDestination string) (int, error) {
	cfg := tgbotapi.ForwardConfig{MessageID: messageID}
	if strings.HasPrefix(fromDestination, "@") {
		cfg.FromChannelUsername = fromDestination
	} else {
		fromChatID, err := strconv.ParseInt(fromDestination, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("некорректный источник пересылки %q: %w", fromDestination, err)
		}
		cfg.FromChatID = fromChatID
	}
	if err := applyDestination(&cfg.BaseChat, toDestination); err != nil {
		return 0, err
	}
	msg, err := s.sendWithRetry(ctx, "forward", func() (tgbotapi.Message, error) {
		return s.bot.Send(cfg)
	})
	if err != nil {
		return 0, fmt.Errorf("пересылка сообщения: %w", err)
	}
	return msg.MessageID, nil
}

// sendWithRetry выполняет до maxSendAttempts попыток с линейной паузой.
// Флуд-лимит Telegram (429) логируется как предупреждение и повторяется.
func (s *Sender) sendWithRetry(ctx context.Context, operation string, send func() (tgbotapi.Message, error)) (tgbotapi.Message, error) {
	var lastErr error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		start := time.Now()
		msg, err := send()
		metrics.ObserveNetworkRequest("telegram", operation, "bot_api", start, err)
		if err == nil {
			metrics.ObservePublishAttempt(operation, nil)
			return msg, nil
		}
		lastErr = err
		metrics.BotSendErrors.Inc()
		metrics.ObservePublishAttempt(operation, err)
		if isFloodLimit(err) {
			s.log.Warn().Err(err).Int("attempt", attempt).Msg("флуд-лимит Telegram, повтор")
		} else {
			s.log.Warn().Err(err).Int("attempt", attempt).Str("operation", operation).Msg("отправка не удалась")
		}
		if attempt == maxSendAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return tgbotapi.Message{}, ctx.Err()
		case <-time.After(time.Duration(attempt) * sendBackoffStep):
		}
	}
	return tgbotapi.Message{}, fmt.Errorf("после %d попыток: %w", maxSendAttempts, lastErr)
}

func isFloodLimit(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429
	}
	return false
}

// photoFileID возвращает file_id фото наибольшего размера.
func photoFileID(msg tgbotapi.Message) string {
	if len(msg.Photo) == 0 {
		return ""
	}
	return msg.Photo[len(msg.Photo)-1].FileID
}
