package generate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alexey777abakan/bothi/internal/domain"
	"github.com/Alexey777abakan/bothi/internal/infra/metrics"
)

// ImageHoster загружает изображение на внешний хостинг и возвращает URL.
// Используется, когда прямая отправка байтов в Telegram не прошла.
type ImageHoster interface {
	Upload(ctx context.Context, image []byte) (string, error)
}

// Service выполняет полный цикл генерации и публикации поста.
type Service struct {
	orchestrator  *Orchestrator
	assembler     *Assembler
	publisher     domain.Publisher
	hoster        ImageHoster
	clients       domain.ClientRepo
	posts         domain.PostRepo
	usage         domain.UsageRepo
	log           zerolog.Logger
	maxPostLength int
}

// NewService создаёт сервис генерации. hoster может быть nil, тогда
// режим доставки по URL пропускается.
func NewService(
	orchestrator *Orchestrator,
	assembler *Assembler,
	publisher domain.Publisher,
	hoster ImageHoster,
	clients domain.ClientRepo,
	posts domain.PostRepo,
	usage domain.UsageRepo,
	logger zerolog.Logger,
	maxPostLength int,
) *Service {
	if maxPostLength <= 0 {
		maxPostLength = 950
	}
	return &Service{
		orchestrator:  orchestrator,
		assembler:     assembler,
		publisher:     publisher,
		hoster:        hoster,
		clients:       clients,
		posts:         posts,
		usage:         usage,
		log:           logger.With().Str("component", "generate").Logger(),
		maxPostLength: maxPostLength,
	}
}

// Run выполняет задачу генерации: заголовки, тексты, изображения,
// доставка и сохранение. Сбой изображения деградирует до текстового
// поста, сбой всех текстовых провайдеров прерывает цикл.
func (s *Service) Run(ctx context.Context, job domain.GenerationJob) error {
	metrics.GenerationRequestsTotal.Inc()
	cycleStart := time.Now()
	defer func() {
		metrics.GenerationCycleSeconds.Observe(time.Since(cycleStart).Seconds())
	}()

	logger := s.log.With().Str("job_id", job.ID).Int64("chat_id", job.ChatID).Logger()

	settings, err := s.clients.GetClientSettings(ctx, job.ChatID)
	if err != nil {
		return fmt.Errorf("настройки клиента: %w", err)
	}
	lang := settings.Language
	if !lang.Valid() {
		lang = domain.LanguageRU
	}
	count := settings.PostCount
	if count <= 0 {
		count = 1
	}
	destination := settings.ChannelID
	if destination == "" {
		destination = strconv.FormatInt(job.ChatID, 10)
	}

	titlesRaw, err := s.orchestrator.GenerateText(ctx, titlesPrompt(settings.Theme, count, lang), titlesMaxTokens)
	if err != nil {
		s.reportFailure(ctx, job.ChatID, lang)
		return fmt.Errorf("генерация заголовков: %w", err)
	}
	titles := s.assembler.ParseTitles(titlesRaw, count)
	if len(titles) == 0 {
		s.reportFailure(ctx, job.ChatID, lang)
		return fmt.Errorf("модель не вернула ни одного заголовка")
	}

	published := 0
	for i, title := range titles {
		s.notify(ctx, job.ChatID, progressMessage(lang, i+1, len(titles)))

		post, err := s.buildAndDeliver(ctx, logger, job, settings, destination, title, lang)
		if err != nil {
			if errors.Is(err, ErrAllProvidersFailed) || ctx.Err() != nil {
				break
			}
			logger.Error().Err(err).Str("title", title).Msg("пост не опубликован")
			continue
		}
		if _, err := s.posts.InsertPost(ctx, post); err != nil {
			logger.Error().Err(err).Msg("пост доставлен, но не сохранён")
		}
		if err := s.usage.RecordUsage(ctx, job.ChatID, domain.UsageActionPublish); err != nil {
			logger.Warn().Err(err).Msg("событие использования не записано")
		}
		published++
	}

	if published == 0 {
		metrics.GenerationFailuresTotal.Inc()
		s.reportFailure(ctx, job.ChatID, lang)
		return fmt.Errorf("ни один пост не опубликован")
	}
	s.notify(ctx, job.ChatID, doneMessage(lang, published))
	logger.Info().Int("published", published).Msg("цикл генерации завершён")
	return nil
}

func (s *Service) buildAndDeliver(ctx context.Context, logger zerolog.Logger, job domain.GenerationJob, settings domain.ClientSettings, destination, title string, lang domain.Language) (domain.Post, error) {
	bodyRaw, err := s.orchestrator.GenerateText(ctx, bodyPrompt(title, settings.Theme, settings.Style, lang, s.maxPostLength), bodyMaxTokens)
	if err != nil {
		return domain.Post{}, fmt.Errorf("генерация текста: %w", err)
	}
	content, hashtags := s.assembler.ParsePost(bodyRaw, lang)
	content = s.assembler.EnforceLength(content, hashtags, s.maxPostLength)
	content = s.assembler.SplitIntoParagraphs(content, lang)
	if content == "" {
		return domain.Post{}, fmt.Errorf("после обработки текст поста пуст")
	}

	var (
		image       []byte
		imagePrompt string
	)
	if !job.TextOnly {
		image, imagePrompt = s.generateImage(ctx, logger, title, content)
	}

	messageID, fileID, err := s.deliver(ctx, logger, destination, title, content, hashtags, image)
	if err != nil {
		return domain.Post{}, err
	}
	return domain.Post{
		ChatID:      job.ChatID,
		Title:       title,
		Content:     content,
		Hashtags:    hashtags,
		FileID:      fileID,
		ImagePrompt: imagePrompt,
		Destination: destination,
		MessageID:   messageID,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// generateImage получает промпт и изображение. Любой сбой здесь
// деградирует до поста без изображения.
func (s *Service) generateImage(ctx context.Context, logger zerolog.Logger, title, content string) ([]byte, string) {
	promptRaw, err := s.orchestrator.GenerateText(ctx, imagePromptRequest(title, content), imagePromptMaxTokens)
	if err != nil {
		logger.Warn().Err(err).Msg("промпт изображения не сгенерирован, пост выйдет без фото")
		return nil, ""
	}
	prompt := s.assembler.BuildImagePrompt(promptRaw)
	image, err := s.orchestrator.GenerateImage(ctx, prompt)
	if err != nil {
		logger.Warn().Err(err).Msg("изображение не сгенерировано, пост выйдет без фото")
		return nil, prompt
	}
	return image, prompt
}

// deliver пробует режимы доставки по порядку: байты, внешний URL,
// только текст. Текстовый фолбэк выполняется ровно один раз.
func (s *Service) deliver(ctx context.Context, logger zerolog.Logger, destination, title, content, hashtags string, image []byte) (int, string, error) {
	if len(image) > 0 {
		messageID, fileID, err := s.publisher.SendPostBytes(ctx, destination, title, content, hashtags, image)
		if err == nil {
			return messageID, fileID, nil
		}
		logger.Warn().Err(err).Msg("доставка байтами не удалась")

		if s.hoster != nil {
			imageURL, err := s.hoster.Upload(ctx, image)
			if err != nil {
				logger.Warn().Err(err).Msg("хостинг изображения не удался")
			} else {
				messageID, fileID, err := s.publisher.SendPostURL(ctx, destination, title, content, hashtags, imageURL)
				if err == nil {
					return messageID, fileID, nil
				}
				logger.Warn().Err(err).Msg("доставка по URL не удалась")
			}
		}
	}

	messageID, err := s.publisher.SendPostText(ctx, destination, title, content, hashtags)
	if err != nil {
		return 0, "", fmt.Errorf("доставка поста не удалась: %w", err)
	}
	return messageID, "", nil
}

func (s *Service) reportFailure(ctx context.Context, chatID int64, lang domain.Language) {
	s.notify(ctx, chatID, failureMessage(lang))
}

func (s *Service) notify(ctx context.Context, chatID int64, text string) {
	if err := s.publisher.SendStatus(ctx, chatID, text); err != nil {
		s.log.Warn().Err(err).Int64("chat_id", chatID).Msg("статусное сообщение не доставлено")
	}
}
