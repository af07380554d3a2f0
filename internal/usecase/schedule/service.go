package schedule

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alexey777abakan/bothi/internal/domain"
	"github.com/Alexey777abakan/bothi/internal/infra/metrics"
)

// Service управляет отложенной публикацией постов.
type Service struct {
	schedule  domain.ScheduleRepo
	posts     domain.PostRepo
	publisher domain.Publisher
	usage     domain.UsageRepo
	log       zerolog.Logger
}

// NewService создаёт сервис расписания.
func NewService(schedule domain.ScheduleRepo, posts domain.PostRepo, publisher domain.Publisher, usage domain.UsageRepo, logger zerolog.Logger) *Service {
	return &Service{
		schedule:  schedule,
		posts:     posts,
		publisher: publisher,
		usage:     usage,
		log:       logger.With().Str("component", "schedule").Logger(),
	}
}

// Schedule создаёт запись отложенной публикации. Время нормализуется
// к UTC, существование поста проверяется заранее.
func (s *Service) Schedule(ctx context.Context, chatID, postID int64, channelID string, publishAt time.Time) error {
	if channelID == "" {
		return fmt.Errorf("канал публикации не задан")
	}
	if _, err := s.posts.GetPost(ctx, chatID, postID); err != nil {
		return fmt.Errorf("пост для расписания: %w", err)
	}
	entry := domain.ScheduleEntry{
		ChatID:    chatID,
		PostID:    postID,
		ChannelID: channelID,
		PublishAt: publishAt.UTC(),
	}
	if err := s.schedule.InsertSchedule(ctx, entry); err != nil {
		return err
	}
	if err := s.usage.RecordUsage(ctx, chatID, domain.UsageActionSchedule); err != nil {
		s.log.Warn().Err(err).Int64("chat_id", chatID).Msg("событие использования не записано")
	}
	return nil
}

// Sweep пересылает все записи, срок которых настал. Запись удаляется
// только после успешной пересылки, поэтому неудачные попытки
// повторяются на следующем проходе (доставка минимум один раз).
func (s *Service) Sweep(ctx context.Context, now time.Time) error {
	start := time.Now()
	defer func() {
		metrics.ScheduleSweepSeconds.Observe(time.Since(start).Seconds())
	}()

	pending, err := s.schedule.ListPendingSchedule(ctx, now.UTC())
	if err != nil {
		return fmt.Errorf("чтение готовых записей: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}
	s.log.Info().Int("count", len(pending)).Msg("найдены записи к публикации")

	for _, item := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.forward(ctx, item); err != nil {
			metrics.ScheduleForwardErrors.Inc()
			s.log.Error().Err(err).
				Int64("chat_id", item.ChatID).
				Int64("post_id", item.PostID).
				Msg("отложенная публикация не выполнена, повтор на следующем проходе")
		}
	}
	return nil
}

func (s *Service) forward(ctx context.Context, item domain.PendingPublication) error {
	// Источник пересылки — адрес исходной доставки поста. Для старых
	// записей без адреса источником остаётся чат клиента.
	source := item.Destination
	if source == "" {
		source = strconv.FormatInt(item.ChatID, 10)
	}
	if _, err := s.publisher.Forward(ctx, source, item.MessageID, item.ChannelID); err != nil {
		return err
	}
	if err := s.schedule.DeleteScheduleEntry(ctx, item.ChatID, item.PostID); err != nil {
		return fmt.Errorf("удаление выполненной записи: %w", err)
	}
	if err := s.usage.RecordUsage(ctx, item.ChatID, domain.UsageActionForwarded); err != nil {
		s.log.Warn().Err(err).Int64("chat_id", item.ChatID).Msg("событие использования не записано")
	}
	return nil
}

// CleanOldPosts удаляет посты старше retentionDays дней.
func (s *Service) CleanOldPosts(ctx context.Context, retentionDays int) error {
	deleted, err := s.posts.DeleteOlderThan(ctx, retentionDays)
	if err != nil {
		return fmt.Errorf("очистка старых постов: %w", err)
	}
	if deleted > 0 {
		s.log.Info().Int64("deleted", deleted).Msg("старые посты удалены")
	}
	return nil
}
