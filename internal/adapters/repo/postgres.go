package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Alexey777abakan/bothi/internal/domain"
	"github.com/Alexey777abakan/bothi/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.ClientRepo   = (*Postgres)(nil)
	_ domain.PostRepo     = (*Postgres)(nil)
	_ domain.ScheduleRepo = (*Postgres)(nil)
	_ domain.UsageRepo    = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 5*time.Second)
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// UpsertClientSettings сохраняет настройки клиента по chat_id.
func (p *Postgres) UpsertClientSettings(ctx context.Context, settings domain.ClientSettings) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var subscriptionEnd sql.NullTime
	if settings.SubscriptionEnd != nil {
		subscriptionEnd = sql.NullTime{Time: settings.SubscriptionEnd.UTC(), Valid: true}
	}

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO clients (chat_id, theme, post_count, style, channel_id, subscription_end, subscription_plan, language)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (chat_id) DO UPDATE SET
	theme = EXCLUDED.theme,
	post_count = EXCLUDED.post_count,
	style = EXCLUDED.style,
	channel_id = EXCLUDED.channel_id,
	subscription_end = EXCLUDED.subscription_end,
	subscription_plan = EXCLUDED.subscription_plan,
	language = EXCLUDED.language
`, settings.ChatID, settings.Theme, settings.PostCount, settings.Style, settings.ChannelID, subscriptionEnd, settings.SubscriptionPlan, string(settings.Language))
	metrics.ObserveNetworkRequest("postgres", "clients_upsert", "clients", start, err)
	if err != nil {
		return fmt.Errorf("сохранение настроек клиента: %w", err)
	}
	return nil
}

// GetClientSettings возвращает настройки клиента.
func (p *Postgres) GetClientSettings(ctx context.Context, chatID int64) (domain.ClientSettings, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var (
		settings        domain.ClientSettings
		subscriptionEnd sql.NullTime
		language        string
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT chat_id, theme, post_count, style, channel_id, subscription_end, subscription_plan, language
FROM clients WHERE chat_id = $1
`, chatID).Scan(&settings.ChatID, &settings.Theme, &settings.PostCount, &settings.Style, &settings.ChannelID, &subscriptionEnd, &settings.SubscriptionPlan, &language)
	metrics.ObserveNetworkRequest("postgres", "clients_get", "clients", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ClientSettings{}, domain.ErrNotFound
		}
		return domain.ClientSettings{}, fmt.Errorf("чтение настроек клиента: %w", err)
	}
	if subscriptionEnd.Valid {
		t := subscriptionEnd.Time.UTC()
		settings.SubscriptionEnd = &t
	}
	settings.Language = domain.Language(language)
	return settings, nil
}

// InsertPost сохраняет доставленный пост и возвращает его id.
func (p *Postgres) InsertPost(ctx context.Context, post domain.Post) (int64, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}

	var id int64
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO posts (chat_id, title, content, hashtags, file_id, image_prompt, destination, message_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id
`, post.ChatID, post.Title, post.Content, post.Hashtags, post.FileID, post.ImagePrompt, post.Destination, post.MessageID, post.CreatedAt).Scan(&id)
	metrics.ObserveNetworkRequest("postgres", "posts_insert", "posts", start, err)
	if err != nil {
		return 0, fmt.Errorf("сохранение поста: %w", err)
	}
	return id, nil
}

// GetPost возвращает пост клиента по id.
func (p *Postgres) GetPost(ctx context.Context, chatID, postID int64) (domain.Post, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var post domain.Post
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT id, chat_id, title, content, hashtags, file_id, image_prompt, destination, message_id, created_at
FROM posts WHERE chat_id = $1 AND id = $2
`, chatID, postID).Scan(&post.ID, &post.ChatID, &post.Title, &post.Content, &post.Hashtags, &post.FileID, &post.ImagePrompt, &post.Destination, &post.MessageID, &post.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "posts_get", "posts", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Post{}, domain.ErrNotFound
		}
		return domain.Post{}, fmt.Errorf("чтение поста: %w", err)
	}
	post.CreatedAt = post.CreatedAt.UTC()
	return post, nil
}

// CountPostsThisMonth считает посты клиента с начала календарного месяца.
func (p *Postgres) CountPostsThisMonth(ctx context.Context, chatID int64) (int, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var count int
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM posts
WHERE chat_id = $1 AND created_at >= date_trunc('month', now() AT TIME ZONE 'UTC')
`, chatID).Scan(&count)
	metrics.ObserveNetworkRequest("postgres", "posts_count_month", "posts", start, err)
	if err != nil {
		return 0, fmt.Errorf("подсчёт постов за месяц: %w", err)
	}
	return count, nil
}

// DeleteOlderThan удаляет посты старше указанного количества дней.
func (p *Postgres) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
DELETE FROM posts WHERE created_at < now() AT TIME ZONE 'UTC' - make_interval(days => $1)
`, days)
	metrics.ObserveNetworkRequest("postgres", "posts_delete_old", "posts", start, err)
	if err != nil {
		return 0, fmt.Errorf("очистка старых постов: %w", err)
	}
	return tag.RowsAffected(), nil
}

// InsertSchedule сохраняет запись отложенной публикации.
func (p *Postgres) InsertSchedule(ctx context.Context, entry domain.ScheduleEntry) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO schedule (chat_id, post_id, channel_id, publish_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (chat_id, post_id) DO UPDATE SET
	channel_id = EXCLUDED.channel_id,
	publish_at = EXCLUDED.publish_at
`, entry.ChatID, entry.PostID, entry.ChannelID, entry.PublishAt.UTC())
	metrics.ObserveNetworkRequest("postgres", "schedule_insert", "schedule", start, err)
	if err != nil {
		return fmt.Errorf("сохранение расписания: %w", err)
	}
	return nil
}

// ListPendingSchedule возвращает записи расписания, срок которых настал,
// вместе с message_id исходного поста.
func (p *Postgres) ListPendingSchedule(ctx context.Context, now time.Time) ([]domain.PendingPublication, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT s.chat_id, s.post_id, s.channel_id, s.publish_at, p.destination, p.message_id
FROM schedule s
JOIN posts p ON p.id = s.post_id AND p.chat_id = s.chat_id
WHERE s.publish_at <= $1
ORDER BY s.publish_at
`, now.UTC())
	metrics.ObserveNetworkRequest("postgres", "schedule_list_pending", "schedule", start, err)
	if err != nil {
		return nil, fmt.Errorf("чтение расписания: %w", err)
	}
	defer rows.Close()

	var pending []domain.PendingPublication
	for rows.Next() {
		var item domain.PendingPublication
		if err := rows.Scan(&item.ChatID, &item.PostID, &item.ChannelID, &item.PublishAt, &item.Destination, &item.MessageID); err != nil {
			return nil, fmt.Errorf("чтение строки расписания: %w", err)
		}
		item.PublishAt = item.PublishAt.UTC()
		pending = append(pending, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("обход расписания: %w", err)
	}
	return pending, nil
}

// DeleteScheduleEntry удаляет выполненную запись расписания.
func (p *Postgres) DeleteScheduleEntry(ctx context.Context, chatID, postID int64) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
DELETE FROM schedule WHERE chat_id = $1 AND post_id = $2
`, chatID, postID)
	metrics.ObserveNetworkRequest("postgres", "schedule_delete", "schedule", start, err)
	if err != nil {
		return fmt.Errorf("удаление записи расписания: %w", err)
	}
	return nil
}

// RecordUsage фиксирует событие использования.
func (p *Postgres) RecordUsage(ctx context.Context, chatID int64, action string) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO usage_stats (chat_id, action, occurred_at)
VALUES ($1, $2, now() AT TIME ZONE 'UTC')
`, chatID, action)
	metrics.ObserveNetworkRequest("postgres", "usage_insert", "usage_stats", start, err)
	if err != nil {
		return fmt.Errorf("запись события использования: %w", err)
	}
	return nil
}

// SummarizeUsage агрегирует события использования за последние days дней.
func (p *Postgres) SummarizeUsage(ctx context.Context, chatID int64, days int) ([]domain.UsageStat, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT action, COUNT(*), MAX(occurred_at)
FROM usage_stats
WHERE chat_id = $1 AND occurred_at >= now() AT TIME ZONE 'UTC' - make_interval(days => $2)
GROUP BY action
ORDER BY action
`, chatID, days)
	metrics.ObserveNetworkRequest("postgres", "usage_summarize", "usage_stats", start, err)
	if err != nil {
		return nil, fmt.Errorf("агрегация статистики: %w", err)
	}
	defer rows.Close()

	var stats []domain.UsageStat
	for rows.Next() {
		var stat domain.UsageStat
		if err := rows.Scan(&stat.Action, &stat.Count, &stat.LastAt); err != nil {
			return nil, fmt.Errorf("чтение строки статистики: %w", err)
		}
		stat.LastAt = stat.LastAt.UTC()
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("обход статистики: %w", err)
	}
	return stats, nil
}
