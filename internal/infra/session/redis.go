package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Alexey777abakan/bothi/internal/domain"
)

// Состояние ожидаемого ввода живёт сутки, потом диалог считается брошенным.
const pendingTTL = 24 * time.Hour

// RedisStore хранит состояние диалога каждого чата в Redis.
// Состояние привязано к chat_id и переживает перезапуск процесса.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore создаёт хранилище сессий.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func pendingKey(chatID int64) string {
	return fmt.Sprintf("session:pending:%d", chatID)
}

// SetPending запоминает, какой ввод ожидается от чата.
func (s *RedisStore) SetPending(ctx context.Context, chatID int64, state domain.PendingState) error {
	if state == domain.PendingNone {
		return s.ClearPending(ctx, chatID)
	}
	if err := s.client.Set(ctx, pendingKey(chatID), string(state), pendingTTL).Err(); err != nil {
		return fmt.Errorf("сохранение состояния сессии: %w", err)
	}
	return nil
}

// GetPending возвращает ожидаемый ввод чата.
func (s *RedisStore) GetPending(ctx context.Context, chatID int64) (domain.PendingState, error) {
	val, err := s.client.Get(ctx, pendingKey(chatID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.PendingNone, nil
		}
		return domain.PendingNone, fmt.Errorf("чтение состояния сессии: %w", err)
	}
	return domain.PendingState(val), nil
}

// ClearPending сбрасывает состояние чата.
func (s *RedisStore) ClearPending(ctx context.Context, chatID int64) error {
	if err := s.client.Del(ctx, pendingKey(chatID)).Err(); err != nil {
		return fmt.Errorf("сброс состояния сессии: %w", err)
	}
	return nil
}
