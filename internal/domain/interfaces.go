package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound возвращается репозиториями, если запись отсутствует.
var ErrNotFound = errors.New("запись не найдена")

// TextProvider выполняет одну попытку генерации текста у одного провайдера.
// Одна попытка — один сетевой вызов с ограниченным таймаутом.
type TextProvider interface {
	Name() string
	Attempt(ctx context.Context, prompt string, maxTokens int) GenerationResult
}

// ImageProvider выполняет одну попытку генерации изображения.
type ImageProvider interface {
	Name() string
	Attempt(ctx context.Context, prompt string) GenerationResult
}

// Publisher доставляет посты и сообщения в мессенджер. Порядок режимов
// (байты, URL, только текст) выбирает вызывающий.
type Publisher interface {
	// SendPostBytes отправляет пост с изображением напрямую.
	// Возвращает message_id и file_id фото.
	SendPostBytes(ctx context.Context, destination, title, content, hashtags string, image []byte) (int, string, error)
	// SendPostURL отправляет пост с изображением по внешней ссылке.
	SendPostURL(ctx context.Context, destination, title, content, hashtags, imageURL string) (int, string, error)
	// SendPostText отправляет пост без изображения.
	SendPostText(ctx context.Context, destination, title, content, hashtags string) (int, error)
	// SendStatus отправляет служебное сообщение в чат клиента.
	SendStatus(ctx context.Context, chatID int64, text string) error
	// Forward пересылает уже доставленное сообщение без
	// переформатирования. Источник и адресат — @username или chat id.
	Forward(ctx context.Context, fromDestination string, messageID int, toDestination string) (int, error)
}

// ClientRepo управляет настройками клиентов.
type ClientRepo interface {
	UpsertClientSettings(ctx context.Context, settings ClientSettings) error
	GetClientSettings(ctx context.Context, chatID int64) (ClientSettings, error)
}

// PostRepo управляет сохранёнными постами.
type PostRepo interface {
	InsertPost(ctx context.Context, post Post) (int64, error)
	GetPost(ctx context.Context, chatID, postID int64) (Post, error)
	CountPostsThisMonth(ctx context.Context, chatID int64) (int, error)
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
}

// ScheduleRepo управляет записями отложенной публикации.
type ScheduleRepo interface {
	InsertSchedule(ctx context.Context, entry ScheduleEntry) error
	ListPendingSchedule(ctx context.Context, now time.Time) ([]PendingPublication, error)
	DeleteScheduleEntry(ctx context.Context, chatID, postID int64) error
}

// UsageRepo фиксирует и агрегирует события использования.
type UsageRepo interface {
	RecordUsage(ctx context.Context, chatID int64, action string) error
	SummarizeUsage(ctx context.Context, chatID int64, days int) ([]UsageStat, error)
}

// SessionStore хранит состояние ожидаемого ввода по chat_id.
// Заменяет глобальные флаги ожидания из прежней реализации.
type SessionStore interface {
	SetPending(ctx context.Context, chatID int64, state PendingState) error
	GetPending(ctx context.Context, chatID int64) (PendingState, error)
	ClearPending(ctx context.Context, chatID int64) error
}

// GenerationQueue — очередь задач генерации между ботом и воркером.
type GenerationQueue interface {
	Enqueue(ctx context.Context, job GenerationJob) error
	Pop(ctx context.Context) (GenerationJob, error)
}
