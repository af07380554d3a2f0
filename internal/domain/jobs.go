package domain

import "time"

// GenerationJob — задача на полный цикл генерации и публикации.
type GenerationJob struct {
	ID          string    `json:"id"`
	ChatID      int64     `json:"chat_id"`
	TextOnly    bool      `json:"text_only,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// PendingState описывает, какой ввод бот ожидает от чата.
type PendingState string

const (
	// PendingNone ввод не ожидается.
	PendingNone PendingState = ""
	// PendingTheme ожидается тема в формате "N#тема".
	PendingTheme PendingState = "theme"
	// PendingChannel ожидается идентификатор канала.
	PendingChannel PendingState = "channel"
	// PendingSchedule ожидается время отложенной публикации.
	PendingSchedule PendingState = "schedule"
)
