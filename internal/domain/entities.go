package domain

import "time"

// Language задаёт язык генерации и интерфейса клиента.
type Language string

const (
	// LanguageRU русский язык.
	LanguageRU Language = "ru"
	// LanguageEN английский язык.
	LanguageEN Language = "en"
)

// Valid проверяет, что язык поддерживается.
func (l Language) Valid() bool {
	return l == LanguageRU || l == LanguageEN
}

// Тарифные планы клиента.
const (
	PlanFree     = "free"
	PlanStandard = "standard"
	PlanPremium  = "premium"
)

// ClientSettings хранит настройки клиента бота.
type ClientSettings struct {
	ChatID           int64
	Theme            string
	PostCount        int
	Style            string
	ChannelID        string
	SubscriptionEnd  *time.Time
	SubscriptionPlan string
	Language         Language
}

// SubscriptionActive сообщает, действует ли платная подписка на момент now.
func (c ClientSettings) SubscriptionActive(now time.Time) bool {
	if c.SubscriptionPlan == "" || c.SubscriptionPlan == PlanFree {
		return false
	}
	if c.SubscriptionEnd == nil {
		return false
	}
	return c.SubscriptionEnd.After(now)
}

// Post представляет сгенерированный и доставленный пост.
// Destination — адрес, куда пост был доставлен (@username или chat id);
// MessageID идентифицирует сообщение именно в этом адресате.
type Post struct {
	ID          int64
	ChatID      int64
	Title       string
	Content     string
	Hashtags    string
	FileID      string
	ImagePrompt string
	Destination string
	MessageID   int
	CreatedAt   time.Time
}

// ScheduleEntry описывает намерение переслать пост в канал в будущем.
// PublishAt всегда хранится в UTC.
type ScheduleEntry struct {
	ChatID    int64
	PostID    int64
	ChannelID string
	PublishAt time.Time
}

// PendingPublication — запись расписания, объединённая с исходным
// постом. Destination — адрес исходной доставки поста, источник для
// пересылки; ChannelID — куда пересылать.
type PendingPublication struct {
	ChatID      int64
	PostID      int64
	ChannelID   string
	PublishAt   time.Time
	Destination string
	MessageID   int
}

// UsageStat агрегирует события использования по типу действия.
type UsageStat struct {
	Action string
	Count  int
	LastAt time.Time
}

// Типы событий использования.
const (
	UsageActionGenerate  = "generate"
	UsageActionPublish   = "publish"
	UsageActionSchedule  = "schedule"
	UsageActionForwarded = "forwarded"
)
