package bot

import (
	"fmt"

	"github.com/Alexey777abakan/bothi/internal/domain"
)

// Тексты интерфейса бота по языкам. Русский — язык по умолчанию.
type texts struct {
	Welcome          string
	ChooseLanguage   string
	LanguageSet      string
	Help             string
	AskTheme         string
	ThemeFormatError string
	ThemeSet         string
	AskChannel       string
	ChannelInvalid   string
	ChannelSet       string
	ChooseStyle      string
	StyleSet         string
	StyleLocked      string
	GenerateQueued   string
	LimitReached     string
	TrialExhausted   string
	AskSchedule      string
	ScheduleInvalid  string
	PostNotFound     string
	ScheduleSet      string
	NoChannel        string
	StatsHeader      string
	StatsEmpty       string
	UnknownCommand   string
	InternalError    string
}

var textsByLang = map[domain.Language]texts{
	domain.LanguageRU: {
		Welcome:          "Привет! Я готовлю и публикую посты для вашего канала.\nВыберите язык:",
		ChooseLanguage:   "Выберите язык:",
		LanguageSet:      "Язык сохранён. Задайте тему командой /settheme.",
		Help:             "Команды:\n/settheme — тема и число постов (формат: 3#история)\n/setchannel — канал для публикации\n/style — стиль автора\n/generate — сгенерировать и опубликовать\n/generate_text — пост без изображения\n/schedule — отложенная публикация\n/stats — статистика за 30 дней",
		AskTheme:         "Отправьте тему в формате N#тема, например: 3#девяностые",
		ThemeFormatError: "Не понял. Нужен формат N#тема, например: 2#космос",
		ThemeSet:         "Тема сохранена: %s (постов за запуск: %d)",
		AskChannel:       "Отправьте @имя канала или числовой ID чата. Бот должен быть администратором канала.",
		ChannelInvalid:   "Это не похоже на канал. Пример: @mychannel",
		ChannelSet:       "Канал сохранён: %s",
		ChooseStyle:      "Выберите стиль автора:",
		StyleSet:         "Стиль сохранён: %s",
		StyleLocked:      "Этот стиль доступен на тарифе Премиум. На вашем тарифе доступен только «Эксперт».",
		GenerateQueued:   "Принято! Начинаю генерацию, это займёт пару минут.",
		LimitReached:     "Лимит постов на этот месяц исчерпан (%d). Лимит обновится в следующем месяце.",
		TrialExhausted:   "Пробные посты закончились (%d). Оформите подписку, чтобы продолжить.",
		AskSchedule:      "Отправьте ID поста и время публикации по UTC в формате: 12 2026-09-01 15:04",
		ScheduleInvalid:  "Не понял. Формат: ID YYYY-MM-DD HH:MM (время по UTC)",
		PostNotFound:     "Пост с таким ID не найден.",
		ScheduleSet:      "Запланировано: пост %d будет опубликован %s UTC",
		NoChannel:        "Сначала задайте канал командой /setchannel.",
		StatsHeader:      "Статистика за 30 дней:",
		StatsEmpty:       "Пока нет активности за последние 30 дней.",
		UnknownCommand:   "Неизвестная команда. Список команд: /help",
		InternalError:    "Что-то пошло не так, попробуйте ещё раз.",
	},
	domain.LanguageEN: {
		Welcome:          "Hi! I generate and publish posts for your channel.\nChoose a language:",
		ChooseLanguage:   "Choose a language:",
		LanguageSet:      "Language saved. Set a topic with /settheme.",
		Help:             "Commands:\n/settheme — topic and post count (format: 3#history)\n/setchannel — target channel\n/style — author style\n/generate — generate and publish\n/generate_text — post without an image\n/schedule — deferred publication\n/stats — 30-day stats",
		AskTheme:         "Send the topic as N#topic, e.g.: 3#nineties",
		ThemeFormatError: "Didn't get that. Use N#topic, e.g.: 2#space",
		ThemeSet:         "Topic saved: %s (posts per run: %d)",
		AskChannel:       "Send the @channel name or a numeric chat ID. The bot must be a channel admin.",
		ChannelInvalid:   "That doesn't look like a channel. Example: @mychannel",
		ChannelSet:       "Channel saved: %s",
		ChooseStyle:      "Choose the author style:",
		StyleSet:         "Style saved: %s",
		StyleLocked:      "This style requires the Premium plan. Your plan allows only Expert.",
		GenerateQueued:   "Got it! Starting generation, this takes a couple of minutes.",
		LimitReached:     "Monthly post limit reached (%d). It resets next month.",
		TrialExhausted:   "Trial posts are used up (%d). Subscribe to continue.",
		AskSchedule:      "Send the post ID and UTC publish time as: 12 2026-09-01 15:04",
		ScheduleInvalid:  "Didn't get that. Format: ID YYYY-MM-DD HH:MM (UTC)",
		PostNotFound:     "No post with that ID.",
		ScheduleSet:      "Scheduled: post %d will be published at %s UTC",
		NoChannel:        "Set a channel first with /setchannel.",
		StatsHeader:      "Stats for the last 30 days:",
		StatsEmpty:       "No activity in the last 30 days yet.",
		UnknownCommand:   "Unknown command. See /help",
		InternalError:    "Something went wrong, please try again.",
	},
}

func textsFor(lang domain.Language) texts {
	if t, ok := textsByLang[lang]; ok {
		return t
	}
	return textsByLang[domain.LanguageRU]
}

// Отображаемые имена стилей.
var styleTitles = map[domain.Language]map[string]string{
	domain.LanguageRU: {
		"expert":     "Эксперт",
		"hemingway":  "Хемингуэй",
		"natgeo":     "Нат-гео",
		"journalist": "Журналист",
		"poet":       "Поэт",
	},
	domain.LanguageEN: {
		"expert":     "Expert",
		"hemingway":  "Hemingway",
		"natgeo":     "Nat Geo",
		"journalist": "Journalist",
		"poet":       "Poet",
	},
}

func styleTitle(style string, lang domain.Language) string {
	byLang, ok := styleTitles[lang]
	if !ok {
		byLang = styleTitles[domain.LanguageRU]
	}
	if title, ok := byLang[style]; ok {
		return title
	}
	return style
}

// Локализованные имена событий использования для /stats.
func usageActionTitle(action string, lang domain.Language) string {
	ru := map[string]string{
		domain.UsageActionGenerate:  "генераций",
		domain.UsageActionPublish:   "публикаций",
		domain.UsageActionSchedule:  "запланировано",
		domain.UsageActionForwarded: "переслано по расписанию",
	}
	en := map[string]string{
		domain.UsageActionGenerate:  "generations",
		domain.UsageActionPublish:   "published",
		domain.UsageActionSchedule:  "scheduled",
		domain.UsageActionForwarded: "forwarded on schedule",
	}
	byLang := ru
	if lang == domain.LanguageEN {
		byLang = en
	}
	if title, ok := byLang[action]; ok {
		return title
	}
	return action
}

func formatStat(stat domain.UsageStat, lang domain.Language) string {
	return fmt.Sprintf("• %s: %d", usageActionTitle(stat.Action, lang), stat.Count)
}
