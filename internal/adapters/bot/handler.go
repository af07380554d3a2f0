package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alexey777abakan/bothi/internal/domain"
	"github.com/Alexey777abakan/bothi/internal/infra/metrics"
	"github.com/Alexey777abakan/bothi/internal/usecase/schedule"
)

// Формат времени отложенной публикации (UTC).
const scheduleTimeLayout = "2006-01-02 15:04"

// Limits задаёт лимиты генерации по тарифам.
type Limits struct {
	FreeTrialPosts int
	MonthlyPosts   int
}

// Handler обслуживает апдейты бота.
type Handler struct {
	bot        *tgbotapi.BotAPI
	log        zerolog.Logger
	clients    domain.ClientRepo
	posts      domain.PostRepo
	usage      domain.UsageRepo
	sessions   domain.SessionStore
	jobs       domain.GenerationQueue
	scheduleUC *schedule.Service
	limits     Limits
}

// NewHandler создаёт обработчик.
func NewHandler(
	bot *tgbotapi.BotAPI,
	logger zerolog.Logger,
	clients domain.ClientRepo,
	posts domain.PostRepo,
	usage domain.UsageRepo,
	sessions domain.SessionStore,
	jobs domain.GenerationQueue,
	scheduleUC *schedule.Service,
	limits Limits,
) *Handler {
	return &Handler{
		bot:        bot,
		log:        logger.With().Str("component", "bot").Logger(),
		clients:    clients,
		posts:      posts,
		usage:      usage,
		sessions:   sessions,
		jobs:       jobs,
		scheduleUC: scheduleUC,
		limits:     limits,
	}
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		h.handleMessage(ctx, upd.Message)
	} else if upd.CallbackQuery != nil {
		h.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	settings := h.settingsOrDefault(ctx, chatID)
	t := textsFor(settings.Language)

	if !strings.HasPrefix(text, "/") {
		if h.tryHandlePendingInput(ctx, chatID, settings, text) {
			return
		}
	}

	switch {
	case strings.HasPrefix(text, "/start"):
		h.handleStart(ctx, chatID)
	case strings.HasPrefix(text, "/help"):
		h.reply(chatID, t.Help, nil)
	case strings.HasPrefix(text, "/settheme"):
		payload := strings.TrimSpace(strings.TrimPrefix(text, "/settheme"))
		if payload == "" {
			h.askPending(ctx, chatID, domain.PendingTheme, t.AskTheme)
			return
		}
		h.applyTheme(ctx, chatID, settings, payload)
	case strings.HasPrefix(text, "/setchannel"):
		payload := strings.TrimSpace(strings.TrimPrefix(text, "/setchannel"))
		if payload == "" {
			h.askPending(ctx, chatID, domain.PendingChannel, t.AskChannel)
			return
		}
		h.applyChannel(ctx, chatID, settings, payload)
	case strings.HasPrefix(text, "/style"):
		h.reply(chatID, t.ChooseStyle, h.styleKeyboard(settings.Language))
	case strings.HasPrefix(text, "/generate_text"):
		h.handleGenerate(ctx, chatID, settings, true)
	case strings.HasPrefix(text, "/generate"):
		h.handleGenerate(ctx, chatID, settings, false)
	case strings.HasPrefix(text, "/schedule"):
		payload := strings.TrimSpace(strings.TrimPrefix(text, "/schedule"))
		if payload == "" {
			h.askPending(ctx, chatID, domain.PendingSchedule, t.AskSchedule)
			return
		}
		h.applySchedule(ctx, chatID, settings, payload)
	case strings.HasPrefix(text, "/stats"):
		h.handleStats(ctx, chatID, settings)
	default:
		h.reply(chatID, t.UnknownCommand, nil)
	}
}

// tryHandlePendingInput обрабатывает свободный текст, если бот ждёт
// ввод от этого чата. Состояние живёт в сессионном хранилище.
func (h *Handler) tryHandlePendingInput(ctx context.Context, chatID int64, settings domain.ClientSettings, text string) bool {
	state, err := h.sessions.GetPending(ctx, chatID)
	if err != nil {
		h.log.Warn().Err(err).Int64("chat_id", chatID).Msg("состояние сессии недоступно")
		return false
	}
	switch state {
	case domain.PendingTheme:
		h.applyTheme(ctx, chatID, settings, text)
	case domain.PendingChannel:
		h.applyChannel(ctx, chatID, settings, text)
	case domain.PendingSchedule:
		h.applySchedule(ctx, chatID, settings, text)
	default:
		return false
	}
	return true
}

func (h *Handler) handleStart(ctx context.Context, chatID int64) {
	settings := h.settingsOrDefault(ctx, chatID)
	if err := h.clients.UpsertClientSettings(ctx, settings); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("профиль клиента не сохранён")
	}
	h.reply(chatID, textsFor(settings.Language).Welcome, h.languageKeyboard())
}

// applyTheme разбирает ввод формата "N#тема".
func (h *Handler) applyTheme(ctx context.Context, chatID int64, settings domain.ClientSettings, payload string) {
	t := textsFor(settings.Language)
	h.clearPending(ctx, chatID)

	count, theme, ok := parseThemeInput(payload)
	if !ok {
		h.reply(chatID, t.ThemeFormatError, nil)
		return
	}
	settings.Theme = theme
	settings.PostCount = count
	if err := h.clients.UpsertClientSettings(ctx, settings); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("тема не сохранена")
		h.reply(chatID, t.InternalError, nil)
		return
	}
	h.reply(chatID, fmt.Sprintf(t.ThemeSet, theme, count), nil)
}

func parseThemeInput(payload string) (int, string, bool) {
	parts := strings.SplitN(payload, "#", 2)
	if len(parts) != 2 {
		return 0, "", false
	}
	count, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || count < 1 || count > 10 {
		return 0, "", false
	}
	theme := strings.TrimSpace(parts[1])
	if theme == "" {
		return 0, "", false
	}
	return count, theme, true
}

func (h *Handler) applyChannel(ctx context.Context, chatID int64, settings domain.ClientSettings, payload string) {
	t := textsFor(settings.Language)
	h.clearPending(ctx, chatID)

	channel := strings.TrimSpace(payload)
	if !validChannel(channel) {
		h.reply(chatID, t.ChannelInvalid, nil)
		return
	}
	settings.ChannelID = channel
	if err := h.clients.UpsertClientSettings(ctx, settings); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("канал не сохранён")
		h.reply(chatID, t.InternalError, nil)
		return
	}
	h.reply(chatID, fmt.Sprintf(t.ChannelSet, channel), nil)
}

// validChannel принимает @username или числовой ID чата.
func validChannel(channel string) bool {
	if strings.HasPrefix(channel, "@") {
		return len(channel) > 2 && !strings.ContainsAny(channel[1:], " \t\n")
	}
	_, err := strconv.ParseInt(channel, 10, 64)
	return err == nil
}

// handleGenerate проверяет лимиты тарифа и ставит задачу в очередь.
func (h *Handler) handleGenerate(ctx context.Context, chatID int64, settings domain.ClientSettings, textOnly bool) {
	t := textsFor(settings.Language)
	if settings.Theme == "" {
		h.askPending(ctx, chatID, domain.PendingTheme, t.AskTheme)
		return
	}

	used, err := h.posts.CountPostsThisMonth(ctx, chatID)
	if err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("подсчёт постов не удался")
		h.reply(chatID, t.InternalError, nil)
		return
	}
	count := settings.PostCount
	if count <= 0 {
		count = 1
	}
	if settings.SubscriptionActive(time.Now().UTC()) {
		if used+count > h.limits.MonthlyPosts {
			h.reply(chatID, fmt.Sprintf(t.LimitReached, h.limits.MonthlyPosts), nil)
			return
		}
	} else if used+count > h.limits.FreeTrialPosts {
		h.reply(chatID, fmt.Sprintf(t.TrialExhausted, h.limits.FreeTrialPosts), nil)
		return
	}

	job := domain.GenerationJob{
		ID:          uuid.NewString(),
		ChatID:      chatID,
		TextOnly:    textOnly,
		RequestedAt: time.Now().UTC(),
	}
	if err := h.jobs.Enqueue(ctx, job); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("задача генерации не поставлена")
		h.reply(chatID, t.InternalError, nil)
		return
	}
	if err := h.usage.RecordUsage(ctx, chatID, domain.UsageActionGenerate); err != nil {
		h.log.Warn().Err(err).Int64("chat_id", chatID).Msg("событие использования не записано")
	}
	h.reply(chatID, t.GenerateQueued, nil)
}

// applySchedule разбирает ввод формата "ID YYYY-MM-DD HH:MM" (UTC).
func (h *Handler) applySchedule(ctx context.Context, chatID int64, settings domain.ClientSettings, payload string) {
	t := textsFor(settings.Language)
	h.clearPending(ctx, chatID)

	if settings.ChannelID == "" {
		h.reply(chatID, t.NoChannel, nil)
		return
	}
	parts := strings.Fields(payload)
	if len(parts) != 3 {
		h.reply(chatID, t.ScheduleInvalid, nil)
		return
	}
	postID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		h.reply(chatID, t.ScheduleInvalid, nil)
		return
	}
	publishAt, err := time.ParseInLocation(scheduleTimeLayout, parts[1]+" "+parts[2], time.UTC)
	if err != nil {
		h.reply(chatID, t.ScheduleInvalid, nil)
		return
	}

	if err := h.scheduleUC.Schedule(ctx, chatID, postID, settings.ChannelID, publishAt); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.reply(chatID, t.PostNotFound, nil)
			return
		}
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("расписание не сохранено")
		h.reply(chatID, t.InternalError, nil)
		return
	}
	h.reply(chatID, fmt.Sprintf(t.ScheduleSet, postID, publishAt.Format(scheduleTimeLayout)), nil)
}

func (h *Handler) handleStats(ctx context.Context, chatID int64, settings domain.ClientSettings) {
	t := textsFor(settings.Language)
	stats, err := h.usage.SummarizeUsage(ctx, chatID, 30)
	if err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("статистика недоступна")
		h.reply(chatID, t.InternalError, nil)
		return
	}
	if len(stats) == 0 {
		h.reply(chatID, t.StatsEmpty, nil)
		return
	}
	lines := make([]string, 0, len(stats)+1)
	lines = append(lines, t.StatsHeader)
	for _, stat := range stats {
		lines = append(lines, formatStat(stat, settings.Language))
	}
	h.reply(chatID, strings.Join(lines, "\n"), nil)
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	settings := h.settingsOrDefault(ctx, chatID)
	data := cb.Data

	switch {
	case strings.HasPrefix(data, "lang:"):
		h.applyLanguage(ctx, chatID, settings, strings.TrimPrefix(data, "lang:"))
	case strings.HasPrefix(data, "style:"):
		h.applyStyle(ctx, chatID, settings, strings.TrimPrefix(data, "style:"))
	}

	if _, err := h.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		h.log.Warn().Err(err).Msg("ответ на callback не отправлен")
	}
}

func (h *Handler) applyLanguage(ctx context.Context, chatID int64, settings domain.ClientSettings, raw string) {
	lang := domain.Language(raw)
	if !lang.Valid() {
		return
	}
	settings.Language = lang
	if err := h.clients.UpsertClientSettings(ctx, settings); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("язык не сохранён")
		h.reply(chatID, textsFor(settings.Language).InternalError, nil)
		return
	}
	h.reply(chatID, textsFor(lang).LanguageSet, nil)
}

// applyStyle сохраняет стиль. На тарифе Стандарт доступен только
// «Эксперт», остальные стили требуют Премиум.
func (h *Handler) applyStyle(ctx context.Context, chatID int64, settings domain.ClientSettings, style string) {
	t := textsFor(settings.Language)
	if style != "expert" && settings.SubscriptionPlan != domain.PlanPremium {
		h.reply(chatID, t.StyleLocked, nil)
		return
	}
	settings.Style = style
	if err := h.clients.UpsertClientSettings(ctx, settings); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("стиль не сохранён")
		h.reply(chatID, t.InternalError, nil)
		return
	}
	h.reply(chatID, fmt.Sprintf(t.StyleSet, styleTitle(style, settings.Language)), nil)
}

func (h *Handler) settingsOrDefault(ctx context.Context, chatID int64) domain.ClientSettings {
	settings, err := h.clients.GetClientSettings(ctx, chatID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			h.log.Warn().Err(err).Int64("chat_id", chatID).Msg("настройки клиента недоступны")
		}
		return domain.ClientSettings{
			ChatID:           chatID,
			PostCount:        1,
			Style:            "expert",
			SubscriptionPlan: domain.PlanFree,
			Language:         domain.LanguageRU,
		}
	}
	return settings
}

func (h *Handler) askPending(ctx context.Context, chatID int64, state domain.PendingState, prompt string) {
	if err := h.sessions.SetPending(ctx, chatID, state); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("состояние сессии не сохранено")
	}
	h.reply(chatID, prompt, nil)
}

func (h *Handler) clearPending(ctx context.Context, chatID int64) {
	if err := h.sessions.ClearPending(ctx, chatID); err != nil {
		h.log.Warn().Err(err).Int64("chat_id", chatID).Msg("состояние сессии не сброшено")
	}
}

func (h *Handler) reply(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	start := time.Now()
	_, err := h.bot.Send(msg)
	metrics.ObserveNetworkRequest("telegram", "bot_reply", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		metrics.BotSendErrors.Inc()
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("ответ не отправлен")
	}
}

func (h *Handler) languageKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Русский", "lang:ru"),
			tgbotapi.NewInlineKeyboardButtonData("English", "lang:en"),
		),
	)
	return &kb
}

func (h *Handler) styleKeyboard(lang domain.Language) *tgbotapi.InlineKeyboardMarkup {
	styles := []string{"expert", "hemingway", "natgeo", "journalist", "poet"}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(styles))
	for _, style := range styles {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(styleTitle(style, lang), "style:"+style),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}
