package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Alexey777abakan/bothi/internal/adapters/bot"
	"github.com/Alexey777abakan/bothi/internal/adapters/repo"
	"github.com/Alexey777abakan/bothi/internal/adapters/telegram"
	"github.com/Alexey777abakan/bothi/internal/infra/config"
	"github.com/Alexey777abakan/bothi/internal/infra/db"
	infrahttp "github.com/Alexey777abakan/bothi/internal/infra/http"
	"github.com/Alexey777abakan/bothi/internal/infra/log"
	"github.com/Alexey777abakan/bothi/internal/infra/metrics"
	"github.com/Alexey777abakan/bothi/internal/infra/queue"
	"github.com/Alexey777abakan/bothi/internal/infra/session"
	"github.com/Alexey777abakan/bothi/internal/usecase/schedule"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv).With().Str("service", "bot").Logger()
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось подключиться к БД")
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	jobs, err := queue.New(cfg.Queues.Driver, cfg.Rabbit.URL, cfg.Queues.Generation, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать очередь задач")
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}

	repoAdapter := repo.NewPostgres(pool)
	sessions := session.NewRedisStore(redisClient)
	sender := telegram.NewSender(botAPI, logger, cfg.Limits.MaxCaptionLength)
	scheduleService := schedule.NewService(repoAdapter, repoAdapter, sender, repoAdapter, logger)

	h := bot.NewHandler(botAPI, logger, repoAdapter, repoAdapter, repoAdapter, sessions, jobs, scheduleService, bot.Limits{
		FreeTrialPosts: cfg.Limits.FreeTrialPosts,
		MonthlyPosts:   cfg.Limits.MonthlyPosts,
	})

	srv := infrahttp.NewServer(logger)
	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
		}
	}()

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := botAPI.GetUpdatesChan(updateCfg)
	logger.Info().Msg("бот запущен, ожидаю апдейты")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("остановка бота")
			botAPI.StopReceivingUpdates()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("HTTP сервер остановлен с ошибкой")
			}
			cancel()
			return
		case update := <-updates:
			h.HandleUpdate(ctx, update)
		}
	}
}
