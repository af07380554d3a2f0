package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Alexey777abakan/bothi/internal/adapters/repo"
	"github.com/Alexey777abakan/bothi/internal/adapters/telegram"
	"github.com/Alexey777abakan/bothi/internal/infra/config"
	"github.com/Alexey777abakan/bothi/internal/infra/db"
	"github.com/Alexey777abakan/bothi/internal/infra/log"
	"github.com/Alexey777abakan/bothi/internal/infra/metrics"
	"github.com/Alexey777abakan/bothi/internal/usecase/schedule"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv).With().Str("service", "scheduler").Logger()
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	metrics.StartServer(ctx, logger, cfg.Metrics.Addr)

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось подключиться к БД")
	}
	defer pool.Close()

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}

	repoAdapter := repo.NewPostgres(pool)
	sender := telegram.NewSender(botAPI, logger, cfg.Limits.MaxCaptionLength)
	service := schedule.NewService(repoAdapter, repoAdapter, sender, repoAdapter, logger)

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать планировщик")
	}

	if _, err := scheduler.NewJob(
		gocron.DurationJob(cfg.Schedule.SweepInterval),
		gocron.NewTask(func() {
			if err := service.Sweep(ctx, time.Now().UTC()); err != nil {
				logger.Error().Err(err).Msg("проход расписания завершился с ошибкой")
			}
		}),
	); err != nil {
		logger.Fatal().Err(err).Msg("не удалось запланировать проход расписания")
	}

	if _, err := scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0))),
		gocron.NewTask(func() {
			if err := service.CleanOldPosts(ctx, cfg.Schedule.RetentionDays); err != nil {
				logger.Error().Err(err).Msg("очистка старых постов не удалась")
			}
		}),
	); err != nil {
		logger.Fatal().Err(err).Msg("не удалось запланировать очистку")
	}

	scheduler.Start()
	logger.Info().
		Dur("sweep_interval", cfg.Schedule.SweepInterval).
		Int("retention_days", cfg.Schedule.RetentionDays).
		Msg("планировщик запущен")

	<-ctx.Done()
	logger.Info().Msg("остановка планировщика")
	if err := scheduler.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("планировщик остановлен с ошибкой")
	}
}
