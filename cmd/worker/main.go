package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alexey777abakan/bothi/internal/adapters/flux"
	"github.com/Alexey777abakan/bothi/internal/adapters/imgur"
	"github.com/Alexey777abakan/bothi/internal/adapters/mistral"
	"github.com/Alexey777abakan/bothi/internal/adapters/openrouter"
	"github.com/Alexey777abakan/bothi/internal/adapters/repo"
	"github.com/Alexey777abakan/bothi/internal/adapters/telegram"
	"github.com/Alexey777abakan/bothi/internal/domain"
	"github.com/Alexey777abakan/bothi/internal/infra/config"
	"github.com/Alexey777abakan/bothi/internal/infra/db"
	"github.com/Alexey777abakan/bothi/internal/infra/log"
	"github.com/Alexey777abakan/bothi/internal/infra/metrics"
	"github.com/Alexey777abakan/bothi/internal/infra/queue"
	"github.com/Alexey777abakan/bothi/internal/usecase/generate"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv).With().Str("service", "worker").Logger()
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	metrics.StartServer(ctx, logger, cfg.Metrics.Addr)

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

	// Общий HTTP клиент: все провайдеры переиспользуют соединения.
	httpClient := &http.Client{Timeout: 90 * time.Second}

	orClient := openrouter.NewClient(httpClient, cfg.OpenRouter.APIKey, cfg.OpenRouter.BaseURL, cfg.OpenRouter.Referer, cfg.OpenRouter.AppTitle)
	openrouterBackend := generate.NewTextBackend("openrouter",
		openrouter.NewModelProvider(orClient, cfg.OpenRouter.PrimaryModel),
		openrouter.NewModelProvider(orClient, cfg.OpenRouter.BackupModel),
		openrouter.NewModelProvider(orClient, cfg.OpenRouter.LastResortModel),
	)
	mistralBackend := generate.NewTextBackend("mistral",
		mistral.NewClient(httpClient, cfg.Mistral.APIKey, cfg.Mistral.BaseURL, cfg.Mistral.Model, ""),
	)
	fluxClient := flux.NewClient(httpClient, cfg.Flux.APIKey, cfg.Flux.PrimaryURL, cfg.Flux.MirrorURL, logger)

	orchestrator := generate.NewOrchestrator(logger, fluxClient, openrouterBackend, mistralBackend)
	assembler := generate.NewAssembler(logger)
	sender := telegram.NewSender(botAPI, logger, cfg.Limits.MaxCaptionLength)

	var hoster generate.ImageHoster
	if cfg.Imgur.ClientID != "" {
		hoster = imgur.NewClient(httpClient, cfg.Imgur.ClientID, logger)
	}

	repoAdapter := repo.NewPostgres(pool)
	service := generate.NewService(orchestrator, assembler, sender, hoster, repoAdapter, repoAdapter, repoAdapter, logger, cfg.Limits.MaxPostLength)

	logger.Info().Msg("воркер запущен, ожидаю задачи")
	for {
		job, err := jobs.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info().Msg("остановка воркера")
				return
			}
			logger.Error().Err(err).Msg("чтение задачи не удалось")
			continue
		}
		runJob(ctx, logger, service, job)
	}
}

func runJob(ctx context.Context, logger zerolog.Logger, service *generate.Service, job domain.GenerationJob) {
	jobCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()
	if err := service.Run(jobCtx, job); err != nil {
		logger.Error().Err(err).Str("job_id", job.ID).Int64("chat_id", job.ChatID).Msg("задача генерации завершилась с ошибкой")
	}
}
