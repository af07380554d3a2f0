package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	GenerationRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "generation_requests_total",
		Help: "Общее количество запросов на генерацию поста",
	})
	GenerationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "generation_failures_total",
		Help: "Количество полностью неуспешных циклов генерации",
	})
	GenerationCycleSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "generation_cycle_seconds",
		Help:    "Время полного цикла генерации и публикации",
		Buckets: prometheus.DefBuckets,
	})
	ProviderAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "provider_attempts_total",
		Help: "Количество попыток генерации по провайдерам",
	}, []string{"provider", "outcome"})
	ProviderQuotaTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "provider_quota_exceeded_total",
		Help: "Количество превышений квоты по провайдерам",
	}, []string{"provider"})
	PublishAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "publish_attempts_total",
		Help: "Количество попыток публикации по режимам доставки",
	}, []string{"mode", "status"})
	ScheduleSweepSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedule_sweep_seconds",
		Help:    "Время одного прохода планировщика",
		Buckets: prometheus.DefBuckets,
	})
	ScheduleForwardErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_forward_errors_total",
		Help: "Ошибки пересылки отложенных публикаций",
	})
	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 25, 30, 35, 40, 45, 50, 55, 60, 65, 70, 75, 80, 85, 90, 95, 100, 105, 110, 115, 120},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	LLMGenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_generation_duration_seconds",
		Help:    "Длительность генерации ответа LLM",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	LLMTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_tokens_total",
		Help: "Количество токенов, использованных LLM",
	}, []string{"model", "type"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		GenerationRequestsTotal,
		GenerationFailuresTotal,
		GenerationCycleSeconds,
		ProviderAttemptsTotal,
		ProviderQuotaTotal,
		PublishAttemptsTotal,
		ScheduleSweepSeconds,
		ScheduleForwardErrors,
		BotSendErrors,
		NetworkRequestDuration,
		NetworkRequestTotal,
		LLMGenerationDuration,
		LLMTokensTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveLLMGeneration записывает длительность и токены генерации LLM.
func ObserveLLMGeneration(model string, duration time.Duration, promptTokens, completionTokens, totalTokens int) {
	if model == "" {
		model = "unknown"
	}
	LLMGenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	if promptTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
	if totalTokens <= 0 {
		totalTokens = promptTokens + completionTokens
	}
	if totalTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "total").Add(float64(totalTokens))
	}
}

// ObserveProviderAttempt записывает исход одной попытки провайдера.
func ObserveProviderAttempt(provider, outcome string) {
	if provider == "" {
		provider = "unknown"
	}
	ProviderAttemptsTotal.WithLabelValues(provider, outcome).Inc()
	if outcome == "quota" {
		ProviderQuotaTotal.WithLabelValues(provider).Inc()
	}
}

// ObservePublishAttempt записывает исход попытки публикации.
func ObservePublishAttempt(mode string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	PublishAttemptsTotal.WithLabelValues(mode, status).Inc()
}
