package generate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alexey777abakan/bothi/internal/domain"
	"github.com/Alexey777abakan/bothi/internal/infra/metrics"
)

// Параметры повторов генерации.
const (
	maxProviderAttempts = 3
	textBackoffStep     = 5 * time.Second
	imageBackoffStep    = 2 * time.Second
)

// ErrAllProvidersFailed все провайдеры исчерпаны.
var ErrAllProvidersFailed = errors.New("все провайдеры генерации недоступны")

// TextBackend — именованная цепочка текстовых провайдеров. Если вся
// цепочка исчерпана, бэкенд отключается до конца жизни процесса.
type TextBackend struct {
	name      string
	providers []domain.TextProvider
	disabled  atomic.Bool
}

// NewTextBackend создаёт бэкенд с упорядоченной цепочкой провайдеров.
func NewTextBackend(name string, providers ...domain.TextProvider) *TextBackend {
	return &TextBackend{name: name, providers: providers}
}

// Name возвращает имя бэкенда.
func (b *TextBackend) Name() string { return b.name }

// Disabled сообщает, отключён ли бэкенд.
func (b *TextBackend) Disabled() bool { return b.disabled.Load() }

// Orchestrator управляет фолбэком между провайдерами генерации.
type Orchestrator struct {
	backends     []*TextBackend
	image        domain.ImageProvider
	log          zerolog.Logger
	textBackoff  time.Duration
	imageBackoff time.Duration
}

// NewOrchestrator создаёт оркестратор с упорядоченными бэкендами.
func NewOrchestrator(logger zerolog.Logger, image domain.ImageProvider, backends ...*TextBackend) *Orchestrator {
	return &Orchestrator{
		backends:     backends,
		image:        image,
		log:          logger.With().Str("component", "orchestrator").Logger(),
		textBackoff:  textBackoffStep,
		imageBackoff: imageBackoffStep,
	}
}

// GenerateText перебирает бэкенды и их провайдеров по порядку.
// На провайдера приходится не более трёх попыток с паузой 5s×attempt;
// превышение квоты (429) сразу передаёт ход следующему провайдеру.
func (o *Orchestrator) GenerateText(ctx context.Context, prompt string, maxTokens int) (string, error) {
	for _, backend := range o.backends {
		if backend.Disabled() {
			continue
		}
		text, ok := o.tryBackend(ctx, backend, prompt, maxTokens)
		if ok {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		backend.disabled.Store(true)
		o.log.Error().Str("backend", backend.name).Msg("бэкенд исчерпан и отключён до перезапуска")
	}
	return "", ErrAllProvidersFailed
}

func (o *Orchestrator) tryBackend(ctx context.Context, backend *TextBackend, prompt string, maxTokens int) (string, bool) {
	for _, provider := range backend.providers {
		text, ok := o.tryProvider(ctx, provider, prompt, maxTokens)
		if ok {
			return text, true
		}
		if ctx.Err() != nil {
			return "", false
		}
	}
	return "", false
}

// tryProvider выполняет попытки одного провайдера. Возврат false без
// ошибки контекста означает переход к следующему провайдеру.
func (o *Orchestrator) tryProvider(ctx context.Context, provider domain.TextProvider, prompt string, maxTokens int) (string, bool) {
	for attempt := 1; attempt <= maxProviderAttempts; attempt++ {
		res := provider.Attempt(ctx, prompt, maxTokens)
		switch res.Status {
		case domain.StatusSuccess:
			metrics.ObserveProviderAttempt(provider.Name(), "success")
			return res.Text, true
		case domain.StatusQuotaExceeded:
			metrics.ObserveProviderAttempt(provider.Name(), "quota")
			o.log.Warn().Str("provider", provider.Name()).Msg("квота провайдера исчерпана, переход к следующему")
			return "", false
		default:
			metrics.ObserveProviderAttempt(provider.Name(), "failure")
			o.log.Warn().Err(res.Err).Str("provider", provider.Name()).Int("attempt", attempt).Msg("попытка генерации не удалась")
		}
		if attempt == maxProviderAttempts {
			break
		}
		if err := waitBackoff(ctx, time.Duration(attempt)*o.textBackoff); err != nil {
			return "", false
		}
	}
	return "", false
}

// GenerateImage выполняет до трёх попыток генерации изображения с
// паузой 2s×attempt. Отсутствие изображения не фатально для поста.
func (o *Orchestrator) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if o.image == nil {
		return nil, fmt.Errorf("провайдер изображений не настроен")
	}
	var lastErr error
	for attempt := 1; attempt <= maxProviderAttempts; attempt++ {
		res := o.image.Attempt(ctx, prompt)
		switch res.Status {
		case domain.StatusSuccess:
			metrics.ObserveProviderAttempt(o.image.Name(), "success")
			return res.Image, nil
		case domain.StatusQuotaExceeded:
			metrics.ObserveProviderAttempt(o.image.Name(), "quota")
			return nil, fmt.Errorf("квота генерации изображений исчерпана")
		default:
			metrics.ObserveProviderAttempt(o.image.Name(), "failure")
			lastErr = res.Err
			o.log.Warn().Err(res.Err).Int("attempt", attempt).Msg("попытка генерации изображения не удалась")
		}
		if attempt == maxProviderAttempts {
			break
		}
		if err := waitBackoff(ctx, time.Duration(attempt)*o.imageBackoff); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("генерация изображения не удалась: %w", lastErr)
}

// waitBackoff ждёт паузу, не блокируя отмену контекста.
func waitBackoff(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
