package generate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alexey777abakan/bothi/internal/domain"
)

type scriptedProvider struct {
	name    string
	results []domain.GenerationResult
	calls   int
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Attempt(ctx context.Context, prompt string, maxTokens int) domain.GenerationResult {
	idx := p.calls
	p.calls++
	if idx >= len(p.results) {
		return domain.FailResult(errors.New("скрипт закончился"))
	}
	return p.results[idx]
}

type scriptedImageProvider struct {
	results []domain.GenerationResult
	calls   int
}

func (p *scriptedImageProvider) Name() string { return "image" }

func (p *scriptedImageProvider) Attempt(ctx context.Context, prompt string) domain.GenerationResult {
	idx := p.calls
	p.calls++
	if idx >= len(p.results) {
		return domain.FailResult(errors.New("скрипт закончился"))
	}
	return p.results[idx]
}

func newTestOrchestrator(image domain.ImageProvider, backends ...*TextBackend) *Orchestrator {
	o := NewOrchestrator(zerolog.Nop(), image, backends...)
	o.textBackoff = time.Millisecond
	o.imageBackoff = time.Millisecond
	return o
}

func TestGenerateTextFirstProviderSucceeds(t *testing.T) {
	primary := &scriptedProvider{name: "primary", results: []domain.GenerationResult{domain.TextResult("готово")}}
	backup := &scriptedProvider{name: "backup"}
	o := newTestOrchestrator(nil, NewTextBackend("main", primary, backup))

	text, err := o.GenerateText(context.Background(), "промпт", 100)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if text != "готово" {
		t.Fatalf("ожидали текст первого провайдера, получили %q", text)
	}
	if backup.calls != 0 {
		t.Fatalf("резервный провайдер не должен вызываться")
	}
}

func TestGenerateTextQuotaSkipsRetries(t *testing.T) {
	primary := &scriptedProvider{name: "primary", results: []domain.GenerationResult{domain.QuotaResult()}}
	backup := &scriptedProvider{name: "backup", results: []domain.GenerationResult{domain.TextResult("от резерва")}}
	o := newTestOrchestrator(nil, NewTextBackend("main", primary, backup))

	text, err := o.GenerateText(context.Background(), "промпт", 100)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if text != "от резерва" {
		t.Fatalf("ожидали ответ резервного провайдера, получили %q", text)
	}
	if primary.calls != 1 {
		t.Fatalf("после квоты не должно быть повторов: %d вызовов", primary.calls)
	}
}

func TestGenerateTextRetriesThreeTimes(t *testing.T) {
	failing := &scriptedProvider{name: "failing", results: []domain.GenerationResult{
		domain.FailResult(errors.New("раз")),
		domain.FailResult(errors.New("два")),
		domain.TextResult("с третьей"),
	}}
	o := newTestOrchestrator(nil, NewTextBackend("main", failing))

	text, err := o.GenerateText(context.Background(), "промпт", 100)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if text != "с третьей" {
		t.Fatalf("ожидали успех с третьей попытки, получили %q", text)
	}
	if failing.calls != 3 {
		t.Fatalf("ожидали 3 попытки, было %d", failing.calls)
	}
}

func TestGenerateTextAttemptBudget(t *testing.T) {
	p1 := &scriptedProvider{name: "p1"}
	p2 := &scriptedProvider{name: "p2"}
	o := newTestOrchestrator(nil, NewTextBackend("main", p1, p2))

	_, err := o.GenerateText(context.Background(), "промпт", 100)
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Fatalf("ожидали ErrAllProvidersFailed, получили %v", err)
	}
	if p1.calls != 3 || p2.calls != 3 {
		t.Fatalf("каждому провайдеру положено ровно 3 попытки, было %d и %d", p1.calls, p2.calls)
	}
}

func TestGenerateTextDisablesExhaustedBackend(t *testing.T) {
	dead := &scriptedProvider{name: "dead"}
	alive := &scriptedProvider{name: "alive", results: []domain.GenerationResult{
		domain.TextResult("раз"),
		domain.TextResult("два"),
	}}
	deadBackend := NewTextBackend("dead", dead)
	o := newTestOrchestrator(nil, deadBackend, NewTextBackend("alive", alive))

	if _, err := o.GenerateText(context.Background(), "промпт", 100); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !deadBackend.Disabled() {
		t.Fatalf("исчерпанный бэкенд должен быть отключён")
	}
	deadCalls := dead.calls

	if _, err := o.GenerateText(context.Background(), "промпт", 100); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if dead.calls != deadCalls {
		t.Fatalf("отключённый бэкенд не должен вызываться повторно")
	}
}

func TestGenerateImageRetries(t *testing.T) {
	image := &scriptedImageProvider{results: []domain.GenerationResult{
		domain.FailResult(errors.New("раз")),
		domain.ImageResult([]byte{1, 2, 3}),
	}}
	o := newTestOrchestrator(image)

	data, err := o.GenerateImage(context.Background(), "промпт")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(data) != 3 {
		t.Fatalf("ожидали изображение из скрипта")
	}
	if image.calls != 2 {
		t.Fatalf("ожидали 2 попытки, было %d", image.calls)
	}
}

func TestGenerateImageGivesUpAfterThree(t *testing.T) {
	image := &scriptedImageProvider{}
	o := newTestOrchestrator(image)

	if _, err := o.GenerateImage(context.Background(), "промпт"); err == nil {
		t.Fatalf("ожидали ошибку после исчерпания попыток")
	}
	if image.calls != 3 {
		t.Fatalf("ожидали 3 попытки, было %d", image.calls)
	}
}
