package openrouter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Alexey777abakan/bothi/internal/domain"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *ModelProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(srv.Client(), "test-key", srv.URL, "", "")
	return NewModelProvider(client, "test-model")
}

func TestAttemptSuccess(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("нет заголовка авторизации")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" Готовый текст "}}]}`))
	})

	res := p.Attempt(context.Background(), "промпт", 100)
	if res.Status != domain.StatusSuccess {
		t.Fatalf("ожидали успех, получили статус %d (%v)", res.Status, res.Err)
	}
	if res.Text != "Готовый текст" {
		t.Fatalf("ожидали обрезанный текст, получили %q", res.Text)
	}
}

func TestAttemptStatus429IsQuota(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"rate limited"}}`))
	})

	res := p.Attempt(context.Background(), "промпт", 100)
	if res.Status != domain.StatusQuotaExceeded {
		t.Fatalf("429 должен давать QuotaExceeded, получили статус %d", res.Status)
	}
}

func TestAttemptEmbedded429IsQuota(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Rate limit exceeded: free-models-per-day"}}`))
	})

	res := p.Attempt(context.Background(), "промпт", 100)
	if res.Status != domain.StatusQuotaExceeded {
		t.Fatalf("вложенный код 429 должен давать QuotaExceeded, получили статус %d", res.Status)
	}
}

func TestAttemptServerErrorIsFailure(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	res := p.Attempt(context.Background(), "промпт", 100)
	if res.Status != domain.StatusFailure {
		t.Fatalf("500 должен давать Failure, получили статус %d", res.Status)
	}
	if res.Err == nil {
		t.Fatalf("Failure должен содержать причину")
	}
}

func TestAttemptEmptyChoicesIsFailure(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	res := p.Attempt(context.Background(), "промпт", 100)
	if res.Status != domain.StatusFailure {
		t.Fatalf("пустые choices должны давать Failure, получили статус %d", res.Status)
	}
}
