package domain

import (
	"testing"
	"time"
)

func TestSubscriptionActive(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	cases := []struct {
		name     string
		settings ClientSettings
		want     bool
	}{
		{"без тарифа", ClientSettings{}, false},
		{"бесплатный тариф", ClientSettings{SubscriptionPlan: PlanFree, SubscriptionEnd: &future}, false},
		{"платный без даты окончания", ClientSettings{SubscriptionPlan: PlanStandard}, false},
		{"платный действующий", ClientSettings{SubscriptionPlan: PlanStandard, SubscriptionEnd: &future}, true},
		{"платный истёкший", ClientSettings{SubscriptionPlan: PlanPremium, SubscriptionEnd: &past}, false},
	}
	for _, tc := range cases {
		if got := tc.settings.SubscriptionActive(now); got != tc.want {
			t.Fatalf("%s: ожидали %v, получили %v", tc.name, tc.want, got)
		}
	}
}

func TestLanguageValid(t *testing.T) {
	if !LanguageRU.Valid() || !LanguageEN.Valid() {
		t.Fatalf("поддерживаемые языки должны быть валидны")
	}
	if Language("de").Valid() {
		t.Fatalf("неизвестный язык не должен быть валиден")
	}
}
