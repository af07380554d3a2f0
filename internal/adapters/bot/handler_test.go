package bot

import (
	"testing"

	"github.com/Alexey777abakan/bothi/internal/domain"
)

func TestParseThemeInput(t *testing.T) {
	count, theme, ok := parseThemeInput("3#девяностые")
	if !ok {
		t.Fatalf("ожидали успешный разбор")
	}
	if count != 3 || theme != "девяностые" {
		t.Fatalf("ожидали 3/девяностые, получили %d/%q", count, theme)
	}
}

func TestParseThemeInputTrimsSpaces(t *testing.T) {
	count, theme, ok := parseThemeInput(" 2 # космос ")
	if !ok {
		t.Fatalf("ожидали успешный разбор")
	}
	if count != 2 || theme != "космос" {
		t.Fatalf("получили %d/%q", count, theme)
	}
}

func TestParseThemeInputInvalid(t *testing.T) {
	cases := []string{"", "тема без числа", "0#тема", "11#тема", "2#", "abc#тема"}
	for _, input := range cases {
		if _, _, ok := parseThemeInput(input); ok {
			t.Fatalf("ожидали отказ для %q", input)
		}
	}
}

func TestValidChannel(t *testing.T) {
	valid := []string{"@mychannel", "-1001234567890", "42"}
	for _, ch := range valid {
		if !validChannel(ch) {
			t.Fatalf("ожидали, что %q валиден", ch)
		}
	}
	invalid := []string{"", "@", "@a", "mychannel", "@my channel"}
	for _, ch := range invalid {
		if validChannel(ch) {
			t.Fatalf("ожидали, что %q невалиден", ch)
		}
	}
}

func TestTextsForFallsBackToRussian(t *testing.T) {
	if textsFor(domain.Language("de")).Welcome != textsFor(domain.LanguageRU).Welcome {
		t.Fatalf("неизвестный язык должен падать на русский")
	}
}

func TestStyleTitleLocalized(t *testing.T) {
	if styleTitle("expert", domain.LanguageRU) != "Эксперт" {
		t.Fatalf("ожидали русское имя стиля")
	}
	if styleTitle("expert", domain.LanguageEN) != "Expert" {
		t.Fatalf("ожидали английское имя стиля")
	}
	if styleTitle("unknown", domain.LanguageRU) != "unknown" {
		t.Fatalf("неизвестный стиль возвращается как есть")
	}
}
