package telegram

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestEscapeMarkdownV2(t *testing.T) {
	got := EscapeMarkdownV2("Привет, мир! Версия 2.0 (beta)")
	want := `Привет, мир\! Версия 2\.0 \(beta\)`
	if got != want {
		t.Fatalf("ожидали %q, получили %q", want, got)
	}
}

func TestEscapeMarkdownV2Idempotent(t *testing.T) {
	src := "Итог: 1+1=2. Вопросы? Пишите!"
	once := EscapeMarkdownV2(src)
	twice := EscapeMarkdownV2(once)
	if once != twice {
		t.Fatalf("повторное экранирование изменило строку:\n%q\n%q", once, twice)
	}
}

func TestEscapeMarkdownV2KeepsEscapedPairs(t *testing.T) {
	got := EscapeMarkdownV2(`уже \. экранировано`)
	want := `уже \. экранировано`
	if got != want {
		t.Fatalf("ожидали %q, получили %q", want, got)
	}
}

func TestEscapeMarkdownV2LoneBackslash(t *testing.T) {
	got := EscapeMarkdownV2(`путь C:\temp`)
	want := `путь C:\\temp`
	if got != want {
		t.Fatalf("ожидали %q, получили %q", want, got)
	}
}

func TestTruncateCaptionShort(t *testing.T) {
	if got := TruncateCaption("короткий текст", 100); got != "короткий текст" {
		t.Fatalf("короткий текст не должен меняться, получили %q", got)
	}
}

func TestTruncateCaptionCutsAtSentence(t *testing.T) {
	caption := "Первое предложение. Второе предложение довольно длинное и не влезает целиком"
	got := TruncateCaption(caption, 40)
	want := "Первое предложение.…"
	if got != want {
		t.Fatalf("ожидали обрезку по предложению %q, получили %q", want, got)
	}
	if len([]rune(got)) > 40 {
		t.Fatalf("результат длиннее лимита: %d", len([]rune(got)))
	}
}

func TestTruncateCaptionKeepsEscapingValid(t *testing.T) {
	// Подпись уже экранирована; обрезка не должна вносить
	// неэкранированные спецсимволы или рвать пару `\x`.
	escaped := EscapeMarkdownV2("Очень длинный текст без точек про девяностые и события той эпохи")
	got := TruncateCaption(escaped, 30)
	if reEscaped := EscapeMarkdownV2(got); reEscaped != got {
		t.Fatalf("обрезка сломала экранирование:\n%q\n%q", got, reEscaped)
	}
	if len([]rune(got)) > 30 {
		t.Fatalf("результат длиннее лимита: %d", len([]rune(got)))
	}
}

func TestTruncateCaptionDoesNotSplitEscapePair(t *testing.T) {
	escaped := EscapeMarkdownV2("скобки (((((((((((((((((((((((((((((((((")
	got := TruncateCaption(escaped, 20)
	if reEscaped := EscapeMarkdownV2(got); reEscaped != got {
		t.Fatalf("срез попал внутрь экранирующей пары:\n%q\n%q", got, reEscaped)
	}
}

func TestBuildCaptionStaysEscapedAfterTruncation(t *testing.T) {
	s := NewSender(nil, zerolog.Nop(), 60)
	// Без заголовка: звёздочки жирного шрифта — намеренная разметка,
	// остальная подпись обязана оставаться полностью экранированной.
	caption := s.BuildCaption("", "Текст с точками. И ещё. И ещё немного текста, чтобы превысить лимит подписи.", "#история #события")
	if reEscaped := EscapeMarkdownV2(caption); reEscaped != caption {
		t.Fatalf("подпись после обрезки перестала быть экранированной:\n%q\n%q", caption, reEscaped)
	}
	if len([]rune(caption)) > 60 {
		t.Fatalf("подпись длиннее лимита: %d", len([]rune(caption)))
	}
}
