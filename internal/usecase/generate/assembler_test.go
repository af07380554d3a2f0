package generate

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Alexey777abakan/bothi/internal/domain"
)

func newTestAssembler() *Assembler {
	return NewAssembler(zerolog.Nop())
}

func TestParseTitlesCleansNumberingAndQuotes(t *testing.T) {
	raw := "1. \"Первый заголовок\"\n\n2) «Второй заголовок»\nПросто строка\n"
	titles := newTestAssembler().ParseTitles(raw, 5)
	want := []string{"Первый заголовок", "Второй заголовок", "Просто строка"}
	if len(titles) != len(want) {
		t.Fatalf("ожидали %d заголовков, получили %d: %v", len(want), len(titles), titles)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("заголовок %d: ожидали %q, получили %q", i, want[i], titles[i])
		}
	}
}

func TestParseTitlesRespectsLimit(t *testing.T) {
	raw := "Один\nДва\nТри\nЧетыре"
	titles := newTestAssembler().ParseTitles(raw, 2)
	if len(titles) != 2 {
		t.Fatalf("ожидали 2 заголовка, получили %d", len(titles))
	}
}

func TestParsePostSplitsHashtags(t *testing.T) {
	raw := "Текст поста о событиях.\n\nВторой абзац.\n\n#история #факты #даты"
	content, hashtags := newTestAssembler().ParsePost(raw, domain.LanguageRU)
	if hashtags != "#история #факты #даты" {
		t.Fatalf("ожидали хэштеги из последнего блока, получили %q", hashtags)
	}
	if strings.Contains(content, "#история") {
		t.Fatalf("хэштеги не должны остаться в тексте: %q", content)
	}
	if !strings.Contains(content, "Второй абзац.") {
		t.Fatalf("текст потерял абзац: %q", content)
	}
}

func TestParsePostFallsBackToDefaultHashtags(t *testing.T) {
	raw := "Пост без хэштегов вообще."
	content, hashtags := newTestAssembler().ParsePost(raw, domain.LanguageRU)
	if hashtags != "#история #события #девяностые" {
		t.Fatalf("ожидали хэштеги по умолчанию, получили %q", hashtags)
	}
	if content != raw {
		t.Fatalf("текст не должен меняться: %q", content)
	}

	_, en := newTestAssembler().ParsePost(raw, domain.LanguageEN)
	if en != "#history #events #nineties" {
		t.Fatalf("ожидали английские хэштеги по умолчанию, получили %q", en)
	}
}

func TestEnforceLengthKeepsShortContent(t *testing.T) {
	a := newTestAssembler()
	content := "Короткий текст."
	if got := a.EnforceLength(content, "#tag", 950); got != content {
		t.Fatalf("короткий текст не должен меняться, получили %q", got)
	}
}

func TestEnforceLengthCutsAtSentence(t *testing.T) {
	a := newTestAssembler()
	hashtags := "#один #два"
	content := "Первое предложение. " + strings.Repeat("а", 200)
	maxLength := 100
	got := a.EnforceLength(content, hashtags, maxLength)
	if got != "Первое предложение." {
		t.Fatalf("ожидали обрезку по последней точке, получили %q", got)
	}
	limit := maxLength - len([]rune(hashtags)) - 2
	if len([]rune(got)) > limit {
		t.Fatalf("текст длиннее бюджета %d: %d", limit, len([]rune(got)))
	}
}

func TestEnforceLengthCutsAtExclamationAndQuestion(t *testing.T) {
	a := newTestAssembler()
	hashtags := "#один #два"
	maxLength := 100

	got := a.EnforceLength("Вот это да! "+strings.Repeat("а", 200), hashtags, maxLength)
	if got != "Вот это да!" {
		t.Fatalf("восклицательный знак — граница предложения, получили %q", got)
	}

	got = a.EnforceLength("Кто бы мог подумать? "+strings.Repeat("а", 200), hashtags, maxLength)
	if got != "Кто бы мог подумать?" {
		t.Fatalf("вопросительный знак — граница предложения, получили %q", got)
	}
}

func TestSplitIntoParagraphsAtMidpoint(t *testing.T) {
	a := newTestAssembler()
	content := "Первое предложение. Второе предложение. Третье предложение."
	got := a.SplitIntoParagraphs(content, domain.LanguageRU)
	parts := strings.Split(got, "\n\n")
	if len(parts) != 2 {
		t.Fatalf("ожидали два абзаца, получили %d: %q", len(parts), got)
	}
	if !strings.HasSuffix(parts[0], ".") {
		t.Fatalf("первый абзац должен кончаться предложением: %q", parts[0])
	}
}

func TestSplitIntoParagraphsAddsFiller(t *testing.T) {
	a := newTestAssembler()
	got := a.SplitIntoParagraphs("Единственное предложение без точки с пробелом", domain.LanguageRU)
	if !strings.HasSuffix(got, "\n\nПодробности скоро.") {
		t.Fatalf("ожидали абзац-заполнитель, получили %q", got)
	}
	gotEN := a.SplitIntoParagraphs("Single sentence", domain.LanguageEN)
	if !strings.HasSuffix(gotEN, "\n\nMore details coming soon.") {
		t.Fatalf("ожидали английский заполнитель, получили %q", gotEN)
	}
}

func TestBuildImagePromptStripsMarkup(t *testing.T) {
	a := newTestAssembler()
	got := a.BuildImagePrompt("  *Dramatic* _scene_ of `a` city  ")
	if got != "Dramatic scene of a city" {
		t.Fatalf("ожидали очищенный промпт, получили %q", got)
	}
}

func TestBuildImagePromptCapsLength(t *testing.T) {
	a := newTestAssembler()
	word := strings.Repeat("x", 60)
	raw := strings.TrimSpace(strings.Repeat(word+" ", 12))
	got := a.BuildImagePrompt(raw)
	if len([]rune(got)) > maxImagePromptLen+1 {
		t.Fatalf("промпт длиннее лимита: %d", len([]rune(got)))
	}
	if !strings.HasSuffix(got, ".") {
		t.Fatalf("промпт должен кончаться точкой: %q", got)
	}
	if strings.HasSuffix(got, " .") {
		t.Fatalf("точка не должна стоять после пробела: %q", got)
	}
}
