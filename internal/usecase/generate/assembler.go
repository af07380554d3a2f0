package generate

import (
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/Alexey777abakan/bothi/internal/domain"
)

// Максимальная длина промпта изображения в символах.
const maxImagePromptLen = 500

// Локализованные хэштеги по умолчанию, когда модель не выдала свои.
var defaultHashtags = map[domain.Language]string{
	domain.LanguageRU: "#история #события #девяностые",
	domain.LanguageEN: "#history #events #nineties",
}

// Локализованный абзац-заполнитель для постов из одного предложения.
var fillerParagraph = map[domain.Language]string{
	domain.LanguageRU: "Подробности скоро.",
	domain.LanguageEN: "More details coming soon.",
}

// Assembler превращает сырой вывод моделей в готовые части поста.
// Ошибки формата деградируют до значений по умолчанию, а не валят цикл.
type Assembler struct {
	log zerolog.Logger
}

// NewAssembler создаёт сборщик контента.
func NewAssembler(logger zerolog.Logger) *Assembler {
	return &Assembler{log: logger.With().Str("component", "assembler").Logger()}
}

// ParseTitles чистит сырой список заголовков: убирает кавычки, номера
// вида "1. " и пустые строки, оставляет не более limit штук.
func (a *Assembler) ParseTitles(raw string, limit int) []string {
	titles := make([]string, 0, limit)
	for _, line := range strings.Split(raw, "\n") {
		title := cleanTitleLine(line)
		if title == "" {
			continue
		}
		titles = append(titles, title)
		if len(titles) == limit {
			break
		}
	}
	return titles
}

func cleanTitleLine(line string) string {
	title := strings.TrimSpace(line)
	title = strings.Trim(title, `"«»“”'`)
	// маркер нумерации "N. " или "N) "
	runes := []rune(title)
	i := 0
	for i < len(runes) && unicode.IsDigit(runes[i]) {
		i++
	}
	if i > 0 && i < len(runes) && (runes[i] == '.' || runes[i] == ')') {
		title = strings.TrimSpace(string(runes[i+1:]))
	}
	title = strings.Trim(title, `"«»“”'`)
	return strings.TrimSpace(title)
}

// ParsePost разделяет сырой текст поста на содержимое и хэштеги.
// Хэштеги ожидаются последним блоком после пустой строки; если блока
// нет, подставляются локализованные хэштеги по умолчанию.
func (a *Assembler) ParsePost(raw string, lang domain.Language) (string, string) {
	raw = strings.TrimSpace(raw)
	blocks := splitBlocks(raw)
	if len(blocks) == 0 {
		return "", a.fallbackHashtags(lang)
	}
	last := blocks[len(blocks)-1]
	if len(blocks) > 1 && isHashtagBlock(last) {
		content := strings.TrimSpace(strings.Join(blocks[:len(blocks)-1], "\n\n"))
		return content, normalizeHashtags(last)
	}
	a.log.Warn().Str("language", string(lang)).Msg("модель не вернула блок хэштегов, используются значения по умолчанию")
	return raw, a.fallbackHashtags(lang)
}

func (a *Assembler) fallbackHashtags(lang domain.Language) string {
	if tags, ok := defaultHashtags[lang]; ok {
		return tags
	}
	return defaultHashtags[domain.LanguageRU]
}

func splitBlocks(raw string) []string {
	var blocks []string
	for _, block := range strings.Split(raw, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

func isHashtagBlock(block string) bool {
	fields := strings.Fields(block)
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if !strings.HasPrefix(f, "#") {
			return false
		}
	}
	return true
}

func normalizeHashtags(block string) string {
	return strings.Join(strings.Fields(block), " ")
}

// EnforceLength ограничивает длину текста так, чтобы текст вместе с
// хэштегами и разделителем умещался в maxLength символов. Обрезка
// выполняется по последней границе предложения перед лимитом.
func (a *Assembler) EnforceLength(content, hashtags string, maxLength int) string {
	limit := maxLength - len([]rune(hashtags)) - 2
	if limit <= 0 {
		return ""
	}
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	cut := runes[:limit]
	lastStop := -1
	for i, r := range cut {
		if r == '.' || r == '!' || r == '?' {
			lastStop = i
		}
	}
	if lastStop > 0 {
		cut = cut[:lastStop+1]
	}
	return strings.TrimSpace(string(cut))
}

// SplitIntoParagraphs делит текст на два абзаца по границе предложения,
// ближайшей к середине. Текст из одного предложения дополняется
// локализованным абзацем-заполнителем.
func (a *Assembler) SplitIntoParagraphs(content string, lang domain.Language) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return content
	}
	if strings.Contains(content, "\n\n") {
		return content
	}
	runes := []rune(content)
	mid := len(runes) / 2
	bestIdx := -1
	bestDist := len(runes)
	for i := 0; i+1 < len(runes); i++ {
		if runes[i] == '.' && runes[i+1] == ' ' {
			dist := abs(i - mid)
			if dist < bestDist {
				bestDist = dist
				bestIdx = i
			}
		}
	}
	if bestIdx < 0 {
		filler := fillerParagraph[lang]
		if filler == "" {
			filler = fillerParagraph[domain.LanguageRU]
		}
		return content + "\n\n" + filler
	}
	first := strings.TrimSpace(string(runes[:bestIdx+1]))
	second := strings.TrimSpace(string(runes[bestIdx+1:]))
	return first + "\n\n" + second
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// BuildImagePrompt чистит сырой промпт изображения от разметки и
// ограничивает его длину по последнему пробелу, завершая точкой.
func (a *Assembler) BuildImagePrompt(raw string) string {
	prompt := strings.TrimSpace(raw)
	prompt = strings.ReplaceAll(prompt, "*", "")
	prompt = strings.ReplaceAll(prompt, "_", "")
	prompt = strings.ReplaceAll(prompt, "`", "")
	prompt = strings.Trim(prompt, `"«»“”'`)
	prompt = strings.Join(strings.Fields(prompt), " ")

	runes := []rune(prompt)
	if len(runes) <= maxImagePromptLen {
		return prompt
	}
	cut := runes[:maxImagePromptLen]
	lastSpace := -1
	for i, r := range cut {
		if r == ' ' {
			lastSpace = i
		}
	}
	if lastSpace > 0 {
		cut = cut[:lastSpace]
	}
	return strings.TrimRight(string(cut), " .,") + "."
}
