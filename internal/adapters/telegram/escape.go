package telegram

import "strings"

// Спецсимволы MarkdownV2, требующие экранирования.
const markdownSpecials = `_*[]()~` + "`" + `>#+-=|{}.!`

func isSpecial(r rune) bool {
	return strings.ContainsRune(markdownSpecials, r)
}

// EscapeMarkdownV2 экранирует текст для parse_mode=MarkdownV2.
// Функция идемпотентна: уже экранированная пара `\x` копируется как
// есть, поэтому повторный вызов не удваивает обратные слэши.
func EscapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\\' {
			if i+1 < len(runes) && (isSpecial(runes[i+1]) || runes[i+1] == '\\') {
				b.WriteRune('\\')
				b.WriteRune(runes[i+1])
				i++
				continue
			}
			b.WriteString(`\\`)
			continue
		}
		if isSpecial(r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// TruncateCaption обрезает подпись до maxLen символов по последней
// границе предложения и добавляет многоточие. Подпись уже экранирована
// для MarkdownV2, поэтому суффикс — символ …, а не три точки, и срез
// никогда не разрывает экранирующую пару `\x`.
func TruncateCaption(caption string, maxLen int) string {
	runes := []rune(caption)
	if len(runes) <= maxLen {
		return caption
	}
	cut := runes[:maxLen-1]
	lastStop := -1
	for i, r := range cut {
		if r == '.' || r == '!' || r == '?' {
			lastStop = i
		}
	}
	if lastStop > 0 {
		cut = cut[:lastStop+1]
	} else if trailing := trailingBackslashes(cut); trailing%2 == 1 {
		cut = cut[:len(cut)-1]
	}
	return string(cut) + "…"
}

func trailingBackslashes(runes []rune) int {
	n := 0
	for i := len(runes) - 1; i >= 0 && runes[i] == '\\'; i-- {
		n++
	}
	return n
}
