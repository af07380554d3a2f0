package generate

import (
	"fmt"

	"github.com/Alexey777abakan/bothi/internal/domain"
)

// Локализованные статусные сообщения воркера.
func progressMessage(lang domain.Language, current, total int) string {
	if lang == domain.LanguageEN {
		return fmt.Sprintf("Preparing post %d of %d...", current, total)
	}
	return fmt.Sprintf("Готовлю пост %d из %d...", current, total)
}

func doneMessage(lang domain.Language, published int) string {
	if lang == domain.LanguageEN {
		return fmt.Sprintf("Done! Published posts: %d.", published)
	}
	return fmt.Sprintf("Готово! Опубликовано постов: %d.", published)
}

func failureMessage(lang domain.Language) string {
	if lang == domain.LanguageEN {
		return "Generation failed, all providers are unavailable. Try again later."
	}
	return "Не удалось сгенерировать пост, все провайдеры недоступны. Попробуйте позже."
}
