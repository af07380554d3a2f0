package generate

import (
	"fmt"

	"github.com/Alexey777abakan/bothi/internal/domain"
)

// Лимиты токенов на запросы к моделям.
const (
	titlesMaxTokens      = 300
	bodyMaxTokens        = 800
	imagePromptMaxTokens = 300
)

// Ключи авторских стилей.
const (
	StyleExpert     = "expert"
	StyleHemingway  = "hemingway"
	StyleNatGeo     = "natgeo"
	StyleJournalist = "journalist"
	StylePoet       = "poet"
)

var styleInstructions = map[domain.Language]map[string]string{
	domain.LanguageRU: {
		StyleExpert:     "Пиши как признанный эксперт по теме: уверенно, с фактами и датами, без воды.",
		StyleHemingway:  "Пиши короткими простыми предложениями, в духе Хемингуэя, без лишних прилагательных.",
		StyleNatGeo:     "Пиши как автор National Geographic: образно, с деталями места и атмосферы.",
		StyleJournalist: "Пиши как журналист: сначала главное, затем подробности, нейтральный тон.",
		StylePoet:       "Пиши образно и ритмично, допускаются метафоры, но без рифмы.",
	},
	domain.LanguageEN: {
		StyleExpert:     "Write as a recognized subject-matter expert: confident, factual, with dates, no filler.",
		StyleHemingway:  "Write in short simple sentences, Hemingway style, no excess adjectives.",
		StyleNatGeo:     "Write like a National Geographic author: vivid, with a sense of place and atmosphere.",
		StyleJournalist: "Write like a journalist: lead with the key fact, then details, neutral tone.",
		StylePoet:       "Write vividly and rhythmically, metaphors allowed, no rhyme.",
	},
}

func styleInstruction(style string, lang domain.Language) string {
	byLang, ok := styleInstructions[lang]
	if !ok {
		byLang = styleInstructions[domain.LanguageRU]
	}
	if instr, ok := byLang[style]; ok {
		return instr
	}
	return byLang[StyleExpert]
}

// titlesPrompt просит у модели список заголовков по теме.
func titlesPrompt(theme string, count int, lang domain.Language) string {
	if lang == domain.LanguageEN {
		return fmt.Sprintf(
			"Generate %d catchy titles for Telegram posts about: %s. "+
				"One title per line, no numbering, no quotes, no explanations.",
			count, theme)
	}
	return fmt.Sprintf(
		"Придумай %d цепляющих заголовков для постов в Telegram на тему: %s. "+
			"По одному заголовку в строке, без нумерации, без кавычек, без пояснений.",
		count, theme)
}

// bodyPrompt просит текст поста по заголовку и теме в заданном стиле.
func bodyPrompt(title, theme, style string, lang domain.Language, maxLength int) string {
	instr := styleInstruction(style, lang)
	if lang == domain.LanguageEN {
		return fmt.Sprintf(
			"Write a Telegram post titled \"%s\" on the topic: %s. %s "+
				"Up to %d characters. After the text, on a separate line after a blank line, "+
				"add 3-5 relevant hashtags separated by spaces.",
			title, theme, instr, maxLength)
	}
	return fmt.Sprintf(
		"Напиши пост для Telegram с заголовком «%s» на тему: %s. %s "+
			"Не более %d символов. После текста отдельной строкой через пустую строку "+
			"добавь 3-5 подходящих хэштегов через пробел.",
		title, theme, instr, maxLength)
}

// imagePromptRequest просит краткое описание иллюстрации на английском.
// Модели генерации изображений понимают английский лучше всего.
func imagePromptRequest(title, content string) string {
	return fmt.Sprintf(
		"Write a short English prompt (up to 500 characters) for an image generation model "+
			"to illustrate this post. Describe the scene, mood and composition, photorealistic style. "+
			"No text in the image. Title: %s. Post: %s",
		title, content)
}
