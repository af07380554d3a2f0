package domain

// GenerationKind определяет тип генерируемого артефакта.
type GenerationKind string

const (
	// KindTitle заголовки постов.
	KindTitle GenerationKind = "title"
	// KindBody текст поста с хэштегами.
	KindBody GenerationKind = "body"
	// KindImagePrompt промпт для генерации изображения.
	KindImagePrompt GenerationKind = "image_prompt"
	// KindImage само изображение.
	KindImage GenerationKind = "image"
)

// GenerationRequest описывает один запрос к пайплайну генерации.
// Создаётся заново на каждый вызов и не изменяется.
type GenerationRequest struct {
	Kind      GenerationKind
	Theme     string
	Title     string
	Style     string
	Language  Language
	MaxLength int
	PostCount int
}

// GenerationStatus — исход одной попытки провайдера.
type GenerationStatus int

const (
	// StatusSuccess провайдер вернул пригодный результат.
	StatusSuccess GenerationStatus = iota
	// StatusQuotaExceeded провайдер сообщил о превышении квоты (429).
	// Попытки к этому провайдеру в рамках вызова прекращаются.
	StatusQuotaExceeded
	// StatusFailure любая другая ошибка, решение о повторе за вызывающим.
	StatusFailure
)

// GenerationResult — размеченный результат попытки провайдера.
// Исход фолбэка выражается статусом, а не ошибкой в потоке управления.
type GenerationResult struct {
	Status GenerationStatus
	Text   string
	Image  []byte
	Err    error
}

// TextResult возвращает успешный текстовый результат.
func TextResult(text string) GenerationResult {
	return GenerationResult{Status: StatusSuccess, Text: text}
}

// ImageResult возвращает успешный бинарный результат.
func ImageResult(data []byte) GenerationResult {
	return GenerationResult{Status: StatusSuccess, Image: data}
}

// QuotaResult сигнализирует о превышении квоты провайдера.
func QuotaResult() GenerationResult {
	return GenerationResult{Status: StatusQuotaExceeded}
}

// FailResult возвращает неуспех с причиной.
func FailResult(err error) GenerationResult {
	return GenerationResult{Status: StatusFailure, Err: err}
}
