package llm

// visionModels — модели upstream, принимающие изображения в контенте.
var visionModels = map[string]bool{
	"gemini-fast":   true,
	"openai":        true,
	"openai-fast":   true,
	"gemini-search": true,
	"openai-large":  true,
}

// VisionFallbackModel — модель, на которую переключаемся когда в истории
// есть картинки, а запрошенная модель их не умеет.
const VisionFallbackModel = "openai"

// HasImageContent возвращает true если хотя бы одно сообщение
// содержит изображение.
func HasImageContent(messages []Message) bool {
	for _, m := range messages {
		if m.Content.HasImage() {
			return true
		}
	}
	return false
}

// EnsureVisionModel возвращает модель, способную обработать историю.
//
// Если история содержит изображения, а model не из vision-списка,
// подменяем на VisionFallbackModel. Иначе возвращаем как есть.
func EnsureVisionModel(messages []Message, model string) string {
	if !HasImageContent(messages) {
		return model
	}
	if visionModels[model] {
		return model
	}
	return VisionFallbackModel
}
