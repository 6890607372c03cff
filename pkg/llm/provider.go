// Интерфейс Провайдера через который работает весь сервис.

package llm

import "context"

// ToolSchema — OpenAI-style декларация инструмента для upstream.
//
// Parameters — JSON Schema объекта аргументов
// ({type: "object", properties, required}).
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ChatRequest — запрос к chat-completion endpoint.
type ChatRequest struct {
	Model    string
	Messages []Message

	// Tools — декларации инструментов. Если не пусто, upstream
	// получает tool_choice: "auto".
	Tools []ToolSchema

	// APIKey — per-request ключ от пользователя. Если пустой,
	// провайдер использует серверный ключ из конфига.
	APIKey string
}

// Provider — контракт для любого chat-completion сервиса.
//
// Транспортная ошибка (non-2xx, timeout, сеть) возвращается как error
// и фатальна для всего запроса. Всё остальное — контент сообщения.
type Provider interface {
	// Chat выполняет один non-streamed запрос и возвращает
	// assistant-сообщение (контент и/или tool calls).
	Chat(ctx context.Context, req ChatRequest) (Message, error)
}
