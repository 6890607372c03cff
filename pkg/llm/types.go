// Базовые типы - универсальный язык общения с моделями.
package llm

import (
	"encoding/json"
	"fmt"
)

// Роли сообщений в диалоге.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Типы частей мультимодального контента.
const (
	TypeText  = "text"
	TypeImage = "image_url"
)

// ContentPart — часть мультимодального сообщения (текст или картинка).
type ContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Content — содержимое сообщения.
//
// Клиент присылает либо строку, либо массив частей (vision запросы),
// либо null (assistant сообщение, несущее только tool calls).
// Поэтому нужен кастомный JSON маппинг.
type Content struct {
	Text  string
	Parts []ContentPart // nil если контент — обычная строка
}

// IsMultipart возвращает true для мультимодального контента.
func (c Content) IsMultipart() bool {
	return c.Parts != nil
}

// PlainText возвращает текстовое представление контента.
//
// Для мультимодального контента склеивает только текстовые части.
func (c Content) PlainText() string {
	if c.Parts == nil {
		return c.Text
	}
	var out string
	for _, p := range c.Parts {
		if p.Type == TypeText {
			if out != "" {
				out += "\n"
			}
			out += p.Text
		}
	}
	return out
}

// HasImage возвращает true если контент содержит изображение.
func (c Content) HasImage() bool {
	for _, p := range c.Parts {
		if p.Type == TypeImage {
			return true
		}
	}
	return false
}

// UnmarshalJSON принимает string, массив частей или null.
func (c *Content) UnmarshalJSON(data []byte) error {
	// 1. null → пустой контент
	if string(data) == "null" {
		*c = Content{}
		return nil
	}

	// 2. Пробуем как строку
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = Content{Text: s}
		return nil
	}

	// 3. Пробуем как массив частей
	var parts []contentPartWire
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("content must be string, array or null: %w", err)
	}

	converted := make([]ContentPart, len(parts))
	for i, p := range parts {
		converted[i] = p.toContentPart()
	}
	*c = Content{Parts: converted}
	return nil
}

// MarshalJSON сериализует обратно в формат, который прислал клиент.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// contentPartWire — wire-формат части контента.
//
// OpenAI-совместимые клиенты шлют image_url как объект {"url": "..."},
// но часть фронтов шлёт просто строку. Принимаем оба варианта.
type contentPartWire struct {
	Type     string          `json:"type"`
	Text     string          `json:"text"`
	ImageURL json.RawMessage `json:"image_url"`
}

func (w contentPartWire) toContentPart() ContentPart {
	part := ContentPart{Type: w.Type, Text: w.Text}

	if len(w.ImageURL) > 0 {
		// Вариант 1: {"url": "https://..."}
		var obj struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(w.ImageURL, &obj); err == nil && obj.URL != "" {
			part.ImageURL = obj.URL
			return part
		}
		// Вариант 2: просто строка
		var s string
		if err := json.Unmarshal(w.ImageURL, &s); err == nil {
			part.ImageURL = s
		}
	}

	return part
}

// ToolCall — нормализованный запрос модели на вызов инструмента.
//
// ID либо приходит от upstream, либо синтезируется локально.
// Args — сырой JSON с аргументами, парсинг может провалиться —
// это локальная ошибка, не фатальная для цикла.
type ToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args string `json:"args"`
}

// FunctionCall — legacy формат одиночного вызова (старое OpenAI API).
type FunctionCall struct {
	Name string `json:"name"`
	Args string `json:"arguments"`
}

// Message — одно сообщение диалога.
type Message struct {
	Role       string        `json:"role"`
	Content    Content       `json:"content"`
	ToolCalls  []ToolCall    `json:"tool_calls,omitempty"`
	// FunctionCall заполняется только для ответов upstream в legacy формате.
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
	// ToolCallID заполняется только для tool-сообщений.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// TextMessage — хелпер для создания простого текстового сообщения.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: Content{Text: text}}
}
