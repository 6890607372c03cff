// Интерфейс Tool и структуры определений.

package tools

import "context"

// JSONSchema представляет JSON Schema для параметров инструмента.
//
// Формат соответствует JSON Schema specification для Function Calling API.
type JSONSchema map[string]any

// ToolDefinition описывает инструмент для LLM (Function Calling API format).
type ToolDefinition struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  JSONSchema `json:"parameters"` // JSON Schema объекта аргументов
}

// Tool — контракт, который должен реализовать любой инструмент.
type Tool interface {
	// Definition возвращает описание инструмента для LLM.
	Definition() ToolDefinition

	// Execute выполняет логику инструмента.
	// args — уже распарсенные аргументы (парсинг JSON делает executor).
	// Возвращает JSON-сериализуемый результат или ошибку.
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// StatusLabeler — опциональный интерфейс для человекочитаемого
// статуса в UI ("Getting weather data...").
//
// Инструменты без StatusLabel получают дефолтную подпись
// "Running <name>...".
type StatusLabeler interface {
	StatusLabel() string
}
