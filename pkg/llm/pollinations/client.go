// Package pollinations реализует адаптер llm.Provider для Pollinations API.
//
// Pollinations предоставляет OpenAI-совместимый chat-completion endpoint,
// поэтому транспорт построен на go-openai SDK с кастомным BaseURL.
// Поддерживает Function Calling (tools) для цикла оркестрации.
package pollinations

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/AyuTriphasari/zlk-ai/pkg/config"
	"github.com/AyuTriphasari/zlk-ai/pkg/llm"
	"github.com/AyuTriphasari/zlk-ai/pkg/utils"
	openai "github.com/sashabaranov/go-openai"
)

// Проверка что Client реализует интерфейс llm.Provider
var _ llm.Provider = (*Client)(nil)

// defaultSeed отправляется в каждом запросе: -1 означает
// "случайный seed на стороне upstream".
const defaultSeed = -1

// Client реализует интерфейс llm.Provider для Pollinations.
//
// Поддерживает:
//   - Базовую генерацию текста
//   - Function Calling (tools) c tool_choice=auto
//   - Vision запросы (мультимодальный контент)
//   - Per-request API ключ пользователя
type Client struct {
	cfg        config.UpstreamConfig
	httpClient *http.Client

	// api — клиент с серверным ключом; для per-request ключей
	// создаётся отдельный клиент в apiFor().
	api *openai.Client
}

// NewClient создает Pollinations клиент на основе конфигурации upstream.
//
// Все настройки (BaseURL, ключ, timeout, температура) из конфигурации,
// никакого хардкода.
func NewClient(cfg config.UpstreamConfig) *Client {
	httpClient := &http.Client{Timeout: cfg.ParseTimeout()}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		api:        newAPI(cfg, cfg.APIKey, httpClient),
	}
}

// newAPI собирает go-openai клиент с нужным ключом и BaseURL.
func newAPI(cfg config.UpstreamConfig, apiKey string, httpClient *http.Client) *openai.Client {
	oc := openai.DefaultConfig(apiKey)
	oc.BaseURL = cfg.BaseURL
	oc.HTTPClient = httpClient
	return openai.NewClientWithConfig(oc)
}

// apiFor возвращает клиент для запроса: с пользовательским ключом
// если он передан, иначе с серверным.
func (c *Client) apiFor(apiKey string) *openai.Client {
	if apiKey == "" || apiKey == c.cfg.APIKey {
		return c.api
	}
	return newAPI(c.cfg, apiKey, c.httpClient)
}

// Chat выполняет non-streamed запрос к API и возвращает ответ модели.
//
// Алгоритм:
//  1. Конвертирует внутренние сообщения в формат OpenAI SDK
//  2. Если переданы tools — добавляет их в запрос с tool_choice=auto
//  3. Вызывает API
//  4. Конвертирует ответ обратно в наш формат
//  5. Извлекает ToolCalls и legacy FunctionCall если модель их вернула
//
// Транспортная ошибка или пустой список choices — ошибка (фатальная
// для запроса на уровне оркестратора).
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (llm.Message, error) {
	startTime := time.Now()

	model := req.Model
	if model == "" {
		model = c.cfg.DefaultModel
	}

	utils.Debug("LLM request started",
		"model", model,
		"messages_count", len(req.Messages),
		"tools_count", len(req.Tools))

	// 1. Конвертируем наши сообщения в формат OpenAI SDK
	openaiMsgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		openaiMsgs[i] = mapToOpenAI(m)
	}

	// 2. Базовый запрос. Seed/Temperature/TopP — контракт Pollinations.
	seed := defaultSeed
	apiReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    openaiMsgs,
		Seed:        &seed,
		Temperature: float32(c.cfg.Temperature),
		TopP:        float32(c.cfg.TopP),
		Stream:      false,
	}

	// 3. Добавляем tools если переданы
	if len(req.Tools) > 0 {
		apiReq.Tools = convertToolsToOpenAI(req.Tools)
		// LLM сама решает когда вызывать tools
		apiReq.ToolChoice = "auto"
	}

	// 4. Вызываем API
	resp, err := c.apiFor(req.APIKey).CreateChatCompletion(ctx, apiReq)
	if err != nil {
		utils.Error("LLM API request failed",
			"error", err,
			"model", model,
			"duration_ms", time.Since(startTime).Milliseconds())
		return llm.Message{}, fmt.Errorf("pollinations api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return llm.Message{}, fmt.Errorf("no choices in response")
	}

	// 5. Маппим ответ обратно в наш формат
	choice := resp.Choices[0].Message

	result := llm.Message{
		Role:    choice.Role,
		Content: llm.Content{Text: choice.Content},
	}

	// 6. Structured tool calls
	if len(choice.ToolCalls) > 0 {
		result.ToolCalls = make([]llm.ToolCall, len(choice.ToolCalls))
		for i, tc := range choice.ToolCalls {
			result.ToolCalls[i] = llm.ToolCall{
				ID:   tc.ID,
				Name: tc.Function.Name,
				Args: tc.Function.Arguments,
			}
		}
	}

	// 7. Legacy function_call (старые модели не умеют tool_calls)
	if choice.FunctionCall != nil {
		result.FunctionCall = &llm.FunctionCall{
			Name: choice.FunctionCall.Name,
			Args: choice.FunctionCall.Arguments,
		}
	}

	utils.Info("LLM response received",
		"model", model,
		"tool_calls_count", len(result.ToolCalls),
		"content_length", len(result.Content.Text),
		"duration_ms", time.Since(startTime).Milliseconds())

	return result, nil
}

// mapToOpenAI конвертирует наше внутреннее сообщение в формат SDK.
// Здесь происходит магия Vision: мультимодальный контент уходит как MultiContent.
func mapToOpenAI(m llm.Message) openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{
		Role:       m.Role,
		ToolCallID: m.ToolCallID,
	}

	// Tool calls ассистента (synthetic сообщение из цикла оркестрации)
	if len(m.ToolCalls) > 0 {
		msg.ToolCalls = make([]openai.ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			msg.ToolCalls[i] = openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Args,
				},
			}
		}
	}

	// Обычный текст
	if !m.Content.IsMultipart() {
		msg.Content = m.Content.Text
		return msg
	}

	// Vision запрос: собираем MultiContent
	parts := make([]openai.ChatMessagePart, 0, len(m.Content.Parts))
	for _, p := range m.Content.Parts {
		switch p.Type {
		case llm.TypeImage:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    p.ImageURL, // base64 data-uri или http ссылка
					Detail: openai.ImageURLDetailAuto,
				},
			})
		default:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
		}
	}

	msg.MultiContent = parts
	return msg
}

// convertToolsToOpenAI конвертирует декларации инструментов
// в формат OpenAI Function Calling.
//
// llm.ToolSchema.Parameters уже является JSON Schema объектом,
// поэтому напрямую передаётся в SDK.
func convertToolsToOpenAI(schemas []llm.ToolSchema) []openai.Tool {
	result := make([]openai.Tool, len(schemas))

	for i, s := range schemas {
		result[i] = openai.Tool{
			Type: "function",
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		}
	}

	return result
}
