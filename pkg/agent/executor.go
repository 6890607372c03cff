package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/AyuTriphasari/zlk-ai/pkg/llm"
	"github.com/AyuTriphasari/zlk-ai/pkg/tools"
	"github.com/AyuTriphasari/zlk-ai/pkg/utils"
)

// ToolResult — результат выполнения одного tool call.
//
// Payload — всегда JSON текст: либо результат инструмента, либо
// {"error": "..."}. В любом случае результат уходит обратно модели
// как tool-сообщение, чтобы она могла отреагировать на ошибку
// естественным языком.
type ToolResult struct {
	ToolCallID string
	Payload    string
}

// ExecuteAll выполняет все tool calls раунда параллельно.
//
// Барьер раунда: функция возвращается только когда завершились все
// вызовы (успех или ошибка). Никакая ошибка инструмента не прерывает
// соседние вызовы и не фатальна для цикла:
//   - неизвестное имя → {"error": "Unknown tool: <name>"} без вызова
//   - невалидный JSON аргументов → {"error": <parse error>}
//   - ошибка/паника инструмента → {"error": <message>}
//
// Retry нет. Timeout на этом уровне не навязывается — им владеет
// HTTP транспорт самого инструмента.
func ExecuteAll(ctx context.Context, calls []llm.ToolCall, registry *tools.Registry) []ToolResult {
	results := make([]ToolResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			results[i] = executeOne(ctx, call, registry)
		}(i, call)
	}
	wg.Wait()

	return results
}

// executeOne выполняет один вызов, превращая любую проблему
// в структурированный error payload.
func executeOne(ctx context.Context, call llm.ToolCall, registry *tools.Registry) ToolResult {
	startTime := time.Now()

	// 1. Ищем инструмент; неизвестное имя не доходит до выполнения
	tool, ok := registry.Get(call.Name)
	if !ok {
		return errorResult(call.ID, fmt.Sprintf("Unknown tool: %s", call.Name))
	}

	// 2. Парсим аргументы; ошибка парсинга — локальная, не фатальная
	var args map[string]any
	if err := json.Unmarshal([]byte(call.Args), &args); err != nil {
		utils.Warn("tool arguments parse failed", "tool", call.Name, "error", err)
		return errorResult(call.ID, err.Error())
	}

	// 3. Вызываем инструмент
	value, err := tool.Execute(ctx, args)
	if err != nil {
		utils.Warn("tool execution failed",
			"tool", call.Name,
			"error", err,
			"duration_ms", time.Since(startTime).Milliseconds())
		return errorResult(call.ID, err.Error())
	}

	// 4. Сериализуем результат
	payload, err := json.Marshal(value)
	if err != nil {
		return errorResult(call.ID, fmt.Sprintf("failed to serialize tool result: %v", err))
	}

	utils.Debug("tool executed",
		"tool", call.Name,
		"duration_ms", time.Since(startTime).Milliseconds())

	return ToolResult{ToolCallID: call.ID, Payload: string(payload)}
}

// errorResult собирает {"error": message} payload.
func errorResult(callID, message string) ToolResult {
	payload, _ := json.Marshal(map[string]string{"error": message})
	return ToolResult{ToolCallID: callID, Payload: string(payload)}
}
