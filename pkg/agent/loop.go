package agent

import (
	"context"
	"fmt"

	"github.com/AyuTriphasari/zlk-ai/pkg/llm"
	"github.com/AyuTriphasari/zlk-ai/pkg/tools"
	"github.com/AyuTriphasari/zlk-ai/pkg/utils"
)

// FallbackAnswer возвращается когда модель завершила цикл пустым
// текстом после выполнения инструментов — пустой ответ после
// tool-only раунда выглядит для пользователя как зависание.
const FallbackAnswer = "Done! I've finished working with the tools. Let me know if you need anything else. 😊"

// Config — бюджеты цикла оркестрации.
type Config struct {
	// MaxToolRounds — максимум обменов с upstream за один запрос.
	MaxToolRounds int

	// MaxCallsPerTool — максимум выполнений одного инструмента
	// за один запрос.
	MaxCallsPerTool int
}

// GetDefaults возвращает дефолтные бюджеты для незаполненных полей.
func (c Config) GetDefaults() Config {
	if c.MaxToolRounds <= 0 {
		c.MaxToolRounds = 5
	}
	if c.MaxCallsPerTool <= 0 {
		c.MaxCallsPerTool = 3
	}
	return c
}

// Result — итог одного прогона цикла.
type Result struct {
	// Answer — финальный текст ассистента (возможно FallbackAnswer).
	Answer string

	// StatusLabels — подписи выполненных инструментов в порядке
	// запуска, по одной на каждый вызов.
	StatusLabels []string

	// Rounds — сколько раундов с upstream заняло выполнение.
	Rounds int
}

// Loop — state machine цикла оркестрации.
//
// Состояния: AwaitingModel → {HasToolCalls, Terminal};
// HasToolCalls → AwaitingModel; Terminal — поглощающее.
type Loop struct {
	provider llm.Provider
	registry *tools.Registry
	cfg      Config
}

// NewLoop создает цикл с заданными зависимостями.
func NewLoop(provider llm.Provider, registry *tools.Registry, cfg Config) *Loop {
	return &Loop{
		provider: provider,
		registry: registry,
		cfg:      cfg.GetDefaults(),
	}
}

// roundState — рабочее состояние цикла, живёт в пределах одного запроса.
type roundState struct {
	transcript     []llm.Message  // append-only во время цикла
	toolCallCounts map[string]int // имя → сколько раз выполнен
	statusLabels   []string       // append-only, по одной на вызов
	roundIndex     int
}

// Run выполняет цикл для нормализованной истории.
//
// Каждый раунд:
//  1. Non-streamed вызов upstream с полным транскриптом и декларациями
//     всех инструментов (tool_choice на усмотрение модели)
//  2. Извлечение tool calls (три формата, см. ExtractToolCalls)
//  3. Фильтр по бюджету MaxCallsPerTool — превысившие вызовы молча
//     отбрасываются, без retry и без ошибок
//  4. Пустой список → ответ этого раунда финальный, выходим
//  5. Иначе: статусы, параллельное выполнение, synthetic assistant
//     сообщение + tool сообщения в транскрипт, следующий раунд
//
// Исчерпание бюджета раундов — принудительное завершение с последним
// контентом, не ошибка. Транспортная ошибка upstream — фатальная.
func (l *Loop) Run(ctx context.Context, messages []llm.Message, model, apiKey string) (Result, error) {
	state := &roundState{
		transcript:     append([]llm.Message(nil), messages...),
		toolCallCounts: make(map[string]int),
	}

	schemas := l.registry.Schemas()
	lastContent := ""

	for state.roundIndex < l.cfg.MaxToolRounds {
		// 1. AwaitingModel: вызываем upstream
		reply, err := l.provider.Chat(ctx, llm.ChatRequest{
			Model:    model,
			APIKey:   apiKey,
			Messages: state.transcript,
			Tools:    schemas,
		})
		if err != nil {
			// Транспортная ошибка фатальна: частичный ответ не возвращаем
			return Result{}, fmt.Errorf("upstream chat failed: %w", err)
		}

		lastContent = reply.Content.Text

		// 2. Извлекаем tool calls
		calls := ExtractToolCalls(reply, l.registry, state.roundIndex)

		// 3. Бюджет per-tool: каждый допущенный вызов расходует
		// бюджет сразу, поэтому пачка одинаковых вызовов в одном
		// раунде не проскакивает мимо лимита. Превысившие вызовы
		// молча отбрасываются.
		surviving := make([]llm.ToolCall, 0, len(calls))
		for _, call := range calls {
			if state.toolCallCounts[call.Name] >= l.cfg.MaxCallsPerTool {
				utils.Debug("tool call budget exhausted, dropping",
					"tool", call.Name, "round", state.roundIndex)
				continue
			}
			state.toolCallCounts[call.Name]++
			surviving = append(surviving, call)
		}

		// 4. Terminal: нет вызовов — этот ответ финальный
		if len(surviving) == 0 {
			return l.finish(state, lastContent), nil
		}

		// 5. HasToolCalls: статусы фиксируются до выполнения
		for _, call := range surviving {
			state.statusLabels = append(state.statusLabels, l.registry.StatusLabel(call.Name))
		}

		utils.Info("executing tool calls",
			"round", state.roundIndex,
			"count", len(surviving))

		results := ExecuteAll(ctx, surviving, l.registry)

		// Synthetic assistant сообщение с вызовами (content null),
		// затем по одному tool сообщению на результат.
		state.transcript = append(state.transcript, llm.Message{
			Role:      llm.RoleAssistant,
			ToolCalls: surviving,
		})
		for _, r := range results {
			state.transcript = append(state.transcript, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: r.ToolCallID,
				Content:    llm.Content{Text: r.Payload},
			})
		}

		state.roundIndex++
	}

	// 6. Бюджет раундов исчерпан: принудительное завершение
	// с последним контентом (возможно пустым). Не ошибка.
	utils.Warn("tool round budget exhausted, forcing termination",
		"rounds", state.roundIndex)
	return l.finish(state, lastContent), nil
}

// finish собирает Result, подставляя fallback для пустого ответа
// после tool-only раундов.
func (l *Loop) finish(state *roundState, content string) Result {
	answer := utils.CleanAnswer(content)
	if answer == "" && len(state.statusLabels) > 0 {
		answer = FallbackAnswer
	}

	return Result{
		Answer:       answer,
		StatusLabels: state.statusLabels,
		Rounds:       state.roundIndex,
	}
}
