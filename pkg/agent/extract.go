package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/AyuTriphasari/zlk-ai/pkg/llm"
	"github.com/AyuTriphasari/zlk-ai/pkg/tools"
)

// Inline-паттерны псевдо-вызовов. Часть моделей upstream не умеет
// structured tool calling и пишет вызовы прямо в тексте.
//
// Известное ограничение: аргументы захватываются только как плоский
// JSON объект (без вложенных скобок). Так ведёт себя и фронтовый
// рендер, поэтому поведение на вложенных объектах не определено
// и сознательно не "чинится".
var (
	// Паттерн A: functions.web_search({"query":"x"})
	// Аргументы могут быть обёрнуты в кавычки: functions.web_search("{...}")
	dottedCallRe = regexp.MustCompile(`functions\.(\w+)\(\s*"?(\{[^{}]*\})"?\s*\)`)

	// Паттерн B: [TOOL_CALL]web_search{"query":"x"} (или [TOOL_CALLS])
	bracketCallRe = regexp.MustCompile(`\[TOOL_CALLS?\]\s*(\w+)\s*(\{[^{}]*\})`)
)

// ExtractToolCalls разбирает ответ модели в нормализованный список
// запросов на вызов инструментов.
//
// Три взаимоисключающих формата, в порядке приоритета (первый
// совпавший выигрывает, форматы не смешиваются):
//  1. Structured: msg.ToolCalls — используется как есть
//  2. Legacy function_call: одиночный вызов без id, id синтезируется
//  3. Inline text: псевдо-вызовы в тексте (паттерн A, потом B)
//
// Пустой список — нормальный сигнал завершения цикла, не ошибка.
func ExtractToolCalls(msg llm.Message, registry *tools.Registry, roundIndex int) []llm.ToolCall {
	// 1. Structured форма
	if len(msg.ToolCalls) > 0 {
		return msg.ToolCalls
	}

	// 2. Legacy форма: одно имя + один блоб аргументов, без id.
	// Синтезированный id уникален в пределах раунда — большего не надо,
	// вызовы раунда потребляются до начала следующего.
	if msg.FunctionCall != nil && msg.FunctionCall.Name != "" {
		return []llm.ToolCall{{
			ID:   synthesizeID(roundIndex, 0),
			Name: msg.FunctionCall.Name,
			Args: msg.FunctionCall.Args,
		}}
	}

	// 3. Inline-текстовая форма
	if msg.Content.IsMultipart() {
		return nil
	}
	return extractInline(msg.Content.Text, registry, roundIndex)
}

// extractInline ищет псевдо-вызовы в тексте.
//
// Для каждого совпадения проверяем что имя зарегистрировано и что
// аргументы — валидный JSON; мусорные почти-совпадения молча
// пропускаются. Совпадения паттерна A идут раньше паттерна B.
func extractInline(text string, registry *tools.Registry, roundIndex int) []llm.ToolCall {
	if text == "" {
		return nil
	}

	var calls []llm.ToolCall
	idx := 0

	accept := func(name, rawArgs string) {
		if registry != nil && !registry.Has(name) {
			return
		}
		args, ok := normalizeInlineArgs(rawArgs)
		if !ok {
			return
		}
		calls = append(calls, llm.ToolCall{
			ID:   synthesizeID(roundIndex, idx),
			Name: name,
			Args: args,
		})
		idx++
	}

	for _, m := range dottedCallRe.FindAllStringSubmatch(text, -1) {
		accept(m[1], m[2])
	}
	for _, m := range bracketCallRe.FindAllStringSubmatch(text, -1) {
		accept(m[1], m[2])
	}

	return calls
}

// normalizeInlineArgs валидирует захваченные аргументы как JSON.
//
// Если модель обернула JSON в строку ("{\"query\":\"x\"}"),
// кавычки внутри приходят экранированными — пробуем расэскейпить
// и валидировать ещё раз.
func normalizeInlineArgs(raw string) (string, bool) {
	if json.Valid([]byte(raw)) {
		return raw, true
	}

	unescaped := strings.ReplaceAll(raw, `\"`, `"`)
	if json.Valid([]byte(unescaped)) {
		return unescaped, true
	}

	return "", false
}

// synthesizeID генерирует id для вызовов без upstream id.
//
// Время + раунд + индекс. Коллизии между запросами допустимы:
// id живёт только внутри одного запроса как back-reference
// транскрипта.
func synthesizeID(roundIndex, callIndex int) string {
	return fmt.Sprintf("call_%d_%d_%d", time.Now().UnixMilli(), roundIndex, callIndex)
}
