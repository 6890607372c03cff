// Package utils предоставляет вспомогательные функции для обработки данных.
//
// Включает утилиты для очистки финального ответа модели от остатков
// псевдо-синтаксиса tool calls и лишнего форматирования.
package utils

import (
	"regexp"
	"strings"
)

// Остатки inline tool-call синтаксиса, которые некоторые модели
// оставляют в тексте вместе с нормальным ответом. Паттерны должны
// совпадать с теми, что распознаёт agent.ExtractToolCalls.
var (
	inlineDottedCallRe  = regexp.MustCompile(`functions\.\w+\(\s*"?\{[^{}]*\}"?\s*\)`)
	inlineBracketCallRe = regexp.MustCompile(`\[TOOL_CALLS?\]\s*\w+\s*\{[^{}]*\}`)
)

// StripToolCallSyntax удаляет псевдо-вызовы инструментов из текста ответа.
//
// Модели без поддержки structured tool calling иногда дублируют вызов
// в тексте ("functions.web_search({...})"). Такой мусор не должен
// попадать к пользователю.
func StripToolCallSyntax(s string) string {
	s = inlineDottedCallRe.ReplaceAllString(s, "")
	s = inlineBracketCallRe.ReplaceAllString(s, "")
	return s
}

// CollapseBlankLines схлопывает последовательности пустых строк в одну.
//
// После удаления tool-call синтаксиса в тексте остаются дыры —
// несколько переносов подряд. Markdown-рендер на фронте превращает
// их в огромные отступы.
func CollapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var result []string

	prevBlank := false
	for _, line := range lines {
		blank := strings.TrimSpace(line) == ""
		if blank && prevBlank {
			continue
		}
		result = append(result, line)
		prevBlank = blank
	}

	return strings.Join(result, "\n")
}

// CleanAnswer выполняет полную очистку финального ответа модели.
//
// Шаги:
// 1. Удаляет inline tool-call псевдо-синтаксис
// 2. Схлопывает пустые строки
// 3. Обрезает пробелы по краям
//
// Используется как финальный шаг перед отправкой ответа клиенту.
func CleanAnswer(s string) string {
	s = StripToolCallSyntax(s)
	s = CollapseBlankLines(s)
	return strings.TrimSpace(s)
}
