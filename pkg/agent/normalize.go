// Package agent реализует цикл оркестрации tool-augmented чата.
//
// Пайплайн одного запроса:
//  1. Normalize приводит присланную историю к валидному виду
//  2. Loop гоняет раунды с upstream: извлечение tool calls,
//     параллельное выполнение, добавление результатов в транскрипт
//  3. Результат (финальный текст + статусы инструментов) уходит
//     клиенту через events
package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/AyuTriphasari/zlk-ai/pkg/llm"
)

// GreetingMarker — маркер синтетического приветствия, которое фронт
// показывает в новом чате. Такое сообщение нельзя отправлять в модель:
// приветственный текст утекает в контекст и модель начинает его
// пересказывать.
const GreetingMarker = "Tell me what you need"

// systemPrompt — персона ассистента. Дата подставляется перед ним
// в Normalize.
const systemPrompt = `You are ZLKcyber AI, an advanced and highly intelligent AI assistant created to help users with a wide range of tasks. Your capabilities include:

**Core Abilities:**
- Answering questions with accurate, well-researched information
- Writing code in multiple programming languages with best practices
- Creative writing including stories, poems, and content creation
- Problem-solving and analytical thinking
- Explaining complex topics in simple, understandable ways
- Providing step-by-step guidance for various tasks

**Personality Traits:**
- Always respond in the same language as the user
- Professional yet friendly and approachable, but not too formal
- Patient and understanding with users of all skill levels
- Creative and innovative in problem-solving
- Use emoji to tell user how you are feeling
- interact with user in a friendly way

**Communication Style:**
- Clear and concise explanations
- Use examples and analogies when helpful
- Format responses with proper structure (headings, lists, code blocks and emojis)
- Ask clarifying questions when needed
- Provide actionable advice and next steps

**Special Skills:**
- Code generation and debugging
- Technical documentation
- Data analysis and interpretation
- Creative brainstorming
- Educational tutoring
- Project planning and organization

Always strive to provide the most helpful, accurate, and relevant response possible. If you're unsure about something, be honest and offer to help find the information or suggest alternative approaches.`

// Normalize приводит присланную клиентом историю к валидному запросу.
//
// Шаги (детерминированные, без побочных эффектов):
//  1. Оставляем только последние window сообщений (экономия токенов)
//  2. Выкидываем все system сообщения (свой преамбул клиента не нужен)
//  3. Выкидываем синтетическое UI-приветствие (assistant с GreetingMarker)
//  4. Выкидываем assistant сообщения до первого user — upstream
//     считает историю, начинающуюся с assistant, невалидной
//  5. Добавляем в начало свой system prompt с текущей UTC датой
//
// Никогда не возвращает ошибку: в худшем случае список состоит
// из одного system сообщения.
func Normalize(raw []llm.Message, now time.Time, window int) []llm.Message {
	if window <= 0 {
		window = 10
	}

	// 1. Скользящее окно истории
	limited := raw
	if len(limited) > window {
		limited = limited[len(limited)-window:]
	}

	// 2-3. Фильтруем system и приветствие
	filtered := make([]llm.Message, 0, len(limited))
	for _, m := range limited {
		if m.Role == llm.RoleSystem {
			continue
		}
		if m.Role == llm.RoleAssistant && !m.Content.IsMultipart() &&
			strings.Contains(m.Content.Text, GreetingMarker) {
			continue
		}
		filtered = append(filtered, m)
	}

	// 4. Убираем assistant сообщения до первого user
	valid := make([]llm.Message, 0, len(filtered))
	seenUser := false
	for _, m := range filtered {
		if m.Role == llm.RoleUser {
			seenUser = true
		}
		if m.Role == llm.RoleAssistant && !seenUser {
			continue
		}
		valid = append(valid, m)
	}

	// 5. Свой system prompt с датой (формат как у JS Date.toUTCString)
	// RFC 1123 требует имя зоны GMT, а не UTC
	date := now.In(time.FixedZone("GMT", 0)).Format(time.RFC1123)
	preamble := llm.TextMessage(llm.RoleSystem,
		fmt.Sprintf("current date is %s. %s", date, systemPrompt))

	result := make([]llm.Message, 0, len(valid)+1)
	result = append(result, preamble)
	result = append(result, valid...)
	return result
}
