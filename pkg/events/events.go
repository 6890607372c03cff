// Package events определяет Port & Adapter интерфейсы для доставки
// событий чата к транспорту.
//
// Port — интерфейсы Emitter и Subscriber. Adapter — конкретный
// транспорт (SSE handler в internal/server). Ядро (pkg/agent) не
// знает про HTTP: оно отдаёт Result, а Stream превращает его в
// последовательность событий.
//
// Все реализации обязаны быть thread-safe.
package events

import (
	"context"
	"time"
)

// EventType — тип события чата.
type EventType string

const (
	// EventToolStatus — подпись выполняемого инструмента,
	// по одному событию на каждый вызов в порядке запуска.
	EventToolStatus EventType = "tool_status"

	// EventStatusCleared — все инструменты завершились,
	// клиент может убрать индикатор.
	EventStatusCleared EventType = "status_cleared"

	// EventContent — финальный текст ответа.
	EventContent EventType = "content"

	// EventError — фатальная ошибка запроса.
	EventError EventType = "error"

	// EventDone — терминальное событие, после него поток закрыт.
	EventDone EventType = "done"
)

// EventData — sealed interface данных события: реализации есть
// только внутри пакета, что даёт compile-time гарантию соответствия
// типа события и его данных.
type EventData interface {
	eventData()
}

// ToolStatusData содержит подпись для EventToolStatus.
type ToolStatusData struct {
	Label string
}

func (ToolStatusData) eventData() {}

// StatusClearedData — пустые данные EventStatusCleared.
type StatusClearedData struct{}

func (StatusClearedData) eventData() {}

// ContentData содержит текст для EventContent.
type ContentData struct {
	Text string
}

func (ContentData) eventData() {}

// ErrorData содержит ошибку для EventError.
type ErrorData struct {
	Err error
}

func (ErrorData) eventData() {}

// DoneData — пустые данные EventDone.
type DoneData struct{}

func (DoneData) eventData() {}

// Event — одно событие потока.
type Event struct {
	Type      EventType
	Data      EventData
	Timestamp time.Time
}

// Emitter — Port для отправки событий.
type Emitter interface {
	// Emit отправляет событие. Если context отменён,
	// операция прерывается без доставки.
	Emit(ctx context.Context, event Event)
}

// Subscriber читает события из канала.
type Subscriber interface {
	// Events возвращает read-only канал. Канал закрывается
	// владельцем emitter'а.
	Events() <-chan Event

	// Close освобождает ресурсы подписчика.
	Close()
}
