package events

import (
	"context"
	"time"
)

// Stream превращает итог чата в конечную последовательность событий:
//
//  1. по одному EventToolStatus на каждую подпись, в порядке запуска
//  2. один EventStatusCleared, если подписи были
//  3. один EventContent, если финальный текст непустой
//  4. EventDone
//
// Последовательность однопроходная: все раунды уже завершены к
// моменту вызова, это не живой прогресс выполнения.
func Stream(ctx context.Context, emitter Emitter, statusLabels []string, answer string) {
	for _, label := range statusLabels {
		emitter.Emit(ctx, Event{
			Type:      EventToolStatus,
			Data:      ToolStatusData{Label: label},
			Timestamp: time.Now(),
		})
	}

	if len(statusLabels) > 0 {
		emitter.Emit(ctx, Event{
			Type:      EventStatusCleared,
			Data:      StatusClearedData{},
			Timestamp: time.Now(),
		})
	}

	if answer != "" {
		emitter.Emit(ctx, Event{
			Type:      EventContent,
			Data:      ContentData{Text: answer},
			Timestamp: time.Now(),
		})
	}

	emitter.Emit(ctx, Event{
		Type:      EventDone,
		Data:      DoneData{},
		Timestamp: time.Now(),
	})
}

// StreamError отправляет фатальную ошибку и закрывает поток
// терминальным EventDone.
func StreamError(ctx context.Context, emitter Emitter, err error) {
	emitter.Emit(ctx, Event{
		Type:      EventError,
		Data:      ErrorData{Err: err},
		Timestamp: time.Now(),
	})
	emitter.Emit(ctx, Event{
		Type:      EventDone,
		Data:      DoneData{},
		Timestamp: time.Now(),
	})
}
