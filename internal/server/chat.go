package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/AyuTriphasari/zlk-ai/pkg/agent"
	"github.com/AyuTriphasari/zlk-ai/pkg/events"
	"github.com/AyuTriphasari/zlk-ai/pkg/llm"
	"github.com/AyuTriphasari/zlk-ai/pkg/utils"
)

type chatRequest struct {
	Messages []llm.Message `json:"messages"`
	Model    string        `json:"model"`
}

// sseFrame — JSON полезная нагрузка одного SSE события.
//
// Клиент различает кадры по заполненному полю: status несёт подпись
// инструмента, statusCleared снимает индикатор, content — финальный
// текст.
type sseFrame struct {
	Status        string `json:"status,omitempty"`
	StatusCleared bool   `json:"statusCleared,omitempty"`
	Content       string `json:"content,omitempty"`
	Error         string `json:"error,omitempty"`
}

// handleChat — POST /api/chat.
//
// Полный цикл оркестрации выполняется до первого байта ответа,
// поэтому статус-код выбирается честно: ошибки до и во время цикла
// уходят обычным JSON, SSE начинается только для успешного итога.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "Messages array is required", "")
		return
	}

	// Ключ из запроса перекрывает серверный; без обоих не ходим
	// в upstream вообще
	userKey := r.URL.Query().Get("apiKey")
	apiKey := userKey
	if apiKey == "" {
		apiKey = s.cfg.Upstream.APIKey
	}
	if apiKey == "" {
		writeError(w, http.StatusInternalServerError, "API key not configured", "")
		return
	}

	model := req.Model
	if model == "" {
		model = s.cfg.Upstream.DefaultModel
	}
	// История с картинками требует vision-модель
	model = llm.EnsureVisionModel(req.Messages, model)

	normalized := agent.Normalize(req.Messages, time.Now(), s.cfg.Agent.HistoryWindow)

	result, err := s.chat.Run(r.Context(), normalized, model, apiKey)
	if err != nil {
		utils.Error("chat request failed", "model", model, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process chat request", err.Error())
		return
	}

	s.streamResult(w, r, result)
}

// streamResult пишет итог цикла как SSE поток.
func (s *Server) streamResult(w http.ResponseWriter, r *http.Request, result agent.Result) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, _ := w.(http.Flusher)

	emitter := events.NewChanEmitter(len(result.StatusLabels) + 4)
	events.Stream(r.Context(), emitter, result.StatusLabels, result.Answer)
	emitter.Close()

	for ev := range emitter.Subscribe().Events() {
		frame, ok := frameFor(ev)
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", frame); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// frameFor переводит событие в SSE кадр; Done кодируется сентинелом
// [DONE] вместо JSON.
func frameFor(ev events.Event) (string, bool) {
	switch data := ev.Data.(type) {
	case events.ToolStatusData:
		return marshalFrame(sseFrame{Status: data.Label})
	case events.StatusClearedData:
		return marshalFrame(sseFrame{StatusCleared: true})
	case events.ContentData:
		return marshalFrame(sseFrame{Content: data.Text})
	case events.ErrorData:
		return marshalFrame(sseFrame{Error: data.Err.Error()})
	case events.DoneData:
		return "[DONE]", true
	default:
		return "", false
	}
}

func marshalFrame(frame sseFrame) (string, bool) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return "", false
	}
	return string(payload), true
}
