// Package server — HTTP слой приложения: маршруты, валидация входа
// и маппинг ошибок на статус-коды.
//
// Слой тонкий: вся доменная логика живёт в pkg/, хендлеры только
// переводят HTTP в вызовы ядра и обратно.
package server

import (
	"context"
	"net/http"

	"github.com/AyuTriphasari/zlk-ai/pkg/agent"
	"github.com/AyuTriphasari/zlk-ai/pkg/config"
	"github.com/AyuTriphasari/zlk-ai/pkg/llm"
	"github.com/AyuTriphasari/zlk-ai/pkg/media"
	"github.com/AyuTriphasari/zlk-ai/pkg/mediacache"
	"github.com/AyuTriphasari/zlk-ai/pkg/r2storage"
)

// ChatRunner — интерфейс цикла оркестрации для внедрения в хендлер.
type ChatRunner interface {
	Run(ctx context.Context, messages []llm.Message, model, apiKey string) (agent.Result, error)
}

// MediaGenerator — интерфейс upstream генерации медиа.
type MediaGenerator interface {
	Generate(ctx context.Context, req media.GenerateRequest) (media.Result, error)
	Edit(ctx context.Context, req media.GenerateRequest) (media.Result, error)
}

// Server связывает маршруты с зависимостями.
type Server struct {
	cfg      config.AppConfig
	chat     ChatRunner
	media    MediaGenerator
	cache    *mediacache.Cache
	uploader r2storage.Uploader // nil когда хранилище не сконфигурировано
	mux      *http.ServeMux
}

// New создает сервер. uploader может быть nil — тогда /api/upload
// отвечает ошибкой конфигурации.
func New(cfg config.AppConfig, chat ChatRunner, mediaClient MediaGenerator,
	cache *mediacache.Cache, uploader r2storage.Uploader) *Server {

	s := &Server{
		cfg:      cfg,
		chat:     chat,
		media:    mediaClient,
		cache:    cache,
		uploader: uploader,
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("GET /api/image", s.handleImage)
	s.mux.HandleFunc("GET /api/video", s.handleVideo)
	s.mux.HandleFunc("POST /api/edit", s.handleEdit)
	s.mux.HandleFunc("GET /api/edit", s.handleEditModels)
	s.mux.HandleFunc("GET /api/view", s.handleView)
	s.mux.HandleFunc("POST /api/upload", s.handleUpload)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	return s
}

// Handler возвращает корневой http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
