package server

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"

	"github.com/AyuTriphasari/zlk-ai/pkg/media"
	"github.com/AyuTriphasari/zlk-ai/pkg/utils"
)

// editModels — фиксированный список моделей редактирования.
var editModels = []string{"klein", "klein-large", "gptimage", "seedream", "nanobanana"}

const defaultEditModel = "klein"

// queryInt читает числовой query параметр с дефолтом.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// handleImage — GET /api/image: генерация, кэш, ссылка на /api/view.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	prompt := q.Get("prompt")
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "Prompt is required", "")
		return
	}

	model := q.Get("model")
	if model == "" {
		model = media.DefaultImageModel
	}
	width := queryInt(r, "width", 1024)
	height := queryInt(r, "height", 1024)
	seed := int64(queryInt(r, "seed", -1))

	apiKey := q.Get("apiKey")
	if apiKey == "" && s.cfg.Upstream.APIKey == "" {
		writeError(w, http.StatusInternalServerError, "API key not configured", "")
		return
	}

	result, err := s.media.Generate(r.Context(), media.GenerateRequest{
		Prompt: prompt,
		Model:  model,
		Width:  width,
		Height: height,
		Seed:   seed,
		APIKey: apiKey,
	})
	if err != nil {
		utils.Error("image generation failed", "model", model, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate image", err.Error())
		return
	}

	id := s.cache.Put(result.Data, result.ContentType)
	utils.Info("image generated", "id", id, "bytes", len(result.Data))

	writeJSON(w, http.StatusOK, map[string]any{
		"url":    "/api/view?id=" + id,
		"prompt": prompt,
		"model":  model,
		"width":  width,
		"height": height,
	})
}

// handleVideo — GET /api/video: та же форма прокси, что и картинки.
func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	prompt := q.Get("prompt")
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "Prompt is required", "")
		return
	}

	model := q.Get("model")
	if model == "" {
		model = media.DefaultVideoModel
	}

	apiKey := q.Get("apiKey")
	if apiKey == "" && s.cfg.Upstream.APIKey == "" {
		writeError(w, http.StatusInternalServerError, "API key not configured", "")
		return
	}

	result, err := s.media.Generate(r.Context(), media.GenerateRequest{
		Prompt:      prompt,
		Model:       model,
		Width:       queryInt(r, "width", 1024),
		Height:      queryInt(r, "height", 1024),
		Seed:        int64(queryInt(r, "seed", -1)),
		Duration:    q.Get("duration"),
		AspectRatio: q.Get("aspectRatio"),
		APIKey:      apiKey,
	})
	if err != nil {
		utils.Error("video generation failed", "model", model, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate video", err.Error())
		return
	}

	id := s.cache.Put(result.Data, result.ContentType)
	utils.Info("video generated", "id", id, "bytes", len(result.Data))

	writeJSON(w, http.StatusOK, map[string]any{
		"url":    "/api/view?id=" + id,
		"prompt": prompt,
		"model":  model,
	})
}

type editRequest struct {
	Prompt   string `json:"prompt"`
	ImageURL string `json:"imageUrl"`
	Model    string `json:"model"`
	Seed     int64  `json:"seed"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	APIKey   string `json:"apiKey"`
}

// handleEdit — POST /api/edit: редактирование исходной картинки.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "Prompt is required", "")
		return
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		writeError(w, http.StatusBadRequest, "Image URL is required", "")
		return
	}

	model := req.Model
	if model == "" {
		model = defaultEditModel
	}
	if !validEditModel(model) {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Invalid model. Valid options: %s", strings.Join(editModels, ", ")), "")
		return
	}

	if req.Width == 0 {
		req.Width = 1024
	}
	if req.Height == 0 {
		req.Height = 1024
	}
	if req.Seed == 0 {
		// Повторный edit с тем же промптом должен давать новый вариант
		req.Seed = rand.Int63n(10_000_000_000)
	}

	result, err := s.media.Edit(r.Context(), media.GenerateRequest{
		Prompt:         strings.TrimSpace(req.Prompt),
		Model:          model,
		Width:          req.Width,
		Height:         req.Height,
		Seed:           req.Seed,
		SourceImageURL: req.ImageURL,
		APIKey:         req.APIKey,
	})
	if err != nil {
		utils.Error("image edit failed", "model", model, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to edit image", err.Error())
		return
	}

	id := s.cache.Put(result.Data, result.ContentType)
	utils.Info("image edited", "id", id, "bytes", len(result.Data))

	writeJSON(w, http.StatusOK, map[string]any{
		"url":   "/api/view?id=" + id,
		"model": model,
	})
}

// handleEditModels — GET /api/edit: список доступных моделей.
func (s *Server) handleEditModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"models":      editModels,
		"description": "Available models for image editing",
	})
}

// handleView — GET /api/view?id=: выдача закэшированных байтов.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing ID", http.StatusBadRequest)
		return
	}

	entry, ok := s.cache.Get(id)
	if !ok {
		http.Error(w, "Media not found or expired", http.StatusNotFound)
		return
	}

	// Идентификатор одноразовый и уникальный, содержимое неизменно
	w.Header().Set("Content-Type", entry.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Write(entry.Data)
}

func validEditModel(model string) bool {
	for _, m := range editModels {
		if m == model {
			return true
		}
	}
	return false
}
