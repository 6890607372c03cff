package server

import (
	"io"
	"net/http"

	"github.com/AyuTriphasari/zlk-ai/pkg/utils"
)

// maxUploadBytes ограничивает размер multipart тела.
const maxUploadBytes = 32 << 20

// handleUpload — POST /api/upload: multipart файл в объектное
// хранилище, большие картинки ужимаются перед загрузкой.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.uploader == nil {
		writeError(w, http.StatusInternalServerError, "Storage not configured", "")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form", err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file", "")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read file", err.Error())
		return
	}

	contentType := header.Header.Get("Content-Type")

	// Картинки ужимаются до конфигурационного максимума, остальные
	// типы уходят как есть
	if utils.IsImageContentType(contentType) {
		resized, err := utils.ResizeImage(data, s.cfg.Upload.MaxWidth, s.cfg.Upload.Quality)
		if err != nil {
			utils.Warn("image resize failed, uploading original",
				"filename", header.Filename, "error", err)
		} else {
			data = resized
			contentType = "image/jpeg"
		}
	}

	url, err := s.uploader.Upload(r.Context(), data, header.Filename, contentType)
	if err != nil {
		utils.Error("upload failed", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to upload file", err.Error())
		return
	}

	utils.Info("file uploaded", "filename", header.Filename, "bytes", len(data))
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
