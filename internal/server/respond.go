package server

import (
	"encoding/json"
	"net/http"

	"github.com/AyuTriphasari/zlk-ai/pkg/utils"
)

// errorBody — единый конверт ошибки для всех JSON маршрутов.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		utils.Error("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	writeJSON(w, status, errorBody{Error: message, Detail: detail})
}
