package httpx

import (
	"encoding/json"
	"net/http"
	"time"
)

// responseEnvelope mirrors the backend's response contract: every payload is
// wrapped in { isSuccess, message, data } so callers can switch on isSuccess
// without inspecting the HTTP status.
type responseEnvelope struct {
	IsSuccess bool   `json:"isSuccess"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	Time      string `json:"time"`
	Error     any    `json:"error,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(responseEnvelope{
		IsSuccess: true,
		Data:      v,
		Time:      time.Now().UTC().Format(time.RFC3339),
	})
}

// WriteMessage is WriteJSON for endpoints whose only payload is a
// human-readable message (login, logout, deletes).
func WriteMessage(w http.ResponseWriter, status int, message string, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(responseEnvelope{
		IsSuccess: true,
		Message:   message,
		Data:      v,
		Time:      time.Now().UTC().Format(time.RFC3339),
	})
}

func WriteError[T any](w http.ResponseWriter, status int, errBody ErrorResponse[T]) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(responseEnvelope{
		IsSuccess: false,
		Message:   errBody.Message,
		Time:      time.Now().UTC().Format(time.RFC3339),
		Error:     errBody,
	})
}
