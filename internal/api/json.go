package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// envelope is the ok/data wrapper used by the staging and metadata
// endpoints.
type envelope struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

func okBody(data any) envelope {
	return envelope{OK: true, Data: data}
}
