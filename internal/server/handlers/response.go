package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/fieldsync/internal/syncerr"
	"github.com/iudanet/fieldsync/pkg/api"
)

// writeJSON отправляет v в JSON с указанным статусом
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError отправляет api.ErrorResponse с указанным статусом
func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string, kind syncerr.Kind) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	}
	if kind != syncerr.KindUnknown {
		resp.Kind = kind.String()
	}
	writeJSON(w, logger, status, resp)
}

// statusForError сопоставляет категорию ошибки с HTTP статусом
func statusForError(err error) (int, syncerr.Kind) {
	kind := syncerr.Classify(err)
	switch kind {
	case syncerr.KindPermanentReject:
		return http.StatusUnprocessableEntity, kind
	case syncerr.KindConflict:
		return http.StatusConflict, kind
	case syncerr.KindResyncRequired:
		return http.StatusGone, kind
	case syncerr.KindTransient:
		return http.StatusServiceUnavailable, kind
	default:
		// Неизвестная ошибка: клиент должен повторить позже
		return http.StatusServiceUnavailable, syncerr.KindTransient
	}
}
