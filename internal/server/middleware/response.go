package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/iudanet/fieldsync/pkg/api"
)

// writeJSONError отправляет api.ErrorResponse с указанным статусом
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}
