package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/fieldsync/pkg/api"
)

// healthPingTimeout ограничение на проверку базы
const healthPingTimeout = 2 * time.Second

// Pinger проверка доступности базы
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger   *slog.Logger
	db       Pinger
	version  string
	producer string
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, db Pinger, version, producer string) *HealthHandler {
	return &HealthHandler{
		logger:   logger,
		db:       db,
		version:  version,
		producer: producer,
	}
}

// Health обрабатывает GET /api/v1/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	resp := api.HealthResponse{
		Status:   "ok",
		Database: "ok",
		Version:  h.version,
		Producer: h.producer,
	}
	status := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("Database ping failed", "error", err)
		resp.Status = "degraded"
		resp.Database = "unavailable"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, h.logger, status, resp)
}
