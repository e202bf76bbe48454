package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/syncapply"
	"github.com/iudanet/fieldsync/internal/syncerr"
	"github.com/iudanet/fieldsync/pkg/api"
)

// maxApplyBodySize ограничение размера тела мутации
const maxApplyBodySize = 1 << 20

// SyncApplier применяет мутации и разрешения конфликтов
type SyncApplier interface {
	Apply(ctx context.Context, req syncapply.Request) (*models.ApplyResult, error)
	Resolve(ctx context.Context, req syncapply.ResolveRequest) (*models.ApplyResult, error)
}

// ApplyHandler обрабатывает POST /api/v1/sync/apply
type ApplyHandler struct {
	logger  *slog.Logger
	applier SyncApplier
}

// NewApplyHandler создает handler Sync-Apply
func NewApplyHandler(logger *slog.Logger, applier SyncApplier) *ApplyHandler {
	return &ApplyHandler{
		logger:  logger,
		applier: applier,
	}
}

// Apply обрабатывает POST /api/v1/sync/apply
// Конфликт возвращается со статусом 200: повтор с тем же ключом получит тот же ответ.
func (h *ApplyHandler) Apply(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := GetTenantID(r.Context())
	if !ok {
		h.logger.Error("Tenant ID not found in context")
		writeError(w, h.logger, http.StatusUnauthorized, "missing tenant", syncerr.KindUnknown)
		return
	}

	var req api.ApplyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxApplyBodySize)).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode apply request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body", syncerr.KindPermanentReject)
		return
	}

	subject, _ := GetSubject(r.Context())

	result, err := h.applier.Apply(r.Context(), syncapply.Request{
		Payload:        req.Payload,
		TenantID:       tenantID,
		IdempotencyKey: req.IdempotencyKey,
		EntityType:     req.EntityType,
		EntityID:       req.EntityID,
		Actor:          subject,
		Operation:      req.Operation,
		BaseVersion:    req.BaseVersion,
	})
	if err != nil {
		h.writeApplyError(w, err, req.IdempotencyKey)
		return
	}

	h.logger.Info("Mutation applied",
		"tenant_id", tenantID,
		"idempotency_key", req.IdempotencyKey,
		"status", result.Status,
		"sequence_id", result.SequenceID)

	writeJSON(w, h.logger, http.StatusOK, toApplyResponse(result))
}

func (h *ApplyHandler) writeApplyError(w http.ResponseWriter, err error, key string) {
	status, kind := statusForError(err)

	if kind == syncerr.KindTransient {
		h.logger.Error("Apply failed", "idempotency_key", key, "error", err)
		writeJSON(w, h.logger, status, api.ApplyResponse{
			Status:  api.StatusTransientError,
			Message: "temporarily unavailable, retry later",
		})
		return
	}

	h.logger.Warn("Mutation rejected", "idempotency_key", key, "error", err)
	writeError(w, h.logger, status, err.Error(), kind)
}

func toApplyResponse(result *models.ApplyResult) api.ApplyResponse {
	resp := api.ApplyResponse{
		Conflict:   result.Conflict,
		NewVersion: result.NewVersion,
		SequenceID: result.SequenceID,
		AutoMerged: result.AutoMerged,
		Status:     api.StatusSuccess,
	}
	if result.Status == models.ApplyConflict {
		resp.Status = api.StatusConflict
	}
	return resp
}
