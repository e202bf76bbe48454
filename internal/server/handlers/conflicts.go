package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/storage"
	"github.com/iudanet/fieldsync/internal/server/syncapply"
	"github.com/iudanet/fieldsync/internal/syncerr"
	"github.com/iudanet/fieldsync/pkg/api"
)

// ConflictsHandler обрабатывает список и разрешение конфликтов
type ConflictsHandler struct {
	logger  *slog.Logger
	reader  storage.ConflictReader
	applier SyncApplier
}

// NewConflictsHandler создает handler конфликтов
func NewConflictsHandler(logger *slog.Logger, reader storage.ConflictReader, applier SyncApplier) *ConflictsHandler {
	return &ConflictsHandler{
		logger:  logger,
		reader:  reader,
		applier: applier,
	}
}

// List обрабатывает GET /api/v1/conflicts?status=pending|resolved
func (h *ConflictsHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := GetTenantID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing tenant", syncerr.KindUnknown)
		return
	}

	status := models.ConflictPending
	if s := r.URL.Query().Get("status"); s != "" {
		status = models.ConflictStatus(s)
		if status != models.ConflictPending && status != models.ConflictResolved {
			writeError(w, h.logger, http.StatusBadRequest, "invalid status parameter", syncerr.KindPermanentReject)
			return
		}
	}

	records, err := h.reader.ListConflicts(r.Context(), tenantID, status)
	if err != nil {
		h.logger.Error("Failed to list conflicts", "tenant_id", tenantID, "error", err)
		writeError(w, h.logger, http.StatusServiceUnavailable, "failed to list conflicts", syncerr.KindTransient)
		return
	}

	if records == nil {
		records = []*models.ConflictRecord{}
	}

	writeJSON(w, h.logger, http.StatusOK, api.ConflictsResponse{Conflicts: records})
}

// Resolve обрабатывает POST /api/v1/conflicts/{id}/resolve
func (h *ConflictsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := GetTenantID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing tenant", syncerr.KindUnknown)
		return
	}

	conflictID := r.PathValue("id")
	if conflictID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "missing conflict id", syncerr.KindPermanentReject)
		return
	}

	var req api.ResolveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxApplyBodySize)).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode resolve request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body", syncerr.KindPermanentReject)
		return
	}

	subject, _ := GetSubject(r.Context())

	result, err := h.applier.Resolve(r.Context(), syncapply.ResolveRequest{
		Payload:        req.Payload,
		TenantID:       tenantID,
		ConflictID:     conflictID,
		IdempotencyKey: req.IdempotencyKey,
		Actor:          subject,
		Choice:         req.Choice,
	})
	if err != nil {
		status, kind := statusForError(err)
		if kind == syncerr.KindTransient {
			h.logger.Error("Resolve failed", "conflict_id", conflictID, "error", err)
			writeError(w, h.logger, status, "temporarily unavailable, retry later", kind)
			return
		}
		h.logger.Warn("Resolve rejected", "conflict_id", conflictID, "error", err)
		writeError(w, h.logger, status, err.Error(), kind)
		return
	}

	h.logger.Info("Conflict resolved",
		"tenant_id", tenantID,
		"conflict_id", conflictID,
		"choice", req.Choice,
		"new_version", result.NewVersion)

	writeJSON(w, h.logger, http.StatusOK, toApplyResponse(result))
}
