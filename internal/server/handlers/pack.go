package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/syncerr"
	"github.com/iudanet/fieldsync/pkg/api"
)

// PackSource источник данных для data pack
type PackSource interface {
	HeadSequence(ctx context.Context, tenantID string) (int64, error)
	ListEntities(ctx context.Context, tenantID, entityType string, sinceVersion int64) ([]*models.Entity, error)
}

// PackHandler отдает снимок сущностей для пересева клиента
type PackHandler struct {
	logger *slog.Logger
	source PackSource
}

// NewPackHandler создает handler data pack
func NewPackHandler(logger *slog.Logger, source PackSource) *PackHandler {
	return &PackHandler{
		logger: logger,
		source: source,
	}
}

// Pack обрабатывает GET /api/v1/pack?entity_type=T&since_version=V
//
// Голова лога читается до списка сущностей: снимок не старше head, а изменения
// между ними клиент получит повторно из лога и отбросит по версии.
func (h *PackHandler) Pack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := GetTenantID(ctx)
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing tenant", syncerr.KindUnknown)
		return
	}

	entityType := r.URL.Query().Get("entity_type")
	if entityType == "" {
		writeError(w, h.logger, http.StatusBadRequest, "entity_type is required", syncerr.KindPermanentReject)
		return
	}

	var since int64
	if s := r.URL.Query().Get("since_version"); s != "" {
		var err error
		since, err = strconv.ParseInt(s, 10, 64)
		if err != nil || since < 0 {
			h.logger.Warn("Invalid since_version parameter", "since_version", s)
			writeError(w, h.logger, http.StatusBadRequest, "invalid since_version parameter", syncerr.KindPermanentReject)
			return
		}
	}

	head, err := h.source.HeadSequence(ctx, tenantID)
	if err != nil {
		h.logger.Error("Failed to get head sequence", "tenant_id", tenantID, "error", err)
		writeError(w, h.logger, http.StatusServiceUnavailable, "failed to build pack", syncerr.KindTransient)
		return
	}

	entities, err := h.source.ListEntities(ctx, tenantID, entityType, since)
	if err != nil {
		h.logger.Error("Failed to list entities", "tenant_id", tenantID, "error", err)
		writeError(w, h.logger, http.StatusServiceUnavailable, "failed to build pack", syncerr.KindTransient)
		return
	}

	packEntities := make([]api.PackEntity, 0, len(entities))
	for _, e := range entities {
		packEntities = append(packEntities, api.PackEntity{
			UpdatedAt:  e.UpdatedAt,
			Fields:     e.Fields,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Version:    e.Version,
			Deleted:    e.Deleted,
		})
	}

	checksum, err := api.PackChecksum(packEntities)
	if err != nil {
		h.logger.Error("Failed to compute pack checksum", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to build pack", syncerr.KindUnknown)
		return
	}

	h.logger.Info("Data pack served",
		"tenant_id", tenantID,
		"entity_type", entityType,
		"since_version", since,
		"entities_count", len(packEntities),
		"head_sequence_id", head)

	writeJSON(w, h.logger, http.StatusOK, api.PackResponse{
		EntityType:     entityType,
		Checksum:       checksum,
		Entities:       packEntities,
		HeadSequenceID: head,
	})
}
