package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/fieldsync/internal/server/gateway"
	"github.com/iudanet/fieldsync/internal/syncerr"
	"github.com/iudanet/fieldsync/internal/wsframe"
)

// SessionServer обслуживает одну push-сессию
type SessionServer interface {
	Serve(ctx context.Context, conn gateway.Conn, tenantID string, cursor int64) error
}

// StreamHandler поднимает websocket и передает его Gateway
type StreamHandler struct {
	logger       *slog.Logger
	sessions     SessionServer
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
}

// NewStreamHandler создает handler push-потока
func NewStreamHandler(logger *slog.Logger, sessions SessionServer, writeTimeout time.Duration) *StreamHandler {
	return &StreamHandler{
		logger:   logger,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 16384,
		},
		writeTimeout: writeTimeout,
	}
}

// Stream обрабатывает GET /api/v1/stream?last_sequence_id=N
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := GetTenantID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing tenant", syncerr.KindUnknown)
		return
	}

	var cursor int64
	if s := r.URL.Query().Get("last_sequence_id"); s != "" {
		var err error
		cursor, err = strconv.ParseInt(s, 10, 64)
		if err != nil || cursor < 0 {
			h.logger.Warn("Invalid last_sequence_id parameter", "last_sequence_id", s)
			writeError(w, h.logger, http.StatusBadRequest, "invalid last_sequence_id parameter", syncerr.KindPermanentReject)
			return
		}
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту при ошибке
		h.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}

	conn := wsframe.New(ws, h.writeTimeout, 0)

	err = h.sessions.Serve(r.Context(), conn, tenantID, cursor)
	switch {
	case errors.Is(err, syncerr.ErrResyncRequired):
		_ = conn.CloseWithReason(websocket.CloseNormalClosure, "resync required")
	case errors.Is(err, gateway.ErrHeartbeatTimeout):
		_ = conn.CloseWithReason(websocket.CloseGoingAway, "heartbeat timeout")
	default:
		_ = conn.Close()
	}

	h.logger.Info("Stream session closed", "tenant_id", tenantID, "cursor", cursor, "reason", err)
}
