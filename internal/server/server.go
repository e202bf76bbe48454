// Package server собирает HTTP API, push-поток и фоновое обслуживание в один процесс.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/fieldsync/internal/config"
	"github.com/iudanet/fieldsync/internal/conflict"
	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/bus"
	"github.com/iudanet/fieldsync/internal/server/gateway"
	"github.com/iudanet/fieldsync/internal/server/handlers"
	"github.com/iudanet/fieldsync/internal/server/jwt"
	"github.com/iudanet/fieldsync/internal/server/maintenance"
	"github.com/iudanet/fieldsync/internal/server/middleware"
	"github.com/iudanet/fieldsync/internal/server/publisher"
	"github.com/iudanet/fieldsync/internal/server/storage/sqlite"
	"github.com/iudanet/fieldsync/internal/server/syncapply"
)

const (
	streamWriteTimeout = 10 * time.Second
	readHeaderTimeout  = 10 * time.Second
	shutdownTimeout    = 15 * time.Second
)

// Server процесс сервера
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	limiter     *middleware.RateLimiter
	maintenance *maintenance.Runner
	gateway     *gateway.Gateway
	logger      *slog.Logger
	producerID  string
}

// New собирает сервер поверх открытого хранилища и шины.
// Пустой cfg.ProducerID заменяется случайным UUID.
func New(cfg config.ServerConfig, store *sqlite.Storage, b bus.Bus, tokens *jwt.Service, version string, logger *slog.Logger) *Server {
	producerID := cfg.ProducerID
	if producerID == "" {
		producerID = uuid.NewString()
	}
	logger = logger.With("producer_id", producerID)

	pub := publisher.New(store, b, producerID, logger)
	applier := syncapply.New(pub, conflict.NewResolver(newPolicy(cfg.Commutative)), logger)

	gw := gateway.New(store, b, gateway.Config{
		HeartbeatInterval: cfg.HeartbeatInterval,
		HeartbeatTimeout:  cfg.HeartbeatTimeout,
		ReplayBatchSize:   cfg.ReplayBatchSize,
	}, logger)

	// Коммиты старше окна хранения лога уже не нужны подписчикам
	reconciler := publisher.NewReconciler(pub, store, cfg.LogRetention, logger)
	runner := maintenance.New(store, reconciler, maintenance.Config{
		Interval:       cfg.MaintenanceInterval,
		LogRetention:   cfg.LogRetention,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}, logger)

	applyHandler := handlers.NewApplyHandler(logger, applier)
	conflictsHandler := handlers.NewConflictsHandler(logger, store, applier)
	packHandler := handlers.NewPackHandler(logger, store)
	streamHandler := handlers.NewStreamHandler(logger, gw, streamWriteTimeout)
	healthHandler := handlers.NewHealthHandler(logger, store, version, producerID)

	auth := middleware.AuthMiddleware(logger, tokens)
	tenantLog := middleware.TenantLogMiddleware()
	rateLimit, limiter := middleware.RateLimitMiddleware(cfg.RateLimit, cfg.RateWindow, logger)

	protected := func(h http.HandlerFunc) http.Handler {
		return auth(tenantLog(h))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/sync/apply", auth(tenantLog(rateLimit(http.HandlerFunc(applyHandler.Apply)))))
	mux.Handle("GET /api/v1/conflicts", protected(conflictsHandler.List))
	mux.Handle("POST /api/v1/conflicts/{id}/resolve", protected(conflictsHandler.Resolve))
	mux.Handle("GET /api/v1/pack", protected(packHandler.Pack))
	mux.Handle("GET /api/v1/stream", protected(streamHandler.Stream))
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)

	// Порядок: request id -> логирование -> recovery -> маршруты
	var handler http.Handler = mux
	handler = middleware.RecoveryMiddleware(logger)(handler)
	handler = middleware.LoggingWithSkip(logger, []string{"/api/v1/health", "/api/v1/stream"})(handler)
	handler = middleware.RequestIDMiddleware()(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		handler:     handler,
		limiter:     limiter,
		maintenance: runner,
		gateway:     gw,
		logger:      logger,
		producerID:  producerID,
	}
}

// newPolicy накладывает настройки server.commutative на политику по умолчанию
func newPolicy(commutative map[string][]string) *conflict.Policy {
	policy := conflict.DefaultPolicy()
	for entityType, names := range commutative {
		ops := make([]models.Operation, 0, len(names))
		for _, name := range names {
			ops = append(ops, models.Operation(name))
		}
		policy.SetCommutative(entityType, ops...)
	}
	return policy
}

// Handler корневой http.Handler со всеми middleware
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ProducerID идентификатор процесса в конвертах
func (s *Server) ProducerID() string {
	return s.producerID
}

// Run обслуживает HTTP и запускает обслуживание до отмены ctx, затем мягко останавливается
func (s *Server) Run(ctx context.Context) error {
	defer s.limiter.Stop()

	g, gctx := errgroup.WithContext(ctx)

	// Контексты запросов наследуют gctx: отмена закрывает и hijacked websocket сессии
	s.httpServer.BaseContext = func(net.Listener) context.Context { return gctx }

	g.Go(func() error {
		s.logger.Info("Server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server listen failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return s.maintenance.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()

		s.logger.Info("Shutting down", "active_streams", s.gateway.Sessions())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
