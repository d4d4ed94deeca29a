package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/camayank/hookflow/internal/delivery"
	"github.com/camayank/hookflow/internal/health"
	"github.com/camayank/hookflow/internal/logging"
	"github.com/camayank/hookflow/internal/signature"
)

// Emitter is the slice of the event emitter the API needs.
type Emitter interface {
	Emit(ctx context.Context, eventType, tenantID string, data, metadata map[string]any, async bool) (uuid.UUID, error)
}

// Server exposes the operator surface: event submission, delivery
// history, manual retry, and signature debugging.
type Server struct {
	emitter Emitter
	store   delivery.Store
	logger  *logging.Logger
}

func NewServer(emitter Emitter, store delivery.Store, logger *logging.Logger) *Server {
	return &Server{emitter: emitter, store: store, logger: logger}
}

// Router builds the HTTP routing table. db and metricsHandler may be
// nil when the caller does not expose those endpoints.
func (s *Server) Router(db health.Pinger, metricsHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", health.HTTPHandler(db))
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/events", s.handleEmit)
		r.Get("/endpoints/{id}/deliveries", s.handleDeliveries)
		r.Post("/deliveries/{id}/retry", s.handleRetry)
		r.Post("/signatures/verify", s.handleVerifySignature)
	})

	return r
}

type emitRequest struct {
	Type     string         `json:"type"`
	TenantID string         `json:"tenant_id"`
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata"`
	Async    *bool          `json:"async"`
}

type emitResponse struct {
	EventID string `json:"event_id"`
}

func (s *Server) handleEmit(w http.ResponseWriter, r *http.Request) {
	var req emitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Type == "" || req.TenantID == "" {
		writeError(w, http.StatusBadRequest, "type and tenant_id are required")
		return
	}

	async := true
	if req.Async != nil {
		async = *req.Async
	}

	id, err := s.emitter.Emit(r.Context(), req.Type, req.TenantID, req.Data, req.Metadata, async)
	if err != nil {
		if errors.Is(err, delivery.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, "dispatch queue full, retry later")
			return
		}
		s.logger.WithContext(r.Context()).WithTenant(req.TenantID).WithError(err).Error("emit failed")
		writeError(w, http.StatusInternalServerError, "emit failed")
		return
	}
	writeJSON(w, http.StatusAccepted, emitResponse{EventID: id.String()})
}

type deliveriesResponse struct {
	EndpointID string                 `json:"endpoint_id"`
	Stats      delivery.EndpointStats `json:"stats"`
	Attempts   []delivery.Attempt     `json:"attempts"`
}

func (s *Server) handleDeliveries(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid endpoint id")
		return
	}

	limit := queryInt(r, "limit", 50)
	if limit > 200 {
		limit = 200
	}
	offset := queryInt(r, "offset", 0)

	attempts, err := s.store.History(r.Context(), id, limit, offset)
	if err != nil {
		s.logger.WithContext(r.Context()).WithEndpoint(id.String()).WithError(err).Error("history query failed")
		writeError(w, http.StatusInternalServerError, "history query failed")
		return
	}
	stats, err := s.store.Stats(r.Context(), id)
	if err != nil {
		s.logger.WithContext(r.Context()).WithEndpoint(id.String()).WithError(err).Error("stats query failed")
		writeError(w, http.StatusInternalServerError, "stats query failed")
		return
	}
	if attempts == nil {
		attempts = []delivery.Attempt{}
	}
	writeJSON(w, http.StatusOK, deliveriesResponse{EndpointID: id.String(), Stats: stats, Attempts: attempts})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid delivery id")
		return
	}

	d, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.logger.WithContext(r.Context()).WithDelivery(id.String()).WithError(err).Error("delivery lookup failed")
		writeError(w, http.StatusInternalServerError, "delivery lookup failed")
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "delivery not found")
		return
	}

	ok, err := s.store.MarkPending(r.Context(), id)
	if err != nil {
		s.logger.WithContext(r.Context()).WithDelivery(id.String()).WithError(err).Error("manual retry failed")
		writeError(w, http.StatusInternalServerError, "manual retry failed")
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "delivery already delivered")
		return
	}
	s.logger.WithContext(r.Context()).WithDelivery(id.String()).Info("manual retry requested")
	writeJSON(w, http.StatusOK, map[string]any{"requeued": true})
}

type verifyRequest struct {
	Payload   string `json:"payload"`
	Secret    string `json:"secret"`
	Signature string `json:"signature"`
}

func (s *Server) handleVerifySignature(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Secret == "" || req.Signature == "" {
		writeError(w, http.StatusBadRequest, "secret and signature are required")
		return
	}
	valid := signature.Verify([]byte(req.Payload), req.Signature, req.Secret)
	writeJSON(w, http.StatusOK, map[string]any{"valid": valid})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
