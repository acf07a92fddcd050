package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gridd/internal/grid"
	"gridd/internal/sessionmap"
	"gridd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	NewSession(ctx context.Context, caps types.Capabilities) (types.Session, error)
	Session(ctx context.Context, id types.SessionID) (types.Session, error)
	StopSession(ctx context.Context, id types.SessionID) error
	Sessions(ctx context.Context) ([]types.Session, error)
	DrainNode(id types.NodeID) error
	Status() types.GridStatus
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/session", func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.NewSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if len(req.Capabilities) == 0 {
			writeJSONError(w, http.StatusBadRequest, "capabilities are required")
			return
		}
		start := time.Now()
		logStart(r, req.Capabilities)
		// Join server base context with request context so shutdown
		// cancels queued waits too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		sess, err := svc.NewSession(ctx, req.Capabilities)
		if err != nil {
			// Client disconnect while queued: nothing to answer.
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			status := newSessionErrorStatus(err)
			if status == http.StatusTooManyRequests {
				IncrementBackpressure("capacity")
			}
			writeJSONError(w, status, err.Error())
			logEnd(r, status, time.Since(start), err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sess); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
		logEnd(r, http.StatusOK, time.Since(start), nil)
	})

	r.Get("/session", func(w http.ResponseWriter, r *http.Request) {
		sessions, err := svc.Sessions(r.Context())
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(types.SessionsResponse{Sessions: sessions}); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	})

	r.Get("/session/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := types.SessionID(chi.URLParam(r, "id"))
		sess, err := svc.Session(r.Context(), id)
		if err != nil {
			if sessionmap.IsNotFound(err) {
				writeJSONError(w, http.StatusNotFound, err.Error())
				return
			}
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sess); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	})

	r.Delete("/session/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := types.SessionID(chi.URLParam(r, "id"))
		if err := svc.StopSession(r.Context(), id); err != nil {
			if sessionmap.IsNotFound(err) {
				writeJSONError(w, http.StatusNotFound, err.Error())
				return
			}
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/node/{id}/drain", func(w http.ResponseWriter, r *http.Request) {
		id := types.NodeID(chi.URLParam(r, "id"))
		if err := svc.DrainNode(id); err != nil {
			if grid.IsNodeNotFound(err) {
				writeJSONError(w, http.StatusNotFound, err.Error())
				return
			}
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("no nodes"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// newSessionErrorStatus maps well-known distributor errors to HTTP codes.
func newSessionErrorStatus(err error) int {
	switch {
	case grid.IsCapacityExhausted(err):
		return http.StatusTooManyRequests
	case grid.IsNoMatchingSlot(err):
		return http.StatusInternalServerError
	default:
		if he, ok := err.(HTTPError); ok {
			return he.StatusCode()
		}
		return http.StatusInternalServerError
	}
}
