package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/appdevdesigns/appbuilder-platform-mobile/internal/logger"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/lifecycle"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/metrics"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/registry"
)

// Response is the standard API response wrapper.
//
// All responses follow this structure:
//   - Status indicates the overall result ("ok" or "error")
//   - Timestamp provides response time for debugging
//   - Data contains the response payload (optional)
//   - Error contains error details when Status is "error" (optional)
type Response struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func okResponse(data any) Response {
	return Response{Status: "ok", Timestamp: time.Now().UTC(), Data: data}
}

func errorResponse(errMsg string) Response {
	return Response{Status: "error", Timestamp: time.Now().UTC(), Error: errMsg}
}

// NewRouter creates and configures the chi router with all middleware and
// routes.
//
// Routes:
//   - GET /healthz - Liveness probe
//   - GET /api/v1/status - Application initialization status and markers
//   - GET /api/v1/collections - Registered collections and objects
//   - POST /api/v1/reset - Clear persisted status and re-run initialization
//   - GET /metrics - Prometheus metrics (only when metrics are enabled)
func NewRouter(app *lifecycle.App, reg *registry.Registry) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, okResponse(nil))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, okResponse(map[string]any{
				"app":     app.ID(),
				"status":  app.Status(),
				"markers": app.Markers(),
			}))
		})

		r.Get("/collections", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, okResponse(map[string]any{
				"collections": reg.ListCollections(),
				"objects":     reg.ListObjects(),
			}))
		})

		r.Post("/reset", func(w http.ResponseWriter, req *http.Request) {
			if err := app.Reset(req.Context()); err != nil {
				writeJSON(w, http.StatusInternalServerError, errorResponse(err.Error()))
				return
			}
			writeJSON(w, http.StatusOK, okResponse(map[string]any{
				"status": app.Status(),
			}))
		})
	})

	if metrics.IsEnabled() {
		r.Handle("/metrics", metrics.Handler())
	}

	return r
}

// isHealthPath returns true if the request path is a healthcheck endpoint.
func isHealthPath(path string) bool {
	return path == "/healthz" || strings.HasPrefix(path, "/healthz/")
}

// requestLogger logs requests using the internal logger. Healthcheck
// requests are logged at DEBUG level to reduce noise.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		}

		if isHealthPath(r.URL.Path) {
			logger.Debug("API request completed", logArgs...)
		} else {
			logger.Info("API request completed", logArgs...)
		}
	})
}
