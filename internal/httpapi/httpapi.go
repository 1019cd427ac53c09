// Package httpapi is the thin HTTP front-end over the ingest pipeline:
// parse a request, hand off to internal/orchestrator or internal/fact's
// synthetic-message preview, serialize the response. No business logic
// lives here.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"factored/internal/catalog"
	"factored/internal/fact"
	"factored/internal/ingesterr"
	"factored/internal/logging"
	"factored/internal/orchestrator"
	"factored/internal/sysmetrics"

	"golang.org/x/sync/semaphore"
)

// startedAt records process start for GET /health's uptime field.
var startedAt = time.Now()

// Config configures the HTTP front-end.
type Config struct {
	Catalogs    *catalog.Catalogs
	Orch        *orchestrator.Orchestrator
	AuthSecret  []byte // empty disables the bearer-token check entirely
	WorkerSlots int64  // fixed-size worker pool capacity; <=0 means runtime.NumCPU()
	Logger      *slog.Logger
}

// Server wires the three documented endpoints onto an http.ServeMux.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	workers *semaphore.Weighted
	auth    *tokenVerifier
	mux     *http.ServeMux
}

// New builds a Server. Call Handler to obtain the http.Handler to serve.
func New(cfg Config) *Server {
	slots := cfg.WorkerSlots
	if slots <= 0 {
		slots = int64(defaultWorkerSlots())
	}

	s := &Server{
		cfg:     cfg,
		logger:  logging.Default(cfg.Logger).With("component", "httpapi"),
		workers: semaphore.NewWeighted(slots),
	}
	if len(cfg.AuthSecret) > 0 {
		s.auth = newTokenVerifier(cfg.AuthSecret)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/message/{type}/json", s.handleIngest)
	mux.HandleFunc("GET /api/v1/message/{type}/json", s.handlePreview)
	mux.HandleFunc("GET /health", s.handleHealth)
	s.mux = mux
	return s
}

// Handler returns the http.Handler to pass to an http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ingesterr.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, ingesterr.ErrUnknownMessageType):
		status = http.StatusNotFound
	case errors.Is(err, ingesterr.ErrOverloaded):
		status = http.StatusServiceUnavailable
	case errors.Is(err, ingesterr.ErrTransientStore):
		status = http.StatusBadGateway
	case errors.Is(err, ingesterr.ErrConfigInvalid), errors.Is(err, ingesterr.ErrPredicateUnsupported):
		status = http.StatusUnprocessableEntity
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"pid":           os.Getpid(),
		"uptimeSeconds": time.Since(startedAt).Seconds(),
		"cpuPct":        sysmetrics.CPUPercent(),
		"memInuse":      sysmetrics.MemoryInuse(),
		"timestamp":     time.Now().UTC(),
	})
}

func (s *Server) acquireWorker(r *http.Request) bool {
	return s.workers.TryAcquire(1)
}

// ingestResponse is the wire shape of a successful POST response.
type ingestResponse struct {
	ID       string                      `json:"id"`
	Warnings []fact.Warning              `json:"warnings,omitempty"`
	Counters map[string][]map[string]any `json:"counters,omitempty"`
	Timings  orchestrator.Timings        `json:"timings"`
}
