package httpapi

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"runtime"
	"strconv"

	"factored/internal/fact"
	"factored/internal/ingesterr"
)

func defaultWorkerSlots() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

func messageTypeFromPath(r *http.Request) (int, error) {
	raw := r.PathValue("type")
	t, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: message type %q is not an integer", ingesterr.ErrBadRequest, raw)
	}
	return t, nil
}

// handleIngest implements POST /api/v1/message/{type}/json.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuth(w, r) {
		return
	}

	t, err := messageTypeFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if !s.acquireWorker(r) {
		writeError(w, fmt.Errorf("%w: worker pool exhausted", ingesterr.ErrOverloaded))
		return
	}
	defer s.workers.Release(1)

	var payload map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&payload); err != nil {
		writeError(w, fmt.Errorf("%w: %v", ingesterr.ErrBadRequest, err))
		return
	}

	result, err := s.cfg.Orch.Process(r.Context(), fact.InboundMessage{T: t, D: payload})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		ID:       result.Fact.ID.String(),
		Warnings: result.Warnings,
		Counters: result.Counters,
		Timings:  result.Timings,
	})
}

// handlePreview implements GET /api/v1/message/{type}/json: a synthetic
// payload built from the Field Catalog's declared generators, for
// integrators to see what a valid POST body for this message type looks
// like.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuth(w, r) {
		return
	}

	t, err := messageTypeFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	payload, err := fact.GenerateSynthetic(s.cfg.Catalogs, t, rand.New(rand.NewSource(int64(t))))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", ingesterr.ErrBadRequest, err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"t": t, "d": payload})
}

// maxBodyBytes caps an inbound POST body, mirroring the receiver pattern
// of bounding reads before decode rather than trusting Content-Length.
const maxBodyBytes = 1 << 20
