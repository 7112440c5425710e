package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playforge/levelboard/internal/domain/decision"
	"github.com/playforge/levelboard/internal/domain/level"
)

// verdictRequest is the optional body for the manual verdict endpoints.
type verdictRequest struct {
	Reason string `json:"reason"`
}

// readVerdict decodes the optional verdict body. A missing body yields an
// empty reason.
func readVerdict(w http.ResponseWriter, r *http.Request) (verdictRequest, bool) {
	if r.ContentLength == 0 {
		return verdictRequest{}, true
	}
	return readJSON[verdictRequest](w, r)
}

// ListLevels handles GET /api/v1/batches/{batchID}/levels
//
// The optional ?status= query parameter restricts the listing to one status.
func (h *Handlers) ListLevels(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	status := level.Status(r.URL.Query().Get("status"))

	levels, err := h.Levels.List(r.Context(), batchID, status)
	if err != nil {
		writeDomainError(w, err, "batch not found")
		return
	}
	if levels == nil {
		levels = []level.Level{}
	}
	writeJSON(w, http.StatusOK, levels)
}

// GetLevel handles GET /api/v1/batches/{batchID}/levels/{number}
func (h *Handlers) GetLevel(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	number, ok := urlParamInt(w, r, "number")
	if !ok {
		return
	}

	l, err := h.Levels.Get(r.Context(), batchID, number)
	if err != nil {
		writeDomainError(w, err, "level not found")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// SeedLevels handles POST /api/v1/batches/{batchID}/levels/seed
func (h *Handlers) SeedLevels(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	req, ok := readJSON[level.SeedRequest](w, r)
	if !ok {
		return
	}

	created, err := h.Levels.Seed(r.Context(), batchID, req)
	if err != nil {
		writeDomainError(w, err, "batch not found")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"created": created})
}

// UpdateLevel handles PATCH /api/v1/batches/{batchID}/levels/{number}
func (h *Handlers) UpdateLevel(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	number, ok := urlParamInt(w, r, "number")
	if !ok {
		return
	}
	req, ok := readJSON[level.UpdateRequest](w, r)
	if !ok {
		return
	}

	l, err := h.Levels.Update(r.Context(), batchID, number, req)
	if err != nil {
		writeDomainError(w, err, "level not found")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// ApproveLevel handles POST /api/v1/batches/{batchID}/levels/{number}/approve
func (h *Handlers) ApproveLevel(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	number, ok := urlParamInt(w, r, "number")
	if !ok {
		return
	}
	req, ok := readVerdict(w, r)
	if !ok {
		return
	}

	if err := h.Levels.Approve(r.Context(), batchID, number, req.Reason); err != nil {
		writeDomainError(w, err, "level not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

// RejectLevel handles POST /api/v1/batches/{batchID}/levels/{number}/reject
func (h *Handlers) RejectLevel(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	number, ok := urlParamInt(w, r, "number")
	if !ok {
		return
	}
	req, ok := readVerdict(w, r)
	if !ok {
		return
	}

	if err := h.Levels.Reject(r.Context(), batchID, number, req.Reason); err != nil {
		writeDomainError(w, err, "level not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// ReworkLevel handles POST /api/v1/batches/{batchID}/levels/{number}/rework
func (h *Handlers) ReworkLevel(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	number, ok := urlParamInt(w, r, "number")
	if !ok {
		return
	}
	req, ok := readVerdict(w, r)
	if !ok {
		return
	}

	if err := h.Levels.Rework(r.Context(), batchID, number, req.Reason); err != nil {
		writeDomainError(w, err, "level not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "needs_rework"})
}

// ExportLevel handles POST /api/v1/batches/{batchID}/levels/{number}/export
func (h *Handlers) ExportLevel(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	number, ok := urlParamInt(w, r, "number")
	if !ok {
		return
	}

	if err := h.Levels.Export(r.Context(), batchID, number); err != nil {
		writeDomainError(w, err, "level not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "exported"})
}

// ListDecisions handles GET /api/v1/batches/{batchID}/decisions
func (h *Handlers) ListDecisions(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	decisions, err := h.Levels.Decisions(r.Context(), batchID)
	if err != nil {
		writeDomainError(w, err, "batch not found")
		return
	}
	if decisions == nil {
		decisions = []decision.Decision{}
	}
	writeJSON(w, http.StatusOK, decisions)
}
