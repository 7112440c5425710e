package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playforge/levelboard/internal/domain/triage"
)

// readCriteria decodes the optional criteria override. A missing body falls
// back to the configured defaults.
func readCriteria(w http.ResponseWriter, r *http.Request) (*triage.Criteria, bool) {
	if r.ContentLength == 0 {
		return nil, true
	}
	crit, ok := readJSON[triage.Criteria](w, r)
	if !ok {
		return nil, false
	}
	return &crit, true
}

// writeRun writes a bulk-run outcome. A halted run is surfaced as a 500 that
// still carries the partial run so the dashboard can show how far it got.
func writeRun(w http.ResponseWriter, run *triage.Run, err error) {
	if err != nil {
		if run != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"run":   run,
				"error": err.Error(),
			})
			return
		}
		writeDomainError(w, err, "batch not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// PreviewTriage handles POST /api/v1/batches/{batchID}/triage/preview
//
// Classification only; nothing is written.
func (h *Handlers) PreviewTriage(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	crit, ok := readCriteria(w, r)
	if !ok {
		return
	}

	buckets, err := h.Triage.Preview(r.Context(), batchID, crit)
	if err != nil {
		writeDomainError(w, err, "batch not found")
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

// ApproveAll handles POST /api/v1/batches/{batchID}/triage/approve
func (h *Handlers) ApproveAll(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	crit, ok := readCriteria(w, r)
	if !ok {
		return
	}

	run, err := h.Triage.ApproveAll(r.Context(), batchID, crit)
	writeRun(w, run, err)
}

// RejectAll handles POST /api/v1/batches/{batchID}/triage/reject
func (h *Handlers) RejectAll(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	crit, ok := readCriteria(w, r)
	if !ok {
		return
	}

	run, err := h.Triage.RejectAll(r.Context(), batchID, crit)
	writeRun(w, run, err)
}

// ApplyAll handles POST /api/v1/batches/{batchID}/triage/apply
//
// Runs the approve pass, then the reject pass.
func (h *Handlers) ApplyAll(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	crit, ok := readCriteria(w, r)
	if !ok {
		return
	}

	run, err := h.Triage.ApplyAll(r.Context(), batchID, crit)
	writeRun(w, run, err)
}

// ListTriageRuns handles GET /api/v1/batches/{batchID}/triage/runs
func (h *Handlers) ListTriageRuns(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	runs, err := h.Triage.Runs(r.Context(), batchID)
	if err != nil {
		writeDomainError(w, err, "batch not found")
		return
	}
	if runs == nil {
		runs = []triage.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetTriageRun handles GET /api/v1/triage/runs/{runID}
func (h *Handlers) GetTriageRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run, err := h.Triage.Run(r.Context(), runID)
	if err != nil {
		writeDomainError(w, err, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}
