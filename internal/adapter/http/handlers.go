package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playforge/levelboard/internal/domain/batch"
	"github.com/playforge/levelboard/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Batches   *service.BatchService
	Levels    *service.LevelService
	Workscope *service.WorkscopeService
	Triage    *service.TriageService
}

// ListBatches handles GET /api/v1/batches
func (h *Handlers) ListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.Batches.List(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if batches == nil {
		batches = []batch.Batch{}
	}
	writeJSON(w, http.StatusOK, batches)
}

// GetBatch handles GET /api/v1/batches/{batchID}
func (h *Handlers) GetBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "batchID")
	b, err := h.Batches.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "batch not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// CreateBatch handles POST /api/v1/batches
func (h *Handlers) CreateBatch(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[batch.CreateRequest](w, r)
	if !ok {
		return
	}

	b, err := h.Batches.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "batch creation failed")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// DeleteBatch handles DELETE /api/v1/batches/{batchID}
func (h *Handlers) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "batchID")
	if err := h.Batches.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err, "batch not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
