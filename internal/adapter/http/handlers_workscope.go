package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/playforge/levelboard/internal/domain/workscope"
)

// filterRequest selects either a named preset or an explicit range.
type filterRequest struct {
	BatchID string `json:"batch_id"`
	Preset  string `json:"preset,omitempty"`
	Min     *int   `json:"min,omitempty"`
	Max     *int   `json:"max,omitempty"`
}

// ListPresets handles GET /api/v1/workscope/presets
func (h *Handlers) ListPresets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Workscope.Presets())
}

// SetFilter handles PUT /api/v1/workscope/filter
//
// The body names a preset or carries an explicit min/max range. The response
// is the stats snapshot for the new scope; the filter change itself goes out
// over the event stream.
func (h *Handlers) SetFilter(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[filterRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.BatchID, "batch_id") {
		return
	}

	if req.Preset != "" {
		stats, err := h.Workscope.SelectPreset(r.Context(), req.BatchID, req.Preset)
		if err != nil {
			writeDomainError(w, err, "batch or preset not found")
			return
		}
		writeJSON(w, http.StatusOK, stats)
		return
	}

	if req.Min == nil || req.Max == nil {
		writeError(w, http.StatusBadRequest, "preset or min/max is required")
		return
	}
	stats, err := h.Workscope.SetRange(r.Context(), req.BatchID, &workscope.RangeFilter{Min: *req.Min, Max: *req.Max})
	if err != nil {
		writeDomainError(w, err, "batch not found")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// BatchStats handles GET /api/v1/batches/{batchID}/stats
//
// Without query parameters it reports stats for the batch's active filter.
// ?preset= scopes to a named preset and ?min=&max= to an explicit range;
// preset wins when both are present.
func (h *Handlers) BatchStats(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	q := r.URL.Query()

	if preset := q.Get("preset"); preset != "" {
		stats, err := h.Workscope.StatsForPreset(r.Context(), batchID, preset)
		if err != nil {
			writeDomainError(w, err, "batch or preset not found")
			return
		}
		writeJSON(w, http.StatusOK, stats)
		return
	}

	if q.Has("min") || q.Has("max") {
		minLevel, err := strconv.Atoi(q.Get("min"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "min must be a number")
			return
		}
		maxLevel, err := strconv.Atoi(q.Get("max"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "max must be a number")
			return
		}
		rng := &workscope.RangeFilter{Min: minLevel, Max: maxLevel}
		if err := rng.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		stats, err := h.Workscope.Stats(r.Context(), batchID, rng)
		if err != nil {
			writeDomainError(w, err, "batch not found")
			return
		}
		writeJSON(w, http.StatusOK, stats)
		return
	}

	stats, err := h.Workscope.ActiveStats(r.Context(), batchID)
	if err != nil {
		writeDomainError(w, err, "batch not found")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
