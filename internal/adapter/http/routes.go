package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
//
// idem wraps the bulk triage POSTs with Idempotency-Key replay; a nil value
// mounts them unwrapped.
func MountRoutes(r chi.Router, h *Handlers, idem func(http.Handler) http.Handler) {
	if idem == nil {
		idem = func(next http.Handler) http.Handler { return next }
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Batches
		r.Get("/batches", h.ListBatches)
		r.Post("/batches", h.CreateBatch)
		r.Get("/batches/{batchID}", h.GetBatch)
		r.Delete("/batches/{batchID}", h.DeleteBatch)

		// Levels (nested under batches)
		r.Get("/batches/{batchID}/levels", h.ListLevels)
		r.Post("/batches/{batchID}/levels/seed", h.SeedLevels)
		r.Get("/batches/{batchID}/levels/{number}", h.GetLevel)
		r.Patch("/batches/{batchID}/levels/{number}", h.UpdateLevel)
		r.Post("/batches/{batchID}/levels/{number}/approve", h.ApproveLevel)
		r.Post("/batches/{batchID}/levels/{number}/reject", h.RejectLevel)
		r.Post("/batches/{batchID}/levels/{number}/rework", h.ReworkLevel)
		r.Post("/batches/{batchID}/levels/{number}/export", h.ExportLevel)

		// Review stats and decision audit log
		r.Get("/batches/{batchID}/stats", h.BatchStats)
		r.Get("/batches/{batchID}/decisions", h.ListDecisions)

		// Work scope
		r.Get("/workscope/presets", h.ListPresets)
		r.Put("/workscope/filter", h.SetFilter)

		// Triage
		r.Post("/batches/{batchID}/triage/preview", h.PreviewTriage)
		r.With(idem).Post("/batches/{batchID}/triage/approve", h.ApproveAll)
		r.With(idem).Post("/batches/{batchID}/triage/reject", h.RejectAll)
		r.With(idem).Post("/batches/{batchID}/triage/apply", h.ApplyAll)
		r.Get("/batches/{batchID}/triage/runs", h.ListTriageRuns)
		r.Get("/triage/runs/{runID}", h.GetTriageRun)
	})
}
