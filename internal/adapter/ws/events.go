package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/playforge/levelboard/internal/domain/workscope"
)

// Event type constants for WebSocket messages.
const (
	EventFilterChanged  = "workscope.filter_changed"
	EventStatsUpdated   = "workscope.stats_updated"
	EventTriageProgress = "triage.progress"
	EventTriageHalted   = "triage.halted"
	EventBatchCompleted = "batch.completed"
	EventLevelDecided   = "level.decided"
)

// FilterChangedEvent is broadcast when the work-scope range filter changes.
// A nil Range means the filter was cleared and every level is in scope.
type FilterChangedEvent struct {
	BatchID string                 `json:"batch_id"`
	Preset  string                 `json:"preset,omitempty"`
	Range   *workscope.RangeFilter `json:"range,omitempty"`
}

// StatsUpdatedEvent carries a fresh stats snapshot for the active filter.
type StatsUpdatedEvent struct {
	BatchID string          `json:"batch_id"`
	Stats   workscope.Stats `json:"stats"`
}

// TriageProgressEvent is broadcast after each level a bulk triage run decides.
type TriageProgressEvent struct {
	BatchID   string `json:"batch_id"`
	RunID     string `json:"run_id"`
	Kind      string `json:"kind"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
}

// TriageHaltedEvent is broadcast when a bulk triage run stops on a failure.
type TriageHaltedEvent struct {
	BatchID   string `json:"batch_id"`
	RunID     string `json:"run_id"`
	Processed int    `json:"processed"`
	Error     string `json:"error"`
}

// BatchCompletedEvent is broadcast when no levels remain for manual review.
type BatchCompletedEvent struct {
	BatchID string `json:"batch_id"`
}

// LevelDecidedEvent is broadcast when a single level is approved, rejected,
// or sent back for rework.
type LevelDecidedEvent struct {
	BatchID string `json:"batch_id"`
	Number  int    `json:"number"`
	Action  string `json:"action"`
	Reason  string `json:"reason,omitempty"`
	Actor   string `json:"actor"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
