package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/playforge/levelboard/internal/adapter/otel"
	"github.com/playforge/levelboard/internal/adapter/ws"
	"github.com/playforge/levelboard/internal/domain"
	"github.com/playforge/levelboard/internal/domain/decision"
	"github.com/playforge/levelboard/internal/domain/level"
	"github.com/playforge/levelboard/internal/port/broadcast"
	"github.com/playforge/levelboard/internal/port/database"
	"github.com/playforge/levelboard/internal/port/messagequeue"
)

// LevelService handles level review logic: seeding, field updates, and the
// approve/reject/rework verdicts coming from the dashboard.
type LevelService struct {
	store     database.Store
	queue     messagequeue.Queue
	hub       broadcast.Broadcaster
	workscope *WorkscopeService
	metrics   *otel.Metrics
}

// NewLevelService creates a new LevelService.
func NewLevelService(store database.Store, queue messagequeue.Queue, hub broadcast.Broadcaster, workscope *WorkscopeService) *LevelService {
	return &LevelService{store: store, queue: queue, hub: hub, workscope: workscope}
}

// SetMetrics wires the metric instruments. Optional; nil disables recording.
func (s *LevelService) SetMetrics(m *otel.Metrics) {
	s.metrics = m
}

// List returns a batch's levels in number order, optionally filtered by
// status. An empty status returns every level.
func (s *LevelService) List(ctx context.Context, batchID string, status level.Status) ([]level.Level, error) {
	levels, err := s.store.ListLevels(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return levels, nil
	}
	out := make([]level.Level, 0, len(levels))
	for i := range levels {
		if levels[i].Status == status {
			out = append(out, levels[i])
		}
	}
	return out, nil
}

// Get returns a single level by batch and number.
func (s *LevelService) Get(ctx context.Context, batchID string, number int) (*level.Level, error) {
	return s.store.GetLevel(ctx, batchID, number)
}

// Seed inserts level rows 1..count for a batch, skipping numbers that already
// exist. Returns the number of rows actually created.
func (s *LevelService) Seed(ctx context.Context, batchID string, req level.SeedRequest) (int, error) {
	if err := req.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}
	if _, err := s.store.GetBatch(ctx, batchID); err != nil {
		return 0, err
	}

	created, err := s.store.SeedLevels(ctx, batchID, req.Count)
	if err != nil {
		return 0, err
	}

	data, err := json.Marshal(messagequeue.LevelsSeededPayload{BatchID: batchID, Count: created})
	if err != nil {
		return created, fmt.Errorf("marshal levels seeded payload: %w", err)
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectLevelsSeeded, data); err != nil {
		slog.Error("failed to publish levels seeded", "batch_id", batchID, "error", err)
	}

	s.workscope.Refresh(ctx, batchID)
	return created, nil
}

// Update applies partial updates to a level's review fields.
func (s *LevelService) Update(ctx context.Context, batchID string, number int, req level.UpdateRequest) (*level.Level, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	l, err := s.store.UpdateLevel(ctx, batchID, number, req)
	if err != nil {
		return nil, err
	}

	s.workscope.Refresh(ctx, batchID)
	return l, nil
}

// Approve records a manual approve verdict for a level.
func (s *LevelService) Approve(ctx context.Context, batchID string, number int, reason string) error {
	return s.decide(ctx, batchID, number, decision.ActionApprove, reason)
}

// Reject records a manual reject verdict for a level.
func (s *LevelService) Reject(ctx context.Context, batchID string, number int, reason string) error {
	return s.decide(ctx, batchID, number, decision.ActionReject, reason)
}

// Rework sends a level back to the generation team.
func (s *LevelService) Rework(ctx context.Context, batchID string, number int, reason string) error {
	return s.decide(ctx, batchID, number, decision.ActionRework, reason)
}

// decide applies one manual verdict: status change plus audit row in the
// store, then a NATS message and a WebSocket event. Store failures propagate;
// notification failures are logged and the verdict stands.
func (s *LevelService) decide(ctx context.Context, batchID string, number int, action decision.Action, reason string) error {
	ctx, span := otel.StartDecisionSpan(ctx, batchID, number, string(action))
	defer span.End()

	var err error
	switch action {
	case decision.ActionApprove:
		err = s.store.ApproveLevel(ctx, batchID, number, reason, decision.ActorManual, "")
	case decision.ActionReject:
		err = s.store.RejectLevel(ctx, batchID, number, reason, decision.ActorManual, "")
	case decision.ActionRework:
		err = s.store.ReworkLevel(ctx, batchID, number, reason)
	default:
		return fmt.Errorf("%w: unknown action %q", domain.ErrValidation, action)
	}
	if err != nil {
		span.RecordError(err)
		return err
	}

	if s.metrics != nil {
		s.metrics.LevelsDecided.Add(ctx, 1, metric.WithAttributes(
			attribute.String("action", string(action)),
			attribute.String("actor", string(decision.ActorManual)),
		))
	}

	s.publishDecision(ctx, messagequeue.LevelDecidedPayload{
		BatchID:     batchID,
		LevelNumber: number,
		Action:      string(action),
		Reason:      reason,
		Actor:       string(decision.ActorManual),
	})
	s.hub.BroadcastEvent(ctx, ws.EventLevelDecided, ws.LevelDecidedEvent{
		BatchID: batchID,
		Number:  number,
		Action:  string(action),
		Reason:  reason,
		Actor:   string(decision.ActorManual),
	})

	s.workscope.Refresh(ctx, batchID)
	return nil
}

// Export marks an approved level as exported to the game build.
func (s *LevelService) Export(ctx context.Context, batchID string, number int) error {
	if err := s.store.MarkExported(ctx, batchID, number); err != nil {
		return err
	}

	data, err := json.Marshal(messagequeue.LevelExportedPayload{BatchID: batchID, LevelNumber: number})
	if err != nil {
		return fmt.Errorf("marshal level exported payload: %w", err)
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectLevelExported, data); err != nil {
		slog.Error("failed to publish level exported", "batch_id", batchID, "number", number, "error", err)
	}

	s.workscope.Refresh(ctx, batchID)
	return nil
}

// Decisions returns the audit trail for a batch, newest first.
func (s *LevelService) Decisions(ctx context.Context, batchID string) ([]decision.Decision, error) {
	return s.store.ListDecisions(ctx, batchID)
}

func (s *LevelService) publishDecision(ctx context.Context, payload messagequeue.LevelDecidedPayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal level decided payload", "batch_id", payload.BatchID, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectLevelDecided, data); err != nil {
		slog.Error("failed to publish level decided",
			"batch_id", payload.BatchID,
			"number", payload.LevelNumber,
			"error", err)
	}
}
