package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/playforge/levelboard/internal/adapter/otel"
	"github.com/playforge/levelboard/internal/adapter/ws"
	"github.com/playforge/levelboard/internal/config"
	"github.com/playforge/levelboard/internal/domain"
	"github.com/playforge/levelboard/internal/domain/batch"
	"github.com/playforge/levelboard/internal/domain/decision"
	"github.com/playforge/levelboard/internal/domain/level"
	"github.com/playforge/levelboard/internal/domain/triage"
	"github.com/playforge/levelboard/internal/port/broadcast"
	"github.com/playforge/levelboard/internal/port/database"
	"github.com/playforge/levelboard/internal/port/messagequeue"
	"github.com/playforge/levelboard/internal/runner"
)

// TriageService classifies pending levels and drives the bulk approve and
// reject runs. Runs across all batches share one concurrency pool.
type TriageService struct {
	store     database.Store
	queue     messagequeue.Queue
	hub       broadcast.Broadcaster
	workscope *WorkscopeService
	pool      *runner.Pool
	defaults  triage.Criteria
	metrics   *otel.Metrics
}

// NewTriageService creates a new TriageService. Default criteria come from
// config; individual requests may carry their own.
func NewTriageService(store database.Store, queue messagequeue.Queue, hub broadcast.Broadcaster, workscope *WorkscopeService, pool *runner.Pool, cfg config.Triage) *TriageService {
	return &TriageService{
		store:     store,
		queue:     queue,
		hub:       hub,
		workscope: workscope,
		pool:      pool,
		defaults:  criteriaFromConfig(cfg),
	}
}

// SetMetrics wires the metric instruments. Optional; nil disables recording.
func (s *TriageService) SetMetrics(m *otel.Metrics) {
	s.metrics = m
}

// criteriaFromConfig converts the configured default thresholds.
func criteriaFromConfig(cfg config.Triage) triage.Criteria {
	c := triage.Criteria{
		MinMatchScore:          cfg.MinMatchScore,
		MaxMatchScoreForReject: cfg.MaxMatchScoreForReject,
	}
	for _, g := range cfg.AutoApproveGrades {
		c.AutoApproveGrades = append(c.AutoApproveGrades, level.Grade(g))
	}
	for _, g := range cfg.AutoRejectGrades {
		c.AutoRejectGrades = append(c.AutoRejectGrades, level.Grade(g))
	}
	return c
}

// Preview classifies the batch's pending levels without mutating anything.
func (s *TriageService) Preview(ctx context.Context, batchID string, req *triage.Criteria) (*triage.Buckets, error) {
	crit, err := s.resolveCriteria(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetBatch(ctx, batchID); err != nil {
		return nil, err
	}
	levels, err := s.store.ListLevels(ctx, batchID)
	if err != nil {
		return nil, err
	}
	b := triage.Classify(triage.Pending(levels), crit)
	return &b, nil
}

// ApproveAll runs a bulk pass over the auto-approve bucket.
func (s *TriageService) ApproveAll(ctx context.Context, batchID string, req *triage.Criteria) (*triage.Run, error) {
	return s.runBulk(ctx, batchID, req, triage.KindApprove)
}

// RejectAll runs a bulk pass over the auto-reject bucket.
func (s *TriageService) RejectAll(ctx context.Context, batchID string, req *triage.Criteria) (*triage.Run, error) {
	return s.runBulk(ctx, batchID, req, triage.KindReject)
}

// ApplyAll runs the approve pass followed by the reject pass. When the
// manual-review bucket is empty afterwards, the batch completion signal fires.
func (s *TriageService) ApplyAll(ctx context.Context, batchID string, req *triage.Criteria) (*triage.Run, error) {
	return s.runBulk(ctx, batchID, req, triage.KindApply)
}

// Runs returns a batch's triage run history, newest first.
func (s *TriageService) Runs(ctx context.Context, batchID string) ([]triage.Run, error) {
	return s.store.ListTriageRuns(ctx, batchID)
}

// Run returns a single triage run by ID.
func (s *TriageService) Run(ctx context.Context, runID string) (*triage.Run, error) {
	return s.store.GetTriageRun(ctx, runID)
}

func (s *TriageService) resolveCriteria(req *triage.Criteria) (triage.Criteria, error) {
	if req == nil {
		return s.defaults, nil
	}
	if err := req.Validate(); err != nil {
		return triage.Criteria{}, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}
	return *req, nil
}

// runBulk admits the run through the shared pool, then executes it on a
// context detached from the request. A started run never cancels mid-flight;
// it completes or halts on the first store failure. On halt both the partial
// run record and the error are returned.
func (s *TriageService) runBulk(ctx context.Context, batchID string, req *triage.Criteria, kind triage.Kind) (*triage.Run, error) {
	crit, err := s.resolveCriteria(req)
	if err != nil {
		return nil, err
	}
	b, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	var run *triage.Run
	err = s.pool.Run(ctx, func() error {
		var runErr error
		run, runErr = s.execute(context.WithoutCancel(ctx), b, crit, kind)
		return runErr
	})
	return run, err
}

// execute performs one bulk run. The buckets are snapshotted once before any
// mutation and never re-evaluated; mutations are strictly sequential with at
// most one in flight.
func (s *TriageService) execute(ctx context.Context, b *batch.Batch, crit triage.Criteria, kind triage.Kind) (*triage.Run, error) {
	levels, err := s.store.ListLevels(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("list levels for triage: %w", err)
	}
	buckets := triage.Classify(triage.Pending(levels), crit)

	run := &triage.Run{
		ID:           uuid.New().String(),
		BatchID:      b.ID,
		Kind:         kind,
		Status:       triage.RunRunning,
		AutoApprove:  len(buckets.AutoApprove),
		ManualReview: len(buckets.ManualReview),
		AutoReject:   len(buckets.AutoReject),
	}
	if err := s.store.CreateTriageRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create triage run: %w", err)
	}

	ctx, span := otel.StartTriageSpan(ctx, run.ID, b.ID, string(kind))
	defer span.End()
	start := time.Now()

	s.publishStarted(ctx, run)
	if s.metrics != nil {
		s.metrics.TriageRuns.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(kind))))
	}

	total := 0
	if kind != triage.KindReject {
		total += len(buckets.AutoApprove)
	}
	if kind != triage.KindApprove {
		total += len(buckets.AutoReject)
	}

	// Approve pass first, then reject pass; the two are never interleaved.
	var passErr error
	if kind != triage.KindReject {
		passErr = s.executePass(ctx, run, buckets.AutoApprove, decision.ActionApprove, triage.ReasonAutoApproved, total)
	}
	if passErr == nil && kind != triage.KindApprove {
		passErr = s.executePass(ctx, run, buckets.AutoReject, decision.ActionReject, triage.ReasonAutoRejected, total)
	}

	if s.metrics != nil {
		s.metrics.TriageDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("kind", string(kind))))
	}

	if passErr != nil {
		span.RecordError(passErr)
		s.halt(ctx, run, passErr)
		s.workscope.Refresh(ctx, b.ID)
		return run, passErr
	}

	s.complete(ctx, run)
	s.workscope.Refresh(ctx, b.ID)

	if kind == triage.KindApply && len(buckets.ManualReview) == 0 {
		s.completeBatch(ctx, b, run.ID)
	}
	return run, nil
}

// executePass applies one verdict to each level in order. The processed
// counter only moves after a mutation returns successfully; the first failure
// stops the pass and completed mutations stay.
func (s *TriageService) executePass(ctx context.Context, run *triage.Run, levels []level.Level, action decision.Action, reason string, total int) error {
	for i := range levels {
		number := levels[i].Number

		var err error
		if action == decision.ActionApprove {
			err = s.store.ApproveLevel(ctx, run.BatchID, number, reason, decision.ActorAuto, run.ID)
		} else {
			err = s.store.RejectLevel(ctx, run.BatchID, number, reason, decision.ActorAuto, run.ID)
		}
		if err != nil {
			return fmt.Errorf("%s level %d: %w", action, number, err)
		}

		run.Processed++
		if err := s.store.UpdateTriageRunProgress(ctx, run.ID, run.Processed); err != nil {
			// The decision itself committed; a lagging progress row affects
			// only the run record, not the levels.
			slog.Warn("failed to persist triage progress", "run_id", run.ID, "error", err)
		}

		if s.metrics != nil {
			s.metrics.LevelsDecided.Add(ctx, 1, metric.WithAttributes(
				attribute.String("action", string(action)),
				attribute.String("actor", string(decision.ActorAuto)),
			))
		}

		s.publishDecided(ctx, run, number, action, reason)
		s.hub.BroadcastEvent(ctx, ws.EventTriageProgress, ws.TriageProgressEvent{
			BatchID:   run.BatchID,
			RunID:     run.ID,
			Kind:      string(run.Kind),
			Processed: run.Processed,
			Total:     total,
		})
	}
	return nil
}

func (s *TriageService) complete(ctx context.Context, run *triage.Run) {
	now := time.Now()
	run.Status = triage.RunCompleted
	run.FinishedAt = &now
	if err := s.store.FinishTriageRun(ctx, run.ID, triage.RunCompleted, run.Processed, ""); err != nil {
		slog.Error("failed to finish triage run", "run_id", run.ID, "error", err)
	}
	s.publishFinished(ctx, run)
}

func (s *TriageService) halt(ctx context.Context, run *triage.Run, cause error) {
	now := time.Now()
	run.Status = triage.RunHalted
	run.Error = cause.Error()
	run.FinishedAt = &now
	if err := s.store.FinishTriageRun(ctx, run.ID, triage.RunHalted, run.Processed, run.Error); err != nil {
		slog.Error("failed to finish halted triage run", "run_id", run.ID, "error", err)
	}

	s.hub.BroadcastEvent(ctx, ws.EventTriageHalted, ws.TriageHaltedEvent{
		BatchID:   run.BatchID,
		RunID:     run.ID,
		Processed: run.Processed,
		Error:     run.Error,
	})
	s.publishFinished(ctx, run)

	if s.metrics != nil {
		s.metrics.TriageHalted.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(run.Kind))))
	}
}

// completeBatch fires the completion signal for an apply run that left no
// levels needing manual review. The status transition in the store is
// best-effort; a conflict means another writer already completed the batch.
func (s *TriageService) completeBatch(ctx context.Context, b *batch.Batch, runID string) {
	if err := s.store.CompleteBatch(ctx, b.ID, b.Version); err != nil {
		slog.Warn("failed to mark batch completed", "batch_id", b.ID, "error", err)
	}

	s.hub.BroadcastEvent(ctx, ws.EventBatchCompleted, ws.BatchCompletedEvent{BatchID: b.ID})

	data, err := json.Marshal(messagequeue.BatchCompletedPayload{BatchID: b.ID, RunID: runID})
	if err != nil {
		slog.Error("failed to marshal batch completed payload", "batch_id", b.ID, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectBatchCompleted, data); err != nil {
		slog.Error("failed to publish batch completed", "batch_id", b.ID, "error", err)
	}
}

func (s *TriageService) publishStarted(ctx context.Context, run *triage.Run) {
	data, err := json.Marshal(messagequeue.TriageStartedPayload{
		RunID:        run.ID,
		BatchID:      run.BatchID,
		Kind:         string(run.Kind),
		AutoApprove:  run.AutoApprove,
		ManualReview: run.ManualReview,
		AutoReject:   run.AutoReject,
	})
	if err != nil {
		slog.Error("failed to marshal triage started payload", "run_id", run.ID, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectTriageStarted, data); err != nil {
		slog.Error("failed to publish triage started", "run_id", run.ID, "error", err)
	}
}

func (s *TriageService) publishFinished(ctx context.Context, run *triage.Run) {
	data, err := json.Marshal(messagequeue.TriageFinishedPayload{
		RunID:     run.ID,
		BatchID:   run.BatchID,
		Kind:      string(run.Kind),
		Status:    string(run.Status),
		Processed: run.Processed,
		Error:     run.Error,
	})
	if err != nil {
		slog.Error("failed to marshal triage finished payload", "run_id", run.ID, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectTriageFinished, data); err != nil {
		slog.Error("failed to publish triage finished", "run_id", run.ID, "error", err)
	}
}

func (s *TriageService) publishDecided(ctx context.Context, run *triage.Run, number int, action decision.Action, reason string) {
	data, err := json.Marshal(messagequeue.LevelDecidedPayload{
		BatchID:     run.BatchID,
		LevelNumber: number,
		Action:      string(action),
		Reason:      reason,
		Actor:       string(decision.ActorAuto),
		RunID:       run.ID,
	})
	if err != nil {
		slog.Error("failed to marshal level decided payload", "run_id", run.ID, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectLevelDecided, data); err != nil {
		slog.Error("failed to publish level decided", "run_id", run.ID, "number", number, "error", err)
	}
}
