package postgres

import (
	"context"

	"github.com/playforge/levelboard/internal/domain/decision"
	"github.com/playforge/levelboard/internal/domain/triage"
)

const triageRunColumns = `id, batch_id, kind, status, auto_approve, manual_review, auto_reject, processed, error, started_at, finished_at`

// --- Triage runs ---

func (s *Store) CreateTriageRun(ctx context.Context, run *triage.Run) error {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO triage_runs (id, batch_id, kind, status, auto_approve, manual_review, auto_reject, processed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING started_at`,
		run.ID, run.BatchID, run.Kind, run.Status, run.AutoApprove, run.ManualReview, run.AutoReject, run.Processed)
	if err := row.Scan(&run.StartedAt); err != nil {
		return mapError(err, "create triage run")
	}
	return nil
}

func (s *Store) UpdateTriageRunProgress(ctx context.Context, runID string, processed int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE triage_runs SET processed = $2 WHERE id = $1`, runID, processed)
	return execExpectOne(tag, err, "update triage run %s progress", runID)
}

func (s *Store) FinishTriageRun(ctx context.Context, runID string, status triage.RunStatus, processed int, errText string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE triage_runs SET status = $2, processed = $3, error = $4, finished_at = now()
		 WHERE id = $1`,
		runID, status, processed, errText)
	return execExpectOne(tag, err, "finish triage run %s", runID)
}

func (s *Store) GetTriageRun(ctx context.Context, runID string) (*triage.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+triageRunColumns+` FROM triage_runs WHERE id = $1`, runID)

	r, err := scanTriageRun(row)
	if err != nil {
		return nil, mapError(err, "get triage run %s", runID)
	}
	return &r, nil
}

func (s *Store) ListTriageRuns(ctx context.Context, batchID string) ([]triage.Run, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+triageRunColumns+` FROM triage_runs WHERE batch_id = $1 ORDER BY started_at DESC`, batchID)
	if err != nil {
		return nil, mapError(err, "list triage runs")
	}
	defer rows.Close()

	var runs []triage.Run
	for rows.Next() {
		r, err := scanTriageRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return orEmpty(runs), rows.Err()
}

// --- Decisions ---

func (s *Store) ListDecisions(ctx context.Context, batchID string) ([]decision.Decision, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, batch_id, level_number, action, reason, actor, COALESCE(run_id::text, ''), created_at
		 FROM decisions WHERE batch_id = $1 ORDER BY created_at DESC, id DESC`, batchID)
	if err != nil {
		return nil, mapError(err, "list decisions")
	}
	defer rows.Close()

	var decisions []decision.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return orEmpty(decisions), rows.Err()
}

func scanTriageRun(row scannable) (triage.Run, error) {
	var r triage.Run
	err := row.Scan(
		&r.ID, &r.BatchID, &r.Kind, &r.Status,
		&r.AutoApprove, &r.ManualReview, &r.AutoReject,
		&r.Processed, &r.Error, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return r, err
	}
	return r, nil
}

func scanDecision(row scannable) (decision.Decision, error) {
	var d decision.Decision
	err := row.Scan(&d.ID, &d.BatchID, &d.LevelNumber, &d.Action, &d.Reason, &d.Actor, &d.RunID, &d.CreatedAt)
	if err != nil {
		return d, err
	}
	return d, nil
}
