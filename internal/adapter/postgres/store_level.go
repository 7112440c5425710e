package postgres

import (
	"context"
	"fmt"

	"github.com/playforge/levelboard/internal/domain"
	"github.com/playforge/levelboard/internal/domain/decision"
	"github.com/playforge/levelboard/internal/domain/level"
)

const levelColumns = `id, batch_id, number, status, match_score, grade, playtest_required, version, created_at, updated_at`

// --- Levels ---

func (s *Store) ListLevels(ctx context.Context, batchID string) ([]level.Level, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+levelColumns+` FROM levels WHERE batch_id = $1 ORDER BY number ASC`, batchID)
	if err != nil {
		return nil, mapError(err, "list levels")
	}
	defer rows.Close()

	var levels []level.Level
	for rows.Next() {
		l, err := scanLevel(rows)
		if err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return orEmpty(levels), rows.Err()
}

func (s *Store) GetLevel(ctx context.Context, batchID string, number int) (*level.Level, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+levelColumns+` FROM levels WHERE batch_id = $1 AND number = $2`, batchID, number)

	l, err := scanLevel(row)
	if err != nil {
		return nil, mapError(err, "get level %d", number)
	}
	return &l, nil
}

// SeedLevels inserts levels numbered 1..count with status "generated".
// Numbers that already exist in the batch are skipped; the returned count
// covers only freshly inserted rows.
func (s *Store) SeedLevels(ctx context.Context, batchID string, count int) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO levels (batch_id, number, status)
		 SELECT $1, n, $3 FROM generate_series(1, $2::int) AS n
		 ON CONFLICT (batch_id, number) DO NOTHING`,
		batchID, count, level.StatusGenerated)
	if err != nil {
		return 0, mapError(err, "seed levels")
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) UpdateLevel(ctx context.Context, batchID string, number int, req level.UpdateRequest) (*level.Level, error) {
	l, err := s.GetLevel(ctx, batchID, number)
	if err != nil {
		return nil, err
	}
	l.Apply(req)

	tag, err := s.pool.Exec(ctx,
		`UPDATE levels SET status = $3, match_score = $4, grade = $5, playtest_required = $6, version = version + 1, updated_at = now()
		 WHERE batch_id = $1 AND number = $2 AND version = $7`,
		batchID, number, l.Status, l.MatchScore, l.Grade, l.PlaytestRequired, l.Version)
	if err != nil {
		return nil, mapError(err, "update level %d", number)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("update level %d: %w", number, domain.ErrConflict)
	}
	l.Version++
	return l, nil
}

func (s *Store) ApproveLevel(ctx context.Context, batchID string, number int, reason string, actor decision.Actor, runID string) error {
	return s.decideLevel(ctx, batchID, number, level.StatusApproved, decision.ActionApprove, reason, actor, runID)
}

func (s *Store) RejectLevel(ctx context.Context, batchID string, number int, reason string, actor decision.Actor, runID string) error {
	return s.decideLevel(ctx, batchID, number, level.StatusRejected, decision.ActionReject, reason, actor, runID)
}

func (s *Store) ReworkLevel(ctx context.Context, batchID string, number int, reason string) error {
	return s.decideLevel(ctx, batchID, number, level.StatusNeedsRework, decision.ActionRework, reason, decision.ActorManual, "")
}

// decideLevel applies a status transition and records the decision in the
// same transaction. The status write has no precondition, so repeating a
// transition on an already-transitioned level succeeds and only adds a
// fresh audit row.
func (s *Store) decideLevel(ctx context.Context, batchID string, number int, status level.Status, action decision.Action, reason string, actor decision.Actor, runID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	tag, err := tx.Exec(ctx,
		`UPDATE levels SET status = $3, version = version + 1, updated_at = now()
		 WHERE batch_id = $1 AND number = $2`,
		batchID, number, status)
	if err := execExpectOne(tag, err, "%s level %d", action, number); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO decisions (batch_id, level_number, action, reason, actor, run_id)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		batchID, number, action, reason, actor, nullIfEmpty(runID))
	if err != nil {
		return mapError(err, "record decision for level %d", number)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit decision: %w", err)
	}
	return nil
}

// MarkExported flips an approved level to exported. Repeating the export is
// a no-op; exporting a level that was never approved is a conflict.
func (s *Store) MarkExported(ctx context.Context, batchID string, number int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE levels SET status = $3, version = version + 1, updated_at = now()
		 WHERE batch_id = $1 AND number = $2 AND status IN ($4, $3)`,
		batchID, number, level.StatusExported, level.StatusApproved)
	if err != nil {
		return mapError(err, "mark level %d exported", number)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark level %d exported: %w", number, domain.ErrConflict)
	}
	return nil
}

func scanLevel(row scannable) (level.Level, error) {
	var l level.Level
	err := row.Scan(&l.ID, &l.BatchID, &l.Number, &l.Status, &l.MatchScore, &l.Grade, &l.PlaytestRequired, &l.Version, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return l, err
	}
	return l, nil
}
