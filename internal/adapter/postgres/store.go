package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playforge/levelboard/internal/domain"
	"github.com/playforge/levelboard/internal/domain/batch"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Batches ---

func (s *Store) ListBatches(ctx context.Context) ([]batch.Batch, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, total_levels, status, completed_at, version, created_at, updated_at
		 FROM batches ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var batches []batch.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return orEmpty(batches), rows.Err()
}

func (s *Store) GetBatch(ctx context.Context, id string) (*batch.Batch, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, total_levels, status, completed_at, version, created_at, updated_at
		 FROM batches WHERE id = $1`, id)

	b, err := scanBatch(row)
	if err != nil {
		return nil, mapError(err, "get batch %s", id)
	}
	return &b, nil
}

func (s *Store) CreateBatch(ctx context.Context, req batch.CreateRequest) (*batch.Batch, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO batches (name, total_levels)
		 VALUES ($1, $2)
		 RETURNING id, name, total_levels, status, completed_at, version, created_at, updated_at`,
		req.Name, req.TotalLevels)

	b, err := scanBatch(row)
	if err != nil {
		return nil, mapError(err, "create batch")
	}
	return &b, nil
}

func (s *Store) DeleteBatch(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM batches WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete batch %s", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete batch %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) CompleteBatch(ctx context.Context, id string, version int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE batches SET status = $2, completed_at = now(), version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $3`,
		id, batch.StatusCompleted, version)
	if err != nil {
		return mapError(err, "complete batch %s", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete batch %s: %w", id, domain.ErrConflict)
	}
	return nil
}

func scanBatch(row scannable) (batch.Batch, error) {
	var b batch.Batch
	err := row.Scan(&b.ID, &b.Name, &b.TotalLevels, &b.Status, &b.CompletedAt, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return b, err
	}
	return b, nil
}
