// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/playforge/levelboard/internal/domain/batch"
	"github.com/playforge/levelboard/internal/domain/decision"
	"github.com/playforge/levelboard/internal/domain/level"
	"github.com/playforge/levelboard/internal/domain/triage"
)

// Store is the port interface for database operations.
type Store interface {
	// Batches
	ListBatches(ctx context.Context) ([]batch.Batch, error)
	GetBatch(ctx context.Context, id string) (*batch.Batch, error)
	CreateBatch(ctx context.Context, req batch.CreateRequest) (*batch.Batch, error)
	DeleteBatch(ctx context.Context, id string) error
	// CompleteBatch marks the batch completed using optimistic locking on version.
	CompleteBatch(ctx context.Context, id string, version int) error

	// Levels
	ListLevels(ctx context.Context, batchID string) ([]level.Level, error)
	GetLevel(ctx context.Context, batchID string, number int) (*level.Level, error)
	SeedLevels(ctx context.Context, batchID string, count int) (int, error)
	UpdateLevel(ctx context.Context, batchID string, number int, req level.UpdateRequest) (*level.Level, error)
	// ApproveLevel and RejectLevel are idempotent: repeating the transition on
	// a level already in the target status succeeds without side effects
	// beyond a fresh audit row.
	ApproveLevel(ctx context.Context, batchID string, number int, reason string, actor decision.Actor, runID string) error
	RejectLevel(ctx context.Context, batchID string, number int, reason string, actor decision.Actor, runID string) error
	ReworkLevel(ctx context.Context, batchID string, number int, reason string) error
	MarkExported(ctx context.Context, batchID string, number int) error

	// Decisions
	ListDecisions(ctx context.Context, batchID string) ([]decision.Decision, error)

	// Triage runs
	CreateTriageRun(ctx context.Context, run *triage.Run) error
	UpdateTriageRunProgress(ctx context.Context, runID string, processed int) error
	FinishTriageRun(ctx context.Context, runID string, status triage.RunStatus, processed int, errText string) error
	GetTriageRun(ctx context.Context, runID string) (*triage.Run, error)
	ListTriageRuns(ctx context.Context, batchID string) ([]triage.Run, error)
}
