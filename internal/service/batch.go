// Package service implements business logic on top of ports.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/playforge/levelboard/internal/domain"
	"github.com/playforge/levelboard/internal/domain/batch"
	"github.com/playforge/levelboard/internal/port/database"
	"github.com/playforge/levelboard/internal/port/messagequeue"
)

// BatchService handles batch lifecycle logic including NATS notifications.
type BatchService struct {
	store database.Store
	queue messagequeue.Queue
}

// NewBatchService creates a new BatchService.
func NewBatchService(store database.Store, queue messagequeue.Queue) *BatchService {
	return &BatchService{store: store, queue: queue}
}

// List returns all batches, newest first.
func (s *BatchService) List(ctx context.Context) ([]batch.Batch, error) {
	return s.store.ListBatches(ctx)
}

// Get returns a batch by ID.
func (s *BatchService) Get(ctx context.Context, id string) (*batch.Batch, error) {
	return s.store.GetBatch(ctx, id)
}

// Create creates a batch, saves it to DB, and announces it on NATS.
func (s *BatchService) Create(ctx context.Context, req batch.CreateRequest) (*batch.Batch, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	b, err := s.store.CreateBatch(ctx, req)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(messagequeue.BatchCreatedPayload{
		BatchID:     b.ID,
		Name:        b.Name,
		TotalLevels: b.TotalLevels,
	})
	if err != nil {
		return b, fmt.Errorf("marshal batch created payload: %w", err)
	}

	if err := s.queue.Publish(ctx, messagequeue.SubjectBatchCreated, data); err != nil {
		slog.Error("failed to publish batch created", "batch_id", b.ID, "error", err)
		// Batch is saved in DB, so we return it even if queue publish fails.
	}

	return b, nil
}

// Delete removes a batch and all its levels, then announces the deletion.
func (s *BatchService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteBatch(ctx, id); err != nil {
		return err
	}

	data, err := json.Marshal(messagequeue.BatchDeletedPayload{BatchID: id})
	if err != nil {
		return fmt.Errorf("marshal batch deleted payload: %w", err)
	}

	if err := s.queue.Publish(ctx, messagequeue.SubjectBatchDeleted, data); err != nil {
		slog.Error("failed to publish batch deleted", "batch_id", id, "error", err)
	}

	return nil
}
