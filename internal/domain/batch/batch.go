// Package batch defines the Batch domain entity.
package batch

import (
	"fmt"
	"time"
)

// Status represents the lifecycle state of a batch.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Batch is a named group of production levels processed together.
type Batch struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	TotalLevels int        `json:"total_levels"`
	Status      Status     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateRequest holds the fields needed to create a new batch.
type CreateRequest struct {
	Name        string `json:"name"`
	TotalLevels int    `json:"total_levels"`
}

// Validate checks if the CreateRequest is valid.
func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.TotalLevels < 1 {
		return fmt.Errorf("total_levels must be positive, got %d", r.TotalLevels)
	}
	return nil
}
