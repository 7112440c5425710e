// Package level defines the Level domain entity.
package level

import (
	"fmt"
	"time"
)

// Status represents the pipeline state of a generated level.
type Status string

const (
	StatusGenerated   Status = "generated"
	StatusNeedsRework Status = "needs_rework"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusExported    Status = "exported"
)

// Terminal reports whether the status is final for triage purposes.
// Terminal levels are excluded from the pending pool before classification.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusExported:
		return true
	}
	return false
}

// Grade is a quality label assigned to a generated level, S best through D
// worst. The set is open-ended: unknown labels are carried through untouched
// and simply never match any configured triage grade set.
type Grade string

const (
	GradeS Grade = "S"
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// Level represents one generated production level within a batch.
type Level struct {
	ID               string    `json:"id"`
	BatchID          string    `json:"batch_id"`
	Number           int       `json:"number"`
	Status           Status    `json:"status"`
	MatchScore       *int      `json:"match_score,omitempty"`
	Grade            Grade     `json:"grade"`
	PlaytestRequired bool      `json:"playtest_required"`
	Version          int       `json:"version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Score returns the match score, treating an absent score as 0.
func (l *Level) Score() int {
	if l.MatchScore == nil {
		return 0
	}
	return *l.MatchScore
}

// UpdateRequest is the input for updating a level's review fields.
type UpdateRequest struct {
	MatchScore       *int    `json:"match_score,omitempty"`
	Grade            *Grade  `json:"grade,omitempty"`
	PlaytestRequired *bool   `json:"playtest_required,omitempty"`
	Status           *Status `json:"status,omitempty"`
}

// Validate checks if the UpdateRequest is valid.
func (r *UpdateRequest) Validate() error {
	if r.MatchScore != nil && (*r.MatchScore < 0 || *r.MatchScore > 100) {
		return fmt.Errorf("match_score must be in [0,100], got %d", *r.MatchScore)
	}
	if r.Status != nil {
		switch *r.Status {
		case StatusGenerated, StatusNeedsRework, StatusApproved, StatusRejected, StatusExported:
		default:
			return fmt.Errorf("unknown status %q", *r.Status)
		}
	}
	return nil
}

// Apply merges the non-nil fields from an UpdateRequest into a Level.
func (l *Level) Apply(req UpdateRequest) {
	if req.MatchScore != nil {
		l.MatchScore = req.MatchScore
	}
	if req.Grade != nil {
		l.Grade = *req.Grade
	}
	if req.PlaytestRequired != nil {
		l.PlaytestRequired = *req.PlaytestRequired
	}
	if req.Status != nil {
		l.Status = *req.Status
	}
}

// SeedRequest is the input for seeding a batch with freshly generated levels.
type SeedRequest struct {
	Count int `json:"count"`
}

// Validate checks if the SeedRequest is valid.
func (r *SeedRequest) Validate() error {
	if r.Count < 1 {
		return fmt.Errorf("count must be positive, got %d", r.Count)
	}
	return nil
}
