// Package triage partitions pending levels into auto-approve, manual-review
// and auto-reject buckets under configurable threshold rules.
package triage

import (
	"fmt"

	"github.com/playforge/levelboard/internal/domain/level"
)

// Audit reasons written with every automated decision.
const (
	ReasonAutoApproved = "auto-approved"
	ReasonAutoRejected = "auto-rejected: low match score"
)

// Criteria configures the classification thresholds.
type Criteria struct {
	MinMatchScore          int           `json:"min_match_score" yaml:"min_match_score"`
	AutoApproveGrades      []level.Grade `json:"auto_approve_grades" yaml:"auto_approve_grades"`
	AutoRejectGrades       []level.Grade `json:"auto_reject_grades" yaml:"auto_reject_grades"`
	MaxMatchScoreForReject int           `json:"max_match_score_for_reject" yaml:"max_match_score_for_reject"`
}

// DefaultCriteria returns the thresholds used when a request carries none.
func DefaultCriteria() Criteria {
	return Criteria{
		MinMatchScore:          80,
		AutoApproveGrades:      []level.Grade{level.GradeS, level.GradeA},
		AutoRejectGrades:       []level.Grade{level.GradeD},
		MaxMatchScoreForReject: 60,
	}
}

// Validate checks if the criteria thresholds are well-formed.
func (c *Criteria) Validate() error {
	if c.MinMatchScore < 0 || c.MinMatchScore > 100 {
		return fmt.Errorf("min_match_score must be in [0,100], got %d", c.MinMatchScore)
	}
	if c.MaxMatchScoreForReject < 0 || c.MaxMatchScoreForReject > 100 {
		return fmt.Errorf("max_match_score_for_reject must be in [0,100], got %d", c.MaxMatchScoreForReject)
	}
	return nil
}

func gradeIn(grades []level.Grade, g level.Grade) bool {
	for _, cand := range grades {
		if cand == g {
			return true
		}
	}
	return false
}
