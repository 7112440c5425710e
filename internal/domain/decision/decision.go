// Package decision defines the audit record written for every level verdict.
package decision

import "time"

// Action identifies what was done to a level.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionRework  Action = "rework"
)

// Actor identifies who drove the decision.
type Actor string

const (
	ActorAuto   Actor = "auto"
	ActorManual Actor = "manual"
)

// Decision is an append-only audit row. Re-approving an already-approved
// level records a fresh row; the level itself does not change.
type Decision struct {
	ID          string    `json:"id"`
	BatchID     string    `json:"batch_id"`
	LevelNumber int       `json:"level_number"`
	Action      Action    `json:"action"`
	Reason      string    `json:"reason"`
	Actor       Actor     `json:"actor"`
	RunID       string    `json:"run_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
