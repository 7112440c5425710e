package triage

import "time"

// Kind identifies which bulk pass a run performs.
type Kind string

const (
	KindApprove Kind = "approve"
	KindReject  Kind = "reject"
	KindApply   Kind = "apply"
)

// RunStatus represents the state of a bulk triage run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunHalted    RunStatus = "halted"
)

// Run records one bulk triage pass over a batch. The buckets are snapshotted
// once before mutation begins and never re-evaluated mid-run. Processed
// equals the number of mutations that have returned successfully; a halted
// run keeps the partial count, completed mutations are not rolled back.
type Run struct {
	ID           string     `json:"id"`
	BatchID      string     `json:"batch_id"`
	Kind         Kind       `json:"kind"`
	Status       RunStatus  `json:"status"`
	AutoApprove  int        `json:"auto_approve"`
	ManualReview int        `json:"manual_review"`
	AutoReject   int        `json:"auto_reject"`
	Processed    int        `json:"processed"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
