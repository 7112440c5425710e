package messagequeue

// BatchCreatedPayload is the schema for batches.created messages.
type BatchCreatedPayload struct {
	BatchID     string `json:"batch_id"`
	Name        string `json:"name"`
	TotalLevels int    `json:"total_levels"`
}

// BatchCompletedPayload is the schema for batches.completed messages.
type BatchCompletedPayload struct {
	BatchID string `json:"batch_id"`
	RunID   string `json:"run_id,omitempty"`
}

// BatchDeletedPayload is the schema for batches.deleted messages.
type BatchDeletedPayload struct {
	BatchID string `json:"batch_id"`
}

// LevelDecidedPayload is the schema for levels.decided messages.
type LevelDecidedPayload struct {
	BatchID     string `json:"batch_id"`
	LevelNumber int    `json:"level_number"`
	Action      string `json:"action"`
	Reason      string `json:"reason"`
	Actor       string `json:"actor"`
	RunID       string `json:"run_id,omitempty"`
}

// LevelExportedPayload is the schema for levels.exported messages.
type LevelExportedPayload struct {
	BatchID     string `json:"batch_id"`
	LevelNumber int    `json:"level_number"`
}

// LevelsSeededPayload is the schema for levels.seeded messages.
type LevelsSeededPayload struct {
	BatchID string `json:"batch_id"`
	Count   int    `json:"count"`
}

// TriageStartedPayload is the schema for levels.triage.started messages.
type TriageStartedPayload struct {
	RunID        string `json:"run_id"`
	BatchID      string `json:"batch_id"`
	Kind         string `json:"kind"`
	AutoApprove  int    `json:"auto_approve"`
	ManualReview int    `json:"manual_review"`
	AutoReject   int    `json:"auto_reject"`
}

// TriageFinishedPayload is the schema for levels.triage.finished messages.
type TriageFinishedPayload struct {
	RunID     string `json:"run_id"`
	BatchID   string `json:"batch_id"`
	Kind      string `json:"kind"`
	Status    string `json:"status"`
	Processed int    `json:"processed"`
	Error     string `json:"error,omitempty"`
}
