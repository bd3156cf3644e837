package models

import "time"

// RunStatus is the JSON document written to the status file after each ingestion run.
type RunStatus struct {
	RunID       string          `json:"run_id"`
	InputDir    string          `json:"input_dir"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Total       int             `json:"total_files"`
	Completed   int             `json:"completed_files"`
	Skipped     int             `json:"skipped_files"`
	Failed      int             `json:"failed_files"`
	Messages    int64           `json:"messages_committed"`
	Failures    []FailureStatus `json:"failures,omitempty"`
	LastUpdated time.Time       `json:"last_updated"`
}

// FailureStatus describes one failed file in a RunStatus.
type FailureStatus struct {
	File     string `json:"file"`
	Batches  int    `json:"committed_batches"`
	Messages int64  `json:"committed_messages"`
	Error    string `json:"error"`
}
