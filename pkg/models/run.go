package models

import "time"

// RunStatus is the outcome of a run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunConfig mirrors the normalized generator settings a run used.
type RunConfig struct {
	Files       int    `json:"num_of_files"`
	Buckets     int    `json:"num_of_buckets"`
	Destination string `json:"destination_path"`
	Delimiter   string `json:"delimiter"`
	Compress    bool   `json:"compress"`
	Seed        int64  `json:"seed"`
}

// Run is a recorded generation.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     RunStatus `json:"status"`
	Error      string    `json:"error,omitempty"`
	Config     RunConfig `json:"config"`
	Result     Result    `json:"result"`

	// Computed fields (not stored in database).
	FileCount int `json:"file_count"`
	TotalRows int `json:"total_rows"`
}

// RunListResponse represents a list of runs.
type RunListResponse struct {
	Runs []Run `json:"runs"`
}
