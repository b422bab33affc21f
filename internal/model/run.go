package model

import "time"

// RunStatus is the lifecycle state of a discovery run as seen by API
// clients. A run always reaches a terminal status (Completed or Failed);
// callers polling the status boundary are never left waiting forever.
type RunStatus string

// Run lifecycle states.
const (
	// StatusQueued means the run was accepted but has not started.
	StatusQueued RunStatus = "queued"

	// StatusRunning means the discovery loop is executing.
	StatusRunning RunStatus = "running"

	// StatusCompleted means the run finished and its report is available.
	StatusCompleted RunStatus = "completed"

	// StatusFailed means orchestration itself failed. Results collected
	// before the failure are preserved and still retrievable.
	StatusFailed RunStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// RunOptions are the caller-supplied switches for a discovery run.
type RunOptions struct {
	// EnableClearnet enables discovery over the open web.
	EnableClearnet bool `json:"enable_clearnet"`

	// EnableDarknet enables discovery over Tor. The run degrades to zero
	// darknet results when no Tor proxy is reachable; it never fails the run.
	EnableDarknet bool `json:"enable_darknet"`

	// CrawlAuthors expands the search frontier to the recent pastes of
	// every author discovered in a qualifying result.
	CrawlAuthors bool `json:"crawl_authors"`
}

// RunRecord tracks one discovery run for the status and retrieval
// boundaries. The record is owned by the run manager; the discovery engine
// itself never touches it.
type RunRecord struct {
	// ID is the opaque run identifier returned at submission time.
	ID string `json:"run_id"`

	// Status is the current lifecycle state.
	Status RunStatus `json:"status"`

	// Progress is a coarse completion fraction in [0, 1]. It moves through
	// fixed checkpoints (0.1 started, 0.3 fetching, 0.9 aggregating, 1.0
	// done) rather than tracking per-location progress.
	Progress float64 `json:"progress"`

	// TotalResults is filled in once the run completes.
	TotalResults int `json:"total_results"`

	// Seeds are the seed locations the run was submitted with.
	Seeds []string `json:"seeds,omitempty"`

	// Options are the submitted run switches.
	Options RunOptions `json:"options"`

	// CreatedAt is when the run was accepted.
	CreatedAt time.Time `json:"created_at"`

	// CompletedAt is when the run reached a terminal status.
	CompletedAt time.Time `json:"completed_at,omitzero"`

	// Error holds the terminal error message for failed runs.
	Error string `json:"error,omitempty"`
}
