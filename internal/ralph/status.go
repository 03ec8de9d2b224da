package ralph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoopStatus is the snapshot of a running loop, written to a JSON file
// after every iteration so external tooling can poll progress.
type LoopStatus struct {
	// State is "running" or "completed".
	State string `json:"state"`

	// RunID identifies this loop run.
	RunID string `json:"run_id"`

	// Current iteration number (1-indexed).
	Iteration int `json:"iteration"`

	// MaxIterations is the configured maximum (0 = unlimited).
	MaxIterations int `json:"max_iterations"`

	// CurrentFeature is the feature currently being attempted.
	CurrentFeature string `json:"current_feature,omitempty"`

	// Elapsed is total elapsed time since the loop started (in nanoseconds).
	Elapsed int64 `json:"elapsed_ns"`

	// Tallies are running counts of iteration outcomes.
	Tallies struct {
		Completed   int `json:"completed"`
		Failed      int `json:"failed"`
		RateLimited int `json:"rate_limited"`
		TimedOut    int `json:"timed_out"`
	} `json:"tallies"`

	// Features are per-status counts from the document.
	Features struct {
		Pending    int `json:"pending"`
		InProgress int `json:"in_progress"`
		Complete   int `json:"complete"`
		Blocked    int `json:"blocked"`
	} `json:"features"`

	// StopReason is set only when State is "completed".
	StopReason string `json:"stop_reason,omitempty"`
}

// StatusWriter manages writing loop status updates to a file.
type StatusWriter struct {
	path string
}

// NewStatusWriter creates a StatusWriter rooted at workdir.
func NewStatusWriter(workdir string) *StatusWriter {
	return &StatusWriter{
		path: filepath.Join(workdir, ".ralph-status.json"),
	}
}

// Write updates the status file atomically: write to a temp file, then
// rename, so a poller never observes a partial write.
func (w *StatusWriter) Write(status LoopStatus) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	tmpPath := w.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// Clear removes the status file.
func (w *StatusWriter) Clear() error {
	if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove status file: %w", err)
	}
	return nil
}
