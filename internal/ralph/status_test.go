package ralph

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestStatusWriter_WriteAndClear(t *testing.T) {
	dir := t.TempDir()
	w := NewStatusWriter(dir)

	var status LoopStatus
	status.State = "running"
	status.RunID = "run-1"
	status.Iteration = 3
	status.MaxIterations = 10
	status.CurrentFeature = "feat-2"
	status.Tallies.Completed = 2
	status.Features.Pending = 4

	if err := w.Write(status); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ".ralph-status.json"))
	if err != nil {
		t.Fatalf("reading status file: %v", err)
	}

	var got LoopStatus
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.State != "running" || got.Iteration != 3 || got.CurrentFeature != "feat-2" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Tallies.Completed != 2 || got.Features.Pending != 4 {
		t.Errorf("nested counts lost: %+v", got)
	}

	if err := w.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".ralph-status.json")); !os.IsNotExist(err) {
		t.Error("status file still present after Clear")
	}
}

func TestStatusWriter_ClearIdempotent(t *testing.T) {
	w := NewStatusWriter(t.TempDir())
	if err := w.Clear(); err != nil {
		t.Errorf("clear on missing file: %v", err)
	}
}

func TestStatusWriter_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	w := NewStatusWriter(dir)
	if err := w.Write(LoopStatus{State: "running"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("dir entries = %d, want 1", len(entries))
	}
}
