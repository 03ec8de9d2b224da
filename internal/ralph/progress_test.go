package ralph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestProgressLog_SessionAndRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ralph", "progress.txt")
	p := NewProgressLog(path)

	if p.RunID == "" {
		t.Fatal("run id not assigned")
	}
	if err := p.StartSession(); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if err := p.Record(Record{
		Iteration: 1,
		FeatureID: "feat-1",
		Outcome:   OutcomeSuccess,
		Timestamp: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "## Session "+p.RunID) {
		t.Errorf("missing session header:\n%s", content)
	}
	if !strings.Contains(content, "iteration 1 feature=feat-1 outcome=success") {
		t.Errorf("missing record line:\n%s", content)
	}
}

func TestProgressLog_CountSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.txt")

	p := NewProgressLog(path)
	if got := p.CountSessions(); got != 0 {
		t.Errorf("sessions on fresh log = %d, want 0", got)
	}

	p.StartSession()
	NewProgressLog(path).StartSession()

	if got := p.CountSessions(); got != 2 {
		t.Errorf("sessions = %d, want 2", got)
	}
}

func TestProgressLog_Tail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.txt")
	p := NewProgressLog(path)
	for i := 1; i <= 5; i++ {
		p.Note("line %d", i)
	}

	tail := p.Tail(2)
	if len(tail) != 2 || tail[0] != "line 4" || tail[1] != "line 5" {
		t.Errorf("tail = %v", tail)
	}

	if got := p.Tail(100); len(got) != 5 {
		t.Errorf("tail larger than log = %d lines, want 5", len(got))
	}
}

func TestProgressLog_AppendOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.txt")
	p := NewProgressLog(path)
	p.Note("first")

	q := NewProgressLog(path)
	q.Note("second")

	data, _ := os.ReadFile(path)
	if string(data) != "first\nsecond\n" {
		t.Errorf("log = %q", data)
	}
}
