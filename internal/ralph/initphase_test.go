package ralph

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"ralph/internal/prd"
)

func TestCheckInit_GitRepo(t *testing.T) {
	runner := func(dir string, args ...string) ([]byte, error) {
		switch args[0] {
		case "rev-parse":
			return []byte(".git\n"), nil
		case "branch":
			return []byte("main\n"), nil
		case "status":
			return []byte(" M internal/loop.go\n?? notes.txt\n"), nil
		case "log":
			return []byte("abc1234 add loop\ndef5678 initial commit\n"), nil
		}
		return nil, errors.New("unexpected git command")
	}

	doc := loopDoc()
	progress := NewProgressLog(filepath.Join(t.TempDir(), "progress.txt"))
	progress.StartSession()

	rep := CheckInit(t.TempDir(), doc, progress, runner)
	if !rep.GitRepo || rep.Branch != "main" || rep.Uncommitted != 2 {
		t.Errorf("report = %+v", rep)
	}
	if len(rep.RecentCommits) != 2 {
		t.Errorf("commits = %v", rep.RecentCommits)
	}
	if rep.Sessions != 1 {
		t.Errorf("sessions = %d, want 1", rep.Sessions)
	}
	if rep.Counts.Pending != 2 {
		t.Errorf("pending = %d, want 2", rep.Counts.Pending)
	}

	var buf bytes.Buffer
	rep.Print(NewPrinter(&buf))
	out := buf.String()
	if !strings.Contains(out, "main") || !strings.Contains(out, "2 pending") {
		t.Errorf("printed report:\n%s", out)
	}
}

func TestCheckInit_NotARepo(t *testing.T) {
	runner := func(dir string, args ...string) ([]byte, error) {
		return nil, errors.New("not a git repository")
	}
	doc := &prd.Document{Project: prd.Project{Name: "demo"}}
	progress := NewProgressLog(filepath.Join(t.TempDir(), "progress.txt"))

	rep := CheckInit(t.TempDir(), doc, progress, runner)
	if rep.GitRepo {
		t.Error("reported a git repo where none exists")
	}

	var buf bytes.Buffer
	rep.Print(NewPrinter(&buf))
	if !strings.Contains(buf.String(), "not a git repository") {
		t.Errorf("printed report:\n%s", buf.String())
	}
}
