package ralph

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultProgressPath is where iteration history accumulates relative
// to the working directory.
const DefaultProgressPath = ".ralph/progress.txt"

// ProgressLog is the append-only iteration history shared between the
// loop and the agent. The loop writes a session header and one line per
// iteration; the agent appends free-form notes between them.
type ProgressLog struct {
	Path  string
	RunID string

	now func() time.Time
}

// NewProgressLog creates a log bound to path with a fresh run id.
func NewProgressLog(path string) *ProgressLog {
	return &ProgressLog{
		Path:  path,
		RunID: uuid.NewString(),
		now:   time.Now,
	}
}

// StartSession appends a session header. Call once per run before the
// first iteration.
func (p *ProgressLog) StartSession() error {
	header := fmt.Sprintf("\n## Session %s (%s)\n", p.RunID, p.now().Format(time.RFC3339))
	return p.append(header)
}

// Record appends one iteration line.
func (p *ProgressLog) Record(rec Record) error {
	line := fmt.Sprintf("[%s] iteration %d feature=%s outcome=%s\n",
		rec.Timestamp.Format(time.RFC3339), rec.Iteration, rec.FeatureID, rec.Outcome)
	return p.append(line)
}

// Note appends a free-form line, used for terminal summaries.
func (p *ProgressLog) Note(format string, args ...any) error {
	return p.append(fmt.Sprintf(format, args...) + "\n")
}

func (p *ProgressLog) append(s string) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("creating progress dir: %w", err)
	}
	f, err := os.OpenFile(p.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening progress log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(s); err != nil {
		return fmt.Errorf("writing progress log: %w", err)
	}
	return nil
}

// CountSessions returns how many session headers the log contains.
// Used by the init report to tell a fresh run from a resumed one.
func (p *ProgressLog) CountSessions() int {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return 0
	}
	return strings.Count(string(data), "\n## Session ")
}

// Tail returns the last n lines of the log, or the whole log if it has
// fewer.
func (p *ProgressLog) Tail(n int) []string {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
