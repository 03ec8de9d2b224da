package ralph

import (
	"context"
	"os/exec"
	"time"

	"ralph/internal/prd"
)

// CommandRunner executes a shell command and returns combined output.
// Tests inject a fake; the default shells out via sh -c.
type CommandRunner func(ctx context.Context, dir, command string) ([]byte, error)

func defaultCommandRunner(ctx context.Context, dir, command string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// DryRun previews a run without invoking the agent: it prints the
// document summary, the feature that would be selected, the rendered
// prompt length, and executes the verification commands to show their
// current state.
type DryRun struct {
	Printer *Printer
	WorkDir string
	Runner  CommandRunner
}

// Execute prints the preview. Verification failures are reported but do
// not produce an error; a dry run never fails the process.
func (d *DryRun) Execute(ctx context.Context, doc *prd.Document, prompt string) {
	runner := d.Runner
	if runner == nil {
		runner = defaultCommandRunner
	}

	d.Printer.Header("Dry run: " + doc.Project.Name)
	counts := doc.StatusCounts()
	d.Printer.Log("features: %d pending, %d in-progress, %d complete, %d blocked",
		counts.Pending, counts.InProgress, counts.Complete, counts.Blocked)

	if f := selectFeature(doc); f != nil {
		d.Printer.Log("would attempt: %s (%s)", f.ID, f.Description)
	} else {
		d.Printer.Success("no selectable feature; nothing to do")
	}
	d.Printer.Dim("rendered prompt: %d bytes", len(prompt))

	if len(doc.Verification.Commands) == 0 {
		d.Printer.Dim("no verification commands configured")
		return
	}

	d.Printer.Log("verification commands:")
	for _, vc := range doc.Verification.Commands {
		start := time.Now()
		out, err := runner(ctx, d.WorkDir, vc.Command)
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			d.Printer.Error("  %s %s (%s): %v", IconFailed, vc.Name, elapsed, err)
			if len(out) > 0 {
				d.Printer.Dim("    %s", lastLine(out))
			}
			continue
		}
		d.Printer.Success("  %s %s (%s)", IconSuccess, vc.Name, elapsed)
	}
}

func lastLine(out []byte) string {
	s := string(out)
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '\n' {
			return s[i+1:]
		}
	}
	return s
}
