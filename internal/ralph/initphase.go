package ralph

import (
	"ralph/internal/git"
	"ralph/internal/prd"
)

// InitReport summarizes the working tree and document state before the
// loop starts.
type InitReport struct {
	GitRepo       bool
	Branch        string
	Uncommitted   int
	RecentCommits []string
	Counts        prd.StatusCounts
	Sessions      int
}

// CheckInit gathers the pre-run report: git state of workDir, feature
// tallies, and how many prior sessions the progress log records.
func CheckInit(workDir string, doc *prd.Document, progress *ProgressLog, runner git.Runner) *InitReport {
	rep := &InitReport{
		Counts:   doc.StatusCounts(),
		Sessions: progress.CountSessions(),
	}

	st := git.GetStatus(runner, workDir)
	if st == nil {
		return rep
	}
	rep.GitRepo = true
	rep.Branch = st.Branch
	rep.Uncommitted = st.UncommittedChanges

	commits, err := git.RecentCommits(runner, workDir, 5)
	if err == nil {
		rep.RecentCommits = commits
	}
	return rep
}

// Print renders the report through the printer.
func (r *InitReport) Print(p *Printer) {
	p.Header("Pre-run check")
	if r.GitRepo {
		p.Log("branch: %s (%d uncommitted changes)", r.Branch, r.Uncommitted)
		for _, c := range r.RecentCommits {
			p.Dim("  %s", c)
		}
	} else {
		p.Warn("not a git repository")
	}
	p.Log("features: %d pending, %d in-progress, %d complete, %d blocked",
		r.Counts.Pending, r.Counts.InProgress, r.Counts.Complete, r.Counts.Blocked)
	if r.Sessions > 0 {
		p.Dim("resuming after %d previous session(s)", r.Sessions)
	}
}
