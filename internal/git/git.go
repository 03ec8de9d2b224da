// Package git provides utilities for executing git commands during the
// init phase and PRD change validation.
package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes git commands. The default implementation uses
// exec.Command. Tests inject a runner that returns canned output.
type Runner func(dir string, args ...string) ([]byte, error)

// Run executes a git command in the given directory.
func Run(dir string, args ...string) ([]byte, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	return cmd.Output()
}

// Status summarizes the state of the working tree.
type Status struct {
	Branch             string
	UncommittedChanges int
}

// IsRepo reports whether dir is inside a git repository.
func IsRepo(run Runner, dir string) bool {
	if run == nil {
		run = Run
	}
	_, err := run(dir, "rev-parse", "--git-dir")
	return err == nil
}

// GetStatus returns branch and dirtiness information, or nil when dir is
// not a git repository.
func GetStatus(run Runner, dir string) *Status {
	if run == nil {
		run = Run
	}
	if !IsRepo(run, dir) {
		return nil
	}
	branch := "unknown"
	if out, err := run(dir, "branch", "--show-current"); err == nil {
		branch = parseBranch(string(out))
	}
	changes := 0
	if out, err := run(dir, "status", "--porcelain"); err == nil {
		changes = parsePorcelain(string(out))
	}
	return &Status{Branch: branch, UncommittedChanges: changes}
}

// RecentCommits returns the latest count commits as one-line summaries.
func RecentCommits(run Runner, dir string, count int) ([]string, error) {
	if run == nil {
		run = Run
	}
	out, err := run(dir, "log", "--oneline", fmt.Sprintf("-%d", count))
	if err != nil {
		return nil, fmt.Errorf("git log: %w", err)
	}
	return parseLog(string(out)), nil
}

// DiffFile returns the diff of a single file against HEAD. Used as a
// secondary check that the agent committed its PRD status change.
func DiffFile(run Runner, dir, path string) (string, error) {
	if run == nil {
		run = Run
	}
	out, err := run(dir, "diff", "HEAD", "--", path)
	if err != nil {
		return "", fmt.Errorf("git diff: %w", err)
	}
	return string(out), nil
}

func parseBranch(out string) string {
	return strings.TrimSpace(out)
}

func parsePorcelain(out string) int {
	n := 0
	for _, line := range strings.Split(out, "\n") {
		if line != "" {
			n++
		}
	}
	return n
}

func parseLog(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
