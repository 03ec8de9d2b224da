package ralph

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout is the default per-iteration agent deadline.
const DefaultTimeout = 30 * time.Minute

// AgentResult holds the outcome of a single agent invocation.
type AgentResult struct {
	ExitCode int
	Output   string // combined stdout and stderr
	Duration time.Duration
	TimedOut bool // true if the agent was killed at the deadline
}

// CommandFactory builds an *exec.Cmd for the given context, working
// directory, and arguments. The default factory uses exec.CommandContext
// with "claude" as the binary. Tests inject a factory that invokes a
// helper process instead.
type CommandFactory func(ctx context.Context, workDir string, args ...string) *exec.Cmd

func defaultCommandFactory(ctx context.Context, workDir string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "claude", args...)
	cmd.Dir = workDir
	return cmd
}

// options holds optional configuration for RunAgent.
type options struct {
	timeout         time.Duration
	commandFactory  CommandFactory
	outputWriter    io.Writer
	logPath         string
	permissionMode  string
	continueSession bool
	skipPermissions bool
}

// Option configures RunAgent behaviour.
type Option func(*options)

// WithTimeout overrides the default agent deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithCommandFactory injects a custom command factory (used in tests).
func WithCommandFactory(f CommandFactory) Option {
	return func(o *options) { o.commandFactory = f }
}

// WithOutputWriter overrides the live output writer (default os.Stdout).
func WithOutputWriter(w io.Writer) Option {
	return func(o *options) { o.outputWriter = w }
}

// WithLogPath tees agent output into a per-iteration log file.
func WithLogPath(path string) Option {
	return func(o *options) { o.logPath = path }
}

// WithPermissionMode sets the agent CLI permission mode.
func WithPermissionMode(mode string) Option {
	return func(o *options) { o.permissionMode = mode }
}

// WithContinueSession uses --continue instead of --print, preserving the
// agent's session context across iterations.
func WithContinueSession(v bool) Option {
	return func(o *options) { o.continueSession = v }
}

// WithSkipPermissions passes --dangerously-skip-permissions to the agent.
func WithSkipPermissions(v bool) Option {
	return func(o *options) { o.skipPermissions = v }
}

// RunAgent spawns the agent process with the prompt on stdin and captures
// its output. The process is killed when ctx is cancelled or the deadline
// elapses; both completion paths guarantee termination because the command
// runs under a derived timeout context.
//
// Output is tee'd to the live writer (and the log file, when configured)
// in real time while also being captured in the returned AgentResult.
func RunAgent(ctx context.Context, workDir string, prompt string, opts ...Option) (*AgentResult, error) {
	cfg := options{
		timeout:        DefaultTimeout,
		commandFactory: defaultCommandFactory,
		outputWriter:   os.Stdout,
		permissionMode: "acceptEdits",
	}
	for _, o := range opts {
		o(&cfg)
	}

	// Derive a timeout context so the process is killed on expiry.
	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	args := []string{"--permission-mode", cfg.permissionMode}
	if cfg.skipPermissions {
		args = append(args, "--dangerously-skip-permissions")
	}
	if cfg.continueSession {
		args = append(args, "--continue")
	} else {
		args = append(args, "--print")
	}
	cmd := cfg.commandFactory(ctx, workDir, args...)
	cmd.Stdin = strings.NewReader(prompt)

	writers := []io.Writer{cfg.outputWriter}
	var logFile *os.File
	if cfg.logPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.logPath), 0o755); err != nil {
			return nil, fmt.Errorf("create agent log dir: %w", err)
		}
		f, err := os.Create(cfg.logPath)
		if err != nil {
			return nil, fmt.Errorf("create agent log %s: %w", cfg.logPath, err)
		}
		logFile = f
		writers = append(writers, f)
	}

	// Combined capture: stderr interleaves with stdout, matching what a
	// user watching the terminal would see and scan for markers.
	var buf bytes.Buffer
	sink := io.MultiWriter(append(writers, &buf)...)
	cmd.Stdout = sink
	cmd.Stderr = sink

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)
	if logFile != nil {
		logFile.Close()
	}

	timedOut := ctx.Err() == context.DeadlineExceeded

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("failed to run agent: %w", err)
		}
	}

	return &AgentResult{
		ExitCode: exitCode,
		Output:   buf.String(),
		Duration: duration,
		TimedOut: timedOut,
	}, nil
}
