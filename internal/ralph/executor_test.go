package ralph

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Test-helper process
// ---------------------------------------------------------------------------
//
// Tests use the "TestHelperProcess" pattern: re-exec the test binary with a
// sentinel env var so the child behaves as a fake agent. This lets us test
// the plumbing (exit codes, output capture, timeouts) without an actual
// agent binary.

func TestHelperProcess(t *testing.T) {
	if os.Getenv("RALPH_TEST_HELPER") != "1" {
		return // not the helper invocation
	}
	switch os.Getenv("RALPH_TEST_MODE") {
	case "echo-args":
		// Echo args after "--" to stdout.
		args := os.Args[1:]
		for i, a := range args {
			if a == "--" {
				args = args[i+1:]
				break
			}
		}
		fmt.Print(strings.Join(args, " "))
	case "echo-stdin":
		buf := new(bytes.Buffer)
		buf.ReadFrom(os.Stdin)
		fmt.Print(buf.String())
	case "print":
		fmt.Print(os.Getenv("RALPH_TEST_OUTPUT"))
	case "exit":
		code, _ := strconv.Atoi(os.Getenv("RALPH_EXIT_CODE"))
		fmt.Print(os.Getenv("RALPH_TEST_OUTPUT"))
		os.Exit(code)
	case "slow":
		time.Sleep(30 * time.Second)
	default:
		fmt.Fprintln(os.Stderr, "unknown RALPH_TEST_MODE")
		os.Exit(2)
	}
	os.Exit(0)
}

// helperFactory returns a CommandFactory that re-invokes the current test
// binary as the helper process.
func helperFactory(mode string, envExtra ...string) CommandFactory {
	return func(ctx context.Context, workDir string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=^TestHelperProcess$", "--"}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Dir = workDir
		cmd.Env = append(os.Environ(),
			"RALPH_TEST_HELPER=1",
			"RALPH_TEST_MODE="+mode,
		)
		cmd.Env = append(cmd.Env, envExtra...)
		return cmd
	}
}

func TestRunAgent_PromptOnStdin(t *testing.T) {
	var out bytes.Buffer
	result, err := RunAgent(context.Background(), t.TempDir(), "do the thing",
		WithCommandFactory(helperFactory("echo-stdin")),
		WithOutputWriter(&out),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", result.ExitCode)
	}
	if !strings.Contains(result.Output, "do the thing") {
		t.Errorf("prompt not echoed back: %q", result.Output)
	}
	if !strings.Contains(out.String(), "do the thing") {
		t.Errorf("live writer missing output: %q", out.String())
	}
}

func TestRunAgent_DefaultArgs(t *testing.T) {
	result, err := RunAgent(context.Background(), t.TempDir(), "p",
		WithCommandFactory(helperFactory("echo-args")),
		WithOutputWriter(&bytes.Buffer{}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "--permission-mode acceptEdits --print"
	if result.Output != want {
		t.Errorf("args = %q, want %q", result.Output, want)
	}
}

func TestRunAgent_ContinueAndSkipPermissions(t *testing.T) {
	result, err := RunAgent(context.Background(), t.TempDir(), "p",
		WithCommandFactory(helperFactory("echo-args")),
		WithOutputWriter(&bytes.Buffer{}),
		WithPermissionMode("plan"),
		WithContinueSession(true),
		WithSkipPermissions(true),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "--permission-mode plan --dangerously-skip-permissions --continue"
	if result.Output != want {
		t.Errorf("args = %q, want %q", result.Output, want)
	}
}

func TestRunAgent_NonzeroExit(t *testing.T) {
	result, err := RunAgent(context.Background(), t.TempDir(), "p",
		WithCommandFactory(helperFactory("exit", "RALPH_EXIT_CODE=3")),
		WithOutputWriter(&bytes.Buffer{}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", result.ExitCode)
	}
	if result.TimedOut {
		t.Error("timed out should be false")
	}
}

func TestRunAgent_Timeout(t *testing.T) {
	start := time.Now()
	result, err := RunAgent(context.Background(), t.TempDir(), "p",
		WithCommandFactory(helperFactory("slow")),
		WithOutputWriter(&bytes.Buffer{}),
		WithTimeout(200*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.TimedOut {
		t.Error("expected TimedOut")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("agent not killed promptly, took %s", elapsed)
	}
}

func TestRunAgent_LogFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "iteration-001.log")
	_, err := RunAgent(context.Background(), t.TempDir(), "p",
		WithCommandFactory(helperFactory("print", "RALPH_TEST_OUTPUT=hello from agent")),
		WithOutputWriter(&bytes.Buffer{}),
		WithLogPath(logPath),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if string(data) != "hello from agent" {
		t.Errorf("log contents = %q", data)
	}
}

func TestRunAgent_MissingBinary(t *testing.T) {
	_, err := RunAgent(context.Background(), t.TempDir(), "p",
		WithCommandFactory(func(ctx context.Context, workDir string, args ...string) *exec.Cmd {
			cmd := exec.CommandContext(ctx, "/nonexistent/agent-binary")
			cmd.Dir = workDir
			return cmd
		}),
		WithOutputWriter(&bytes.Buffer{}),
	)
	if err == nil {
		t.Fatal("expected launch error")
	}
}
