// Package ralph implements the autonomous agent work loop.
//
// Ralph drives a coding agent through the features declared in a PRD
// (requirements document). Each iteration it selects the next workable
// feature, renders a prompt, invokes the agent with a hard deadline,
// verifies that only the permitted status field changed in the PRD,
// records the outcome, and decides whether to continue, retry, or stop.
//
// # Basic Usage
//
//	summary, err := ralph.Run(ctx, ralph.LoopConfig{
//	    PRDPath: "prd.jsonc",
//	    WorkDir: ".",
//	})
//	os.Exit(summary.StopReason.ExitCode())
//
// # Progress Observation
//
// Implement ProgressObserver to receive live updates (loop start,
// iteration start/end, loop end). NewTracingObserver exports the same
// events as OTLP spans when OTEL_EXPORTER_OTLP_ENDPOINT is set.
//
// # Testing
//
// LoopConfig exposes test hooks for all external dependencies:
// Load, Save, Execute, Sleep, Now.
package ralph
