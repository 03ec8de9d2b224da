package ralph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"ralph/internal/prd"
)

// StopReason indicates why the loop terminated.
type StopReason int

const (
	StopAllComplete      StopReason = iota // Every feature reached complete.
	StopMaxIterations                      // Hit --max-iterations cap.
	StopConsecutiveFails                   // Too many consecutive failures.
	StopStuckLoop                          // Repeating non-progress pattern.
	StopCancelled                          // Context cancelled (e.g. SIGINT).
	StopConfigError                        // Document or config unusable.
	StopNoSelectable                       // Only blocked features remain.
	StopRateLimited                        // Rate-limit retry cap exhausted.
	StopAgentError                         // Agent process could not be run.
)

// String returns a human-readable label for the stop reason.
func (r StopReason) String() string {
	switch r {
	case StopAllComplete:
		return "all-complete"
	case StopMaxIterations:
		return "max-iterations"
	case StopConsecutiveFails:
		return "consecutive-failures"
	case StopStuckLoop:
		return "stuck-loop"
	case StopCancelled:
		return "cancelled"
	case StopConfigError:
		return "config-error"
	case StopNoSelectable:
		return "no-selectable-features"
	case StopRateLimited:
		return "rate-limit-exhausted"
	case StopAgentError:
		return "agent-error"
	default:
		return "unknown"
	}
}

// ExitCode returns a distinct, stable process exit code for each stop
// reason.
func (r StopReason) ExitCode() int {
	switch r {
	case StopAllComplete:
		return 0
	case StopMaxIterations:
		return 2
	case StopConsecutiveFails:
		return 3
	case StopStuckLoop:
		return 4
	case StopCancelled:
		return 5
	case StopConfigError:
		return 6
	case StopNoSelectable:
		return 7
	case StopRateLimited:
		return 8
	case StopAgentError:
		return 9
	default:
		return 1
	}
}

// DefaultDelay is the pause between iterations.
const DefaultDelay = 2 * time.Second

// LoopConfig configures the autonomous iteration loop.
type LoopConfig struct {
	WorkDir string
	PRDPath string

	// MaxIterations caps the number of iterations. Zero means unlimited.
	MaxIterations int

	// Delay is the pause between iterations. Zero means DefaultDelay.
	Delay time.Duration

	// CompletionMarker overrides the document's completion marker.
	CompletionMarker string

	// PromptTemplate is the raw template text. Empty means the embedded
	// default.
	PromptTemplate string

	// ResetInProgress resets in-progress features to pending before the
	// first iteration instead of resuming them.
	ResetInProgress bool

	// Policy holds the retry thresholds. Zero value means DefaultPolicy.
	Policy Policy

	// MaxFeatureErrors auto-blocks a feature after this many failures on
	// it. Zero disables auto-blocking.
	MaxFeatureErrors int

	Verbose bool

	// AgentTimeout is the per-invocation deadline. Zero means the
	// executor's DefaultTimeout.
	AgentTimeout time.Duration

	PermissionMode  string
	ContinueSession bool
	SkipPermissions bool

	Observer ProgressObserver
	Notifier *Notifier

	// Test hooks. Nil means use the real implementations.
	Load    func() (*prd.Document, error)
	Save    func(*prd.Document) error
	Execute func(ctx context.Context, iteration int, prompt string) (*AgentResult, error)
	Sleep   func(ctx context.Context, d time.Duration) error
	Now     func() time.Time
	Output  io.Writer // defaults to os.Stdout
}

// Summary holds aggregate results across all iterations.
type Summary struct {
	Iterations  int
	Succeeded   int
	Failed      int
	RateLimited int
	TimedOut    int
	StopReason  StopReason
	Duration    time.Duration
	Records     []Record
}

// selectFeature returns the first feature in document order whose
// status is in-progress or pending, or nil when none remain.
func selectFeature(doc *prd.Document) *prd.Feature {
	for i := range doc.Features {
		if doc.Features[i].Status == prd.StatusInProgress {
			return &doc.Features[i]
		}
	}
	for i := range doc.Features {
		if doc.Features[i].Status == prd.StatusPending {
			return &doc.Features[i]
		}
	}
	return nil
}

// formatDuration formats a duration in a human-readable way (e.g.
// "2m34s", "1h12m").
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// Run executes the iteration loop: select a feature, invoke the agent,
// validate the document change, record the outcome, and enforce the
// safety guards. The loop stops when:
//   - every feature is complete
//   - only blocked features remain
//   - the max iteration count is reached
//   - the consecutive-failure limit is hit
//   - a stuck pattern is detected
//   - the rate-limit retry cap is exhausted
//   - the context is cancelled
func Run(ctx context.Context, cfg LoopConfig) (*Summary, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	printer := NewPrinter(out)
	loopStart := time.Now()

	policy := cfg.Policy
	if policy.FailureLimit <= 0 {
		policy.FailureLimit = DefaultPolicy().FailureLimit
	}
	if policy.Cooldown <= 0 {
		policy.Cooldown = DefaultPolicy().Cooldown
	}

	delay := cfg.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		}
	}

	store := &prd.Store{Path: cfg.PRDPath}
	load := cfg.Load
	if load == nil {
		load = store.Load
	}
	save := cfg.Save
	if save == nil {
		save = store.Save
	}

	progress := NewProgressLog(filepath.Join(cfg.WorkDir, DefaultProgressPath))

	execute := cfg.Execute
	if execute == nil {
		execute = func(ctx context.Context, iteration int, prompt string) (*AgentResult, error) {
			return RunAgent(ctx, cfg.WorkDir, prompt, agentOptions(cfg, out, iteration)...)
		}
	}

	observer := cfg.Observer
	if observer == nil {
		observer = NoopObserver{}
	}

	summary := &Summary{}
	statusWriter := NewStatusWriter(cfg.WorkDir)

	fail := func(reason StopReason, err error) (*Summary, error) {
		summary.StopReason = reason
		summary.Duration = time.Since(loopStart)
		return summary, err
	}

	// Initial load, config errors are fatal here and nowhere else.
	doc, err := load()
	if err != nil {
		return fail(StopConfigError, err)
	}
	if doc.AllComplete() {
		printer.Success("all features already complete")
		return fail(StopAllComplete, nil)
	}

	if cfg.ResetInProgress {
		changed := false
		for i := range doc.Features {
			if doc.Features[i].Status == prd.StatusInProgress {
				doc.Features[i].Status = prd.StatusPending
				changed = true
			}
		}
		if changed {
			if err := save(doc); err != nil {
				return fail(StopConfigError, fmt.Errorf("resetting in-progress features: %w", err))
			}
		}
	}

	marker := cfg.CompletionMarker
	if marker == "" {
		marker = doc.Completion.Marker
	}
	if marker == "" {
		marker = DefaultCompletionMarker
	}

	template := cfg.PromptTemplate
	if template == "" {
		template = defaultPrompt
	}

	observer.OnLoopStart(progress.RunID, doc)
	cfg.Notifier.Notify(ctx, Event{
		Type:    EventSessionStart,
		RunID:   progress.RunID,
		Project: doc.Project.Name,
	})
	if err := progress.StartSession(); err != nil {
		printer.Warn("progress log: %v", err)
	}

	detector := NewDetector()
	tracker := NewFeatureErrorTracker(cfg.MaxFeatureErrors)
	consecutiveFailures := 0
	rateLimitStreak := 0

	writeStatus := func(state string, iteration int, featureID string, doc *prd.Document, reason string) {
		status := LoopStatus{
			State:          state,
			RunID:          progress.RunID,
			Iteration:      iteration,
			MaxIterations:  cfg.MaxIterations,
			CurrentFeature: featureID,
			Elapsed:        time.Since(loopStart).Nanoseconds(),
			StopReason:     reason,
		}
		status.Tallies.Completed = summary.Succeeded
		status.Tallies.Failed = summary.Failed
		status.Tallies.RateLimited = summary.RateLimited
		status.Tallies.TimedOut = summary.TimedOut
		counts := doc.StatusCounts()
		status.Features.Pending = counts.Pending
		status.Features.InProgress = counts.InProgress
		status.Features.Complete = counts.Complete
		status.Features.Blocked = counts.Blocked
		_ = statusWriter.Write(status) // Best effort; never fails the loop.
	}

	finish := func(reason StopReason) (*Summary, error) {
		summary.StopReason = reason
		summary.Duration = time.Since(loopStart)
		writeStatus("completed", summary.Iterations, "", doc, reason.String())
		observer.OnLoopEnd(summary)

		eventType := EventSessionComplete
		if reason != StopAllComplete {
			eventType = EventSessionFailed
		}
		// The loop ctx is already cancelled when we got here via SIGINT;
		// the terminal notification gets its own deadline.
		nctx, ncancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer ncancel()
		cfg.Notifier.Notify(nctx, Event{
			Type:       eventType,
			RunID:      progress.RunID,
			Project:    doc.Project.Name,
			Iteration:  summary.Iterations,
			StopReason: reason.String(),
		})

		printSummary(printer, summary, doc)
		_ = progress.Note("session end: %s after %d iteration(s)", reason, summary.Iterations)
		return summary, nil
	}

	for iteration := 1; ; iteration++ {
		if cfg.MaxIterations > 0 && iteration > cfg.MaxIterations {
			return finish(StopMaxIterations)
		}
		if ctx.Err() != nil {
			return finish(StopCancelled)
		}

		// Snapshot the document at the start of the iteration. The agent
		// edits the file on disk; the pre-snapshot is the validation
		// baseline and the restore point.
		before, err := load()
		if err != nil {
			printer.Error("reloading document: %v", err)
			return finish(StopConfigError)
		}
		doc = before

		feature := selectFeature(before)
		if feature == nil {
			if before.AllComplete() {
				return finish(StopAllComplete)
			}
			printer.Warn("no pending features remain; %d blocked", before.StatusCounts().Blocked)
			return finish(StopNoSelectable)
		}
		featureID := feature.ID

		printer.Separator()
		printer.Log("iteration %d: %s %s", iteration, IconRunning, featureID)
		observer.OnIterationStart(iteration, featureID)
		writeStatus("running", iteration, featureID, before, "")

		prompt := RenderPrompt(template, PromptVars{
			PRDPath:          cfg.PRDPath,
			PRDContent:       mustRenderPRD(before),
			ProgressPath:     progress.Path,
			Verification:     FormatVerification(before),
			CompletionMarker: marker,
		})

		result, err := execute(ctx, iteration, prompt)
		if err != nil {
			// The process never ran (missing binary, spawn failure). This
			// must never surface as the all-complete exit code.
			return fail(StopAgentError, fmt.Errorf("iteration %d: running agent for %s: %w", iteration, featureID, err))
		}

		outcome := Assess(result, marker)

		// Re-read what the agent left on disk and enforce the
		// status-only-change policy.
		var changed []string
		after, loadErr := load()
		switch {
		case loadErr != nil:
			// The agent corrupted the document. Restore the snapshot.
			printer.Error("document unreadable after iteration: %v", loadErr)
			if err := save(before); err != nil {
				return finish(StopConfigError)
			}
			outcome = OutcomeValidationError
		case outcome == OutcomeSuccess || outcome == OutcomeComplete:
			var verr error
			changed, verr = ValidateChanges(before, after, featureID)
			var ve *ValidationError
			if errors.As(verr, &ve) {
				printer.Error("forbidden document changes: %v", ve.Paths)
				if err := save(before); err != nil {
					return finish(StopConfigError)
				}
				outcome = OutcomeValidationError
			} else if len(changed) > 0 {
				if err := save(after); err != nil {
					return finish(StopConfigError)
				}
				doc = after
			}
		default:
			// Failed iterations must not mutate the document.
			changed = prd.Diff(before, after)
			if len(changed) > 0 {
				printer.Warn("discarding document changes from failed iteration")
				if err := save(before); err != nil {
					return finish(StopConfigError)
				}
				changed = nil
			}
		}

		rec := Record{
			Iteration:    iteration,
			FeatureID:    featureID,
			Outcome:      outcome,
			Timestamp:    now(),
			ChangedPaths: changed,
		}
		summary.Iterations++
		summary.Records = append(summary.Records, rec)
		if err := progress.Record(rec); err != nil {
			printer.Warn("progress log: %v", err)
		}
		observer.OnIterationEnd(rec)

		printer.Log("%s %s → %s (%s)", StatusIcon(outcome), featureID, outcome, formatDuration(result.Duration))

		switch outcome {
		case OutcomeTimeout:
			summary.TimedOut++
		case OutcomeRateLimited:
			summary.RateLimited++
		case OutcomeSuccess, OutcomeComplete:
			summary.Succeeded++
		default:
			summary.Failed++
		}

		// A partial record is persisted before honoring cancellation.
		if ctx.Err() != nil {
			return finish(StopCancelled)
		}

		// Rate-limited iterations bypass the failure counter and the stuck
		// detector: repetition there reflects the API, not the agent.
		switch Classify(outcome) {
		case ClassSuccess:
			consecutiveFailures = 0
			rateLimitStreak = 0
			tracker.Reset(featureID)
			if detector.Observe(rec) {
				printer.Error("stuck: last %d iterations produced identical results", stuckWindow)
				return finish(StopStuckLoop)
			}
			if doc.AllComplete() {
				return finish(StopAllComplete)
			}
		case ClassRateLimited:
			rateLimitStreak++
			if policy.RateLimitRetries > 0 && rateLimitStreak >= policy.RateLimitRetries {
				printer.Error("rate limited %d times in a row, giving up", rateLimitStreak)
				return finish(StopRateLimited)
			}
			printer.Warn("rate limited, cooling down for %s", policy.Cooldown)
			if err := sleep(ctx, policy.Cooldown); err != nil {
				return finish(StopCancelled)
			}
			continue // retry the same feature without the inter-iteration delay
		case ClassFailure:
			rateLimitStreak = 0
			consecutiveFailures++
			if consecutiveFailures >= policy.FailureLimit {
				printer.Error("%d consecutive failures, stopping", consecutiveFailures)
				return finish(StopConsecutiveFails)
			}
			if detector.Observe(rec) {
				printer.Error("stuck: last %d iterations produced identical results", stuckWindow)
				return finish(StopStuckLoop)
			}
			if tracker.Record(featureID) {
				printer.Warn("feature %s failed %d times, marking blocked", featureID, tracker.Count(featureID))
				if f := doc.Feature(featureID); f != nil {
					f.Status = prd.StatusBlocked
					if err := save(doc); err != nil {
						return finish(StopConfigError)
					}
				}
			}
		}

		if err := sleep(ctx, delay); err != nil {
			return finish(StopCancelled)
		}
	}
}

// agentOptions builds the RunAgent options for one iteration. Agent
// output only streams to the terminal when Verbose is set; the
// per-iteration log file captures it either way.
func agentOptions(cfg LoopConfig, out io.Writer, iteration int) []Option {
	live := io.Writer(io.Discard)
	if cfg.Verbose {
		live = out
	}
	opts := []Option{
		WithPermissionMode(cfg.PermissionMode),
		WithOutputWriter(live),
		WithLogPath(filepath.Join(cfg.WorkDir, ".ralph", "logs",
			fmt.Sprintf("iteration-%03d.log", iteration))),
	}
	if cfg.AgentTimeout > 0 {
		opts = append(opts, WithTimeout(cfg.AgentTimeout))
	}
	if cfg.ContinueSession {
		opts = append(opts, WithContinueSession(true))
	}
	if cfg.SkipPermissions {
		opts = append(opts, WithSkipPermissions(true))
	}
	return opts
}

// mustRenderPRD serializes the document for prompt inclusion.
func mustRenderPRD(doc *prd.Document) string {
	data, err := prd.Marshal(doc)
	if err != nil {
		return ""
	}
	return string(data)
}

// printSummary prints the end-of-run report with the last few records.
func printSummary(p *Printer, summary *Summary, doc *prd.Document) {
	p.Separator()
	p.Header("Run complete: " + summary.StopReason.String())
	if summary.Succeeded > 0 {
		p.Success("  %s %d successful iteration(s)", IconSuccess, summary.Succeeded)
	}
	if summary.Failed > 0 {
		p.Error("  %s %d failure(s)", IconFailed, summary.Failed)
	}
	if summary.TimedOut > 0 {
		p.Warn("  %s %d timeout(s)", IconTimeout, summary.TimedOut)
	}
	if summary.RateLimited > 0 {
		p.Warn("  %s %d rate limited", IconRateLimit, summary.RateLimited)
	}
	counts := doc.StatusCounts()
	p.Log("  features: %d complete, %d pending, %d blocked", counts.Complete, counts.Pending, counts.Blocked)
	p.Dim("  duration: %s", formatDuration(summary.Duration))

	n := len(summary.Records)
	if n == 0 {
		return
	}
	tail := summary.Records
	if n > 5 {
		tail = tail[n-5:]
	}
	p.Dim("  last iterations:")
	for _, rec := range tail {
		p.Dim("    [%d] %s %s → %s", rec.Iteration, StatusIcon(rec.Outcome), rec.FeatureID, rec.Outcome)
	}
}
