// Command ralph drives a coding agent through a product requirements
// document one feature at a time, validating that each iteration changes
// nothing but a single feature's status.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"ralph/internal/prd"
	"ralph/internal/ralph"
)

type config struct {
	prdPath          string
	promptPath       string
	maxIterations    int
	delaySeconds     int
	timeoutSeconds   int
	completionMarker string
	permissionMode   string
	continueSession  bool
	skipPermissions  bool
	skipInit         bool
	initOnly         bool
	initPrompt       bool
	dryRun           bool
	verbose          bool
	webhook          string
	maxFeatureErrors int
	rateLimitRetries int
	resetInProgress  bool
}

func parseFlags() config {
	var cfg config

	pflag.StringVarP(&cfg.prdPath, "prd", "p", "prd.jsonc", "path to the requirements document")
	pflag.StringVarP(&cfg.promptPath, "prompt", "P", "", "prompt template file (default: built-in)")
	pflag.IntVarP(&cfg.maxIterations, "max-iterations", "m", 10, "iteration cap (0 = unlimited)")
	pflag.IntVarP(&cfg.delaySeconds, "delay", "d", 2, "seconds between iterations")
	pflag.IntVarP(&cfg.timeoutSeconds, "timeout", "t", 1800, "per-iteration agent timeout in seconds")
	pflag.StringVarP(&cfg.completionMarker, "completion-marker", "c", "", "override the document's completion marker")
	pflag.StringVar(&cfg.permissionMode, "permission-mode", "acceptEdits", "agent permission mode")
	pflag.BoolVar(&cfg.continueSession, "continue-session", false, "continue the previous agent session")
	pflag.BoolVar(&cfg.skipPermissions, "dangerously-skip-permissions", false, "pass permission bypass to the agent")
	pflag.BoolVar(&cfg.skipInit, "skip-init", false, "skip the pre-run git and document check")
	pflag.BoolVar(&cfg.initOnly, "init", false, "write a starter document and exit")
	pflag.BoolVar(&cfg.initPrompt, "init-prompt", false, "print the default prompt template and exit")
	pflag.BoolVar(&cfg.dryRun, "dry-run", false, "preview the run without invoking the agent")
	pflag.BoolVarP(&cfg.verbose, "verbose", "v", false, "stream agent output")
	pflag.StringVar(&cfg.webhook, "webhook", "", "URL to notify on session start/end")
	pflag.IntVar(&cfg.maxFeatureErrors, "max-feature-errors", 3, "auto-block a feature after N failures (0 = never)")
	pflag.IntVar(&cfg.rateLimitRetries, "rate-limit-retries", 10, "consecutive rate-limit retries before giving up (0 = unlimited)")
	pflag.BoolVar(&cfg.resetInProgress, "reset-in-progress", false, "reset in-progress features to pending instead of resuming")
	pflag.Parse()

	return cfg
}

func run(cfg config) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := ralph.NewPrinter(os.Stdout)

	if cfg.initPrompt {
		tmpl, _ := ralph.LoadPromptTemplate("")
		fmt.Print(tmpl)
		return 0
	}

	if cfg.initOnly {
		if _, err := os.Stat(cfg.prdPath); err == nil {
			printer.Error("%s already exists, refusing to overwrite", cfg.prdPath)
			return ralph.StopConfigError.ExitCode()
		}
		if err := prd.WriteTemplate(cfg.prdPath); err != nil {
			printer.Error("writing template: %v", err)
			return ralph.StopConfigError.ExitCode()
		}
		printer.Success("wrote starter document to %s", cfg.prdPath)
		return 0
	}

	workDir, err := os.Getwd()
	if err != nil {
		printer.Error("resolving working directory: %v", err)
		return ralph.StopConfigError.ExitCode()
	}

	template, err := ralph.LoadPromptTemplate(cfg.promptPath)
	if err != nil {
		printer.Error("%v", err)
		return ralph.StopConfigError.ExitCode()
	}

	store := prd.NewStore(cfg.prdPath)
	doc, err := store.Load()
	if err != nil {
		printer.Error("%v", err)
		return ralph.StopConfigError.ExitCode()
	}

	progress := ralph.NewProgressLog(ralph.DefaultProgressPath)

	if !cfg.skipInit {
		rep := ralph.CheckInit(workDir, doc, progress, nil)
		rep.Print(printer)
	}

	if cfg.dryRun {
		marker := cfg.completionMarker
		if marker == "" {
			marker = doc.Completion.Marker
		}
		prompt := ralph.RenderPrompt(template, ralph.PromptVars{
			PRDPath:          cfg.prdPath,
			ProgressPath:     progress.Path,
			Verification:     ralph.FormatVerification(doc),
			CompletionMarker: marker,
		})
		dr := &ralph.DryRun{Printer: printer, WorkDir: workDir}
		dr.Execute(ctx, doc, prompt)
		return 0
	}

	tracing, err := ralph.NewTracingObserver(ctx)
	if err != nil {
		printer.Warn("tracing disabled: %v", err)
		tracing = nil
	}
	defer func() {
		if tracing != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tracing.Shutdown(shutdownCtx)
		}
	}()

	var observer ralph.ProgressObserver = ralph.NoopObserver{}
	if tracing != nil {
		observer = ralph.NewMultiObserver(tracing)
	}

	policy := ralph.DefaultPolicy()
	policy.RateLimitRetries = cfg.rateLimitRetries

	summary, err := ralph.Run(ctx, ralph.LoopConfig{
		WorkDir:          workDir,
		PRDPath:          cfg.prdPath,
		MaxIterations:    cfg.maxIterations,
		Delay:            time.Duration(cfg.delaySeconds) * time.Second,
		CompletionMarker: cfg.completionMarker,
		PromptTemplate:   template,
		ResetInProgress:  cfg.resetInProgress,
		Policy:           policy,
		MaxFeatureErrors: cfg.maxFeatureErrors,
		Verbose:          cfg.verbose,
		AgentTimeout:     time.Duration(cfg.timeoutSeconds) * time.Second,
		PermissionMode:   cfg.permissionMode,
		ContinueSession:  cfg.continueSession,
		SkipPermissions:  cfg.skipPermissions,
		Observer:         observer,
		Notifier:         ralph.NewNotifier(cfg.webhook),
	})
	if err != nil {
		var ce *prd.ConfigError
		if errors.As(err, &ce) {
			printer.Error("%v", ce)
			return ralph.StopConfigError.ExitCode()
		}
		printer.Error("%v", err)
		if summary != nil {
			if code := summary.StopReason.ExitCode(); code != 0 {
				return code
			}
		}
		return 1
	}
	return summary.StopReason.ExitCode()
}

func main() {
	os.Exit(run(parseFlags()))
}
