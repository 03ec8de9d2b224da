package ralph

import (
	"context"
	"os"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"

	"ralph/internal/prd"
)

// TracingObserver implements ProgressObserver and exports the run as an
// OTLP trace: one loop span with one child span per iteration.
// Set OTEL_EXPORTER_OTLP_ENDPOINT to enable export (e.g. "http://localhost:4318").
// When the endpoint is unset every callback is a no-op.
type TracingObserver struct {
	NoopObserver

	provider *sdktrace.TracerProvider
	tracer   oteltrace.Tracer

	mu       sync.Mutex
	loopCtx  context.Context
	loopSpan oteltrace.Span
	iterSpan oteltrace.Span
}

// NewTracingObserver creates a TracingObserver. Returns a disabled
// observer and no error when OTLP is not configured.
func NewTracingObserver(ctx context.Context) (*TracingObserver, error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		return &TracingObserver{}, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	serviceName := os.Getenv("OTEL_SERVICE_NAME")
	if serviceName == "" {
		serviceName = "ralph"
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	return &TracingObserver{
		provider: provider,
		tracer:   provider.Tracer("ralph/loop"),
	}, nil
}

func (o *TracingObserver) enabled() bool {
	return o.tracer != nil
}

// OnLoopStart begins the root span for the run.
func (o *TracingObserver) OnLoopStart(runID string, doc *prd.Document) {
	if !o.enabled() {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	counts := doc.StatusCounts()
	ctx, span := o.tracer.Start(context.Background(), "ralph-loop")
	span.SetAttributes(
		attribute.String("ralph.run_id", runID),
		attribute.String("ralph.project", doc.Project.Name),
		attribute.Int("ralph.features.pending", counts.Pending),
		attribute.Int("ralph.features.complete", counts.Complete),
	)
	o.loopCtx = ctx
	o.loopSpan = span
}

// OnIterationStart begins an iteration span under the loop span.
func (o *TracingObserver) OnIterationStart(iteration int, featureID string) {
	if !o.enabled() {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.loopCtx == nil {
		return
	}
	_, span := o.tracer.Start(o.loopCtx, "iteration")
	span.SetAttributes(
		attribute.Int("ralph.iteration", iteration),
		attribute.String("ralph.feature", featureID),
	)
	o.iterSpan = span
}

// OnIterationEnd completes the current iteration span.
func (o *TracingObserver) OnIterationEnd(rec Record) {
	if !o.enabled() {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.iterSpan == nil {
		return
	}
	o.iterSpan.SetAttributes(
		attribute.String("ralph.outcome", rec.Outcome.String()),
		attribute.Int("ralph.changed_paths", len(rec.ChangedPaths)),
	)
	o.iterSpan.End()
	o.iterSpan = nil
}

// OnLoopEnd completes the root span.
func (o *TracingObserver) OnLoopEnd(summary *Summary) {
	if !o.enabled() {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.loopSpan == nil {
		return
	}
	o.loopSpan.SetAttributes(
		attribute.String("ralph.stop_reason", summary.StopReason.String()),
		attribute.Int("ralph.iterations", summary.Iterations),
	)
	o.loopSpan.End()
	o.loopSpan = nil
	o.loopCtx = nil
}

// Shutdown flushes pending OTLP exports. Must be called before exit.
func (o *TracingObserver) Shutdown(ctx context.Context) error {
	if o.provider == nil {
		return nil
	}
	return o.provider.Shutdown(ctx)
}
