package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/engine"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

const instrumentation = "github.com/pmanandhar1452/sync-simulation-incremental/internal/telemetry"

// Observer is an engine.Observer that turns each cascade into a span tree:
// one "cascade" span per flow and one span per record, parented on the span
// of the record that caused it. Record spans stay open until the cascade
// completes so firings can be attached to their trigger.
type Observer struct {
	tracer trace.Tracer

	mu    sync.Mutex
	flows map[string]*flowSpans
}

type flowSpans struct {
	cascade trace.Span
	ctxs    map[string]context.Context
	open    []trace.Span
}

// NewObserver returns an Observer using tp, or the global provider when tp
// is nil.
func NewObserver(tp trace.TracerProvider) *Observer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Observer{
		tracer: tp.Tracer(instrumentation),
		flows:  make(map[string]*flowSpans),
	}
}

// OnRecord implements engine.Observer.
func (o *Observer) OnRecord(ctx context.Context, rec ir.ActionRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()

	fs := o.flow(ctx, rec)
	parent, ok := fs.ctxs[rec.Cause]
	if !ok {
		parent = fs.ctxs[""]
	}
	spanCtx, span := o.tracer.Start(parent, string(rec.Action),
		trace.WithAttributes(
			attribute.String("syncsim.flow", rec.Flow),
			attribute.String("syncsim.record", rec.ID),
			attribute.Int64("syncsim.seq", rec.Seq),
			attribute.Int("syncsim.depth", rec.Depth),
		))
	if rec.Rule != "" {
		span.SetAttributes(attribute.String("syncsim.rule", rec.Rule))
	}
	if rec.IsError() {
		span.SetStatus(codes.Error, rec.Output.String(ir.ErrorField))
	}
	fs.ctxs[rec.ID] = spanCtx
	fs.open = append(fs.open, span)
}

// flow returns the span state of rec's flow, opening the cascade span on the
// flow's first record. Callers hold o.mu.
func (o *Observer) flow(ctx context.Context, rec ir.ActionRecord) *flowSpans {
	fs, ok := o.flows[rec.Flow]
	if !ok {
		flowCtx, span := o.tracer.Start(ctx, "cascade",
			trace.WithAttributes(
				attribute.String("syncsim.flow", rec.Flow),
				attribute.String("syncsim.root", string(rec.Action)),
			))
		fs = &flowSpans{cascade: span, ctxs: map[string]context.Context{"": flowCtx}}
		o.flows[rec.Flow] = fs
	}
	return fs
}

// OnFiring implements engine.Observer.
func (o *Observer) OnFiring(_ context.Context, f engine.Firing) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fs, ok := o.flows[f.Flow]
	if !ok {
		return
	}
	if spanCtx, ok := fs.ctxs[f.Trigger.ID]; ok {
		trace.SpanFromContext(spanCtx).AddEvent("rule fired",
			trace.WithAttributes(attribute.String("syncsim.rule", f.Rule)))
	}
}

// OnFault implements engine.Observer.
func (o *Observer) OnFault(ctx context.Context, f *engine.Fault) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var span trace.Span
	if fs, ok := o.flows[f.Flow]; ok {
		span = fs.cascade
	} else {
		// The root action failed before any record existed.
		_, span = o.tracer.Start(ctx, "cascade",
			trace.WithAttributes(
				attribute.String("syncsim.flow", f.Flow),
				attribute.String("syncsim.root", string(f.Action)),
			))
		defer span.End()
	}
	attrs := []attribute.KeyValue{
		attribute.String("syncsim.fault.code", string(f.Code)),
		attribute.Int("syncsim.fault.depth", f.Depth),
	}
	if f.Rule != "" {
		attrs = append(attrs, attribute.String("syncsim.rule", f.Rule))
	}
	if f.Variable != "" {
		attrs = append(attrs, attribute.String("syncsim.fault.variable", f.Variable))
	}
	span.AddEvent("fault", trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, string(f.Code)+": "+f.Message)
}

// OnCascade implements engine.Observer.
func (o *Observer) OnCascade(_ context.Context, out *engine.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()

	fs, ok := o.flows[out.Flow]
	if !ok {
		return
	}
	// Children end before their parents.
	for i := len(fs.open) - 1; i >= 0; i-- {
		fs.open[i].End()
	}
	fs.cascade.SetAttributes(
		attribute.Int("syncsim.records", len(out.Records)),
		attribute.Int("syncsim.faults", len(out.Faults)),
		attribute.Bool("syncsim.aborted", out.Aborted),
	)
	fs.cascade.End()
	delete(o.flows, out.Flow)
}
