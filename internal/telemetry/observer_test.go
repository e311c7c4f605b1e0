package telemetry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/engine"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/rule"
)

type echo struct{}

func (echo) Invoke(_ context.Context, action string, in ir.IRObject) (ir.IRObject, error) {
	switch action {
	case "crash":
		return nil, errors.New("boom")
	case "reject":
		return ir.ErrorOutput("rejected"), nil
	}
	return in, nil
}

func (echo) Query(context.Context, string, ir.IRObject) ([]ir.IRObject, error) {
	return nil, nil
}

func setup(t *testing.T, rules ...rule.SyncRule) (*engine.Handle, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	e := engine.New(
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithObserver(NewObserver(tp)),
	)
	h, err := e.Instrument(map[string]engine.Concept{"Simulation": echo{}, "Renderer": echo{}})
	require.NoError(t, err)
	if len(rules) > 0 {
		require.NoError(t, e.Register("solar", rules...))
	}
	return h["Simulation"], sr
}

func spansByName(spans []sdktrace.ReadOnlySpan) map[string]sdktrace.ReadOnlySpan {
	out := make(map[string]sdktrace.ReadOnlySpan, len(spans))
	for _, s := range spans {
		out[s.Name()] = s
	}
	return out
}

func TestObserver_SpanTree(t *testing.T) {
	sim, sr := setup(t, rule.Sync("RenderOnStep").
		When("Simulation.step", rule.Fields{"id": rule.V("scene")}, nil).
		Then("Renderer.render", rule.Fields{"scene": rule.V("scene")}).
		MustBuild())

	_, err := sim.Dispatch(context.Background(), "step", ir.IRObject{"id": ir.IRString("main")})
	require.NoError(t, err)

	spans := spansByName(sr.Ended())
	require.Len(t, spans, 3)
	cascade, step, render := spans["cascade"], spans["Simulation.step"], spans["Renderer.render"]
	require.NotNil(t, cascade)
	require.NotNil(t, step)
	require.NotNil(t, render)

	assert.Equal(t, cascade.SpanContext().SpanID(), step.Parent().SpanID())
	assert.Equal(t, step.SpanContext().SpanID(), render.Parent().SpanID())
	assert.Equal(t, cascade.SpanContext().TraceID(), render.SpanContext().TraceID())

	require.Len(t, step.Events(), 1)
	assert.Equal(t, "rule fired", step.Events()[0].Name)
	assert.Contains(t, step.Events()[0].Attributes, ruleAttr("solar.RenderOnStep"))
	assert.Contains(t, render.Attributes(), ruleAttr("solar.RenderOnStep"))
	assert.Equal(t, codes.Unset, cascade.Status().Code)
}

func TestObserver_FaultMarksCascade(t *testing.T) {
	sim, sr := setup(t, rule.Sync("Broken").
		When("Simulation.step", nil, nil).
		Then("Renderer.render", rule.Fields{"scene": rule.V("nowhere")}).
		MustBuild())

	_, err := sim.Dispatch(context.Background(), "step", nil)
	require.NoError(t, err)

	cascade := spansByName(sr.Ended())["cascade"]
	require.NotNil(t, cascade)
	assert.Equal(t, codes.Error, cascade.Status().Code)
	require.NotEmpty(t, cascade.Events())
	assert.Equal(t, "fault", cascade.Events()[0].Name)
}

func TestObserver_BusinessErrorStatus(t *testing.T) {
	sim, sr := setup(t)
	_, err := sim.Dispatch(context.Background(), "reject", nil)
	require.NoError(t, err)

	span := spansByName(sr.Ended())["Simulation.reject"]
	require.NotNil(t, span)
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, "rejected", span.Status().Description)
}

func TestObserver_RootFailure(t *testing.T) {
	sim, sr := setup(t)
	_, err := sim.Dispatch(context.Background(), "crash", nil)
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "cascade", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestObserver_RecordSpansOpenUntilCascadeEnds(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	obs := NewObserver(tp)
	ctx := context.Background()

	root := ir.ActionRecord{ID: "r1", Flow: "flow-1", Seq: 1, Action: "Simulation.step"}
	child := ir.ActionRecord{ID: "r2", Flow: "flow-1", Seq: 2, Depth: 1, Action: "Renderer.render",
		Cause: "r1", Rule: "solar.RenderOnStep"}

	obs.OnRecord(ctx, root)
	obs.OnFiring(ctx, engine.Firing{Rule: "solar.RenderOnStep", Flow: "flow-1", Trigger: root})
	obs.OnRecord(ctx, child)
	obs.OnFiring(ctx, engine.Firing{Rule: "solar.Echo", Flow: "flow-1", Trigger: root})
	assert.Empty(t, sr.Ended())

	obs.OnCascade(ctx, &engine.Outcome{Flow: "flow-1", Root: root, Records: []ir.ActionRecord{root, child}})

	ended := sr.Ended()
	require.Len(t, ended, 3)
	assert.Equal(t, "Renderer.render", ended[0].Name())
	assert.Equal(t, "Simulation.step", ended[1].Name())
	assert.Equal(t, "cascade", ended[2].Name())
	require.Len(t, ended[1].Events(), 2)
	assert.Contains(t, ended[1].Events()[1].Attributes, ruleAttr("solar.Echo"))
}

func TestObserver_FiringForUnknownFlowIgnored(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	NewObserver(tp).OnFiring(context.Background(), engine.Firing{Rule: "x", Flow: "missing"})
	assert.Empty(t, sr.Started())
}

func ruleAttr(name string) attribute.KeyValue {
	return attribute.String("syncsim.rule", name)
}
