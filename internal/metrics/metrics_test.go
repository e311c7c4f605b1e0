package metrics

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/engine"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/rule"
)

type echo struct{}

func (echo) Invoke(_ context.Context, action string, in ir.IRObject) (ir.IRObject, error) {
	if action == "fail" {
		return ir.ErrorOutput("nope"), nil
	}
	return in, nil
}

func (echo) Query(context.Context, string, ir.IRObject) ([]ir.IRObject, error) {
	return nil, nil
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_CountsCascade(t *testing.T) {
	m := New()
	e := engine.New(
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithObserver(m),
	)
	h, err := e.Instrument(map[string]engine.Concept{"Simulation": echo{}, "Renderer": echo{}})
	require.NoError(t, err)
	require.NoError(t, e.Register("solar",
		rule.Sync("RenderOnStep").
			When("Simulation.step", rule.Fields{"id": rule.V("scene")}, nil).
			Then("Renderer.render", rule.Fields{"scene": rule.V("scene")}).
			MustBuild(),
		rule.Sync("Broken").
			When("Simulation.step", nil, nil).
			Then("Renderer.render", rule.Fields{"scene": rule.V("nowhere")}).
			MustBuild(),
	))

	ctx := context.Background()
	_, err = h["Simulation"].Dispatch(ctx, "step", ir.IRObject{"id": ir.IRString("main")})
	require.NoError(t, err)
	_, err = h["Simulation"].Dispatch(ctx, "fail", nil)
	require.NoError(t, err)

	body := scrape(t, m)
	assert.Contains(t, body, `syncsim_records_total{action="Simulation.step",outcome="ok"} 1`)
	assert.Contains(t, body, `syncsim_records_total{action="Renderer.render",outcome="ok"} 1`)
	assert.Contains(t, body, `syncsim_records_total{action="Simulation.fail",outcome="error"} 1`)
	assert.Contains(t, body, `syncsim_rule_firings_total{rule="solar.RenderOnStep"} 1`)
	assert.Contains(t, body, `syncsim_faults_total{code="UNRESOLVED_VARIABLE"} 1`)
	assert.Contains(t, body, `syncsim_cascades_total{status="faulted"} 1`)
	assert.Contains(t, body, `syncsim_cascades_total{status="complete"} 1`)
	assert.Contains(t, body, `syncsim_cascade_records_count 2`)
	assert.Contains(t, body, "go_goroutines")
}

func TestMetrics_AbortedCascade(t *testing.T) {
	m := New()
	m.OnCascade(context.Background(), &engine.Outcome{Aborted: true, Faults: []*engine.Fault{{Code: engine.FaultDepthExceeded}}})
	assert.Contains(t, scrape(t, m), `syncsim_cascades_total{status="aborted"} 1`)
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.OnFault(context.Background(), &engine.Fault{Code: engine.FaultCycleDetected})
	assert.Contains(t, scrape(t, a), `syncsim_faults_total{code="CYCLE_DETECTED"} 1`)
	assert.NotContains(t, scrape(t, b), "CYCLE_DETECTED")
}
