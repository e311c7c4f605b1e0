package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/syncs"
)

func scenarioFiles(t *testing.T) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join("..", "..", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	return files
}

func TestRun_Scenarios(t *testing.T) {
	for _, file := range scenarioFiles(t) {
		t.Run(filepath.Base(file), func(t *testing.T) {
			s, err := LoadScenario(file)
			require.NoError(t, err)

			r, err := Run(context.Background(), s)
			require.NoError(t, err)
			assert.True(t, r.Pass, "errors: %v", r.Errors)
			assert.NotEmpty(t, r.Trace)
		})
	}
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong
description: every expectation is wrong
setup:
  - action: Simulation.create
    input: {id: main}
flow:
  - invoke: Simulation.step
    input: {id: main}
    expect:
      output: {time: 42}
      actions: [Simulation.step]
      faults: [DEPTH_EXCEEDED]
assertions:
  - type: trace_count
    action: Simulation.step
    count: 3
  - type: fault
    code: ACTION_FAILED
`))
	require.NoError(t, err)

	r, err := Run(context.Background(), s, WithRules(syncs.Set{Name: "none"}))
	require.NoError(t, err)

	assert.False(t, r.Pass)
	require.Len(t, r.Errors, 4)
	assert.Contains(t, r.Errors[0], "does not contain")
	assert.Contains(t, r.Errors[1], "faults [], want [DEPTH_EXCEEDED]")
	assert.Contains(t, r.Errors[2], "occurs 1 time(s), want 3")
	assert.Contains(t, r.Errors[3], "no ACTION_FAILED fault")
}

func TestRun_ExpectedFailure(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: missing
description: an error output is data, an unknown concept is a failure
flow:
  - invoke: Simulation.step
    input: {id: nowhere}
    expect:
      output: {error: Simulation not found}
  - invoke: Galaxy.spin
    input: {}
    expect:
      fails: true
`))
	require.NoError(t, err)

	r, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, r.Pass, "errors: %v", r.Errors)
}

func TestRun_UnexpectedFailure(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: unexpected
description: an unknown concept without fails
flow:
  - invoke: Galaxy.spin
    input: {}
`))
	require.NoError(t, err)

	r, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, r.Pass)
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0], "unexpected failure")
}

func TestRun_Unanswered(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: unanswered
description: without the solar rules nobody lists bodies
flow:
  - invoke: API.request
    input: {method: list_bodies}
    expect:
      unanswered: true
      actions: [API.request]
`))
	require.NoError(t, err)

	r, err := Run(context.Background(), s, WithRules(syncs.Set{Name: "auth", Rules: syncs.Auth()}))
	require.NoError(t, err)
	assert.True(t, r.Pass, "errors: %v", r.Errors)
}

func TestRun_SetupFailureAborts(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: bad_setup
description: setup must succeed
setup:
  - action: Galaxy.spin
    input: {}
flow:
  - invoke: Simulation.step
    input: {id: nowhere}
`))
	require.NoError(t, err)

	_, err = Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup[0] Galaxy.spin")
}

func TestRun_MissingSpecs(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)
	s.Specs = filepath.Join(t.TempDir(), "nope")

	_, err = Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "specs directory not found")
}

func TestRun_TraceRecordsCausality(t *testing.T) {
	s, err := LoadScenario(filepath.Join("..", "..", "scenarios", "render_on_step.yaml"))
	require.NoError(t, err)

	r, err := Run(context.Background(), s)
	require.NoError(t, err)

	require.Len(t, r.Trace, 3)
	step, render := r.Trace[0], r.Trace[1]
	assert.Equal(t, "Simulation.step", step.Action)
	assert.Zero(t, step.Depth)
	assert.Empty(t, step.Rule)
	assert.Equal(t, "Renderer.render", render.Action)
	assert.Equal(t, 1, render.Depth)
	assert.Equal(t, "solar.RenderOnStep", render.Rule)
	assert.Equal(t, step.Seq, render.CauseSeq)
	assert.Equal(t, step.Flow, render.Flow)
	assert.NotEqual(t, step.Flow, r.Trace[2].Flow, "each stimulus opens a new flow")
}
