package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const renderScenario = `name: render_on_step
setup:
  - action: Simulation.create
    input: {id: main}
  - action: Renderer.createScene
    input: {id: main}
flow:
  - invoke: Simulation.step
    input: {id: main}
    expect:
      actions: [Simulation.step, Renderer.render]
assertions:
  - type: no_faults
`

const wrongScenario = `name: wrong_expectation
setup:
  - action: Simulation.create
    input: {id: main}
flow:
  - invoke: Simulation.step
    input: {id: main}
    expect:
      actions: [Simulation.step]
`

func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func decodeTestResult(t *testing.T, out string) TestResult {
	t.Helper()
	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp.Data
}

func TestTest_BundledScenarios(t *testing.T) {
	out, err := execute(t, "test", "../../scenarios")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ render_on_step")
	assert.Contains(t, out, "✓ depth_ceiling")
	assert.Contains(t, out, "Test Summary: 7 passed, 0 failed, 7 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTest_Filter(t *testing.T) {
	out, err := execute(t, "test", "../../scenarios", "--filter", "login_*", "--format", "json")
	require.NoError(t, err)

	result := decodeTestResult(t, out)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "login_response", result.Scenarios[0].Name)
	assert.True(t, result.Scenarios[0].Pass)
	assert.Equal(t, "none", result.Scenarios[0].Golden)
}

func TestTest_GoldenLifecycle(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"render.yaml": renderScenario})
	golden := filepath.Join(dir, "golden", "render.golden")

	out, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ render_on_step (golden updated)")
	assert.FileExists(t, golden)

	out, err = execute(t, "test", dir, "--format", "json")
	require.NoError(t, err)
	result := decodeTestResult(t, out)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "match", result.Scenarios[0].Golden)

	require.NoError(t, os.WriteFile(golden, []byte("{}"), 0o644))
	out, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match")
}

func TestTest_FailingScenario(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"render.yaml": renderScenario,
		"wrong.yaml":  wrongScenario,
	})

	out, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	result := decodeTestResult(t, out)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)
	for _, s := range result.Scenarios {
		if s.Name == "wrong_expectation" {
			assert.False(t, s.Pass)
			assert.NotEmpty(t, s.Errors)
		}
	}
}

func TestTest_InvalidScenarioFile(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"broken.yaml": "name: broken\nflow: 3\n"})

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "load:")
}

func TestTest_Directories(t *testing.T) {
	_, err := execute(t, "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}
