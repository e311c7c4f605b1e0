package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

func TestCompile_Text(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"specs.cue": solarSpecs})

	out, err := execute(t, "compile", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled 2 concept(s), 1 sync(s)")
	assert.Contains(t, out, "Simulation: 1 action(s), 0 quer(ies)")
	assert.Contains(t, out, "solar.RenderOnStep: [Simulation.step] → [Renderer.render]")
}

func TestCompile_JSON(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"specs.cue": solarSpecs + `
sync: RenderActive: {
	set: "solar"
	when: [{action: "Simulation.step", output: {time: "?t"}}]
	where: [{query: "Simulation._getActive", bind: {id: "?scene"}}]
	then: [{action: "Renderer.render", input: {scene: "?scene"}}]
}
`})

	out, err := execute(t, "compile", dir, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Concepts, 2)
	require.Len(t, resp.Data.Syncs, 2)

	byID := make(map[string]RuleSummary)
	for _, s := range resp.Data.Syncs {
		byID[s.ID] = s
	}
	active := byID["solar.RenderActive"]
	assert.Equal(t, "solar", active.Set)
	assert.Equal(t, []ir.ActionRef{"Simulation.step"}, active.When)
	assert.Equal(t, []ir.ActionRef{"Simulation._getActive"}, active.Where)
	assert.Equal(t, []ir.ActionRef{"Renderer.render"}, active.Then)
	assert.Empty(t, byID["solar.RenderOnStep"].Where)
}

func TestCompile_OutputFile(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"specs.cue": solarSpecs})
	outFile := filepath.Join(t.TempDir(), "compiled.json")

	out, err := execute(t, "compile", dir, "-o", outFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+outFile)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Syncs, 1)
	assert.Equal(t, "solar.RenderOnStep", result.Syncs[0].ID)
}

func TestCompile_Errors(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"specs.cue": `package specs

sync: NoThen: {
	when: [{action: "A.go"}]
}
`})

	out, err := execute(t, "compile", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Compilation failed")
	assert.Contains(t, out, "then clause is required")
}

func TestCompile_NoCUEFiles(t *testing.T) {
	_, err := execute(t, "compile", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
