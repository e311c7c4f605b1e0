package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns what it printed to
// stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeSpecs writes CUE files into a fresh directory and returns it.
func writeSpecs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

const solarSpecs = `package specs

concept: Simulation: {
	purpose: "Advances simulated time"
	action: step: {
		args: {id: string}
		outputs: [{case: "Success", fields: {id: string, time: float}}]
	}
}

concept: Renderer: {
	purpose: "Draws scenes"
	action: render: {
		args: {scene: string}
		outputs: [{case: "Success", fields: {scene: string, frame: int}}]
	}
}

sync: RenderOnStep: {
	set: "solar"
	when: [{action: "Simulation.step", input: {id: "?scene"}}]
	then: [{action: "Renderer.render", input: {scene: "?scene"}}]
}
`

const loopSpecs = `package specs

sync: StepAgain: {
	set: "loop"
	when: [{action: "Simulation.step", input: {id: "?id"}}]
	then: [{action: "Simulation.step", input: {id: "?id"}}]
}
`
