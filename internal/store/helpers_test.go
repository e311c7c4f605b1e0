package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/engine"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/rule"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(flow string, seq int64, action string, input, output ir.IRObject) ir.ActionRecord {
	ref := ir.ActionRef(action)
	return ir.ActionRecord{
		ID:     ir.MustRecordID(flow, ref, input, output, seq),
		Flow:   flow,
		Seq:    seq,
		Action: ref,
		Input:  input,
		Output: output,
	}
}

// echo returns every action's input as its output.
type echo struct{}

func (echo) Invoke(_ context.Context, _ string, in ir.IRObject) (ir.IRObject, error) {
	return in, nil
}

func (echo) Query(context.Context, string, ir.IRObject) ([]ir.IRObject, error) {
	return nil, nil
}

// recordingEngine wires a Recorder into an engine running two rules on
// Simulation.step: RenderOnStep and Broken, whose template reads an
// unbound variable.
func recordingEngine(t *testing.T, s *Store) (*engine.Handle, *Recorder) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := NewRecorder(s, logger)
	e := engine.New(
		engine.WithLogger(logger),
		engine.WithObserver(rec),
		engine.WithFlowGenerator(engine.NewSequenceGenerator("flow")),
	)
	handles, err := e.Instrument(map[string]engine.Concept{"Simulation": echo{}, "Renderer": echo{}})
	require.NoError(t, err)
	require.NoError(t, e.Register("test",
		rule.Sync("RenderOnStep").
			When("Simulation.step", rule.Fields{"id": rule.V("scene")}, nil).
			Then("Renderer.render", rule.Fields{"scene": rule.V("scene")}).
			MustBuild(),
		rule.Sync("Broken").
			When("Simulation.step", rule.Fields{"id": rule.V("scene")}, nil).
			Then("Renderer.render", rule.Fields{"scene": rule.V("missing")}).
			MustBuild(),
	))
	return handles["Simulation"], rec
}
