package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/rule"
)

type actionFunc func(ctx context.Context, in ir.IRObject) (ir.IRObject, error)
type queryFunc func(ctx context.Context, in ir.IRObject) ([]ir.IRObject, error)

// fakeConcept dispatches by name to test-provided functions and records
// every call.
type fakeConcept struct {
	mu      sync.Mutex
	actions map[string]actionFunc
	queries map[string]queryFunc
	calls   []string
}

func newFake() *fakeConcept {
	return &fakeConcept{actions: map[string]actionFunc{}, queries: map[string]queryFunc{}}
}

func (f *fakeConcept) on(action string, fn actionFunc) *fakeConcept {
	f.actions[action] = fn
	return f
}

func (f *fakeConcept) echo(actions ...string) *fakeConcept {
	for _, a := range actions {
		f.actions[a] = func(_ context.Context, in ir.IRObject) (ir.IRObject, error) { return in, nil }
	}
	return f
}

func (f *fakeConcept) query(name string, fn queryFunc) *fakeConcept {
	f.queries[name] = fn
	return f
}

func (f *fakeConcept) Invoke(ctx context.Context, action string, in ir.IRObject) (ir.IRObject, error) {
	f.mu.Lock()
	f.calls = append(f.calls, action)
	fn, ok := f.actions[action]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	return fn(ctx, in)
}

func (f *fakeConcept) Query(ctx context.Context, name string, in ir.IRObject) ([]ir.IRObject, error) {
	fn, ok := f.queries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	return fn(ctx, in)
}

func (f *fakeConcept) count(action string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == action {
			n++
		}
	}
	return n
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

// setupEngine instruments concepts and registers rules under set "test".
func setupEngine(t *testing.T, concepts map[string]Concept, rules []rule.SyncRule, opts ...EngineOption) (*Engine, map[string]*Handle) {
	t.Helper()
	opts = append([]EngineOption{
		WithLogger(quietLogger()),
		WithFlowGenerator(NewSequenceGenerator("flow")),
	}, opts...)
	e := New(opts...)
	handles, err := e.Instrument(concepts)
	require.NoError(t, err)
	if len(rules) > 0 {
		require.NoError(t, e.Register("test", rules...))
	}
	return e, handles
}

func str(s string) ir.IRString { return ir.IRString(s) }
