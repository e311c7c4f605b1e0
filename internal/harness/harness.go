package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/compiler"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/engine"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/syncs"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/testutil"
)

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
	sets   []syncs.Set
}

// WithLogger sends engine logs to logger instead of discarding them.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) { c.logger = logger }
}

// WithRules runs the scenario against sets instead of the built-in rule
// sets. A scenario's own specs directory takes precedence.
func WithRules(sets ...syncs.Set) Option {
	return func(c *runConfig) { c.sets = sets }
}

// collector gathers records and faults as the engine emits them.
type collector struct {
	engine.NopObserver

	mu     sync.Mutex
	seqs   map[string]int64
	trace  []TraceEvent
	faults []FaultEvent
}

func newCollector() *collector {
	return &collector{seqs: make(map[string]int64)}
}

func (c *collector) OnRecord(_ context.Context, rec ir.ActionRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seqs[rec.ID] = rec.Seq
	c.trace = append(c.trace, TraceEvent{
		Flow:     rec.Flow,
		Seq:      rec.Seq,
		Depth:    rec.Depth,
		Action:   string(rec.Action),
		Input:    rec.Input,
		Output:   rec.Output,
		Rule:     rec.Rule,
		CauseSeq: c.seqs[rec.Cause],
	})
}

func (c *collector) OnFault(_ context.Context, f *engine.Fault) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults = append(c.faults, faultEvent(f))
}

// drain returns and clears what was collected since the last drain.
func (c *collector) drain() ([]TraceEvent, []FaultEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	trace, faults := c.trace, c.faults
	c.trace, c.faults = nil, nil
	return trace, faults
}

// Run executes a scenario on a fresh deterministic platform. The error is
// non-nil only when the scenario could not be executed at all (bad specs,
// failing setup); failed expectations are reported in the result.
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	sets := cfg.sets
	if s.Specs != "" {
		loaded, err := loadRules(s.Specs)
		if err != nil {
			return nil, err
		}
		sets = loaded
	}

	col := newCollector()
	engineOpts := []engine.EngineOption{engine.WithObserver(col)}
	if s.MaxDepth > 0 {
		engineOpts = append(engineOpts, engine.WithMaxDepth(s.MaxDepth))
	}
	if s.CycleDetection {
		engineOpts = append(engineOpts, engine.WithCycleDetection())
	}
	platformOpts := []testutil.PlatformOption{testutil.WithEngineOptions(engineOpts...)}
	if cfg.logger != nil {
		platformOpts = append(platformOpts, testutil.WithLogger(cfg.logger))
	}
	if sets != nil {
		platformOpts = append(platformOpts, testutil.WithRules(sets...))
	}

	p, err := testutil.NewPlatform(platformOpts...)
	if err != nil {
		return nil, err
	}

	if s.Seed {
		if err := p.Seed(ctx); err != nil {
			return nil, err
		}
	}
	for i, step := range s.Setup {
		if err := runSetup(ctx, p, step); err != nil {
			return nil, fmt.Errorf("setup[%d] %s: %w", i, step.Action, err)
		}
	}
	col.drain()

	result := NewResult(s.Name)
	for i, step := range s.Flow {
		runFlowStep(ctx, p, col, i, step, result)
	}
	for i, a := range s.Assertions {
		if err := evaluate(ctx, p, result, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d] %s: %v", i, a.Type, err))
		}
	}
	return result, nil
}

func loadRules(dir string) ([]syncs.Set, error) {
	b, errs := compiler.LoadDir(dir)
	if len(errs) > 0 {
		return nil, fmt.Errorf("load specs %s: %w", dir, errors.Join(errs...))
	}
	var sets []syncs.Set
	for _, rs := range b.Sets() {
		sets = append(sets, syncs.Set{Name: rs.Name, Rules: rs.Rules})
	}
	return sets, nil
}

func runSetup(ctx context.Context, p *testutil.Platform, step ActionStep) error {
	input, err := ir.ObjectFromGo(step.Input)
	if err != nil {
		return err
	}
	out, err := p.Dispatch(ctx, step.Action, input)
	if err != nil {
		return err
	}
	return out.Err()
}

func runFlowStep(ctx context.Context, p *testutil.Platform, col *collector, i int, step FlowStep, result *Result) {
	fail := func(format string, args ...any) {
		result.AddError(fmt.Sprintf("flow[%d] %s: ", i, step.Invoke) + fmt.Sprintf(format, args...))
	}

	input, err := ir.ObjectFromGo(step.Input)
	if err != nil {
		fail("input: %v", err)
		return
	}

	out, dispatchErr := p.Dispatch(ctx, step.Invoke, input)
	trace, faults := col.drain()
	result.Trace = append(result.Trace, trace...)
	result.Faults = append(result.Faults, faults...)

	e := step.Expect
	if dispatchErr != nil {
		if e == nil || !e.Fails {
			fail("unexpected failure: %v", dispatchErr)
		}
		if e != nil && e.Faults != nil {
			checkFaultCodes(fail, e.Faults, faults)
		}
		return
	}
	if e == nil {
		return
	}
	if e.Fails {
		fail("expected the stimulus to fail, got output %s", render(out.Output))
		return
	}

	if e.Output != nil {
		want, err := ir.ObjectFromGo(e.Output)
		if err != nil {
			fail("expect.output: %v", err)
		} else if !matchSubset(want, out.Output) {
			fail("output %s does not contain %s", render(out.Output), render(want))
		}
	}

	if e.Response != nil || e.Unanswered {
		resp, err := p.Response(ctx, out.Output["request"])
		switch {
		case err != nil:
			fail("read response: %v", err)
		case e.Unanswered:
			if _, null := resp.(ir.IRNull); !null {
				fail("expected no response, got %s", render(resp))
			}
		default:
			want, err := ir.ObjectFromGo(e.Response)
			if err != nil {
				fail("expect.response: %v", err)
			} else if !matchSubset(want, resp) {
				fail("response %s does not contain %s", render(resp), render(want))
			}
		}
	}

	if e.Actions != nil {
		got := make([]string, len(out.Records))
		for j, r := range out.Records {
			got[j] = string(r.Action)
		}
		if !slices.Equal(e.Actions, got) {
			fail("actions %v, want %v", got, e.Actions)
		}
	}

	if e.Faults != nil {
		checkFaultCodes(fail, e.Faults, faults)
	}
}

func checkFaultCodes(fail func(string, ...any), want []string, faults []FaultEvent) {
	got := make([]string, len(faults))
	for i, f := range faults {
		got[i] = f.Code
	}
	if !slices.Equal(want, got) {
		fail("faults %v, want %v", got, want)
	}
}

func render(v ir.IRValue) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
