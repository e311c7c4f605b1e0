package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/rule"
)

// DefaultMaxDepth is the default cascade depth ceiling. The stimulus is at
// depth 0; an invocation deeper than the ceiling faults instead of running.
const DefaultMaxDepth = 256

// DefaultHistorySize is the default number of recent records retained for
// diagnostics.
const DefaultHistorySize = 256

// Engine owns the instrumented concepts, the rule registry and the
// dispatcher. There is no package-level engine; compose one per program (or
// per test).
//
// Thread-safety:
//   - Instrument and Register: call during startup composition
//   - Dispatch / Handle.Invoke: safe from any goroutine; root stimuli are
//     serialized, so a cascade never interleaves with another
//   - Enqueue: safe from any goroutine; Run processes the queue
type Engine struct {
	mu sync.Mutex // serializes root stimuli

	cmu      sync.RWMutex
	concepts map[string]Concept
	handles  map[string]*Handle

	registry *rule.Registry
	clock    *Clock
	flowGen  FlowTokenGenerator
	cycles   *CycleDetector
	history  *history
	queue    *stimulusQueue

	maxDepth    int
	historySize int
	level       atomic.Int32
	logger      *slog.Logger
	observers   observers
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxDepth sets the cascade depth ceiling.
func WithMaxDepth(depth int) EngineOption {
	return func(e *Engine) {
		e.maxDepth = depth
	}
}

// WithTraceLevel sets the initial trace level.
func WithTraceLevel(level TraceLevel) EngineOption {
	return func(e *Engine) {
		e.level.Store(int32(level))
	}
}

// WithLogger sets the logger used for tracing and faults. Defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithObserver adds observers, called after the built-in tracer.
func WithObserver(obs ...Observer) EngineOption {
	return func(e *Engine) {
		e.observers = append(e.observers, obs...)
	}
}

// WithFlowGenerator sets the flow token generator.
func WithFlowGenerator(gen FlowTokenGenerator) EngineOption {
	return func(e *Engine) {
		e.flowGen = gen
	}
}

// WithClock sets the logical clock, for example one resumed with
// NewClockAt after a persisted trace.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithCycleDetection reports a rule firing twice with identical bindings in
// one cascade as a CYCLE_DETECTED fault instead of following it.
func WithCycleDetection() EngineOption {
	return func(e *Engine) {
		e.cycles = NewCycleDetector()
	}
}

// WithHistory sets how many recent records Recent retains. Zero disables it.
func WithHistory(size int) EngineOption {
	return func(e *Engine) {
		e.historySize = size
	}
}

// New creates an engine with no concepts and no rules.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		concepts:    make(map[string]Concept),
		handles:     make(map[string]*Handle),
		registry:    rule.NewRegistry(),
		clock:       NewClock(),
		flowGen:     UUIDv7Generator{},
		queue:       newStimulusQueue(),
		maxDepth:    DefaultMaxDepth,
		historySize: DefaultHistorySize,
	}
	e.level.Store(int32(TraceSummary))

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.history = newHistory(e.historySize)

	tr := tracer{logger: e.logger, level: e.TraceLevel}
	e.observers = append(observers{tr}, e.observers...)
	return e
}

// Instrument wraps concepts in handles and makes them available to rules
// under their map keys. Names must be unique and must not contain '.'.
func (e *Engine) Instrument(concepts map[string]Concept) (map[string]*Handle, error) {
	e.cmu.Lock()
	defer e.cmu.Unlock()

	for name, c := range concepts {
		if name == "" || strings.Contains(name, ".") {
			return nil, fmt.Errorf("invalid concept name %q", name)
		}
		if c == nil {
			return nil, fmt.Errorf("concept %q is nil", name)
		}
		if _, ok := e.concepts[name]; ok {
			return nil, fmt.Errorf("concept %q already instrumented", name)
		}
	}

	out := make(map[string]*Handle, len(concepts))
	for name, c := range concepts {
		h := &Handle{name: name, concept: c, engine: e}
		e.concepts[name] = c
		e.handles[name] = h
		out[name] = h
	}
	return out, nil
}

// Handle returns the handle of an instrumented concept.
func (e *Engine) Handle(name string) (*Handle, bool) {
	e.cmu.RLock()
	defer e.cmu.RUnlock()
	h, ok := e.handles[name]
	return h, ok
}

// Concepts returns the instrumented concept names.
func (e *Engine) Concepts() []string {
	e.cmu.RLock()
	defer e.cmu.RUnlock()
	names := make([]string, 0, len(e.concepts))
	for name := range e.concepts {
		names = append(names, name)
	}
	return names
}

// Register appends a named collection of rules. Rules are evaluated in
// registration order. Registration closes when the first stimulus is
// dispatched; later calls return rule.ErrSealed.
func (e *Engine) Register(set string, rules ...rule.SyncRule) error {
	if err := e.registry.Add(set, rules...); err != nil {
		return err
	}
	for i := range rules {
		for _, issue := range rule.Check(&rules[i]) {
			e.logger.Warn("rule reads an unbound variable",
				"rule", set+"."+rules[i].Name,
				"clause", issue.Clause,
				"variable", issue.Var,
			)
		}
	}
	return nil
}

// Rules returns the registered rules in evaluation order.
func (e *Engine) Rules() []*rule.SyncRule {
	return e.registry.Rules()
}

// SetTraceLevel changes the trace level. Safe to call at any time.
func (e *Engine) SetTraceLevel(level TraceLevel) {
	e.level.Store(int32(level))
}

// TraceLevel returns the current trace level.
func (e *Engine) TraceLevel() TraceLevel {
	return TraceLevel(e.level.Load())
}

// MaxDepth returns the depth ceiling.
func (e *Engine) MaxDepth() int {
	return e.maxDepth
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// Recent returns the retained recent records, oldest first.
func (e *Engine) Recent() []ir.ActionRecord {
	return e.history.snapshot()
}

// Dispatch invokes action with input and runs the cascade to completion.
//
// Called from inside a running cascade (a concept calling a handle), the
// invocation joins that cascade one level deeper instead of starting a new
// one. The returned error is non-nil only when the action itself could not
// run; cascade faults are reported on the Outcome.
func (e *Engine) Dispatch(ctx context.Context, action ir.ActionRef, input ir.IRObject) (*Outcome, error) {
	if _, err := ir.ParseActionRef(string(action)); err != nil {
		return nil, err
	}
	if action.IsQuery() {
		return nil, fmt.Errorf("%s is a query; use Handle.Query", action)
	}
	if input == nil {
		input = ir.IRObject{}
	}

	if c := cascadeFrom(ctx); c != nil {
		return e.dispatchNested(ctx, c, action, input)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.registry.Seal()

	c := newCascade(e.flowGen.Generate())
	ctx = withCascade(ctx, c)
	if e.cycles != nil {
		defer e.cycles.Clear(c.flow)
	}

	rec, err := e.perform(ctx, c, action, input, 0, "", "")
	if err != nil {
		f := e.actionFault(c, action, 0, "", err)
		e.observers.fault(ctx, f)
		return nil, f
	}
	c.root = rec
	e.notify(ctx, c, rec)

	out := c.outcome()
	e.observers.cascade(ctx, out)
	return out, nil
}

func (e *Engine) dispatchNested(ctx context.Context, c *cascade, action ir.ActionRef, input ir.IRObject) (*Outcome, error) {
	depth := c.active + 1
	if depth > e.maxDepth {
		f := e.depthFault(c, action, depth, "", "")
		e.raise(ctx, c, f)
		return nil, f
	}
	start := len(c.records)
	rec, err := e.perform(ctx, c, action, input, depth, "", "")
	if err != nil {
		return nil, err
	}
	e.notify(ctx, c, rec)

	return &Outcome{
		Flow:    c.flow,
		Output:  rec.Output,
		Root:    rec,
		Records: append([]ir.ActionRecord(nil), c.records[start:]...),
		Aborted: c.aborted,
	}, nil
}

// Enqueue queues a stimulus for Run. The returned channel receives exactly
// one Result. ok is false once the engine has stopped.
func (e *Engine) Enqueue(action ir.ActionRef, input ir.IRObject) (<-chan Result, bool) {
	done := make(chan Result, 1)
	ok := e.queue.enqueue(Stimulus{Action: action, Input: input, done: done})
	return done, ok
}

// QueueLen returns the number of queued stimuli.
func (e *Engine) QueueLen() int {
	return e.queue.len()
}

// Run dispatches queued stimuli in FIFO order until ctx is cancelled or Stop
// is called. On cancellation, stimuli still queued receive ctx.Err().
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "max_depth", e.maxDepth, "rules", e.registry.Len())

	for {
		if ctx.Err() != nil {
			return e.cancelQueued(ctx)
		}
		if s, ok := e.queue.tryDequeue(); ok {
			out, err := e.Dispatch(ctx, s.Action, s.Input)
			if err != nil {
				e.logger.Error("stimulus failed", "action", s.Action, "err", err)
			}
			s.done <- Result{Outcome: out, Err: err}
			continue
		}

		select {
		case <-ctx.Done():
			return e.cancelQueued(ctx)
		case <-e.queue.wait():
			if e.queue.isClosed() && e.queue.len() == 0 {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// cancelQueued closes the queue and fails every stimulus still in it.
func (e *Engine) cancelQueued(ctx context.Context) error {
	e.logger.Info("engine stopping: context cancelled", "pending", e.queue.len())
	e.queue.close()
	for {
		s, ok := e.queue.tryDequeue()
		if !ok {
			return ctx.Err()
		}
		s.done <- Result{Err: ctx.Err()}
	}
}

// Stop closes the queue; Run returns once it has drained.
func (e *Engine) Stop() {
	e.queue.close()
}

func (e *Engine) concept(name string) (Concept, bool) {
	e.cmu.RLock()
	defer e.cmu.RUnlock()
	c, ok := e.concepts[name]
	return c, ok
}

// perform runs one action and seals its record. It returns an error, and
// produces no record, when the concept is missing, fails or panics.
func (e *Engine) perform(ctx context.Context, c *cascade, action ir.ActionRef, input ir.IRObject, depth int, cause, ruleID string) (rec ir.ActionRecord, err error) {
	con, ok := e.concept(action.Concept())
	if !ok {
		return rec, fmt.Errorf("%w %q", ErrUnknownConcept, action.Concept())
	}

	prev := c.active
	c.active = depth
	defer func() { c.active = prev }()

	output, err := invokeSafely(ctx, con, action.Name(), input)
	if err != nil {
		return rec, err
	}
	if output == nil {
		output = ir.IRObject{}
	}

	seq := e.clock.Next()
	id, err := ir.RecordID(c.flow, action, input, output, seq)
	if err != nil {
		return rec, fmt.Errorf("record id for %s: %w", action, err)
	}
	rec = ir.ActionRecord{
		ID:     id,
		Flow:   c.flow,
		Seq:    seq,
		Depth:  depth,
		Action: action,
		Input:  input,
		Output: output,
		Cause:  cause,
		Rule:   ruleID,
	}
	c.records = append(c.records, rec)
	e.history.push(rec)
	e.observers.record(ctx, rec)
	return rec, nil
}

func invokeSafely(ctx context.Context, con Concept, action string, input ir.IRObject) (out ir.IRObject, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action %s panicked: %v", action, r)
		}
	}()
	return con.Invoke(ctx, action, input)
}

// raise records a fault on the cascade and reports it.
func (e *Engine) raise(ctx context.Context, c *cascade, f *Fault) {
	if f.Code == FaultDepthExceeded {
		c.aborted = true
	}
	c.faults = append(c.faults, f)
	e.observers.fault(ctx, f)
}

func (e *Engine) newFault(c *cascade, code FaultCode, msg string) *Fault {
	f := &Fault{Code: code, Message: msg, Flow: c.flow}
	if c.root.ID != "" {
		f.RootID = c.root.ID
		f.RootAction = c.root.Action
	}
	return f
}

func (e *Engine) depthFault(c *cascade, action ir.ActionRef, depth int, ruleID, trigger string) *Fault {
	f := e.newFault(c, FaultDepthExceeded,
		fmt.Sprintf("cascade exceeded max depth %d", e.maxDepth))
	f.Action = action
	f.Depth = depth
	f.Rule = ruleID
	f.Trigger = trigger
	return f
}

func (e *Engine) actionFault(c *cascade, action ir.ActionRef, depth int, ruleID string, err error) *Fault {
	code := FaultActionFailed
	if errors.Is(err, ErrUnknownConcept) {
		code = FaultUnknownConcept
	}
	f := e.newFault(c, code, fmt.Sprintf("invoke %s failed", action))
	f.Action = action
	f.Depth = depth
	f.Rule = ruleID
	f.Err = err
	return f
}
