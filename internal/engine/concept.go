package engine

import (
	"context"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// Concept is an independent unit of state and behavior. Concepts never call
// each other; rules compose them.
//
// Invoke runs the named action. A business failure is reported in the
// output (an "error" field), not as a Go error; a returned error is a fault
// and produces no record. Query runs a read-only query (name starting with
// "_") and returns zero or more rows.
type Concept interface {
	Invoke(ctx context.Context, action string, input ir.IRObject) (ir.IRObject, error)
	Query(ctx context.Context, query string, input ir.IRObject) ([]ir.IRObject, error)
}

// Handle is the instrumented form of a concept. All calls that should be
// visible to rules go through it.
type Handle struct {
	name    string
	concept Concept
	engine  *Engine
}

// Name returns the concept name.
func (h *Handle) Name() string {
	return h.name
}

// Invoke runs an action as a stimulus (or, inside a running cascade, as a
// nested invocation) and returns its own output once the resulting cascade
// has finished. Cascade faults do not change the output; use Dispatch to see
// them.
func (h *Handle) Invoke(ctx context.Context, action string, input ir.IRObject) (ir.IRObject, error) {
	out, err := h.Dispatch(ctx, action, input)
	if err != nil {
		return nil, err
	}
	return out.Output, nil
}

// Dispatch is like Invoke but returns the whole cascade.
func (h *Handle) Dispatch(ctx context.Context, action string, input ir.IRObject) (*Outcome, error) {
	return h.engine.Dispatch(ctx, ir.NewActionRef(h.name, action), input)
}

// Query runs a concept query. Queries produce no records and trigger no
// rules.
func (h *Handle) Query(ctx context.Context, query string, input ir.IRObject) ([]ir.IRObject, error) {
	if input == nil {
		input = ir.IRObject{}
	}
	return h.concept.Query(ctx, query, input)
}

// Outcome is the result of one stimulus.
type Outcome struct {
	Flow   string
	Output ir.IRObject

	// Root is the stimulus' own record.
	Root ir.ActionRecord

	// Records holds every record of the cascade in sequence order, Root
	// first.
	Records []ir.ActionRecord

	// Faults holds every fault raised while dispatching the cascade.
	Faults []*Fault

	// Aborted is set when a fault stopped the whole cascade.
	Aborted bool
}

// Err joins the outcome's faults, or returns nil.
func (o *Outcome) Err() error {
	if len(o.Faults) == 0 {
		return nil
	}
	errs := make([]error, len(o.Faults))
	for i, f := range o.Faults {
		errs[i] = f
	}
	return joinErrors(errs)
}

// Count returns how many records of the cascade are for action.
func (o *Outcome) Count(action ir.ActionRef) int {
	n := 0
	for _, r := range o.Records {
		if r.Action == action {
			n++
		}
	}
	return n
}

// Actions returns the cascade's actions in order.
func (o *Outcome) Actions() []ir.ActionRef {
	out := make([]ir.ActionRef, len(o.Records))
	for i, r := range o.Records {
		out[i] = r.Action
	}
	return out
}

// MaxDepth returns the deepest record depth in the cascade.
func (o *Outcome) MaxDepth() int {
	d := 0
	for _, r := range o.Records {
		if r.Depth > d {
			d = r.Depth
		}
	}
	return d
}
