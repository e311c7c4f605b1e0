package rule

import (
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/frame"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// Pattern is a when-clause entry: an action reference plus partial input
// and output shapes.
type Pattern struct {
	Action ir.ActionRef
	Input  Fields
	Output Fields

	in, out fieldList
}

// Match unifies the pattern with an action record, extending f. Matching
// never mutates f; on failure the returned frame must be discarded.
func (p Pattern) Match(rec ir.ActionRecord, f frame.Frame) (frame.Frame, bool) {
	if rec.Action != p.Action {
		return f, false
	}
	f, ok := p.in.match(rec.Input, f)
	if !ok {
		return f, false
	}
	return p.out.match(rec.Output, f)
}

// Template is a then-clause entry: an action to invoke and an input shape
// whose variables are substituted from each frame.
type Template struct {
	Action ir.ActionRef
	Input  Fields

	in fieldList
}

// Resolve builds the invocation input. An unbound variable yields an
// *UnresolvedError.
func (t Template) Resolve(f frame.Frame) (ir.IRObject, error) {
	return t.in.resolve(f)
}

// Step is a sealed where-clause entry: a Join or a Predicate.
type Step interface {
	stepNode()
}

// Join calls a concept query with arguments resolved from the frame and
// unifies each returned row with Out. Each row that unifies yields one
// extended frame, so zero rows drop the frame (inner join).
type Join struct {
	Query ir.ActionRef
	Args  Fields
	Out   Fields

	args, out fieldList
}

func (Join) stepNode() {}

// ResolveArgs builds the query input. All argument variables must be bound.
func (j Join) ResolveArgs(f frame.Frame) (ir.IRObject, error) {
	return j.args.resolve(f)
}

// BindRow unifies one result row with the output terms.
func (j Join) BindRow(row ir.IRObject, f frame.Frame) (frame.Frame, bool) {
	return j.out.match(row, f)
}

// Apply runs the join for one frame given the query's result rows.
func (j Join) Apply(rows []ir.IRObject, f frame.Frame) frame.Set {
	var out frame.Set
	for _, row := range rows {
		if g, ok := j.BindRow(row, f); ok {
			out = append(out, g)
		}
	}
	return out
}
