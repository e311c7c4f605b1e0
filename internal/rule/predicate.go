package rule

import (
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/frame"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// Predicate is a sealed, pure filter over a single frame.
//
// Predicate types:
//   - Equals / NotEquals: compare two terms
//   - Bound: the variable has a non-null binding
//   - And: all predicates hold
//   - Func: host function over named variables
//
// There is no Or; use two rules.
type Predicate interface {
	Step
	eval(f frame.Frame) (bool, error)
	compile(syms *frame.Symbols) Predicate
	vars(fn func(name string, required bool))
}

// Equals holds when both terms resolve to equal values.
type Equals struct {
	Left, Right Term
}

func (Equals) stepNode() {}

func (p Equals) eval(f frame.Frame) (bool, error) {
	l, r, err := resolvePair(p.Left, p.Right, f)
	if err != nil {
		return false, err
	}
	return ir.Equal(l, r), nil
}

func (p Equals) compile(syms *frame.Symbols) Predicate {
	return Equals{Left: compileTerm(p.Left, syms), Right: compileTerm(p.Right, syms)}
}

func (p Equals) vars(fn func(string, bool)) {
	walkRequired(fn, p.Left, p.Right)
}

// NotEquals holds when both terms resolve to different values.
type NotEquals struct {
	Left, Right Term
}

func (NotEquals) stepNode() {}

func (p NotEquals) eval(f frame.Frame) (bool, error) {
	l, r, err := resolvePair(p.Left, p.Right, f)
	if err != nil {
		return false, err
	}
	return !ir.Equal(l, r), nil
}

func (p NotEquals) compile(syms *frame.Symbols) Predicate {
	return NotEquals{Left: compileTerm(p.Left, syms), Right: compileTerm(p.Right, syms)}
}

func (p NotEquals) vars(fn func(string, bool)) {
	walkRequired(fn, p.Left, p.Right)
}

// Bound holds when Var is bound to something other than null. Unlike the
// other predicates it never reports an unresolved variable.
type Bound struct {
	Var Var
}

func (Bound) stepNode() {}

func (p Bound) eval(f frame.Frame) (bool, error) {
	v, ok := f.Get(p.Var.id)
	if !ok {
		return false, nil
	}
	_, isNull := v.(ir.IRNull)
	return !isNull, nil
}

func (p Bound) compile(syms *frame.Symbols) Predicate {
	return Bound{Var: compileTerm(p.Var, syms).(Var)}
}

func (p Bound) vars(fn func(string, bool)) {
	fn(p.Var.Name, false)
}

// And holds when every predicate holds. Evaluation stops at the first
// false one.
type And struct {
	Preds []Predicate
}

func (And) stepNode() {}

func (p And) eval(f frame.Frame) (bool, error) {
	for _, pred := range p.Preds {
		ok, err := pred.eval(f)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (p And) compile(syms *frame.Symbols) Predicate {
	out := And{Preds: make([]Predicate, len(p.Preds))}
	for i, pred := range p.Preds {
		out.Preds[i] = pred.compile(syms)
	}
	return out
}

func (p And) vars(fn func(string, bool)) {
	for _, pred := range p.Preds {
		pred.vars(fn)
	}
}

// Func applies a host function to the named variables' values. All named
// variables must be bound.
type Func struct {
	Name string
	Vars []Var
	Fn   func(args ir.IRObject) bool
}

func (Func) stepNode() {}

func (p Func) eval(f frame.Frame) (bool, error) {
	args := make(ir.IRObject, len(p.Vars))
	for _, v := range p.Vars {
		val, err := resolveTerm(v, f)
		if err != nil {
			return false, err
		}
		args[v.Name] = val
	}
	return p.Fn(args), nil
}

func (p Func) compile(syms *frame.Symbols) Predicate {
	out := Func{Name: p.Name, Fn: p.Fn, Vars: make([]Var, len(p.Vars))}
	for i, v := range p.Vars {
		out.Vars[i] = compileTerm(v, syms).(Var)
	}
	return out
}

func (p Func) vars(fn func(string, bool)) {
	for _, v := range p.Vars {
		fn(v.Name, true)
	}
}

// Eq builds an Equals predicate.
func Eq(left, right Term) Equals { return Equals{Left: left, Right: right} }

// Neq builds a NotEquals predicate.
func Neq(left, right Term) NotEquals { return NotEquals{Left: left, Right: right} }

// IsBound builds a Bound predicate.
func IsBound(name string) Bound { return Bound{Var: V(name)} }

// All builds an And predicate.
func All(preds ...Predicate) And { return And{Preds: preds} }

// Fn builds a Func predicate over the named variables.
func Fn(name string, fn func(args ir.IRObject) bool, vars ...string) Func {
	p := Func{Name: name, Fn: fn}
	for _, v := range vars {
		p.Vars = append(p.Vars, V(v))
	}
	return p
}

// Eval evaluates a compiled predicate against a frame.
func Eval(p Predicate, f frame.Frame) (bool, error) {
	return p.eval(f)
}

func resolvePair(a, b Term, f frame.Frame) (ir.IRValue, ir.IRValue, error) {
	l, err := resolveTerm(a, f)
	if err != nil {
		return nil, nil, err
	}
	r, err := resolveTerm(b, f)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

func walkRequired(fn func(string, bool), terms ...Term) {
	for _, t := range terms {
		walkVars(t, func(name string) { fn(name, true) })
	}
}
