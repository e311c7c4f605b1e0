package rule

import (
	"fmt"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/frame"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// UnresolvedError reports a template or query argument that references a
// variable with no binding. It is a rule configuration defect, never a
// silent non-match.
type UnresolvedError struct {
	Var string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("variable %q is not bound", e.Var)
}

// matchTerm unifies t against v, extending f.
func matchTerm(t Term, v ir.IRValue, f frame.Frame) (frame.Frame, bool) {
	switch t := t.(type) {
	case Var:
		return f.Bind(t.id, v)
	case Lit:
		return f, ir.Equal(t.Value, v)
	case compiledObj:
		obj, ok := v.(ir.IRObject)
		if !ok {
			return f, false
		}
		return fieldList(t).match(obj, f)
	case List:
		arr, ok := v.(ir.IRArray)
		if !ok || len(arr) != len(t) {
			return f, false
		}
		for i, elem := range t {
			if f, ok = matchTerm(elem, arr[i], f); !ok {
				return f, false
			}
		}
		return f, true
	default:
		return f, false
	}
}

// match unifies each listed field with obj. Fields not listed are ignored;
// a listed field missing from obj fails the match.
func (fl fieldList) match(obj ir.IRObject, f frame.Frame) (frame.Frame, bool) {
	for _, fd := range fl {
		v, ok := obj[fd.key]
		if !ok {
			return f, false
		}
		if f, ok = matchTerm(fd.term, v, f); !ok {
			return f, false
		}
	}
	return f, true
}

// resolveTerm substitutes bindings from f into t.
func resolveTerm(t Term, f frame.Frame) (ir.IRValue, error) {
	switch t := t.(type) {
	case Var:
		v, ok := f.Get(t.id)
		if !ok {
			return nil, &UnresolvedError{Var: t.Name}
		}
		return v, nil
	case Lit:
		if t.Value == nil {
			return ir.IRNull{}, nil
		}
		return t.Value, nil
	case compiledObj:
		return fieldList(t).resolve(f)
	case List:
		out := make(ir.IRArray, len(t))
		for i, elem := range t {
			v, err := resolveTerm(elem, f)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported term %T", t)
	}
}

func (fl fieldList) resolve(f frame.Frame) (ir.IRObject, error) {
	out := make(ir.IRObject, len(fl))
	for _, fd := range fl {
		v, err := resolveTerm(fd.term, f)
		if err != nil {
			return nil, err
		}
		out[fd.key] = v
	}
	return out, nil
}
