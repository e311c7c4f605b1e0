package rule

import (
	"sort"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/frame"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// Term is a sealed interface over the pieces of patterns and templates.
//
// Term types:
//   - Var: a named variable, bound on first match and unified afterwards
//   - Lit: a literal value compared with ir.Equal
//   - Obj: an object whose fields are matched as a subset
//   - List: an array matched element-wise
type Term interface {
	termNode()
}

// Var is a variable reference. The index is assigned when the rule is built.
type Var struct {
	Name string
	id   frame.Var
}

func (Var) termNode() {}

// Lit is a literal value.
type Lit struct {
	Value ir.IRValue
}

func (Lit) termNode() {}

// Obj is a nested object pattern or template.
type Obj Fields

func (Obj) termNode() {}

// List is an array pattern or template.
type List []Term

func (List) termNode() {}

// Fields maps field names to terms.
type Fields map[string]Term

// V references the variable name.
func V(name string) Var { return Var{Name: name, id: -1} }

// L wraps a value as a literal.
func L(v ir.IRValue) Lit { return Lit{Value: v} }

// S is a string literal.
func S(s string) Lit { return Lit{Value: ir.IRString(s)} }

// I is an integer literal.
func I(n int64) Lit { return Lit{Value: ir.IRInt(n)} }

// F is a float literal.
func F(f float64) Lit { return Lit{Value: ir.IRFloat(f)} }

// B is a boolean literal.
func B(b bool) Lit { return Lit{Value: ir.IRBool(b)} }

// field is a compiled object entry. Compiled objects are sorted by key so
// evaluation order is deterministic.
type field struct {
	key  string
	term Term
}

type fieldList []field

func sortedKeys(fields Fields) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func compileFields(fields Fields, syms *frame.Symbols) fieldList {
	keys := sortedKeys(fields)
	out := make(fieldList, len(keys))
	for i, k := range keys {
		out[i] = field{key: k, term: compileTerm(fields[k], syms)}
	}
	return out
}

// compiledObj is the built form of Obj.
type compiledObj fieldList

func (compiledObj) termNode() {}

func compileTerm(t Term, syms *frame.Symbols) Term {
	switch t := t.(type) {
	case Var:
		return Var{Name: t.Name, id: syms.Intern(t.Name)}
	case Obj:
		return compiledObj(compileFields(Fields(t), syms))
	case compiledObj:
		return t
	case List:
		out := make(List, len(t))
		for i, elem := range t {
			out[i] = compileTerm(elem, syms)
		}
		return out
	case nil:
		return Lit{Value: ir.IRNull{}}
	default:
		return t
	}
}

// walkVars calls fn for every variable name in t, in evaluation order.
func walkVars(t Term, fn func(name string)) {
	switch t := t.(type) {
	case Var:
		fn(t.Name)
	case Obj:
		for _, k := range sortedKeys(Fields(t)) {
			walkVars(t[k], fn)
		}
	case compiledObj:
		for _, f := range t {
			walkVars(f.term, fn)
		}
	case List:
		for _, elem := range t {
			walkVars(elem, fn)
		}
	}
}

func (fl fieldList) walkVars(fn func(name string)) {
	for _, f := range fl {
		walkVars(f.term, fn)
	}
}
