package rule

import (
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/frame"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// SyncRule is a built, immutable synchronization rule.
type SyncRule struct {
	Name  string
	When  []Pattern
	Where []Step
	Then  []Template

	// Set is the name of the collection the rule was registered under.
	Set string

	syms *frame.Symbols
}

// ID returns the registry-qualified name ("set.Name"), or Name before
// registration.
func (r *SyncRule) ID() string {
	if r.Set == "" {
		return r.Name
	}
	return r.Set + "." + r.Name
}

// Symbols returns the rule's interned variables.
func (r *SyncRule) Symbols() *frame.Symbols {
	return r.syms
}

// NewFrame returns an empty frame sized for the rule's variables.
func (r *SyncRule) NewFrame() frame.Frame {
	return frame.Empty(r.syms.Len())
}

// Triggers returns the distinct actions named in the when clause, in order.
func (r *SyncRule) Triggers() []ir.ActionRef {
	seen := make(map[ir.ActionRef]bool, len(r.When))
	var out []ir.ActionRef
	for _, p := range r.When {
		if !seen[p.Action] {
			seen[p.Action] = true
			out = append(out, p.Action)
		}
	}
	return out
}

// compile interns every variable in declaration order (when, where, then)
// and fills in the compiled field lists.
func (r *SyncRule) compile() {
	syms := frame.NewSymbols()

	for i, p := range r.When {
		r.When[i].in = compileFields(p.Input, syms)
		r.When[i].out = compileFields(p.Output, syms)
	}
	for i, s := range r.Where {
		switch s := s.(type) {
		case Join:
			s.args = compileFields(s.Args, syms)
			s.out = compileFields(s.Out, syms)
			r.Where[i] = s
		case Predicate:
			r.Where[i] = s.compile(syms)
		}
	}
	for i, t := range r.Then {
		r.Then[i].in = compileFields(t.Input, syms)
	}
	r.syms = syms
}
