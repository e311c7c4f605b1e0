package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/rule"
)

// DefaultSet is the rule set of syncs that do not name one.
const DefaultSet = "specs"

// CompiledSync is a compiled rule and the rule set it is registered under.
type CompiledSync struct {
	Set  string
	Rule rule.SyncRule
}

// CompileSync parses a CUE sync value into a rule. The value is the sync
// struct itself; its label is the rule name:
//
//	sync: RenderOnStep: {
//		set: "solar"
//		when: [{action: "Simulation.step", output: {id: "?scene"}}]
//		where: [
//			{query: "Renderer._getScene", args: {id: "?scene"}, bind: {width: "?w"}},
//			{filter: "neq", var: "?w", value: 0},
//		]
//		then: [{action: "Renderer.render", input: {scene: "?scene"}}]
//	}
//
// Filters are "bound" (var), "eq" and "neq" (var, value) and "all" (of).
func CompileSync(v cue.Value) (*CompiledSync, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	name := label(v)
	out := &CompiledSync{Set: DefaultSet}
	if setVal := v.LookupPath(cue.ParsePath("set")); setVal.Exists() {
		set, err := setVal.String()
		if err != nil {
			return nil, &CompileError{Field: "set", Message: "set must be a string", Pos: setVal.Pos()}
		}
		out.Set = set
	}

	b := rule.Sync(name)

	whenVal := v.LookupPath(cue.ParsePath("when"))
	if !whenVal.Exists() {
		return nil, &CompileError{Field: "when", Message: "when clause is required", Pos: v.Pos()}
	}
	if err := eachEntry(whenVal, "when", func(e cue.Value, field string) error {
		action, err := actionRef(e, field)
		if err != nil {
			return err
		}
		input, err := compileFields(e.LookupPath(cue.ParsePath("input")), field+".input")
		if err != nil {
			return err
		}
		output, err := compileFields(e.LookupPath(cue.ParsePath("output")), field+".output")
		if err != nil {
			return err
		}
		b.When(action, input, output)
		return nil
	}); err != nil {
		return nil, err
	}

	if whereVal := v.LookupPath(cue.ParsePath("where")); whereVal.Exists() {
		if err := eachEntry(whereVal, "where", func(e cue.Value, field string) error {
			return compileWhere(b, e, field)
		}); err != nil {
			return nil, err
		}
	}

	thenVal := v.LookupPath(cue.ParsePath("then"))
	if !thenVal.Exists() {
		return nil, &CompileError{Field: "then", Message: "then clause is required", Pos: v.Pos()}
	}
	if err := eachEntry(thenVal, "then", func(e cue.Value, field string) error {
		action, err := actionRef(e, field)
		if err != nil {
			return err
		}
		input, err := compileFields(e.LookupPath(cue.ParsePath("input")), field+".input")
		if err != nil {
			return err
		}
		b.Then(action, input)
		return nil
	}); err != nil {
		return nil, err
	}

	r, err := b.Build()
	if err != nil {
		return nil, &CompileError{Field: "sync", Message: err.Error(), Pos: v.Pos()}
	}
	out.Rule = r
	return out, nil
}

// eachEntry calls fn for every element of a clause list. A single struct
// is accepted as a one-element list.
func eachEntry(v cue.Value, clause string, fn func(cue.Value, string) error) error {
	if v.IncompleteKind() == cue.StructKind {
		return fn(v, clause+"[0]")
	}
	iter, err := v.List()
	if err != nil {
		return &CompileError{Field: clause, Message: "must be a list", Pos: v.Pos()}
	}
	for i := 0; iter.Next(); i++ {
		if err := fn(iter.Value(), fmt.Sprintf("%s[%d]", clause, i)); err != nil {
			return err
		}
	}
	return nil
}

func actionRef(e cue.Value, field string) (string, error) {
	av := e.LookupPath(cue.ParsePath("action"))
	if !av.Exists() {
		return "", &CompileError{Field: field + ".action", Message: "action is required", Pos: e.Pos()}
	}
	s, err := av.String()
	if err != nil {
		return "", &CompileError{Field: field + ".action", Message: "action must be a string action reference", Pos: av.Pos()}
	}
	return s, nil
}

func compileWhere(b *rule.Builder, e cue.Value, field string) error {
	if qv := e.LookupPath(cue.ParsePath("query")); qv.Exists() {
		query, err := qv.String()
		if err != nil {
			return &CompileError{Field: field + ".query", Message: "query must be a string reference", Pos: qv.Pos()}
		}
		args, err := compileFields(e.LookupPath(cue.ParsePath("args")), field+".args")
		if err != nil {
			return err
		}
		bind, err := compileFields(e.LookupPath(cue.ParsePath("bind")), field+".bind")
		if err != nil {
			return err
		}
		b.Query(query, args, bind)
		return nil
	}
	pred, err := compileFilter(e, field)
	if err != nil {
		return err
	}
	b.Filter(pred)
	return nil
}

func compileFilter(e cue.Value, field string) (rule.Predicate, error) {
	fv := e.LookupPath(cue.ParsePath("filter"))
	if !fv.Exists() {
		return nil, &CompileError{Field: field, Message: "where entry needs a query or a filter", Pos: e.Pos()}
	}
	kind, err := fv.String()
	if err != nil {
		return nil, &CompileError{Field: field + ".filter", Message: "filter must be a string", Pos: fv.Pos()}
	}

	switch kind {
	case "bound":
		v, err := variable(e.LookupPath(cue.ParsePath("var")), field+".var")
		if err != nil {
			return nil, err
		}
		return rule.Bound{Var: v}, nil
	case "eq", "neq":
		v, err := variable(e.LookupPath(cue.ParsePath("var")), field+".var")
		if err != nil {
			return nil, err
		}
		valueVal := e.LookupPath(cue.ParsePath("value"))
		if !valueVal.Exists() {
			return nil, &CompileError{Field: field + ".value", Message: "value is required", Pos: e.Pos()}
		}
		value, err := compileTerm(valueVal, field+".value")
		if err != nil {
			return nil, err
		}
		if kind == "eq" {
			return rule.Eq(v, value), nil
		}
		return rule.Neq(v, value), nil
	case "all":
		var preds []rule.Predicate
		err := eachEntry(e.LookupPath(cue.ParsePath("of")), field+".of", func(sub cue.Value, f string) error {
			p, err := compileFilter(sub, f)
			if err != nil {
				return err
			}
			preds = append(preds, p)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return rule.All(preds...), nil
	default:
		return nil, &CompileError{
			Field:   field + ".filter",
			Message: fmt.Sprintf("unknown filter %q, must be \"bound\", \"eq\", \"neq\" or \"all\"", kind),
			Pos:     fv.Pos(),
		}
	}
}
