package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/rule"
)

// compileTerm converts a concrete CUE value into a rule term.
func compileTerm(v cue.Value, field string) (rule.Term, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return stringTerm(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return rule.I(n), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return rule.F(f), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return rule.B(b), nil
	case cue.NullKind:
		return rule.L(ir.IRNull{}), nil
	case cue.StructKind:
		fields, err := compileFields(v, field)
		if err != nil {
			return nil, err
		}
		return rule.Obj(fields), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		list := rule.List{}
		for i := 0; iter.Next(); i++ {
			t, err := compileTerm(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			list = append(list, t)
		}
		return list, nil
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("value must be concrete, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// stringTerm reads "?name" as a variable and "??text" as the literal
// "?text".
func stringTerm(s string) rule.Term {
	switch {
	case strings.HasPrefix(s, "??"):
		return rule.S(s[1:])
	case strings.HasPrefix(s, "?") && len(s) > 1:
		return rule.V(s[1:])
	default:
		return rule.S(s)
	}
}

// compileFields converts a CUE struct into rule fields. A missing value
// yields nil fields.
func compileFields(v cue.Value, field string) (rule.Fields, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a struct", Pos: v.Pos()}
	}
	fields := rule.Fields{}
	for iter.Next() {
		name := iter.Label()
		t, err := compileTerm(iter.Value(), field+"."+name)
		if err != nil {
			return nil, err
		}
		fields[name] = t
	}
	return fields, nil
}

// variable reads a "?name" string as a variable.
func variable(v cue.Value, field string) (rule.Var, error) {
	s, err := v.String()
	if err != nil || !strings.HasPrefix(s, "?") || strings.HasPrefix(s, "??") || len(s) < 2 {
		return rule.Var{}, &CompileError{Field: field, Message: `must be a variable like "?name"`, Pos: v.Pos()}
	}
	return rule.V(s[1:]), nil
}
