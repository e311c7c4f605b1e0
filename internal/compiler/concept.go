package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// CompileConcept parses a CUE concept value into a ConceptSpec. The value
// is the concept struct itself; its label is the concept name:
//
//	concept: Simulation: {
//		purpose: "advance simulated time"
//		action: step: {
//			args: {id: string}
//			outputs: [{case: "Success", fields: {id: string, time: float}}]
//		}
//		query: getActive: {fields: {id: string}}
//	}
//
// Query labels get the "_" prefix that marks queries in action
// references; CUE hides underscore labels, so they are written without it.
func CompileConcept(v cue.Value) (*ir.ConceptSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ConceptSpec{Name: label(v)}

	purposeVal := v.LookupPath(cue.ParsePath("purpose"))
	if !purposeVal.Exists() {
		return nil, &CompileError{Field: "purpose", Message: "purpose is required", Pos: v.Pos()}
	}
	purpose, err := purposeVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	spec.Purpose = purpose

	if spec.State, err = parseStates(v); err != nil {
		return nil, err
	}
	if spec.Actions, err = parseActions(v); err != nil {
		return nil, err
	}
	if len(spec.Actions) == 0 {
		return nil, &CompileError{Field: "action", Message: "at least one action is required", Pos: v.Pos()}
	}
	if spec.Queries, err = parseQueries(v); err != nil {
		return nil, err
	}
	return spec, nil
}

func label(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return strings.Trim(sels[len(sels)-1].String(), `"`)
}

func parseStates(v cue.Value) ([]ir.StateSpec, error) {
	stateVal := v.LookupPath(cue.ParsePath("state"))
	if !stateVal.Exists() {
		return nil, nil
	}
	iter, err := stateVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var states []ir.StateSpec
	for iter.Next() {
		fields, err := parseTypedFields(iter.Value())
		if err != nil {
			return nil, err
		}
		states = append(states, ir.StateSpec{Name: iter.Label(), Fields: fields})
	}
	return states, nil
}

func parseActions(v cue.Value) ([]ir.ActionSig, error) {
	actionVal := v.LookupPath(cue.ParsePath("action"))
	if !actionVal.Exists() {
		return nil, nil
	}
	iter, err := actionVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var actions []ir.ActionSig
	for iter.Next() {
		name, av := iter.Label(), iter.Value()
		action := ir.ActionSig{Name: name}

		if action.Args, err = parseArgs(av); err != nil {
			return nil, err
		}

		outputsVal := av.LookupPath(cue.ParsePath("outputs"))
		if !outputsVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("action.%s.outputs", name),
				Message: "action outputs are required",
				Pos:     av.Pos(),
			}
		}
		outIter, err := outputsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for outIter.Next() {
			ov := outIter.Value()
			caseName, err := ov.LookupPath(cue.ParsePath("case")).String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			out := ir.OutputCase{Case: caseName, Fields: map[string]string{}}
			if fv := ov.LookupPath(cue.ParsePath("fields")); fv.Exists() {
				if out.Fields, err = parseTypedFields(fv); err != nil {
					return nil, err
				}
			}
			action.Outputs = append(action.Outputs, out)
		}
		actions = append(actions, action)
	}
	return actions, nil
}

func parseQueries(v cue.Value) ([]ir.QuerySig, error) {
	queryVal := v.LookupPath(cue.ParsePath("query"))
	if !queryVal.Exists() {
		return nil, nil
	}
	iter, err := queryVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var queries []ir.QuerySig
	for iter.Next() {
		name := iter.Label()
		if !strings.HasPrefix(name, "_") {
			name = "_" + name
		}
		q := ir.QuerySig{Name: name, Fields: map[string]string{}}
		if q.Args, err = parseArgs(iter.Value()); err != nil {
			return nil, err
		}
		if fv := iter.Value().LookupPath(cue.ParsePath("fields")); fv.Exists() {
			if q.Fields, err = parseTypedFields(fv); err != nil {
				return nil, err
			}
		}
		queries = append(queries, q)
	}
	return queries, nil
}

// parseArgs reads an args struct. Optional CUE fields (name?: type) become
// optional arguments.
func parseArgs(v cue.Value) ([]ir.NamedArg, error) {
	argsVal := v.LookupPath(cue.ParsePath("args"))
	if !argsVal.Exists() {
		return nil, nil
	}
	iter, err := argsVal.Fields(cue.Optional(true))
	if err != nil {
		return nil, formatCUEError(err)
	}

	var args []ir.NamedArg
	for iter.Next() {
		typ, err := extractTypeName(iter.Value())
		if err != nil {
			return nil, err
		}
		args = append(args, ir.NamedArg{
			Name:     iter.Label(),
			Type:     typ,
			Optional: iter.IsOptional(),
		})
	}
	return args, nil
}

func parseTypedFields(v cue.Value) (map[string]string, error) {
	iter, err := v.Fields(cue.Optional(true))
	if err != nil {
		return nil, formatCUEError(err)
	}
	fields := make(map[string]string)
	for iter.Next() {
		typ, err := extractTypeName(iter.Value())
		if err != nil {
			return nil, err
		}
		fields[iter.Label()] = typ
	}
	return fields, nil
}

// extractTypeName maps a CUE type to a signature type name. "_" (top) is
// "any"; int | float is "number".
func extractTypeName(v cue.Value) (string, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return "string", nil
	case cue.IntKind:
		return "int", nil
	case cue.FloatKind:
		return "float", nil
	case cue.NumberKind:
		return "number", nil
	case cue.BoolKind:
		return "bool", nil
	case cue.ListKind:
		return "array", nil
	case cue.StructKind:
		return "object", nil
	case cue.TopKind:
		return "any", nil
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}
