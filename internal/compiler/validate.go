package compiler

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/rule"
)

// Validation error codes (E100-E199)
const (
	ErrUnsupportedType = "E100"

	// ConceptSpec errors (E101-E109)
	ErrConceptPurposeEmpty = "E101" // purpose is required
	ErrConceptNoActions    = "E102" // at least one action required
	ErrActionNoOutputs     = "E103" // action must have outputs
	ErrInvalidFieldType    = "E104" // invalid type string
	ErrDuplicateName       = "E105" // duplicate action/query/state name

	// SyncRule errors (E110-E119)
	ErrInvalidActionRef       = "E110" // invalid action reference format
	ErrInvalidWhereClause     = "E112" // invalid where clause
	ErrInvalidThenClause      = "E113" // invalid then clause
	ErrUndefinedBoundVariable = "E114" // variable read before it is bound
	ErrMissingSyncClause      = "E115" // missing required clause
	ErrUnknownReference       = "E117" // action or query not declared by any concept spec
)

// ValidationError is a schema validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled concept spec or sync rule and returns every
// error found.
func Validate(v any) []ValidationError {
	switch v := v.(type) {
	case *ir.ConceptSpec:
		return validateConceptSpec(v)
	case ir.ConceptSpec:
		return validateConceptSpec(&v)
	case *rule.SyncRule:
		return validateSyncRule(v)
	case rule.SyncRule:
		return validateSyncRule(&v)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

func validateConceptSpec(spec *ir.ConceptSpec) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(spec.Purpose) == "" {
		errs = append(errs, ValidationError{
			Field:   "purpose",
			Message: "purpose is required and must be non-empty",
			Code:    ErrConceptPurposeEmpty,
		})
	}
	if len(spec.Actions) == 0 {
		errs = append(errs, ValidationError{
			Field:   "actions",
			Message: "at least one action is required",
			Code:    ErrConceptNoActions,
		})
	}

	actionNames := make(map[string]bool)
	for i, action := range spec.Actions {
		if actionNames[action.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("actions[%d].name", i),
				Message: fmt.Sprintf("duplicate action name: %q", action.Name),
				Code:    ErrDuplicateName,
			})
		}
		actionNames[action.Name] = true

		if len(action.Outputs) == 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("actions[%d].outputs", i),
				Message: fmt.Sprintf("action %q must have at least one output case", action.Name),
				Code:    ErrActionNoOutputs,
			})
		}
		for j, arg := range action.Args {
			errs = append(errs, validateFieldType(arg.Type, fmt.Sprintf("actions[%d].args[%d].type", i, j), arg.Name)...)
		}
		for j, out := range action.Outputs {
			for _, name := range sortedNames(out.Fields) {
				errs = append(errs, validateFieldType(out.Fields[name], fmt.Sprintf("actions[%d].outputs[%d].fields.%s", i, j, name), name)...)
			}
		}
	}

	queryNames := make(map[string]bool)
	for i, q := range spec.Queries {
		if queryNames[q.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("queries[%d].name", i),
				Message: fmt.Sprintf("duplicate query name: %q", q.Name),
				Code:    ErrDuplicateName,
			})
		}
		queryNames[q.Name] = true
		for j, arg := range q.Args {
			errs = append(errs, validateFieldType(arg.Type, fmt.Sprintf("queries[%d].args[%d].type", i, j), arg.Name)...)
		}
		for _, name := range sortedNames(q.Fields) {
			errs = append(errs, validateFieldType(q.Fields[name], fmt.Sprintf("queries[%d].fields.%s", i, name), name)...)
		}
	}

	stateNames := make(map[string]bool)
	for i, state := range spec.State {
		if stateNames[state.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("state[%d].name", i),
				Message: fmt.Sprintf("duplicate state name: %q", state.Name),
				Code:    ErrDuplicateName,
			})
		}
		stateNames[state.Name] = true
		for _, name := range sortedNames(state.Fields) {
			errs = append(errs, validateFieldType(state.Fields[name], fmt.Sprintf("state[%d].fields.%s", i, name), name)...)
		}
	}

	return errs
}

func validateFieldType(fieldType, fieldPath, fieldName string) []ValidationError {
	if ir.ValidTypes[fieldType] {
		return nil
	}
	return []ValidationError{{
		Field:   fieldPath,
		Message: fmt.Sprintf("invalid type %q for field %q", fieldType, fieldName),
		Code:    ErrInvalidFieldType,
	}}
}

func validateSyncRule(r *rule.SyncRule) []ValidationError {
	var errs []ValidationError

	if len(r.When) == 0 {
		errs = append(errs, ValidationError{
			Field:   "when",
			Message: "at least one when pattern is required",
			Code:    ErrMissingSyncClause,
		})
	}
	if len(r.Then) == 0 {
		errs = append(errs, ValidationError{
			Field:   "then",
			Message: "at least one then template is required",
			Code:    ErrMissingSyncClause,
		})
	}

	for i, p := range r.When {
		if !isValidActionRef(p.Action) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("when[%d].action", i),
				Message: fmt.Sprintf("invalid action reference %q, expected format \"Concept.action\"", p.Action),
				Code:    ErrInvalidActionRef,
			})
		}
	}
	for i, s := range r.Where {
		j, ok := s.(rule.Join)
		if !ok {
			continue
		}
		if !isValidQueryRef(j.Query) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("where[%d].query", i),
				Message: fmt.Sprintf("invalid query reference %q, expected format \"Concept._query\"", j.Query),
				Code:    ErrInvalidWhereClause,
			})
		}
	}
	for i, t := range r.Then {
		if !isValidActionRef(t.Action) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("then[%d].action", i),
				Message: fmt.Sprintf("invalid action reference %q, expected format \"Concept.action\"", t.Action),
				Code:    ErrInvalidThenClause,
			})
		}
	}

	for _, issue := range rule.Check(r) {
		errs = append(errs, ValidationError{
			Field:   issue.Clause,
			Message: issue.Message,
			Code:    ErrUndefinedBoundVariable,
		})
	}

	return errs
}

// ValidateReferences reports actions and queries named by rules that no
// concept spec declares.
func ValidateReferences(specs []ir.ConceptSpec, rules []rule.SyncRule) []ValidationError {
	byName := make(map[string]ir.ConceptSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}

	known := func(ref ir.ActionRef) bool {
		spec, ok := byName[ref.Concept()]
		if !ok {
			return false
		}
		if ref.IsQuery() {
			_, ok = spec.Query(ref.Name())
		} else {
			_, ok = spec.Action(ref.Name())
		}
		return ok
	}

	var errs []ValidationError
	report := func(r *rule.SyncRule, field string, ref ir.ActionRef) {
		if known(ref) {
			return
		}
		errs = append(errs, ValidationError{
			Field:   r.ID() + "." + field,
			Message: fmt.Sprintf("%q is not declared by any concept spec", ref),
			Code:    ErrUnknownReference,
		})
	}

	for i := range rules {
		r := &rules[i]
		for j, p := range r.When {
			report(r, fmt.Sprintf("when[%d]", j), p.Action)
		}
		for j, s := range r.Where {
			if join, ok := s.(rule.Join); ok {
				report(r, fmt.Sprintf("where[%d]", j), join.Query)
			}
		}
		for j, t := range r.Then {
			report(r, fmt.Sprintf("then[%d]", j), t.Action)
		}
	}
	return errs
}

// actionRefPattern matches "Concept.action": the concept starts upper
// case, the action lower case.
var actionRefPattern = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*\.[a-z][a-zA-Z0-9_]*$`)

// queryRefPattern matches "Concept._query".
var queryRefPattern = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*\._[a-zA-Z][a-zA-Z0-9_]*$`)

func isValidActionRef(ref ir.ActionRef) bool {
	return actionRefPattern.MatchString(string(ref))
}

func isValidQueryRef(ref ir.ActionRef) bool {
	return queryRefPattern.MatchString(string(ref))
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
