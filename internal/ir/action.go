package ir

import (
	"fmt"
	"sort"
	"strings"
)

// ValidTypes defines the allowed type strings for arguments and fields.
var ValidTypes = map[string]bool{
	"string": true,
	"int":    true,
	"float":  true,
	"number": true,
	"bool":   true,
	"array":  true,
	"object": true,
	"any":    true,
}

// ValidationError represents a validation error with field path and message.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks an ActionSig against schema rules.
// Returns all errors (not fail-fast) for better developer experience.
func (a *ActionSig) Validate() []ValidationError {
	var errs []ValidationError

	if strings.HasPrefix(a.Name, "_") {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("action %q must not start with an underscore (reserved for queries)", a.Name),
		})
	}
	if len(a.Outputs) == 0 {
		errs = append(errs, ValidationError{
			Field:   "outputs",
			Message: "at least one output case is required",
		})
	}

	seenCases := make(map[string]bool)
	for i, out := range a.Outputs {
		if seenCases[out.Case] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("outputs[%d].case", i),
				Message: fmt.Sprintf("duplicate output case name: %q", out.Case),
			})
		}
		seenCases[out.Case] = true
		errs = append(errs, validateFields(fmt.Sprintf("outputs[%d].fields", i), out.Fields)...)
	}

	errs = append(errs, validateArgs(a.Args)...)
	return errs
}

// Validate checks a QuerySig against schema rules.
func (q *QuerySig) Validate() []ValidationError {
	var errs []ValidationError
	if !strings.HasPrefix(q.Name, "_") {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("query %q must start with an underscore", q.Name),
		})
	}
	errs = append(errs, validateArgs(q.Args)...)
	errs = append(errs, validateFields("fields", q.Fields)...)
	return errs
}

func validateArgs(args []NamedArg) []ValidationError {
	var errs []ValidationError
	for i, arg := range args {
		if !ValidTypes[arg.Type] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("args[%d].type", i),
				Message: fmt.Sprintf("invalid type %q for arg %q, must be one of: %s", arg.Type, arg.Name, validTypeList()),
			})
		}
	}
	return errs
}

func validateFields(path string, fields map[string]string) []ValidationError {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []ValidationError
	for _, name := range names {
		if !ValidTypes[fields[name]] {
			errs = append(errs, ValidationError{
				Field:   path + "." + name,
				Message: fmt.Sprintf("invalid type %q, must be one of: %s", fields[name], validTypeList()),
			})
		}
	}
	return errs
}

func validTypeList() string {
	names := make([]string, 0, len(ValidTypes))
	for name := range ValidTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// CheckType reports whether v conforms to a declared type name.
func CheckType(typ string, v IRValue) bool {
	switch typ {
	case "any":
		return true
	case "number":
		_, ok := AsFloat(v)
		return ok
	case "float":
		_, ok := AsFloat(v)
		return ok
	}
	return TypeName(v) == typ
}
