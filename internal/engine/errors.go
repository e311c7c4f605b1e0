package engine

import (
	"errors"
	"fmt"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// FaultCode categorizes engine faults.
type FaultCode string

const (
	// FaultUnresolvedVariable: a template, query argument or predicate read a
	// variable with no binding. Aborts the rest of that frame's templates.
	FaultUnresolvedVariable FaultCode = "UNRESOLVED_VARIABLE"

	// FaultDepthExceeded: an invocation would exceed the depth ceiling.
	// Aborts the whole cascade.
	FaultDepthExceeded FaultCode = "DEPTH_EXCEEDED"

	// FaultCycleDetected: with cycle detection on, the same rule fired twice
	// with the same bindings in one cascade.
	FaultCycleDetected FaultCode = "CYCLE_DETECTED"

	// FaultUnknownConcept: an invocation or query names a concept that was
	// never instrumented.
	FaultUnknownConcept FaultCode = "UNKNOWN_CONCEPT"

	// FaultActionFailed: a concept action returned an error or panicked.
	// No record is produced for it.
	FaultActionFailed FaultCode = "ACTION_FAILED"

	// FaultQueryFailed: a where-clause query returned an error.
	FaultQueryFailed FaultCode = "QUERY_FAILED"
)

// Fault is a structured, loud engine failure. Business errors returned by
// concepts are not faults; they are ordinary records.
type Fault struct {
	Code    FaultCode
	Message string

	// Flow identifies the cascade.
	Flow string

	// Rule is the rule being evaluated, if any.
	Rule string

	// Action is the action or query being invoked, if any.
	Action ir.ActionRef

	// Variable names the unbound variable for FaultUnresolvedVariable.
	Variable string

	// Depth is the depth at which the fault occurred.
	Depth int

	// Trigger is the id of the record whose dispatch faulted.
	Trigger string

	// Root identifies the stimulus that started the cascade.
	RootID     string
	RootAction ir.ActionRef

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	msg := fmt.Sprintf("%s: %s", f.Code, f.Message)
	if f.Err != nil && f.Code != FaultUnresolvedVariable {
		msg += ": " + f.Err.Error()
	}
	switch {
	case f.Flow != "" && f.Rule != "":
		return fmt.Sprintf("%s (flow=%s, rule=%s)", msg, f.Flow, f.Rule)
	case f.Flow != "":
		return fmt.Sprintf("%s (flow=%s)", msg, f.Flow)
	}
	return msg
}

// String renders a fault for CLI output.
func (f *Fault) String() string {
	if f.Variable != "" {
		return fmt.Sprintf("%s: %s [variable=%s]", f.Code, f.Message, f.Variable)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// Unwrap returns the underlying cause.
func (f *Fault) Unwrap() error {
	return f.Err
}

// AsFault extracts a *Fault from err.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsDepthFault reports whether err is a depth ceiling fault.
func IsDepthFault(err error) bool {
	return hasCode(err, FaultDepthExceeded)
}

// IsUnresolvedVariable reports whether err is an unresolved variable fault.
func IsUnresolvedVariable(err error) bool {
	return hasCode(err, FaultUnresolvedVariable)
}

// IsCycleFault reports whether err is a cycle detection fault.
func IsCycleFault(err error) bool {
	return hasCode(err, FaultCycleDetected)
}

func hasCode(err error, code FaultCode) bool {
	f, ok := AsFault(err)
	return ok && f.Code == code
}

// ErrUnknownConcept is wrapped by errors for actions on concepts that were
// never instrumented.
var ErrUnknownConcept = errors.New("unknown concept")

// ErrUnknownAction is returned by concepts for action or query names they do
// not implement.
var ErrUnknownAction = errors.New("unknown action")
