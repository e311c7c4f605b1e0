package ir

import (
	"fmt"
	"strings"
)

// ActionRef is a typed reference to a concept action or query.
// Format: "Concept.action"; query names start with an underscore
// ("Project._getByUser").
type ActionRef string

// NewActionRef joins a concept and action name.
func NewActionRef(concept, action string) ActionRef {
	return ActionRef(concept + "." + action)
}

// ParseActionRef validates the "Concept.action" form.
func ParseActionRef(s string) (ActionRef, error) {
	concept, action, ok := strings.Cut(s, ".")
	if !ok || concept == "" || action == "" || strings.Contains(action, ".") {
		return "", fmt.Errorf("invalid action reference %q: want Concept.action", s)
	}
	return ActionRef(s), nil
}

// Concept returns the concept part of the reference.
func (a ActionRef) Concept() string {
	concept, _, _ := strings.Cut(string(a), ".")
	return concept
}

// Name returns the action or query part of the reference.
func (a ActionRef) Name() string {
	_, name, _ := strings.Cut(string(a), ".")
	return name
}

// IsQuery reports whether the reference names a read-only query.
func (a ActionRef) IsQuery() bool {
	return strings.HasPrefix(a.Name(), "_")
}

func (a ActionRef) String() string { return string(a) }
