package ir

// ConceptSpec is a declared concept signature. Concepts are opaque at
// runtime; specs are used for validation and documentation only.
type ConceptSpec struct {
	Name    string      `json:"name"`
	Purpose string      `json:"purpose"`
	State   []StateSpec `json:"state,omitempty"`
	Actions []ActionSig `json:"actions"`
	Queries []QuerySig  `json:"queries,omitempty"`
}

// ActionSig is an action signature with typed inputs and output cases.
type ActionSig struct {
	Name    string       `json:"name"`
	Args    []NamedArg   `json:"args"`
	Outputs []OutputCase `json:"outputs"`
}

// QuerySig is a query signature. Each result row carries Fields.
type QuerySig struct {
	Name   string            `json:"name"`
	Args   []NamedArg        `json:"args"`
	Fields map[string]string `json:"fields"`
}

// OutputCase is one output shape of an action ("Success", "Error", ...).
type OutputCase struct {
	Case   string            `json:"case"`
	Fields map[string]string `json:"fields"`
}

// StateSpec documents a piece of concept state.
type StateSpec struct {
	Name   string            `json:"name"`
	Fields map[string]string `json:"fields"`
}

// NamedArg is a named, typed argument.
type NamedArg struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional,omitempty"`
}

// Action returns the named action signature.
func (c ConceptSpec) Action(name string) (ActionSig, bool) {
	for _, a := range c.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return ActionSig{}, false
}

// Query returns the named query signature.
func (c ConceptSpec) Query(name string) (QuerySig, bool) {
	for _, q := range c.Queries {
		if q.Name == name {
			return q, true
		}
	}
	return QuerySig{}, false
}

// OutputFields returns the union of field names across all output cases.
func (a ActionSig) OutputFields() map[string]bool {
	fields := make(map[string]bool)
	for _, out := range a.Outputs {
		for name := range out.Fields {
			fields[name] = true
		}
	}
	return fields
}
