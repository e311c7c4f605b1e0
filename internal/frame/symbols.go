package frame

// Var is an interned variable index, valid only with the Symbols that
// produced it.
type Var int

// Symbols interns variable names for one rule.
type Symbols struct {
	names []string
	index map[string]Var
}

// NewSymbols creates an empty symbol table.
func NewSymbols() *Symbols {
	return &Symbols{index: make(map[string]Var)}
}

// Intern returns the index of name, assigning the next one if needed.
func (s *Symbols) Intern(name string) Var {
	if v, ok := s.index[name]; ok {
		return v
	}
	v := Var(len(s.names))
	s.names = append(s.names, name)
	s.index[name] = v
	return v
}

// Lookup returns the index of an already interned name.
func (s *Symbols) Lookup(name string) (Var, bool) {
	v, ok := s.index[name]
	return v, ok
}

// Name returns the name for v.
func (s *Symbols) Name(v Var) string {
	if int(v) < 0 || int(v) >= len(s.names) {
		return ""
	}
	return s.names[v]
}

// Len returns the number of interned variables.
func (s *Symbols) Len() int {
	return len(s.names)
}

// Names returns the interned names in index order.
func (s *Symbols) Names() []string {
	return append([]string(nil), s.names...)
}
