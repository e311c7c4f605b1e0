package frame

import (
	"strconv"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// Frame is an immutable mapping from variables to values. A nil slot is
// unbound.
type Frame struct {
	slots []ir.IRValue
}

// Empty returns a frame with n unbound variables.
func Empty(n int) Frame {
	return Frame{slots: make([]ir.IRValue, n)}
}

// Len returns the number of variable slots.
func (f Frame) Len() int {
	return len(f.slots)
}

// Get returns the value bound to v.
func (f Frame) Get(v Var) (ir.IRValue, bool) {
	if int(v) < 0 || int(v) >= len(f.slots) {
		return nil, false
	}
	val := f.slots[v]
	return val, val != nil
}

// Bound reports whether v has a value.
func (f Frame) Bound(v Var) bool {
	_, ok := f.Get(v)
	return ok
}

// Bind unifies v with val. An unbound variable yields a new frame holding
// val; a bound one succeeds only if the values are equal, returning f
// unchanged. The second result is false on a unification failure.
func (f Frame) Bind(v Var, val ir.IRValue) (Frame, bool) {
	if val == nil {
		val = ir.IRNull{}
	}
	if int(v) < 0 || int(v) >= len(f.slots) {
		return f, false
	}
	if cur := f.slots[v]; cur != nil {
		return f, ir.Equal(cur, val)
	}
	slots := make([]ir.IRValue, len(f.slots))
	copy(slots, f.slots)
	slots[v] = val
	return Frame{slots: slots}, true
}

// Object renders the bound variables by name, for tracing and hashing.
func (f Frame) Object(syms *Symbols) ir.IRObject {
	obj := make(ir.IRObject)
	for i, val := range f.slots {
		if val != nil {
			obj[syms.Name(Var(i))] = val
		}
	}
	return obj
}

// Key returns a canonical string identifying the frame's bindings. ok is
// false when a bound value has no canonical form (a non-finite float).
func (f Frame) Key() (key string, ok bool) {
	obj := make(ir.IRObject)
	for i, val := range f.slots {
		if val != nil {
			obj[strconv.Itoa(i)] = val
		}
	}
	b, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", false
	}
	return string(b), true
}

