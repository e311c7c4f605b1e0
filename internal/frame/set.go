package frame

// Set is an ordered collection of frames. Order is deterministic and is
// the order in which then-templates are applied.
type Set []Frame

// Filter keeps the frames satisfying keep.
func (s Set) Filter(keep func(Frame) bool) Set {
	out := make(Set, 0, len(s))
	for _, f := range s {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// Expand replaces each frame with the frames fn returns, preserving order.
// Returning no frames drops the input frame.
func (s Set) Expand(fn func(Frame) (Set, error)) (Set, error) {
	var out Set
	for _, f := range s {
		next, err := fn(f)
		if err != nil {
			return nil, err
		}
		out = append(out, next...)
	}
	return out, nil
}

// Dedup drops frames whose bindings equal an earlier frame's. Frames
// without a canonical key are always kept.
func (s Set) Dedup() Set {
	seen := make(map[string]bool, len(s))
	out := make(Set, 0, len(s))
	for _, f := range s {
		k, ok := f.Key()
		if ok && seen[k] {
			continue
		}
		if ok {
			seen[k] = true
		}
		out = append(out, f)
	}
	return out
}
