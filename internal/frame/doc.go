// Package frame holds variable bindings for rule evaluation.
//
// Variable names are interned per rule into dense indices (Var) when the
// rule is built, so a Frame is a fixed-size slot vector and unification is
// an index lookup plus ir.Equal. Frames are immutable: Bind returns a new
// frame and never mutates its receiver.
package frame
