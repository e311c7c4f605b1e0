// Package rule defines synchronization rules as data.
//
// A SyncRule has three clauses:
//
//	when:  action patterns matched against completed action records
//	where: concept query joins and pure filters over the frame set
//	then:  action templates resolved against each surviving frame
//
// Rules are authored with the builder (Sync(...).When(...).Then(...)) or
// compiled from CUE, and are immutable once built. Build interns every
// variable name into a frame.Var index.
package rule
