// Package ir provides the value model shared by every other package: the
// sealed IRValue type, action references, immutable action records,
// concept signatures and canonical JSON for content-addressed ids.
//
// ir imports nothing internal.
//
// Key constraints:
//   - values are JSON-shaped; floats must be finite
//   - record ids are SHA-256 over canonical JSON with a domain prefix
//   - logical clocks (seq) only, never wall-clock timestamps
package ir
