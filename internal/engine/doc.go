// Package engine runs synchronization rules over instrumented concepts.
//
// Every concept is wrapped in a Handle. Invoking an action through a Handle
// runs the concept, seals the result into an immutable ir.ActionRecord and
// notifies the dispatcher, which evaluates every rule that mentions the
// action in its when clause:
//
//  1. match: unify the record (and, for multi-pattern rules, earlier
//     records of the same cascade) with the when patterns
//  2. join: run where-clause queries and filters over the frame set
//  3. effect: resolve then templates against each frame and invoke them
//     through the same instrumented path
//
// Each invocation made in the effect phase is itself a record that is
// dispatched before the next template runs, so a cascade is evaluated
// depth-first and is complete by the time the root Invoke returns.
//
// Root stimuli are serialized by the engine; rules are evaluated in
// declaration order and frames in join order, so a cascade is
// deterministic given deterministic concepts.
//
// Cascades are bounded by a depth ceiling (WithMaxDepth). Configuration
// defects (unbound variables, unknown concepts) and exceeded ceilings are
// reported as *Fault values to the logger and to observers; they abort the
// offending branch or cascade, never the process.
package engine
