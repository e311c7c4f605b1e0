// Package harness runs YAML scenarios through the real engine, composed
// with the demo concepts, and checks the resulting trace.
//
// # Scenario Format
//
//	name: login_creates_session
//	description: "A successful login opens exactly one session"
//	specs: ../specs          # optional CUE rule directory; built-in rule sets otherwise
//	max_depth: 8             # optional depth ceiling
//	cycle_detection: false   # optional
//	seed: true               # optional: create the sun and eight planets first
//	setup:
//	  - action: API.request
//	    input: {method: register, username: alice, email: a@example.com, password: secret1}
//	flow:
//	  - invoke: API.request
//	    input: {method: login, username: alice, password: secret1}
//	    expect:
//	      output: {request: request-2}
//	      response: {success: true, session: session-1}
//	      actions: [API.request, User.login, Session.create, API.response]
//	assertions:
//	  - type: trace_count
//	    action: Session.create
//	    count: 1
//	  - type: final_state
//	    query: Session._getByUser
//	    args: {user: user-1}
//	    expect: {token: token-1}
//
// Expected objects match as subsets: only the fields written are compared,
// recursively. Setup steps must succeed without faults and are left out of
// the trace.
//
// # Assertion Types
//
//   - trace_contains: a record for action whose input and output contain
//     the given fields
//   - trace_order: the actions' first occurrences appear in this order
//   - trace_count: action appears exactly count times
//   - no_faults: no step raised a fault
//   - fault: a fault with code (and rule, when given) was raised
//   - final_state: a query returns count rows (when given) and some row
//     contains expect
//
// # Deterministic Runs
//
// Every scenario runs on a fresh testutil.Platform: flow tokens flow-1,
// flow-2, ..., entity ids kind-N and a wall clock fixed at testutil.Epoch.
// The trace snapshot is canonical JSON, so reruns are byte-identical and
// can be compared against golden files.
package harness
