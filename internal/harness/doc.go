// Package harness runs synchronization scenarios.
//
// A scenario feeds a sequence of list states through one keyed
// synchronizer and checks the delegate callbacks each pass produces.
//
// # Scenario Format
//
// Scenarios are defined in YAML (or CUE) files with the following structure:
//
//	name: rotate
//	description: "Rotating a list only moves the displaced item"
//	key: id
//	passes:
//	  - items: [{id: a}, {id: b}, {id: c}]
//	  - items: [{id: b}, {id: c}, {id: a}]
//	    expect:
//	      ops: ["retain b", "retain c", "move a before END"]
//	      counts: { move: 1 }
//	      order: [b, c, a]
//	assertions:
//	  - type: op_count
//	    op: delete
//	    count: 0
//	  - type: final_order
//	    keys: [b, c, a]
//
// A pass may set fail_on to make the delegate reject the first callback
// whose op line starts with it, and expect.error to require the failure.
//
// # Assertion Types
//
//   - op_count: Verifies an op occurs exactly N times (optionally in one pass)
//   - final_order: Verifies the artifact key order after the last pass
//   - no_ops: Verifies none of the listed ops occur
//
// # Deterministic Testing
//
// Every run gets a fresh tag context, fresh artifacts and a private metrics
// registry. Keys that have no printable form are labelled $1, $2, ... in
// order of first appearance, so traces are identical across runs and can
// be compared against golden files with RunWithGolden.
package harness
