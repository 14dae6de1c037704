// Package harness runs YAML conformance scenarios against the store.
//
// # Scenario Format
//
//	name: update_in_place
//	description: "Putting over an object swaps only the changed quad"
//	schema:
//	  type: object
//	  properties:
//	    id: { type: string }
//	    name: { type: string }
//	ids: [gen-1]          # ids handed out for objects put without one
//	label: tenant-a       # optional quad label
//	steps:
//	  - op: put
//	    object: { id: foo, name: bar }
//	  - op: put
//	    object: { id: foo, name: baz }
//	    overwrite: false
//	    expect_error: overwrite_conflict
//	  - op: get
//	    id: foo
//	    expect: { id: foo, name: bar }
//	  - op: query
//	    filter: "name=bar"
//	    expect: [{ id: foo, name: bar }]
//	  - op: delete
//	    id: foo
//	    expect: true
//	assertions:
//	  - type: quad_count
//	    subject: foo
//	    count: 0
//	  - type: stored
//	    id: foo
//	    expect: null
//
// # Comparing Objects
//
// Expected objects are compared by their encoding under the scenario schema,
// so 5 and 5.0 are equal for a number field and a date may be written as its
// RFC 3339 text. Query results compare as an unordered set.
//
// # Deterministic Testing
//
// Every scenario runs on a fresh in-memory backend with fixed ids, so the
// trace of a run is byte-identical across runs and can be compared against a
// golden file.
package harness
