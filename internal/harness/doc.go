// Package harness provides conformance testing for the annotation interning layer.
//
// The harness builds a fresh ir.Context per scenario, replays a list of
// construction requests against it, and evaluates assertions about identity
// and storage counts. Traces are compared against golden files.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	context_id: ctx-scenario     # optional, defaults to test-context
//	variants:                    # optional, registered before the steps run
//	  - kind: custom.Marker
//	    params: [label]
//	steps:
//	  - make: firrtl.passes.InlineAnnotation
//	    target: "~Top|Leaf"
//	    repeat: 3
//	    as: inline
//	  - make: stage.RunFirrtlTransformAnnotation
//	    params: [firrtl.transforms.Foo]
//	    as: foo
//	  - file: annos.json
//	assertions:
//	  - type: storage_count
//	    count: 2
//	  - type: same
//	    refs: [inline, inline2]
//	  - type: rejects
//	    make: stage.RunFirrtlTransformAnnotation
//	    params: [""]
//
// A step's make field accepts a kind or any registered class name. A file
// step compiles an annotation file (JSON, YAML or CUE) relative to the
// scenario.
//
// # Assertion Types
//
//   - storage_count: the context holds exactly count storages
//   - same: every named handle is the same handle
//   - distinct: the named handles are pairwise different
//   - rejects: the request fails as malformed and interns nothing
//   - transform_name: the named handle's transform name equals expect
//   - kind_mismatch: asking the named handle for a transform name panics
//   - round_trip: storing and reloading the context yields equal keys,
//     re-interned to canonical handles
//
// # Deterministic Testing
//
// Every scenario runs with a fixed context ID and a fresh logical clock, so
// the same scenario always produces a byte-identical trace.
package harness
