// Package harness runs request scenarios through the engine and checks the
// statements it sends.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	caller: 11111111-2222-3333-4444-555555555555
//	sequence_start: 0
//	steps:
//	  - function: changeNode
//	    query:
//	      node: { type: topic, properties: { name: Go }, merge: true }
//	      changes: [ { property: desc, value: lang } ]
//	    store:
//	      - rows: []
//	      - rows: [ { node: { identity: 1 } } ]
//	    expect:
//	      rows: 1
//	assertions:
//	  - type: statement_contains
//	    step: 0
//	    text: "CREATE (node:topic"
//
// The store list scripts the graph store's answers to the step's
// statements, in order. Statements beyond the script match nothing.
//
// # Assertion Types
//
//   - statement_contains: some statement (of one step, or of any) contains text
//   - statement_order: texts appear in statements in the given order
//   - statement_count: exactly count statements were sent
//   - changelog_numbers: a step allocated exactly these change log numbers
//
// # Deterministic Testing
//
// Every scenario runs with a fresh testutil.DeterministicClock and
// testutil.SequentialGUIDs, so the statements and parameters it produces
// are byte-identical across runs and can be compared with golden files.
package harness
