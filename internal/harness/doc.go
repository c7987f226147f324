// Package harness provides conformance testing for the agreement
// workflow.
//
// The harness executes YAML scenarios against a fresh in-memory ledger
// and validates the resulting trace and token state. Every step runs
// through the real agreement machine and notification store, so expect
// clauses check outcomes the engines actually produced.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	roster: [alice, bob, charlie]
//	flow:
//	  - action: propose
//	    as: alice
//	    parties: [alice, bob, charlie]
//	    timestamp: 1600000000
//	    duration_s: 300
//	    save: p
//	  - action: approve
//	    as: bob
//	    ref: p
//	    save: p
//	  - action: approve
//	    as: charlie
//	    ref: p
//	    save: c
//	    expect:
//	      case: Finished
//	  - action: broadcast
//	    as: alice
//	    ref: c
//	assertions:
//	  - type: trace_order
//	    actions: [propose, approve, broadcast]
//	  - type: token
//	    owner: bob
//	    exists: true
//
// # Determinism
//
// Each scenario runs in a fresh in-memory database with a sequence
// handle generator, so handles (h-001, h-002, ...) and trace seq values
// are reproducible. Golden files compare the full trace byte for byte.
package harness
