// Package harness runs pipeline simulations deterministically and checks the
// resulting trace.
//
// A test case is a YAML file naming a scenario (or listing events inline),
// the pipeline to run it on and a set of assertions:
//
//	name: single_delivery
//	description: One delivery flows through every stage
//	scenario: single-delivery
//	assertions:
//	  - type: state_sequence
//	    component: processor-1
//	    states: [RECEIVING, PROCESSING, COMPLETE, IDLE]
//	  - type: final_state
//	    expect: {actor-1: WAITING, sink-1: IDLE}
//	  - type: no_errors
//
// Runs use a manual clock and scheduler ticking every step_ms (default 10ms),
// so the same case always produces the same trace. Traces can be compared to
// golden files with RunWithGolden.
//
// Usage:
//
//	c, err := harness.LoadCase("testdata/cases/single_delivery.yaml")
//	result, err := harness.Run(c)
//	if !result.Pass {
//	    for _, msg := range result.Errors { fmt.Println(msg) }
//	}
package harness
