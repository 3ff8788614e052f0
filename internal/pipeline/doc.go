// Package pipeline describes the capture -> transfer -> processing -> storage
// visualization as data, and wires an engine and renderer from it.
//
// A Topology lists the component families (transition tables), the
// components laid out on the scene, the dependent-event chaining table, the
// visual styles and the built-in scenarios. Default returns the canonical
// pipeline; internal/compiler builds Topologies from CUE files.
//
// The default chain runs
//
//	actor DELIVERING -> pipe-1 FLOWING -> processor-1 RECEIVING -> PROCESSING
//	-> COMPLETE -> pipe-2 FLOWING -> sink-1 RECEIVING -> STORED
//
// with every component returning to its initial state afterwards.
package pipeline
